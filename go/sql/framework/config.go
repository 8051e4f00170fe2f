/*
Copyright 2025 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package framework is the generic SQL planner: it parses a statement,
// validates it against a catalog view, converts it to a logical plan and
// runs rule programs over that plan. It knows nothing about the engine;
// everything engine-specific is supplied through Config.
package framework

import (
	"github.com/pingcap/parser/ast"

	"github.com/druidplan/druidplan/go/sql/dialect"
	"github.com/druidplan/druidplan/go/sql/operators"
	"github.com/druidplan/druidplan/go/sql/rel"
	"github.com/druidplan/druidplan/go/sql/rex"
	"github.com/druidplan/druidplan/go/sql/schema"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

// Convertlet converts one syntax node into a row expression. Operands are
// converted through cx.
type Convertlet func(cx *ConvertContext, node ast.ExprNode) (rex.Expr, error)

// ConvertletTable picks the convertlet for a syntax node. Nodes it does
// not claim get the default conversion.
type ConvertletTable interface {
	Lookup(node ast.ExprNode) (Convertlet, bool)
}

// Config lists every option of a Planner. All fields except Executor and
// OnRule are required.
type Config struct {
	// Parser controls identifier casing and quoting.
	Parser dialect.Config
	// Traits are the physical properties rule programs may change.
	Traits      []rel.TraitDef
	Convertlets ConvertletTable
	Operators   *operators.Table
	// Programs run in order on the logical plan.
	Programs []rel.Program
	// Executor folds constant expressions. Nil disables folding.
	Executor rex.Executor
	// DefaultSchema resolves unqualified table names.
	DefaultSchema *schema.View
	// OnRule is called after every rule application.
	OnRule func(program, rule string)
}

func (cfg *Config) validate() error {
	switch {
	case cfg.Convertlets == nil:
		return sqlerrors.New(sqlerrors.Configuration, "planner config: no convertlet table")
	case cfg.Operators == nil:
		return sqlerrors.New(sqlerrors.Configuration, "planner config: no operator table")
	case cfg.DefaultSchema == nil:
		return sqlerrors.New(sqlerrors.Configuration, "planner config: no default schema")
	case len(cfg.Programs) == 0:
		return sqlerrors.New(sqlerrors.Configuration, "planner config: no programs")
	case cfg.Parser.UnquotedCasing != cfg.Parser.QuotedCasing:
		// the parser does not record whether an identifier was quoted
		return sqlerrors.New(sqlerrors.Configuration, "planner config: quoted and unquoted identifiers must use the same casing")
	}
	seen := map[rel.TraitDef]bool{}
	for _, t := range cfg.Traits {
		if seen[t] {
			return sqlerrors.Errorf(sqlerrors.Configuration, "planner config: duplicate trait %s", t)
		}
		seen[t] = true
	}
	if !seen[rel.ConventionTraitDef] {
		return sqlerrors.New(sqlerrors.Configuration, "planner config: the convention trait is required")
	}
	return nil
}
