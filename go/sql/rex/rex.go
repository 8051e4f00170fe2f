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

// Package rex holds row expressions: the scalar expression trees carried
// by relational plan nodes.
package rex

import (
	"strconv"
	"strings"

	"github.com/druidplan/druidplan/go/sql/macros"
	"github.com/druidplan/druidplan/go/sql/operators"
	"github.com/druidplan/druidplan/go/sql/sqltypes"
)

type (
	// Expr is a row expression. Expressions are immutable; rewrites
	// produce new trees and share unchanged subtrees.
	Expr interface {
		Type() sqltypes.Type
		Operands() []Expr
		WithOperands(operands []Expr) Expr
		// String is the expression digest. Two expressions with equal
		// digests are interchangeable.
		String() string
	}

	// Literal is a constant.
	Literal struct {
		Value sqltypes.Value
	}

	// InputRef refers to a field of the input row by position.
	InputRef struct {
		Index int
		Name  string
		Typ   sqltypes.Type
	}

	// Call applies a registered operator.
	Call struct {
		Op   *operators.Operator
		Args []Expr
		Typ  sqltypes.Type
	}

	// MacroCall applies an engine-native macro.
	MacroCall struct {
		Macro *macros.Macro
		Args  []Expr
		Typ   sqltypes.Type
	}
)

// Executor reduces expressions to simpler equivalent ones, typically by
// evaluating constant subtrees.
type Executor interface {
	Reduce(exprs []Expr) ([]Expr, error)
}

var (
	_ Expr = (*Literal)(nil)
	_ Expr = (*InputRef)(nil)
	_ Expr = (*Call)(nil)
	_ Expr = (*MacroCall)(nil)
)

// NewLiteral wraps a value.
func NewLiteral(v sqltypes.Value) *Literal {
	return &Literal{Value: v}
}

func (l *Literal) Type() sqltypes.Type { return l.Value.Type() }
func (l *Literal) Operands() []Expr { return nil }
func (l *Literal) WithOperands([]Expr) Expr { return l }
func (l *Literal) String() string { return l.Value.String() }
func (r *InputRef) Type() sqltypes.Type { return r.Typ }
func (r *InputRef) Operands() []Expr { return nil }
func (r *InputRef) WithOperands([]Expr) Expr { return r }
func (r *InputRef) String() string { return "$" + strconv.Itoa(r.Index) }
func (c *Call) Type() sqltypes.Type { return c.Typ }
func (c *Call) Operands() []Expr { return c.Args }
func (m *MacroCall) Type() sqltypes.Type { return m.Typ }
func (m *MacroCall) Operands() []Expr { return m.Args }

func (c *Call) WithOperands(operands []Expr) Expr {
	return &Call{Op: c.Op, Args: operands, Typ: c.Typ}
}

func (c *Call) String() string {
	if c.Op.Name == "CAST" {
		return "CAST(" + c.Args[0].String() + " AS " + c.Typ.String() + ")"
	}
	return c.Op.Name + "(" + joinDigests(c.Args) + ")"
}

func (m *MacroCall) WithOperands(operands []Expr) Expr {
	return &MacroCall{Macro: m.Macro, Args: operands, Typ: m.Typ}
}

func (m *MacroCall) String() string {
	return m.Macro.Name + "(" + joinDigests(m.Args) + ")"
}

func joinDigests(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
