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

package framework

import (
	"strings"

	"github.com/pingcap/parser/ast"

	"github.com/druidplan/druidplan/go/sql/schema"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

// Validated is a statement whose shape is supported and whose table
// resolved in the default schema.
type Validated struct {
	Stmt  *ast.SelectStmt
	Table *schema.Table
	// Alias is the name the table is referred to by in the statement.
	Alias string
}

func validate(cfg *Config, stmt ast.StmtNode) (*Validated, error) {
	sel, ok := stmt.(*ast.SelectStmt)
	if !ok {
		return nil, sqlerrors.Errorf(sqlerrors.Validation, "only SELECT statements are supported, got %s", statementKind(stmt))
	}
	if sel.From == nil || sel.From.TableRefs == nil {
		return nil, sqlerrors.New(sqlerrors.Validation, "SELECT without FROM is not supported")
	}
	join := sel.From.TableRefs
	if join.Right != nil {
		return nil, sqlerrors.New(sqlerrors.Validation, "joins are not supported")
	}
	source, ok := join.Left.(*ast.TableSource)
	if !ok {
		return nil, sqlerrors.New(sqlerrors.Validation, "joins are not supported")
	}
	tn, ok := source.Source.(*ast.TableName)
	if !ok {
		return nil, sqlerrors.New(sqlerrors.Validation, "subqueries are not supported")
	}
	if len(sel.WindowSpecs) > 0 {
		return nil, sqlerrors.New(sqlerrors.Validation, "window functions are not supported")
	}

	chk := &shapeChecker{root: sel}
	sel.Accept(chk)
	if chk.err != nil {
		return nil, chk.err
	}

	table, err := resolveTable(cfg, tn)
	if err != nil {
		return nil, err
	}
	alias := table.Name
	if source.AsName.O != "" {
		alias = cfg.Parser.UnquotedCasing.Apply(source.AsName.O)
	}
	return &Validated{Stmt: sel, Table: table, Alias: alias}, nil
}

func resolveTable(cfg *Config, tn *ast.TableName) (*schema.Table, error) {
	view, d := cfg.DefaultSchema, cfg.Parser
	if tn.Schema.O != "" && !d.SameIdentifier(d.UnquotedCasing.Apply(tn.Schema.O), view.Name()) {
		return nil, sqlerrors.Errorf(sqlerrors.Validation, "namespace %q not found", tn.Schema.O)
	}
	name := d.UnquotedCasing.Apply(tn.Name.O)
	if t, ok := view.Table(name); ok {
		return t, nil
	}
	if !d.CaseSensitive {
		for _, candidate := range view.TableNames() {
			if d.SameIdentifier(name, candidate) {
				t, _ := view.Table(candidate)
				return t, nil
			}
		}
	}
	return nil, sqlerrors.Errorf(sqlerrors.Validation, "table %q not found in namespace %q", tn.Name.O, view.Name())
}

// shapeChecker rejects constructs outside the supported subset anywhere
// in the statement.
type shapeChecker struct {
	root *ast.SelectStmt
	err  error
}

func (c *shapeChecker) Enter(n ast.Node) (ast.Node, bool) {
	if c.err != nil {
		return n, true
	}
	switch n := n.(type) {
	case *ast.SelectStmt:
		if n != c.root {
			c.err = sqlerrors.New(sqlerrors.Validation, "subqueries are not supported")
		}
	case *ast.SubqueryExpr, *ast.ExistsSubqueryExpr, *ast.CompareSubqueryExpr:
		c.err = sqlerrors.New(sqlerrors.Validation, "subqueries are not supported")
	case *ast.WindowFuncExpr:
		c.err = sqlerrors.New(sqlerrors.Validation, "window functions are not supported")
	case *ast.Join:
		if n.Right != nil {
			c.err = sqlerrors.New(sqlerrors.Validation, "joins are not supported")
		}
	case *ast.VariableExpr:
		c.err = sqlerrors.New(sqlerrors.Validation, "variables are not supported")
	}
	return n, c.err != nil
}

func (c *shapeChecker) Leave(n ast.Node) (ast.Node, bool) {
	return n, c.err == nil
}

func statementKind(stmt ast.StmtNode) string {
	switch stmt.(type) {
	case *ast.UnionStmt:
		return "UNION"
	case *ast.InsertStmt:
		return "INSERT"
	case *ast.UpdateStmt:
		return "UPDATE"
	case *ast.DeleteStmt:
		return "DELETE"
	}
	text := restore(stmt)
	if i := strings.IndexByte(text, ' '); i > 0 {
		return strings.ToUpper(text[:i])
	}
	return "statement"
}
