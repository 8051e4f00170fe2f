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
	"strconv"
	"strings"

	"github.com/pingcap/parser/ast"
	"github.com/pingcap/parser/format"
	"github.com/pingcap/parser/mysql"
	"github.com/pingcap/parser/opcode"
	"github.com/spf13/cast"

	"github.com/druidplan/druidplan/go/sql/operators"
	"github.com/druidplan/druidplan/go/sql/rel"
	"github.com/druidplan/druidplan/go/sql/rex"
	"github.com/druidplan/druidplan/go/sql/sqltypes"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

var binaryOps = map[opcode.Op]string{
	opcode.EQ:       "=",
	opcode.NE:       "<>",
	opcode.LT:       "<",
	opcode.LE:       "<=",
	opcode.GT:       ">",
	opcode.GE:       ">=",
	opcode.LogicAnd: "AND",
	opcode.LogicOr:  "OR",
	opcode.Plus:     "+",
	opcode.Minus:    "-",
	opcode.Mul:      "*",
	opcode.Div:      "/",
	opcode.IntDiv:   "/",
	opcode.Mod:      "%",
}

// scope is what column references resolve against.
type scope struct {
	namespace string
	table     string
	fields    rel.RowType
}

// ConvertContext converts syntax trees into row expressions over one
// scope. Convertlets receive it to convert their operands.
type ConvertContext struct {
	cfg   *Config
	scope *scope
	// hook is consulted before any other conversion. It claims a node by
	// returning true.
	hook func(cx *ConvertContext, node ast.ExprNode) (rex.Expr, bool, error)
}

// Operators returns the operator table of the planner.
func (cx *ConvertContext) Operators() *operators.Table {
	return cx.cfg.Operators
}

// Convert converts node, consulting the convertlet table first.
func (cx *ConvertContext) Convert(node ast.ExprNode) (rex.Expr, error) {
	if cx.hook != nil {
		if e, ok, err := cx.hook(cx, node); ok || err != nil {
			return e, err
		}
	}
	if c, ok := cx.cfg.Convertlets.Lookup(node); ok {
		return c(cx, node)
	}
	return cx.ConvertDefault(node)
}

// ConvertAll converts every node.
func (cx *ConvertContext) ConvertAll(nodes []ast.ExprNode) ([]rex.Expr, error) {
	out := make([]rex.Expr, len(nodes))
	for i, n := range nodes {
		e, err := cx.Convert(n)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// Call builds a call of the operator named name.
func (cx *ConvertContext) Call(name string, args ...rex.Expr) (rex.Expr, error) {
	op, ok := cx.cfg.Operators.Lookup(name)
	if !ok {
		return nil, sqlerrors.Errorf(sqlerrors.Validation, "no function matches the name %s", name)
	}
	if op.Kind == operators.Aggregate {
		return nil, sqlerrors.Errorf(sqlerrors.Validation, "aggregate function %s is not allowed here", op.Name)
	}
	c, err := rex.NewCall(op, args...)
	if err != nil {
		return nil, sqlerrors.Errorf(sqlerrors.Validation, "%v", err)
	}
	return c, nil
}

// ConvertDefault converts node without consulting the convertlet table
// for node itself. Operands still go through Convert.
func (cx *ConvertContext) ConvertDefault(node ast.ExprNode) (rex.Expr, error) {
	switch n := node.(type) {
	case ast.ValueExpr:
		v, err := LiteralValue(n)
		if err != nil {
			return nil, err
		}
		return rex.NewLiteral(v), nil
	case *ast.ColumnNameExpr:
		return cx.resolve(n.Name)
	case *ast.ParenthesesExpr:
		return cx.Convert(n.Expr)
	case *ast.BinaryOperationExpr:
		name, ok := binaryOps[n.Op]
		if !ok {
			return nil, sqlerrors.Errorf(sqlerrors.Validation, "unsupported operator %v", n.Op)
		}
		args, err := cx.ConvertAll([]ast.ExprNode{n.L, n.R})
		if err != nil {
			return nil, err
		}
		return cx.Call(name, args...)
	case *ast.UnaryOperationExpr:
		arg, err := cx.Convert(n.V)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case opcode.Plus:
			return arg, nil
		case opcode.Minus:
			return cx.Call("NEGATE", arg)
		case opcode.Not:
			return cx.Call("NOT", arg)
		}
		return nil, sqlerrors.Errorf(sqlerrors.Validation, "unsupported operator %v", n.Op)
	case *ast.IsNullExpr:
		arg, err := cx.Convert(n.Expr)
		if err != nil {
			return nil, err
		}
		if n.Not {
			return cx.Call("IS NOT NULL", arg)
		}
		return cx.Call("IS NULL", arg)
	case *ast.PatternInExpr:
		return cx.convertIn(n)
	case *ast.BetweenExpr:
		args, err := cx.ConvertAll([]ast.ExprNode{n.Expr, n.Left, n.Right})
		if err != nil {
			return nil, err
		}
		lower, err := cx.Call(">=", args[0], args[1])
		if err != nil {
			return nil, err
		}
		upper, err := cx.Call("<=", args[0], args[2])
		if err != nil {
			return nil, err
		}
		between, err := cx.Call("AND", lower, upper)
		if err != nil || !n.Not {
			return between, err
		}
		return cx.Call("NOT", between)
	case *ast.FuncCastExpr:
		arg, err := cx.Convert(n.Expr)
		if err != nil {
			return nil, err
		}
		typ, err := castType(n.Tp.Tp)
		if err != nil {
			return nil, err
		}
		return rex.NewCast(cx.cfg.Operators, arg, typ), nil
	case *ast.FuncCallExpr:
		args, err := cx.ConvertAll(n.Args)
		if err != nil {
			return nil, err
		}
		return cx.Call(n.FnName.O, args...)
	case *ast.AggregateFuncExpr:
		return nil, sqlerrors.Errorf(sqlerrors.Validation, "aggregate function %s is not allowed here", strings.ToUpper(n.F))
	case *ast.SubqueryExpr, *ast.ExistsSubqueryExpr, *ast.CompareSubqueryExpr:
		return nil, sqlerrors.New(sqlerrors.Validation, "subqueries are not supported")
	case *ast.WindowFuncExpr:
		return nil, sqlerrors.New(sqlerrors.Validation, "window functions are not supported")
	}
	return nil, sqlerrors.Errorf(sqlerrors.Validation, "unsupported expression %s", restore(node))
}

func (cx *ConvertContext) convertIn(n *ast.PatternInExpr) (rex.Expr, error) {
	if n.Sel != nil {
		return nil, sqlerrors.New(sqlerrors.Validation, "subqueries are not supported")
	}
	arg, err := cx.Convert(n.Expr)
	if err != nil {
		return nil, err
	}
	values, err := cx.ConvertAll(n.List)
	if err != nil {
		return nil, err
	}
	var in rex.Expr
	for _, v := range values {
		eq, err := cx.Call("=", arg, v)
		if err != nil {
			return nil, err
		}
		if in == nil {
			in = eq
			continue
		}
		if in, err = cx.Call("OR", in, eq); err != nil {
			return nil, err
		}
	}
	if n.Not {
		return cx.Call("NOT", in)
	}
	return in, nil
}

func (cx *ConvertContext) resolve(col *ast.ColumnName) (rex.Expr, error) {
	s, d := cx.scope, cx.cfg.Parser
	if col.Schema.O != "" && !d.SameIdentifier(d.UnquotedCasing.Apply(col.Schema.O), s.namespace) {
		return nil, sqlerrors.Errorf(sqlerrors.Validation, "namespace %q not found", col.Schema.O)
	}
	if col.Table.O != "" && !d.SameIdentifier(d.UnquotedCasing.Apply(col.Table.O), s.table) {
		return nil, sqlerrors.Errorf(sqlerrors.Validation, "table %q not found", col.Table.O)
	}
	name := d.UnquotedCasing.Apply(col.Name.O)
	found := -1
	for i, f := range s.fields {
		if !d.SameIdentifier(name, f.Name) {
			continue
		}
		if found >= 0 {
			return nil, sqlerrors.Errorf(sqlerrors.Validation, "column %q is ambiguous", col.Name.O)
		}
		found = i
	}
	if found < 0 {
		return nil, sqlerrors.Errorf(sqlerrors.Validation, "column %q not found in any table", col.Name.O)
	}
	f := s.fields[found]
	return &rex.InputRef{Index: found, Name: f.Name, Typ: f.Type}, nil
}

// LiteralValue converts a parsed literal.
func LiteralValue(v ast.ValueExpr) (sqltypes.Value, error) {
	switch x := v.GetValue().(type) {
	case nil:
		return sqltypes.NULL, nil
	case int64:
		return sqltypes.NewInt64(x), nil
	case uint64:
		i, err := cast.ToInt64E(x)
		if err != nil {
			return sqltypes.NULL, sqlerrors.Errorf(sqlerrors.Validation, "numeric literal %d out of range", x)
		}
		return sqltypes.NewInt64(i), nil
	case float64:
		return sqltypes.NewFloat64(x), nil
	case float32:
		return sqltypes.NewFloat64(float64(x)), nil
	case string:
		return sqltypes.NewVarChar(x), nil
	}
	// decimals have no Go type of their own; go through their SQL text
	text := restore(v)
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return sqltypes.NULL, sqlerrors.Errorf(sqlerrors.Validation, "unsupported literal %s", text)
	}
	return sqltypes.NewFloat64(f), nil
}

func castType(tp byte) (sqltypes.Type, error) {
	switch tp {
	case mysql.TypeTiny, mysql.TypeShort, mysql.TypeInt24, mysql.TypeLong, mysql.TypeLonglong:
		return sqltypes.Bigint, nil
	case mysql.TypeFloat:
		return sqltypes.Float, nil
	case mysql.TypeDouble, mysql.TypeNewDecimal:
		return sqltypes.Double, nil
	case mysql.TypeVarchar, mysql.TypeVarString, mysql.TypeString:
		return sqltypes.Varchar, nil
	case mysql.TypeDate:
		return sqltypes.Date, nil
	case mysql.TypeDatetime, mysql.TypeTimestamp:
		return sqltypes.Timestamp, nil
	}
	return sqltypes.Null, sqlerrors.Errorf(sqlerrors.Validation, "unsupported CAST target type %d", tp)
}

// restore renders a syntax node back to SQL text.
func restore(node ast.Node) string {
	var sb strings.Builder
	if err := node.Restore(format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)); err != nil {
		return "?"
	}
	return sb.String()
}
