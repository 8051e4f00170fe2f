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

// Package convertlet holds the engine-specific conversions of SQL syntax
// into row expressions: time functions evaluated in the query's time zone,
// temporal literals and LIKE.
package convertlet

import (
	"strings"
	"time"

	"github.com/pingcap/parser/ast"
	"github.com/pingcap/parser/opcode"
	"github.com/spf13/cast"

	"github.com/druidplan/druidplan/go/sql/framework"
	"github.com/druidplan/druidplan/go/sql/macros"
	"github.com/druidplan/druidplan/go/sql/plancontext"
	"github.com/druidplan/druidplan/go/sql/rex"
	"github.com/druidplan/druidplan/go/sql/sqltypes"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

// Table is the convertlet table of one query. Its conversions read the
// query's clock and time zone from the planner context.
type Table struct {
	pctx  *plancontext.PlannerContext
	funcs map[string]framework.Convertlet
}

var _ framework.ConvertletTable = (*Table)(nil)

// NewTable returns the convertlets bound to pctx.
func NewTable(pctx *plancontext.PlannerContext) *Table {
	t := &Table{pctx: pctx}
	t.funcs = map[string]framework.Convertlet{
		"current_timestamp":  t.currentTimestamp,
		"now":                t.currentTimestamp,
		"localtimestamp":     t.currentTimestamp,
		"localtime":          t.currentTimestamp,
		"current_date":       t.currentDate,
		"curdate":            t.currentDate,
		ast.TimestampLiteral: t.timestampLiteral,
		ast.DateLiteral:      t.dateLiteral,
		"extract":            t.extract,
		"time_floor":         t.timeFloor,
		"date_trunc":         t.dateTrunc,
		"timestampadd":       t.timestampAdd,
	}
	return t
}

// Lookup implements framework.ConvertletTable.
func (t *Table) Lookup(node ast.ExprNode) (framework.Convertlet, bool) {
	switch n := node.(type) {
	case *ast.FuncCallExpr:
		c, ok := t.funcs[n.FnName.L]
		return c, ok
	case *ast.PatternLikeExpr:
		return t.like, true
	case *ast.BinaryOperationExpr:
		if _, ok := comparisons[n.Op]; ok && (isStringLiteral(n.L) || isStringLiteral(n.R)) {
			return t.compare, true
		}
	}
	return nil, false
}

var comparisons = map[opcode.Op]string{
	opcode.EQ: "=",
	opcode.NE: "<>",
	opcode.LT: "<",
	opcode.LE: "<=",
	opcode.GT: ">",
	opcode.GE: ">=",
}

func isStringLiteral(n ast.ExprNode) bool {
	v, ok := n.(ast.ValueExpr)
	if !ok {
		return false
	}
	_, ok = v.GetValue().(string)
	return ok
}

func (t *Table) currentTimestamp(_ *framework.ConvertContext, _ ast.ExprNode) (rex.Expr, error) {
	return rex.NewLiteral(sqltypes.NewTimestamp(t.pctx.UTCNow())), nil
}

func (t *Table) currentDate(_ *framework.ConvertContext, _ ast.ExprNode) (rex.Expr, error) {
	return rex.NewLiteral(sqltypes.NewDate(t.pctx.LocalNow())), nil
}

func (t *Table) timestampLiteral(_ *framework.ConvertContext, node ast.ExprNode) (rex.Expr, error) {
	ts, err := t.literalTime(node)
	if err != nil {
		return nil, err
	}
	return rex.NewLiteral(sqltypes.NewTimestamp(ts)), nil
}

func (t *Table) dateLiteral(_ *framework.ConvertContext, node ast.ExprNode) (rex.Expr, error) {
	ts, err := t.literalTime(node)
	if err != nil {
		return nil, err
	}
	return rex.NewLiteral(sqltypes.NewDate(ts)), nil
}

// literalTime parses the text of TIMESTAMP '...' and DATE '...' as wall
// clock time in the query's time zone.
func (t *Table) literalTime(node ast.ExprNode) (time.Time, error) {
	fn := node.(*ast.FuncCallExpr)
	if len(fn.Args) != 1 {
		return time.Time{}, sqlerrors.Errorf(sqlerrors.Validation, "malformed %s literal", fn.FnName.O)
	}
	v, ok := fn.Args[0].(ast.ValueExpr)
	if !ok {
		return time.Time{}, sqlerrors.Errorf(sqlerrors.Validation, "malformed %s literal", fn.FnName.O)
	}
	return t.parseTime(cast.ToString(v.GetValue()))
}

func (t *Table) parseTime(s string) (time.Time, error) {
	ts, err := cast.StringToDateInDefaultLocation(strings.TrimSpace(s), t.pctx.TimeZone())
	if err != nil {
		return time.Time{}, sqlerrors.Errorf(sqlerrors.Validation, "illegal timestamp literal %q", s)
	}
	return ts, nil
}

// compare converts a comparison with a string literal, reading the
// literal as a timestamp when the other side is temporal.
func (t *Table) compare(cx *framework.ConvertContext, node ast.ExprNode) (rex.Expr, error) {
	n := node.(*ast.BinaryOperationExpr)
	args, err := cx.ConvertAll([]ast.ExprNode{n.L, n.R})
	if err != nil {
		return nil, err
	}
	for i, other := range []int{1, 0} {
		lit, ok := args[i].(*rex.Literal)
		if !ok || lit.Value.Type() != sqltypes.Varchar || !args[other].Type().IsTemporal() {
			continue
		}
		ts, err := t.parseTime(lit.Value.ToString())
		if err != nil {
			return nil, err
		}
		if args[other].Type() == sqltypes.Date {
			args[i] = rex.NewLiteral(sqltypes.NewDate(ts))
		} else {
			args[i] = rex.NewLiteral(sqltypes.NewTimestamp(ts))
		}
	}
	return cx.Call(comparisons[n.Op], args...)
}

func (t *Table) macro(name string, args ...rex.Expr) (rex.Expr, error) {
	m, ok := t.pctx.Macros().Lookup(name)
	if !ok {
		return nil, sqlerrors.Errorf(sqlerrors.Validation, "function %s is not available", name)
	}
	call, err := rex.NewMacroCall(m, args...)
	if err != nil {
		return nil, sqlerrors.Errorf(sqlerrors.Validation, "%v", err)
	}
	return call, nil
}

func (t *Table) timeZoneArg() rex.Expr {
	return rex.NewLiteral(sqltypes.NewVarChar(t.pctx.TimeZone().String()))
}

func requireTemporal(fn string, e rex.Expr) error {
	if !e.Type().IsTemporal() {
		return sqlerrors.Errorf(sqlerrors.Validation, "%s expects a TIMESTAMP or DATE argument, got %s", fn, e.Type())
	}
	return nil
}

// extract converts EXTRACT(unit FROM expr).
func (t *Table) extract(cx *framework.ConvertContext, node ast.ExprNode) (rex.Expr, error) {
	fn := node.(*ast.FuncCallExpr)
	if len(fn.Args) != 2 {
		return nil, sqlerrors.New(sqlerrors.Validation, "EXTRACT expects a unit and an expression")
	}
	unit, err := timeUnit(fn.Args[0])
	if err != nil {
		return nil, err
	}
	field, ok := extractFields[unit]
	if !ok {
		return nil, sqlerrors.Errorf(sqlerrors.Validation, "cannot EXTRACT %s", unit)
	}
	arg, err := cx.Convert(fn.Args[1])
	if err != nil {
		return nil, err
	}
	if err := requireTemporal("EXTRACT", arg); err != nil {
		return nil, err
	}
	return t.macro(macros.TimestampExtract, arg, rex.NewLiteral(sqltypes.NewVarChar(field)), t.timeZoneArg())
}

// timeFloor converts TIME_FLOOR(expr, period).
func (t *Table) timeFloor(cx *framework.ConvertContext, node ast.ExprNode) (rex.Expr, error) {
	fn := node.(*ast.FuncCallExpr)
	if len(fn.Args) != 2 {
		return nil, sqlerrors.New(sqlerrors.Validation, "TIME_FLOOR expects an expression and a period")
	}
	args, err := cx.ConvertAll(fn.Args)
	if err != nil {
		return nil, err
	}
	if err := requireTemporal("TIME_FLOOR", args[0]); err != nil {
		return nil, err
	}
	if lit, ok := args[1].(*rex.Literal); !ok || lit.Value.Type() != sqltypes.Varchar {
		return nil, sqlerrors.New(sqlerrors.Validation, "TIME_FLOOR expects a literal period")
	}
	return t.floor(args[0], args[1])
}

// dateTrunc converts DATE_TRUNC('unit', expr).
func (t *Table) dateTrunc(cx *framework.ConvertContext, node ast.ExprNode) (rex.Expr, error) {
	fn := node.(*ast.FuncCallExpr)
	if len(fn.Args) != 2 || !isStringLiteral(fn.Args[0]) {
		return nil, sqlerrors.New(sqlerrors.Validation, "DATE_TRUNC expects a literal unit and an expression")
	}
	unit := strings.ToUpper(cast.ToString(fn.Args[0].(ast.ValueExpr).GetValue()))
	period, ok := periods[unit]
	if !ok {
		return nil, sqlerrors.Errorf(sqlerrors.Validation, "cannot DATE_TRUNC to %s", unit)
	}
	arg, err := cx.Convert(fn.Args[1])
	if err != nil {
		return nil, err
	}
	if err := requireTemporal("DATE_TRUNC", arg); err != nil {
		return nil, err
	}
	return t.floor(arg, rex.NewLiteral(sqltypes.NewVarChar(period)))
}

func (t *Table) floor(arg, period rex.Expr) (rex.Expr, error) {
	return t.macro(macros.TimestampFloor, arg, period, rex.NewLiteral(sqltypes.NewTypedNull(sqltypes.Varchar)), t.timeZoneArg())
}

// timestampAdd converts TIMESTAMPADD(unit, count, expr).
func (t *Table) timestampAdd(cx *framework.ConvertContext, node ast.ExprNode) (rex.Expr, error) {
	fn := node.(*ast.FuncCallExpr)
	if len(fn.Args) != 3 {
		return nil, sqlerrors.New(sqlerrors.Validation, "TIMESTAMPADD expects a unit, a count and an expression")
	}
	unit, err := timeUnit(fn.Args[0])
	if err != nil {
		return nil, err
	}
	period, ok := periods[unit]
	if !ok {
		return nil, sqlerrors.Errorf(sqlerrors.Validation, "cannot TIMESTAMPADD %s", unit)
	}
	args, err := cx.ConvertAll(fn.Args[1:])
	if err != nil {
		return nil, err
	}
	if !args[0].Type().IsIntegral() {
		return nil, sqlerrors.Errorf(sqlerrors.Validation, "TIMESTAMPADD expects an integer count, got %s", args[0].Type())
	}
	if err := requireTemporal("TIMESTAMPADD", args[1]); err != nil {
		return nil, err
	}
	return t.macro(macros.TimestampShift, args[1], rex.NewLiteral(sqltypes.NewVarChar(period)), args[0], t.timeZoneArg())
}

func timeUnit(n ast.ExprNode) (string, error) {
	u, ok := n.(*ast.TimeUnitExpr)
	if !ok {
		return "", sqlerrors.Errorf(sqlerrors.Validation, "expected a time unit")
	}
	return strings.ToUpper(u.Unit.String()), nil
}

var extractFields = map[string]string{
	"SECOND":  "SECOND",
	"MINUTE":  "MINUTE",
	"HOUR":    "HOUR",
	"DAY":     "DAY",
	"WEEK":    "WEEK",
	"MONTH":   "MONTH",
	"QUARTER": "QUARTER",
	"YEAR":    "YEAR",
}

var periods = map[string]string{
	"SECOND":  "PT1S",
	"MINUTE":  "PT1M",
	"HOUR":    "PT1H",
	"DAY":     "P1D",
	"WEEK":    "P1W",
	"MONTH":   "P1M",
	"QUARTER": "P3M",
	"YEAR":    "P1Y",
}

// like converts [NOT] LIKE into the engine's like macro.
func (t *Table) like(cx *framework.ConvertContext, node ast.ExprNode) (rex.Expr, error) {
	n := node.(*ast.PatternLikeExpr)
	args, err := cx.ConvertAll([]ast.ExprNode{n.Expr, n.Pattern})
	if err != nil {
		return nil, err
	}
	if lit, ok := args[1].(*rex.Literal); !ok || lit.Value.Type() != sqltypes.Varchar {
		return nil, sqlerrors.New(sqlerrors.Validation, "LIKE expects a literal pattern")
	}
	if n.Escape != 0 && n.Escape != '\\' {
		args = append(args, rex.NewLiteral(sqltypes.NewVarChar(string(n.Escape))))
	}
	e, err := t.macro(macros.Like, args...)
	if err != nil || !n.Not {
		return e, err
	}
	return cx.Call("NOT", e)
}
