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
	"github.com/pingcap/parser/model"
	"github.com/spf13/cast"

	"github.com/druidplan/druidplan/go/sql/operators"
	"github.com/druidplan/druidplan/go/sql/rel"
	"github.com/druidplan/druidplan/go/sql/rex"
	"github.com/druidplan/druidplan/go/sql/sqltypes"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

// selectItem is one output column of the statement, with * expanded.
type selectItem struct {
	expr ast.ExprNode
	name string
}

// converter turns one validated SELECT into a logical plan:
//
//	Sort? <- Project <- (Filter <- Aggregate <- Project)? <- Filter? <- TableScan
type converter struct {
	cfg   *Config
	sel   *ast.SelectStmt
	base  *ConvertContext
	items []selectItem
}

func sqlToRel(cfg *Config, v *Validated) (*RelRoot, error) {
	scan := &rel.TableScan{Namespace: cfg.DefaultSchema.Name(), Table: v.Table}
	c := &converter{
		cfg: cfg,
		sel: v.Stmt,
		base: &ConvertContext{cfg: cfg, scope: &scope{
			namespace: cfg.DefaultSchema.Name(),
			table:     v.Alias,
			fields:    scan.RowType(),
		}},
	}
	if err := c.expandSelectList(); err != nil {
		return nil, err
	}

	var node rel.Node = scan
	if c.sel.Where != nil {
		cond, err := c.base.Convert(c.sel.Where)
		if err != nil {
			return nil, err
		}
		node = &rel.Filter{Input: node, Condition: cond}
	}

	var (
		project *rel.Project
		exprCx  *ConvertContext
		err     error
	)
	if c.isAggregate() {
		node, project, exprCx, err = c.convertAggregate(node)
	} else {
		node, project, exprCx, err = c.convertProject(node)
	}
	if err != nil {
		return nil, err
	}

	if node, err = c.convertOrderAndLimit(node, project, exprCx); err != nil {
		return nil, err
	}
	return &RelRoot{Rel: node, Fields: node.RowType()}, nil
}

func (c *converter) expandSelectList() error {
	for i, f := range c.sel.Fields.Fields {
		if f.WildCard != nil {
			if f.WildCard.Table.O != "" && !c.cfg.Parser.SameIdentifier(c.cfg.Parser.UnquotedCasing.Apply(f.WildCard.Table.O), c.base.scope.table) {
				return sqlerrors.Errorf(sqlerrors.Validation, "table %q not found", f.WildCard.Table.O)
			}
			for _, field := range c.base.scope.fields {
				c.items = append(c.items, selectItem{
					expr: &ast.ColumnNameExpr{Name: &ast.ColumnName{Name: model.NewCIStr(field.Name)}},
					name: field.Name,
				})
			}
			continue
		}
		name := c.cfg.Parser.UnquotedCasing.Apply(f.AsName.O)
		if name == "" {
			if col, ok := f.Expr.(*ast.ColumnNameExpr); ok {
				name = c.cfg.Parser.UnquotedCasing.Apply(col.Name.Name.O)
			} else {
				name = "EXPR$" + strconv.Itoa(i)
			}
		}
		c.items = append(c.items, selectItem{expr: f.Expr, name: name})
	}
	return nil
}

func (c *converter) isAggregate() bool {
	if c.sel.GroupBy != nil {
		return true
	}
	nodes := c.itemExprs()
	if c.sel.Having != nil {
		nodes = append(nodes, c.sel.Having.Expr)
	}
	if c.sel.OrderBy != nil {
		for _, by := range c.sel.OrderBy.Items {
			nodes = append(nodes, by.Expr)
		}
	}
	for _, n := range nodes {
		found, _ := c.collectAggregates(n)
		if len(found) > 0 {
			return true
		}
	}
	return false
}

func (c *converter) itemExprs() []ast.ExprNode {
	out := make([]ast.ExprNode, len(c.items))
	for i, it := range c.items {
		out[i] = it.expr
	}
	return out
}

func (c *converter) itemNames() []string {
	out := make([]string, len(c.items))
	for i, it := range c.items {
		out[i] = it.name
	}
	return out
}

func (c *converter) convertProject(input rel.Node) (rel.Node, *rel.Project, *ConvertContext, error) {
	if c.sel.Having != nil {
		return nil, nil, nil, sqlerrors.New(sqlerrors.Validation, "HAVING requires GROUP BY or an aggregate")
	}
	exprs, err := c.base.ConvertAll(c.itemExprs())
	if err != nil {
		return nil, nil, nil, err
	}
	project := &rel.Project{Input: input, Exprs: exprs, Names: c.itemNames()}
	if !c.sel.Distinct {
		return project, project, c.base, nil
	}
	keys := make([]int, len(exprs))
	for i := range keys {
		keys[i] = i
	}
	return &rel.Aggregate{Input: project, GroupKeys: keys}, project, c.base, nil
}

// aggregate is one distinct aggregate call of the statement.
type aggregate struct {
	key  string
	args []rex.Expr
	call rel.AggCall
}

func (c *converter) convertAggregate(input rel.Node) (rel.Node, *rel.Project, *ConvertContext, error) {
	if c.sel.Distinct {
		return nil, nil, nil, sqlerrors.New(sqlerrors.Validation, "SELECT DISTINCT with aggregates is not supported")
	}

	var groups []rex.Expr
	groupIndex := map[string]int{}
	if c.sel.GroupBy != nil {
		for _, by := range c.sel.GroupBy.Items {
			node, err := c.resolveItemRef(by.Expr)
			if err != nil {
				return nil, nil, nil, err
			}
			if found, err := c.collectAggregates(node); err != nil || len(found) > 0 {
				if err == nil {
					err = sqlerrors.New(sqlerrors.Validation, "aggregate functions are not allowed in GROUP BY")
				}
				return nil, nil, nil, err
			}
			e, err := c.base.Convert(node)
			if err != nil {
				return nil, nil, nil, err
			}
			if _, dup := groupIndex[e.String()]; dup {
				continue
			}
			groupIndex[e.String()] = len(groups)
			groups = append(groups, e)
		}
	}

	nodes := c.itemExprs()
	if c.sel.Having != nil {
		nodes = append(nodes, c.sel.Having.Expr)
	}
	if c.sel.OrderBy != nil {
		for _, by := range c.sel.OrderBy.Items {
			nodes = append(nodes, by.Expr)
		}
	}
	var (
		aggs     []*aggregate
		aggIndex = map[string]int{}
	)
	for _, n := range nodes {
		found, err := c.collectAggregates(n)
		if err != nil {
			return nil, nil, nil, err
		}
		for _, f := range found {
			a, err := c.convertAggregateCall(f)
			if err != nil {
				return nil, nil, nil, err
			}
			if _, dup := aggIndex[a.key]; dup {
				continue
			}
			aggIndex[a.key] = len(aggs)
			aggs = append(aggs, a)
		}
	}

	// The pre-aggregation projection computes group keys first, then
	// every distinct aggregate argument.
	preExprs := append([]rex.Expr(nil), groups...)
	preIndex := map[string]int{}
	for i, g := range groups {
		preIndex[g.String()] = i
	}
	for _, a := range aggs {
		a.call.Args = make([]int, len(a.args))
		for i, arg := range a.args {
			pos, ok := preIndex[arg.String()]
			if !ok {
				pos = len(preExprs)
				preIndex[arg.String()] = pos
				preExprs = append(preExprs, arg)
			}
			a.call.Args[i] = pos
		}
	}
	inFields := input.RowType()
	preNames := make([]string, len(preExprs))
	for i, e := range preExprs {
		if ref, ok := e.(*rex.InputRef); ok {
			preNames[i] = inFields[ref.Index].Name
		} else {
			preNames[i] = "$f" + strconv.Itoa(i)
		}
	}
	pre := &rel.Project{Input: input, Exprs: preExprs, Names: preNames}

	keys := make([]int, len(groups))
	calls := make([]rel.AggCall, len(aggs))
	for i := range keys {
		keys[i] = i
	}
	for i, a := range aggs {
		calls[i] = a.call
		calls[i].Name = "$f" + strconv.Itoa(len(groups)+i)
	}
	var node rel.Node = &rel.Aggregate{Input: pre, GroupKeys: keys, Calls: calls}
	aggFields := node.RowType()

	aggCx := &ConvertContext{cfg: c.cfg, scope: c.base.scope}
	aggCx.hook = func(cx *ConvertContext, n ast.ExprNode) (rex.Expr, bool, error) {
		if _, _, _, ok, err := c.aggregateOf(n); ok || err != nil {
			if err != nil {
				return nil, true, err
			}
			a, err := c.convertAggregateCall(n)
			if err != nil {
				return nil, true, err
			}
			i := len(groups) + aggIndex[a.key]
			return &rex.InputRef{Index: i, Name: aggFields[i].Name, Typ: aggFields[i].Type}, true, nil
		}
		if col, ok := n.(*ast.ColumnNameExpr); ok {
			if item, ok := c.aliasRef(col); ok {
				e, err := cx.Convert(item)
				return e, true, err
			}
		}
		e, err := c.base.Convert(n)
		if err == nil {
			if i, ok := groupIndex[e.String()]; ok {
				return &rex.InputRef{Index: i, Name: aggFields[i].Name, Typ: aggFields[i].Type}, true, nil
			}
		}
		if col, ok := n.(*ast.ColumnNameExpr); ok {
			if err != nil {
				return nil, true, err
			}
			return nil, true, sqlerrors.Errorf(sqlerrors.Validation, "expression %q must appear in GROUP BY", col.Name.Name.O)
		}
		return nil, false, nil
	}

	if c.sel.Having != nil {
		cond, err := aggCx.Convert(c.sel.Having.Expr)
		if err != nil {
			return nil, nil, nil, err
		}
		node = &rel.Filter{Input: node, Condition: cond}
	}
	exprs, err := aggCx.ConvertAll(c.itemExprs())
	if err != nil {
		return nil, nil, nil, err
	}
	project := &rel.Project{Input: node, Exprs: exprs, Names: c.itemNames()}
	return project, project, aggCx, nil
}

func (c *converter) convertAggregateCall(n ast.ExprNode) (*aggregate, error) {
	op, args, distinct, _, err := c.aggregateOf(n)
	if err != nil {
		return nil, err
	}
	if op.Name == "COUNT" && !distinct && len(args) == 1 {
		// COUNT(*) and COUNT(literal) count rows
		if v, ok := args[0].(ast.ValueExpr); ok && v.GetValue() != nil {
			args = nil
		}
	}
	if err := op.CheckArity(len(args)); err != nil {
		return nil, sqlerrors.Errorf(sqlerrors.Validation, "%v", err)
	}
	exprs, err := c.base.ConvertAll(args)
	if err != nil {
		return nil, err
	}
	argTypes := make([]sqltypes.Type, len(exprs))
	for i, e := range exprs {
		argTypes[i] = e.Type()
	}
	typ, err := op.ReturnType(argTypes)
	if err != nil {
		return nil, sqlerrors.Errorf(sqlerrors.Validation, "%v", err)
	}
	distinctText := ""
	if distinct {
		distinctText = "DISTINCT "
	}
	return &aggregate{
		key:  op.Name + "(" + distinctText + strings.Join(rex.Digests(exprs), ", ") + ")",
		args: exprs,
		call: rel.AggCall{Op: op, Distinct: distinct, Type: typ},
	}, nil
}

// aggregateOf reports whether n is an aggregate function call.
func (c *converter) aggregateOf(n ast.ExprNode) (*operators.Operator, []ast.ExprNode, bool, bool, error) {
	var (
		name     string
		args     []ast.ExprNode
		distinct bool
	)
	switch n := n.(type) {
	case *ast.AggregateFuncExpr:
		name, args, distinct = n.F, n.Args, n.Distinct
	case *ast.FuncCallExpr:
		op, ok := c.cfg.Operators.Lookup(n.FnName.O)
		if !ok || op.Kind != operators.Aggregate {
			return nil, nil, false, false, nil
		}
		return op, n.Args, false, true, nil
	default:
		return nil, nil, false, false, nil
	}
	op, ok := c.cfg.Operators.Lookup(name)
	if !ok || op.Kind != operators.Aggregate {
		return nil, nil, false, true, sqlerrors.Errorf(sqlerrors.Validation, "unsupported aggregate function %s", strings.ToUpper(name))
	}
	return op, args, distinct, true, nil
}

// collectAggregates returns the outermost aggregate calls in n.
func (c *converter) collectAggregates(n ast.ExprNode) ([]ast.ExprNode, error) {
	v := &aggCollector{c: c}
	n.Accept(v)
	return v.found, v.err
}

type aggCollector struct {
	c     *converter
	found []ast.ExprNode
	err   error
}

func (v *aggCollector) Enter(n ast.Node) (ast.Node, bool) {
	expr, ok := n.(ast.ExprNode)
	if !ok || v.err != nil {
		return n, v.err != nil
	}
	if _, args, _, isAgg, err := v.c.aggregateOf(expr); isAgg || err != nil {
		if err != nil {
			v.err = err
			return n, true
		}
		for _, arg := range args {
			nested := &aggCollector{c: v.c}
			arg.Accept(nested)
			if len(nested.found) > 0 {
				v.err = sqlerrors.New(sqlerrors.Validation, "aggregate function calls cannot be nested")
				return n, true
			}
		}
		v.found = append(v.found, expr)
		return n, true
	}
	return n, false
}

func (v *aggCollector) Leave(n ast.Node) (ast.Node, bool) {
	return n, v.err == nil
}

// resolveItemRef maps GROUP BY and ORDER BY references to select items,
// by ordinal or by alias, to the item's expression.
func (c *converter) resolveItemRef(n ast.ExprNode) (ast.ExprNode, error) {
	if pos, ok, err := c.ordinal(n); ok || err != nil {
		if err != nil {
			return nil, err
		}
		return c.items[pos].expr, nil
	}
	if col, ok := n.(*ast.ColumnNameExpr); ok {
		if item, ok := c.aliasRef(col); ok {
			return item, nil
		}
	}
	return n, nil
}

// ordinal returns the zero-based select item a positional reference
// points to.
func (c *converter) ordinal(n ast.ExprNode) (int, bool, error) {
	var pos int
	switch n := n.(type) {
	case *ast.PositionExpr:
		pos = n.N
	case ast.ValueExpr:
		i, ok := n.GetValue().(int64)
		if !ok {
			return 0, false, nil
		}
		pos = int(i)
	default:
		return 0, false, nil
	}
	if pos < 1 || pos > len(c.items) {
		return 0, true, sqlerrors.Errorf(sqlerrors.Validation, "ordinal %d out of range", pos)
	}
	return pos - 1, true, nil
}

// aliasRef resolves an unqualified name that is not a column of the
// table but names a select item.
func (c *converter) aliasRef(col *ast.ColumnNameExpr) (ast.ExprNode, bool) {
	if col.Name.Table.O != "" || col.Name.Schema.O != "" {
		return nil, false
	}
	if _, err := c.base.resolve(col.Name); err == nil {
		return nil, false
	}
	name := c.cfg.Parser.UnquotedCasing.Apply(col.Name.Name.O)
	for _, it := range c.items {
		if c.cfg.Parser.SameIdentifier(name, it.name) {
			if other, ok := it.expr.(*ast.ColumnNameExpr); ok {
				if _, err := c.base.resolve(other.Name); err != nil {
					return nil, false
				}
			}
			return it.expr, true
		}
	}
	return nil, false
}

func (c *converter) convertOrderAndLimit(input rel.Node, project *rel.Project, cx *ConvertContext) (rel.Node, error) {
	var collation []rel.FieldCollation
	if c.sel.OrderBy != nil {
		for _, by := range c.sel.OrderBy.Items {
			idx, err := c.orderIndex(by.Expr, project, cx)
			if err != nil {
				return nil, err
			}
			collation = append(collation, rel.FieldCollation{Index: idx, Desc: by.Desc})
		}
	}
	offset, fetch := int64(0), int64(-1)
	if l := c.sel.Limit; l != nil {
		var err error
		if l.Count != nil {
			if fetch, err = limitValue(l.Count); err != nil {
				return nil, err
			}
		}
		if l.Offset != nil {
			if offset, err = limitValue(l.Offset); err != nil {
				return nil, err
			}
		}
	}
	if len(collation) == 0 && offset == 0 && fetch < 0 {
		return input, nil
	}
	return &rel.Sort{Input: input, Collation: collation, Offset: offset, Fetch: fetch}, nil
}

func (c *converter) orderIndex(n ast.ExprNode, project *rel.Project, cx *ConvertContext) (int, error) {
	if pos, ok, err := c.ordinal(n); ok || err != nil {
		return pos, err
	}
	if col, ok := n.(*ast.ColumnNameExpr); ok && col.Name.Table.O == "" {
		name := c.cfg.Parser.UnquotedCasing.Apply(col.Name.Name.O)
		for i, it := range c.items {
			if c.cfg.Parser.SameIdentifier(name, it.name) {
				return i, nil
			}
		}
	}
	e, err := cx.Convert(n)
	if err != nil {
		return 0, err
	}
	for i, pe := range project.Exprs {
		if pe.String() == e.String() {
			return i, nil
		}
	}
	return 0, sqlerrors.Errorf(sqlerrors.Validation, "ORDER BY expression %s must appear in the select list", restore(n))
}

func limitValue(n ast.ExprNode) (int64, error) {
	v, ok := n.(ast.ValueExpr)
	if !ok {
		return 0, sqlerrors.Errorf(sqlerrors.Validation, "LIMIT and OFFSET must be literals, got %s", restore(n))
	}
	i, err := cast.ToInt64E(v.GetValue())
	if err != nil || i < 0 {
		return 0, sqlerrors.Errorf(sqlerrors.Validation, "invalid LIMIT or OFFSET %s", restore(n))
	}
	return i, nil
}
