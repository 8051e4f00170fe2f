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

package rel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/druidplan/druidplan/go/sql/operators"
	"github.com/druidplan/druidplan/go/sql/rex"
	"github.com/druidplan/druidplan/go/sql/schema"
	"github.com/druidplan/druidplan/go/sql/sqltypes"
)

type (
	// TableScan reads every row of a table.
	TableScan struct {
		Namespace string
		Table     *schema.Table
	}

	// Filter keeps the rows for which Condition is true.
	Filter struct {
		Input     Node
		Condition rex.Expr
	}

	// Project computes one output field per expression.
	Project struct {
		Input Node
		Exprs []rex.Expr
		Names []string
	}

	// Aggregate groups by the input fields in GroupKeys and computes Calls
	// per group. Output rows hold the group keys followed by the calls.
	Aggregate struct {
		Input     Node
		GroupKeys []int
		Calls     []AggCall
	}

	// AggCall is one aggregate function application.
	AggCall struct {
		Op       *operators.Operator
		Args     []int
		Distinct bool
		Name     string
		Type     sqltypes.Type
	}

	// Sort orders rows and optionally applies OFFSET and FETCH.
	Sort struct {
		Input     Node
		Collation []FieldCollation
		Offset    int64
		// Fetch is the row limit; negative means unlimited.
		Fetch int64
	}

	// FieldCollation orders by one input field.
	FieldCollation struct {
		Index int
		Desc  bool
	}
)

var (
	_ Node = (*TableScan)(nil)
	_ Node = (*Filter)(nil)
	_ Node = (*Project)(nil)
	_ Node = (*Aggregate)(nil)
	_ Node = (*Sort)(nil)
)

func (s *TableScan) Inputs() []Node { return nil }

func (s *TableScan) WithInputs(inputs []Node) Node {
	checkSize(inputs, 0)
	return s
}

func (s *TableScan) RowType() RowType {
	rt := make(RowType, len(s.Table.Columns))
	for i, c := range s.Table.Columns {
		rt[i] = Field{Name: c.Name, Type: c.Type}
	}
	return rt
}

func (s *TableScan) Convention() Convention { return Logical }

func (s *TableScan) Digest() string {
	return fmt.Sprintf("TableScan(table=[%s, %s])", s.Namespace, s.Table.Name)
}

func (f *Filter) Inputs() []Node { return []Node{f.Input} }

func (f *Filter) WithInputs(inputs []Node) Node {
	checkSize(inputs, 1)
	return &Filter{Input: inputs[0], Condition: f.Condition}
}

func (f *Filter) RowType() RowType { return f.Input.RowType() }
func (f *Filter) Convention() Convention { return Logical }

func (f *Filter) Digest() string {
	return "Filter(condition=[" + f.Condition.String() + "])"
}

func (p *Project) Inputs() []Node { return []Node{p.Input} }

func (p *Project) WithInputs(inputs []Node) Node {
	checkSize(inputs, 1)
	return &Project{Input: inputs[0], Exprs: p.Exprs, Names: p.Names}
}

func (p *Project) RowType() RowType {
	rt := make(RowType, len(p.Exprs))
	for i, e := range p.Exprs {
		rt[i] = Field{Name: p.Names[i], Type: e.Type()}
	}
	return rt
}

func (p *Project) Convention() Convention { return Logical }

func (p *Project) Digest() string {
	parts := make([]string, len(p.Exprs))
	for i, e := range p.Exprs {
		parts[i] = p.Names[i] + "=[" + e.String() + "]"
	}
	return "Project(" + strings.Join(parts, ", ") + ")"
}

// IsIdentity reports whether the projection passes its input through
// unchanged, names included.
func (p *Project) IsIdentity() bool {
	in := p.Input.RowType()
	if len(in) != len(p.Exprs) {
		return false
	}
	for i, e := range p.Exprs {
		ref, ok := e.(*rex.InputRef)
		if !ok || ref.Index != i || in[i].Name != p.Names[i] {
			return false
		}
	}
	return true
}

func (a *Aggregate) Inputs() []Node { return []Node{a.Input} }

func (a *Aggregate) WithInputs(inputs []Node) Node {
	checkSize(inputs, 1)
	return &Aggregate{Input: inputs[0], GroupKeys: a.GroupKeys, Calls: a.Calls}
}

func (a *Aggregate) RowType() RowType {
	in := a.Input.RowType()
	rt := make(RowType, 0, len(a.GroupKeys)+len(a.Calls))
	for _, k := range a.GroupKeys {
		rt = append(rt, in[k])
	}
	for _, c := range a.Calls {
		rt = append(rt, Field{Name: c.Name, Type: c.Type})
	}
	return rt
}

func (a *Aggregate) Convention() Convention { return Logical }

func (a *Aggregate) Digest() string {
	calls := make([]string, len(a.Calls))
	for i, c := range a.Calls {
		calls[i] = c.String()
	}
	return fmt.Sprintf("Aggregate(group=%s, calls=[%s])", intList(a.GroupKeys), strings.Join(calls, ", "))
}

func (c AggCall) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = "$" + strconv.Itoa(a)
	}
	distinct := ""
	if c.Distinct {
		distinct = "DISTINCT "
	}
	return fmt.Sprintf("%s(%s%s)", c.Op.Name, distinct, strings.Join(args, ", "))
}

func (s *Sort) Inputs() []Node { return []Node{s.Input} }

func (s *Sort) WithInputs(inputs []Node) Node {
	checkSize(inputs, 1)
	return &Sort{Input: inputs[0], Collation: s.Collation, Offset: s.Offset, Fetch: s.Fetch}
}

func (s *Sort) RowType() RowType { return s.Input.RowType() }
func (s *Sort) Convention() Convention { return Logical }

func (s *Sort) Digest() string {
	keys := make([]string, len(s.Collation))
	for i, fc := range s.Collation {
		keys[i] = fc.String()
	}
	return fmt.Sprintf("Sort(sort=[%s], offset=%d, fetch=%d)", strings.Join(keys, ", "), s.Offset, s.Fetch)
}

func (fc FieldCollation) String() string {
	if fc.Desc {
		return "$" + strconv.Itoa(fc.Index) + " DESC"
	}
	return "$" + strconv.Itoa(fc.Index)
}

func intList(ints []int) string {
	parts := make([]string, len(ints))
	for i, v := range ints {
		parts[i] = strconv.Itoa(v)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
