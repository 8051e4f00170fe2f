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

package expressions

import (
	"github.com/druidplan/druidplan/go/sql/macros"
	"github.com/druidplan/druidplan/go/sql/native"
	"github.com/druidplan/druidplan/go/sql/rex"
	"github.com/druidplan/druidplan/go/sql/sqltypes"
)

// flipped maps a comparison to the one obtained by swapping its operands.
var flipped = map[string]string{
	"=":  "=",
	"<>": "<>",
	"<":  ">",
	"<=": ">=",
	">":  "<",
	">=": "<=",
}

// ToFilter translates a boolean condition into a native filter. Shapes
// with a dedicated filter type use it; anything else becomes an
// expression filter.
func ToFilter(sig Signature, cond rex.Expr) (native.DimFilter, error) {
	switch e := cond.(type) {
	case *rex.Call:
		switch e.Op.Name {
		case "AND", "OR":
			fields := make([]native.DimFilter, len(e.Args))
			for i, arg := range e.Args {
				f, err := ToFilter(sig, arg)
				if err != nil {
					return nil, err
				}
				fields[i] = f
			}
			if e.Op.Name == "AND" {
				return native.And(fields...), nil
			}
			if in := asInFilter(fields); in != nil {
				return in, nil
			}
			return native.Or(fields...), nil
		case "NOT":
			f, err := ToFilter(sig, e.Args[0])
			if err != nil {
				return nil, err
			}
			return native.Not(f), nil
		case "IS NULL", "IS NOT NULL":
			if ref, ok := e.Args[0].(*rex.InputRef); ok {
				dim, err := sig.Column(ref.Index)
				if err != nil {
					return nil, err
				}
				f := native.Selector(dim, nil)
				if e.Op.Name == "IS NOT NULL" {
					return native.Not(f), nil
				}
				return f, nil
			}
		}
		if _, ok := flipped[e.Op.Name]; ok {
			if f, err := comparisonFilter(sig, e); f != nil || err != nil {
				return f, err
			}
		}
	case *rex.MacroCall:
		if f, err := likeFilter(sig, e); f != nil || err != nil {
			return f, err
		}
	}
	return expressionFilter(sig, cond)
}

func expressionFilter(sig Signature, cond rex.Expr) (native.DimFilter, error) {
	expr, err := ToNative(sig, cond)
	if err != nil {
		return nil, err
	}
	return native.Expression(expr), nil
}

// comparisonFilter handles column-versus-literal comparisons. It returns
// nil when the comparison has another shape.
func comparisonFilter(sig Signature, c *rex.Call) (native.DimFilter, error) {
	op := c.Op.Name
	ref, okRef := c.Args[0].(*rex.InputRef)
	lit, okLit := c.Args[1].(*rex.Literal)
	if !okRef || !okLit {
		ref, okRef = c.Args[1].(*rex.InputRef)
		lit, okLit = c.Args[0].(*rex.Literal)
		op = flipped[op]
	}
	if !okRef || !okLit || lit.Value.IsNull() {
		return nil, nil
	}
	dim, err := sig.Column(ref.Index)
	if err != nil {
		return nil, err
	}
	value := native.StringPtr(lit.Value.ToString())

	switch op {
	case "=":
		return native.Selector(dim, value), nil
	case "<>":
		return native.Not(native.Selector(dim, value)), nil
	}
	ordering := native.Lexicographic
	if ref.Typ.IsNumeric() || ref.Typ.IsTemporal() {
		ordering = native.Numeric
	}
	switch op {
	case "<":
		return native.Bound(dim, nil, value, false, true, ordering), nil
	case "<=":
		return native.Bound(dim, nil, value, false, false, ordering), nil
	case ">":
		return native.Bound(dim, value, nil, true, false, ordering), nil
	default:
		return native.Bound(dim, value, nil, false, false, ordering), nil
	}
}

// likeFilter handles like(column, 'pattern'[, 'escape']).
func likeFilter(sig Signature, m *rex.MacroCall) (native.DimFilter, error) {
	if m.Macro.Name != macros.Like {
		return nil, nil
	}
	ref, ok := m.Args[0].(*rex.InputRef)
	if !ok {
		return nil, nil
	}
	var parts []string
	for _, arg := range m.Args[1:] {
		lit, ok := arg.(*rex.Literal)
		if !ok || lit.Value.Type() != sqltypes.Varchar {
			return nil, nil
		}
		parts = append(parts, lit.Value.ToString())
	}
	dim, err := sig.Column(ref.Index)
	if err != nil {
		return nil, err
	}
	escape := ""
	if len(parts) > 1 {
		escape = parts[1]
	}
	return native.Like(dim, parts[0], escape), nil
}

// asInFilter collapses a disjunction of selectors on one dimension.
func asInFilter(fields []native.DimFilter) native.DimFilter {
	var (
		dim    string
		values []string
	)
	for i, f := range fields {
		sel, ok := f.(*native.SelectorFilter)
		if !ok || sel.Value == nil || (i > 0 && sel.Dimension != dim) {
			return nil
		}
		dim = sel.Dimension
		values = append(values, *sel.Value)
	}
	return native.In(dim, values)
}
