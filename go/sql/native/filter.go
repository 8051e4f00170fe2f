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

package native

import "strings"

// DimFilter is a native row filter.
type DimFilter interface {
	FilterType() string
	String() string
}

type (
	SelectorFilter struct {
		Type      string  `json:"type"`
		Dimension string  `json:"dimension"`
		Value     *string `json:"value"`
	}

	BoundFilter struct {
		Type        string  `json:"type"`
		Dimension   string  `json:"dimension"`
		Lower       *string `json:"lower,omitempty"`
		Upper       *string `json:"upper,omitempty"`
		LowerStrict bool    `json:"lowerStrict,omitempty"`
		UpperStrict bool    `json:"upperStrict,omitempty"`
		Ordering    string  `json:"ordering"`
	}

	InFilter struct {
		Type      string   `json:"type"`
		Dimension string   `json:"dimension"`
		Values    []string `json:"values"`
	}

	LikeFilter struct {
		Type      string `json:"type"`
		Dimension string `json:"dimension"`
		Pattern   string `json:"pattern"`
		Escape    string `json:"escape,omitempty"`
	}

	ExpressionFilter struct {
		Type       string `json:"type"`
		Expression string `json:"expression"`
	}

	AndFilter struct {
		Type   string      `json:"type"`
		Fields []DimFilter `json:"fields"`
	}

	OrFilter struct {
		Type   string      `json:"type"`
		Fields []DimFilter `json:"fields"`
	}

	NotFilter struct {
		Type  string    `json:"type"`
		Field DimFilter `json:"field"`
	}
)

// Selector matches rows where dimension equals value; a nil value
// matches nulls.
func Selector(dimension string, value *string) *SelectorFilter {
	return &SelectorFilter{Type: "selector", Dimension: dimension, Value: value}
}

// Bound matches rows within a range.
func Bound(dimension string, lower, upper *string, lowerStrict, upperStrict bool, ordering string) *BoundFilter {
	return &BoundFilter{Type: "bound", Dimension: dimension, Lower: lower, Upper: upper, LowerStrict: lowerStrict, UpperStrict: upperStrict, Ordering: ordering}
}

// In matches rows whose dimension is one of values.
func In(dimension string, values []string) *InFilter {
	return &InFilter{Type: "in", Dimension: dimension, Values: values}
}

// Like matches rows against a SQL LIKE pattern.
func Like(dimension, pattern, escape string) *LikeFilter {
	return &LikeFilter{Type: "like", Dimension: dimension, Pattern: pattern, Escape: escape}
}

// Expression matches rows where expression is true.
func Expression(expression string) *ExpressionFilter {
	return &ExpressionFilter{Type: "expression", Expression: expression}
}

// And matches rows matching every field. A single field is returned as is.
func And(fields ...DimFilter) DimFilter {
	if len(fields) == 1 {
		return fields[0]
	}
	return &AndFilter{Type: "and", Fields: fields}
}

// Or matches rows matching any field. A single field is returned as is.
func Or(fields ...DimFilter) DimFilter {
	if len(fields) == 1 {
		return fields[0]
	}
	return &OrFilter{Type: "or", Fields: fields}
}

// Not negates field.
func Not(field DimFilter) *NotFilter {
	return &NotFilter{Type: "not", Field: field}
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

func (f *SelectorFilter) FilterType() string   { return f.Type }
func (f *BoundFilter) FilterType() string      { return f.Type }
func (f *InFilter) FilterType() string         { return f.Type }
func (f *LikeFilter) FilterType() string       { return f.Type }
func (f *ExpressionFilter) FilterType() string { return f.Type }
func (f *AndFilter) FilterType() string        { return f.Type }
func (f *OrFilter) FilterType() string         { return f.Type }
func (f *NotFilter) FilterType() string        { return f.Type }

func (f *SelectorFilter) String() string {
	if f.Value == nil {
		return f.Dimension + " IS NULL"
	}
	return f.Dimension + " = " + *f.Value
}

func (f *BoundFilter) String() string {
	var parts []string
	if f.Lower != nil {
		op := " <= "
		if f.LowerStrict {
			op = " < "
		}
		parts = append(parts, *f.Lower+op+f.Dimension)
	}
	if f.Upper != nil {
		op := " <= "
		if f.UpperStrict {
			op = " < "
		}
		parts = append(parts, f.Dimension+op+*f.Upper)
	}
	return strings.Join(parts, " AND ") + " (" + f.Ordering + ")"
}

func (f *InFilter) String() string {
	return f.Dimension + " IN (" + strings.Join(f.Values, ", ") + ")"
}

func (f *LikeFilter) String() string {
	return f.Dimension + " LIKE " + f.Pattern
}

func (f *ExpressionFilter) String() string {
	return f.Expression
}

func (f *AndFilter) String() string {
	return joinFilters(f.Fields, " && ")
}

func (f *OrFilter) String() string {
	return joinFilters(f.Fields, " || ")
}

func (f *NotFilter) String() string {
	return "!(" + f.Field.String() + ")"
}

func joinFilters(fields []DimFilter, sep string) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}
