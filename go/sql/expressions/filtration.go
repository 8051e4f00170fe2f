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
	"github.com/druidplan/druidplan/go/sql/native"
	"github.com/druidplan/druidplan/go/sql/operators"
	"github.com/druidplan/druidplan/go/sql/rex"
	"github.com/druidplan/druidplan/go/sql/schema"
)

// Filtration is a WHERE condition split into the time intervals the
// engine prunes segments with and the remaining row filter.
type Filtration struct {
	Intervals []native.Interval
	// Remaining is nil when the whole condition became intervals.
	Remaining rex.Expr
	// TimeBounded is true when at least one conjunct bounded __time.
	TimeBounded bool
}

// ExtractIntervals moves top-level conjuncts comparing the time column
// with a literal into intervals. Conjuncts of any other shape stay in
// Remaining.
func ExtractIntervals(ops *operators.Table, sig Signature, cond rex.Expr) Filtration {
	start, end := native.MinInstant, native.MaxInstant
	var (
		rest    []rex.Expr
		bounded bool
	)
	if cond != nil {
		for _, c := range rex.Conjuncts(cond) {
			lo, hi, ok := timeBound(sig, c)
			if !ok {
				rest = append(rest, c)
				continue
			}
			bounded = true
			start, end = max(start, lo), min(end, hi)
		}
	}

	f := Filtration{TimeBounded: bounded, Intervals: []native.Interval{}}
	if start < end {
		f.Intervals = append(f.Intervals, native.Interval{Start: start, End: end})
	}
	if len(rest) > 0 {
		f.Remaining = rex.And(ops, rest...)
	}
	return f
}

// timeBound returns the half-open range a comparison of __time with a
// literal allows.
func timeBound(sig Signature, e rex.Expr) (start, end int64, ok bool) {
	c, isCall := e.(*rex.Call)
	if !isCall || len(c.Args) != 2 {
		return 0, 0, false
	}
	op, known := flipped[c.Op.Name]
	if !known || op == "<>" {
		return 0, 0, false
	}
	ref, okRef := c.Args[0].(*rex.InputRef)
	lit, okLit := c.Args[1].(*rex.Literal)
	if okRef && okLit {
		op = c.Op.Name
	} else {
		ref, okRef = c.Args[1].(*rex.InputRef)
		lit, okLit = c.Args[0].(*rex.Literal)
	}
	if !okRef || !okLit || lit.Value.IsNull() || !lit.Value.Type().IsTemporal() {
		return 0, 0, false
	}
	if name, err := sig.Column(ref.Index); err != nil || name != schema.TimeColumn {
		return 0, 0, false
	}
	t, err := lit.Value.ToInt64()
	if err != nil {
		return 0, 0, false
	}

	start, end = native.MinInstant, native.MaxInstant
	switch op {
	case "=":
		start, end = t, t+1
	case "<":
		end = t
	case "<=":
		end = t + 1
	case ">":
		start = t + 1
	case ">=":
		start = t
	}
	return start, end, true
}
