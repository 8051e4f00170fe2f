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

// Package druidrel holds the physical plan nodes executed natively by the
// engine.
package druidrel

import (
	"github.com/druidplan/druidplan/go/sql/rel"
)

// Stage is one step of a native query, in the order the engine applies
// them.
type Stage int

const (
	Scan Stage = iota
	WhereFilter
	SelectProject
	Aggregate
	HavingFilter
	AggregateProject
	SortStage
)

var stageNames = [...]string{
	Scan:             "SCAN",
	WhereFilter:      "WHERE_FILTER",
	SelectProject:    "SELECT_PROJECT",
	Aggregate:        "AGGREGATE",
	HavingFilter:     "HAVING_FILTER",
	AggregateProject: "AGGREGATE_PROJECT",
	SortStage:        "SORT",
}

func (s Stage) String() string {
	return stageNames[s]
}

// PartialQuery is a chain of logical nodes that together form one native
// query. Each stage node's input is the node of the previous stage, so
// the chain is a self-contained logical plan.
type PartialQuery struct {
	Scan             *rel.TableScan
	WhereFilter      *rel.Filter
	SelectProject    *rel.Project
	Aggregate        *rel.Aggregate
	HavingFilter     *rel.Filter
	AggregateProject *rel.Project
	Sort             *rel.Sort
}

// NewPartialQuery starts a partial query at a table scan.
func NewPartialQuery(scan *rel.TableScan) PartialQuery {
	return PartialQuery{Scan: scan}
}

// Stage returns the last stage present.
func (p PartialQuery) Stage() Stage {
	switch {
	case p.Sort != nil:
		return SortStage
	case p.AggregateProject != nil:
		return AggregateProject
	case p.HavingFilter != nil:
		return HavingFilter
	case p.Aggregate != nil:
		return Aggregate
	case p.SelectProject != nil:
		return SelectProject
	case p.WhereFilter != nil:
		return WhereFilter
	}
	return Scan
}

// Top returns the node of the last stage.
func (p PartialQuery) Top() rel.Node {
	switch p.Stage() {
	case SortStage:
		return p.Sort
	case AggregateProject:
		return p.AggregateProject
	case HavingFilter:
		return p.HavingFilter
	case Aggregate:
		return p.Aggregate
	case SelectProject:
		return p.SelectProject
	case WhereFilter:
		return p.WhereFilter
	}
	return p.Scan
}

// RowType is the shape of the rows the query returns.
func (p PartialQuery) RowType() rel.RowType {
	return p.Top().RowType()
}

// CanAccept reports whether stage may be appended.
func (p PartialQuery) CanAccept(stage Stage) bool {
	current := p.Stage()
	switch {
	case stage <= current:
		return false
	case stage == HavingFilter || stage == AggregateProject:
		return p.Aggregate != nil
	}
	return true
}

// WithWhereFilter appends a WHERE condition. The filter's input is
// rebased onto the current top.
func (p PartialQuery) WithWhereFilter(f *rel.Filter) PartialQuery {
	p.WhereFilter = &rel.Filter{Input: p.Top(), Condition: f.Condition}
	return p
}

// WithSelectProject appends a projection below any aggregate.
func (p PartialQuery) WithSelectProject(pr *rel.Project) PartialQuery {
	p.SelectProject = &rel.Project{Input: p.Top(), Exprs: pr.Exprs, Names: pr.Names}
	return p
}

// WithAggregate appends a grouping.
func (p PartialQuery) WithAggregate(a *rel.Aggregate) PartialQuery {
	p.Aggregate = &rel.Aggregate{Input: p.Top(), GroupKeys: a.GroupKeys, Calls: a.Calls}
	return p
}

// WithHavingFilter appends a condition on aggregated rows.
func (p PartialQuery) WithHavingFilter(f *rel.Filter) PartialQuery {
	p.HavingFilter = &rel.Filter{Input: p.Top(), Condition: f.Condition}
	return p
}

// WithAggregateProject appends a projection over aggregated rows.
func (p PartialQuery) WithAggregateProject(pr *rel.Project) PartialQuery {
	p.AggregateProject = &rel.Project{Input: p.Top(), Exprs: pr.Exprs, Names: pr.Names}
	return p
}

// WithSort appends ordering and limits.
func (p PartialQuery) WithSort(s *rel.Sort) PartialQuery {
	p.Sort = &rel.Sort{Input: p.Top(), Collation: s.Collation, Offset: s.Offset, Fetch: s.Fetch}
	return p
}
