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

package rules

import (
	"github.com/druidplan/druidplan/go/log"
	"github.com/druidplan/druidplan/go/sql/druidrel"
	"github.com/druidplan/druidplan/go/sql/rel"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

// tableScan starts a native query at a table scan.
type tableScan struct {
	maker druidrel.Materializer
}

func (tableScan) Name() string { return "DruidTableScan" }

func (r tableScan) OnMatch(_ *rel.RuleCall, n rel.Node) (rel.Node, error) {
	scan, ok := n.(*rel.TableScan)
	if !ok {
		return nil, nil
	}
	return druidrel.NewQueryRel(scan, r.maker), nil
}

// absorb moves a logical node sitting on a QueryRel into the QueryRel's
// partial query. stage picks the stage n would become, or false when the
// partial query cannot take it.
type absorb struct {
	name  string
	stage func(p druidrel.PartialQuery, n rel.Node) (druidrel.PartialQuery, bool)
}

func (a absorb) Name() string { return a.name }

func (a absorb) OnMatch(_ *rel.RuleCall, n rel.Node) (rel.Node, error) {
	inputs := n.Inputs()
	if len(inputs) != 1 {
		return nil, nil
	}
	q, ok := inputs[0].(*druidrel.QueryRel)
	if !ok {
		return nil, nil
	}
	partial, ok := a.stage(q.Partial, n)
	if !ok {
		return nil, nil
	}
	next := q.WithPartial(partial)
	if err := next.IsValid(); err != nil {
		if log.V(2) {
			log.Infof("%s: cannot absorb %s: %v", a.name, n.Digest(), err)
		}
		return nil, sqlerrors.Errorf(sqlerrors.PlanConstruction,
			"cannot plan %s as part of a native query: %v", rel.NodeTypeName(n), err)
	}
	return next, nil
}

var (
	absorbFilter = absorb{name: "DruidFilter", stage: func(p druidrel.PartialQuery, n rel.Node) (druidrel.PartialQuery, bool) {
		f, ok := n.(*rel.Filter)
		switch {
		case !ok:
			return p, false
		case p.CanAccept(druidrel.WhereFilter) && p.Aggregate == nil:
			return p.WithWhereFilter(f), true
		case p.CanAccept(druidrel.HavingFilter):
			return p.WithHavingFilter(f), true
		}
		return p, false
	}}

	absorbProject = absorb{name: "DruidProject", stage: func(p druidrel.PartialQuery, n rel.Node) (druidrel.PartialQuery, bool) {
		pr, ok := n.(*rel.Project)
		switch {
		case !ok:
			return p, false
		case p.Aggregate == nil && p.CanAccept(druidrel.SelectProject):
			return p.WithSelectProject(pr), true
		case p.CanAccept(druidrel.AggregateProject):
			return p.WithAggregateProject(pr), true
		}
		return p, false
	}}

	absorbAggregate = absorb{name: "DruidAggregate", stage: func(p druidrel.PartialQuery, n rel.Node) (druidrel.PartialQuery, bool) {
		a, ok := n.(*rel.Aggregate)
		if !ok || !p.CanAccept(druidrel.Aggregate) {
			return p, false
		}
		return p.WithAggregate(a), true
	}}

	absorbSort = absorb{name: "DruidSort", stage: func(p druidrel.PartialQuery, n rel.Node) (druidrel.PartialQuery, bool) {
		s, ok := n.(*rel.Sort)
		if !ok || !p.CanAccept(druidrel.SortStage) {
			return p, false
		}
		return p.WithSort(s), true
	}}
)
