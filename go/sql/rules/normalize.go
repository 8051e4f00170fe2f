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
	"github.com/druidplan/druidplan/go/sql/rel"
	"github.com/druidplan/druidplan/go/sql/rex"
)

// reduceExpressions folds constants in filter conditions and projections
// and removes filters that are always true.
type reduceExpressions struct{}

func (reduceExpressions) Name() string { return "ReduceExpressions" }

func (reduceExpressions) OnMatch(call *rel.RuleCall, n rel.Node) (rel.Node, error) {
	switch n := n.(type) {
	case *rel.Filter:
		reduced, err := reduce(call, []rex.Expr{n.Condition})
		if err != nil {
			return nil, err
		}
		cond := rex.And(call.Operators, rex.Conjuncts(reduced[0])...)
		if rex.IsTrue(cond) {
			return n.Input, nil
		}
		if cond.String() == n.Condition.String() {
			return nil, nil
		}
		return &rel.Filter{Input: n.Input, Condition: cond}, nil
	case *rel.Project:
		if call.Executor == nil {
			return nil, nil
		}
		reduced, err := reduce(call, n.Exprs)
		if err != nil {
			return nil, err
		}
		for i := range reduced {
			if reduced[i].String() != n.Exprs[i].String() {
				return &rel.Project{Input: n.Input, Exprs: reduced, Names: n.Names}, nil
			}
		}
	}
	return nil, nil
}

func reduce(call *rel.RuleCall, exprs []rex.Expr) ([]rex.Expr, error) {
	if call.Executor == nil {
		return exprs, nil
	}
	return call.Executor.Reduce(exprs)
}

// filterMerge combines two stacked filters into one.
type filterMerge struct{}

func (filterMerge) Name() string { return "FilterMerge" }

func (filterMerge) OnMatch(call *rel.RuleCall, n rel.Node) (rel.Node, error) {
	top, ok := n.(*rel.Filter)
	if !ok {
		return nil, nil
	}
	bottom, ok := top.Input.(*rel.Filter)
	if !ok {
		return nil, nil
	}
	conjuncts := append(rex.Conjuncts(bottom.Condition), rex.Conjuncts(top.Condition)...)
	return &rel.Filter{Input: bottom.Input, Condition: rex.And(call.Operators, conjuncts...)}, nil
}

// projectMerge collapses two stacked projections.
type projectMerge struct{}

func (projectMerge) Name() string { return "ProjectMerge" }

func (projectMerge) OnMatch(_ *rel.RuleCall, n rel.Node) (rel.Node, error) {
	top, ok := n.(*rel.Project)
	if !ok {
		return nil, nil
	}
	bottom, ok := top.Input.(*rel.Project)
	if !ok {
		return nil, nil
	}
	exprs := make([]rex.Expr, len(top.Exprs))
	for i, e := range top.Exprs {
		merged, err := rex.Substitute(e, bottom.Exprs)
		if err != nil {
			return nil, err
		}
		exprs[i] = merged
	}
	return &rel.Project{Input: bottom.Input, Exprs: exprs, Names: top.Names}, nil
}

// filterProjectTranspose pushes a filter below the projection it reads
// from, rewriting the condition in terms of the projection's input.
type filterProjectTranspose struct{}

func (filterProjectTranspose) Name() string { return "FilterProjectTranspose" }

func (filterProjectTranspose) OnMatch(_ *rel.RuleCall, n rel.Node) (rel.Node, error) {
	f, ok := n.(*rel.Filter)
	if !ok {
		return nil, nil
	}
	p, ok := f.Input.(*rel.Project)
	if !ok {
		return nil, nil
	}
	for i := range rex.InputRefs(f.Condition) {
		if i < len(p.Exprs) && !deterministic(p.Exprs[i]) {
			return nil, nil
		}
	}
	cond, err := rex.Substitute(f.Condition, p.Exprs)
	if err != nil {
		return nil, err
	}
	return &rel.Project{
		Input: &rel.Filter{Input: p.Input, Condition: cond},
		Exprs: p.Exprs,
		Names: p.Names,
	}, nil
}

func deterministic(e rex.Expr) bool {
	ok := true
	rex.Walk(e, func(e rex.Expr) bool {
		if c, isCall := e.(*rex.Call); isCall && !c.Op.Deterministic {
			ok = false
		}
		return ok
	})
	return ok
}

// projectRemove drops projections that pass their input through.
type projectRemove struct{}

func (projectRemove) Name() string { return "ProjectRemove" }

func (projectRemove) OnMatch(_ *rel.RuleCall, n rel.Node) (rel.Node, error) {
	if p, ok := n.(*rel.Project); ok && p.IsIdentity() {
		return p.Input, nil
	}
	return nil, nil
}
