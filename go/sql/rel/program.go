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
	"reflect"

	"github.com/druidplan/druidplan/go/log"
	"github.com/druidplan/druidplan/go/sql/operators"
	"github.com/druidplan/druidplan/go/sql/rex"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

// DefaultMaxApplications caps rule applications in a phase that does not
// set its own limit.
const DefaultMaxApplications = 1000

type (
	// Rule rewrites one node.
	Rule interface {
		Name() string
		// OnMatch returns the replacement for n, or nil when the rule
		// does not apply to n.
		OnMatch(call *RuleCall, n Node) (Node, error)
	}

	// RuleCall carries what rules may consult while matching.
	RuleCall struct {
		// Executor reduces constant expressions. It is nil when
		// constant folding is disabled.
		Executor  rex.Executor
		Operators *operators.Table
		// Program is the name of the running phase.
		Program string
	}

	// Convergence decides when a phase stops applying rules.
	Convergence int

	// Program is one optimization phase.
	Program struct {
		Name        string
		Rules       []Rule
		Convergence Convergence
		// MaxApplications bounds the number of rule applications; zero
		// means DefaultMaxApplications.
		MaxApplications int
	}

	// Env is shared by every phase of one planning run.
	Env struct {
		Executor  rex.Executor
		Operators *operators.Table
		// OnRule, when set, is called after every rule application.
		OnRule func(program, rule string)
	}
)

const (
	// FixedPoint applies every matching rule bottom-up until a full
	// pass changes nothing.
	FixedPoint Convergence = iota
	// CostBased repeatedly takes the single rule application that
	// lowers the plan cost the most, and stops when none does.
	CostBased
)

func (c Convergence) String() string {
	if c == CostBased {
		return "cost-based"
	}
	return "fixed-point"
}

func (p Program) maxApplications() int {
	if p.MaxApplications > 0 {
		return p.MaxApplications
	}
	return DefaultMaxApplications
}

// RunPrograms runs every phase in order and checks that the final plan
// is executable by the engine.
func RunPrograms(env *Env, programs []Program, root Node) (Node, error) {
	last := "none"
	for _, p := range programs {
		var err error
		root, err = RunProgram(env, p, root)
		if err != nil {
			return nil, err
		}
		last = p.Name
	}
	if err := CheckConvention(last, root); err != nil {
		return nil, err
	}
	if err := CheckValid(root); err != nil {
		return nil, err
	}
	return root, nil
}

// RunProgram runs a single phase.
func RunProgram(env *Env, p Program, root Node) (Node, error) {
	call := &RuleCall{Executor: env.Executor, Operators: env.Operators, Program: p.Name}
	var (
		out          Node
		applications int
		err          error
	)
	switch p.Convergence {
	case CostBased:
		out, applications, err = runCostBased(env, call, p, root)
	default:
		out, applications, err = runFixedPoint(env, call, p, root)
	}
	if err != nil {
		return nil, sqlerrors.Wrapf(err, "phase %s", p.Name)
	}
	if applications >= p.maxApplications() {
		log.Warningf("phase %s stopped after %d rule applications", p.Name, applications)
	}
	if log.V(2) {
		log.Infof("phase %s (%s) applied %d rules:\n%s", p.Name, p.Convergence, applications, ToTree(out))
	}
	return out, nil
}

// CheckConvention fails unless every node of root carries the Druid
// convention.
func CheckConvention(phase string, root Node) error {
	return VisitTopDown(root, func(n Node) error {
		if n.Convention() != Druid {
			return sqlerrors.Errorf(sqlerrors.PlanConstruction,
				"phase %s could not produce a plan the engine can execute: %s is still %s",
				phase, NodeTypeName(n), n.Convention())
		}
		return nil
	})
}

// NodeTypeName returns the Go type name of n.
func NodeTypeName(n Node) string {
	t := reflect.TypeOf(n)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

func runFixedPoint(env *Env, call *RuleCall, p Program, root Node) (Node, int, error) {
	limit := p.maxApplications()
	applications := 0
	for applications < limit {
		newRoot, changed, err := rewriteBottomUp(root, func(n Node) (Node, bool, error) {
			changed := false
			for _, r := range p.Rules {
				if applications >= limit {
					break
				}
				out, err := r.OnMatch(call, n)
				if err != nil {
					return nil, false, err
				}
				if out == nil || out == n || FullDigest(out) == FullDigest(n) {
					continue
				}
				applications++
				if env.OnRule != nil {
					env.OnRule(p.Name, r.Name())
				}
				n, changed = out, true
			}
			return n, changed, nil
		})
		if err != nil {
			return nil, applications, err
		}
		root = newRoot
		if !changed {
			break
		}
	}
	return root, applications, nil
}

func runCostBased(env *Env, call *RuleCall, p Program, root Node) (Node, int, error) {
	limit := p.maxApplications()
	visited := map[uint64]bool{Fingerprint(root): true}
	best, bestCost := root, CostOf(root)
	applications := 0

	for applications < limit {
		var (
			candidate     Node
			candidateCost = bestCost
			candidateRule string
		)
		err := visitPaths(best, nil, func(path []int, n Node) error {
			for _, r := range p.Rules {
				out, err := r.OnMatch(call, n)
				if err != nil {
					return err
				}
				if out == nil {
					continue
				}
				next := replaceAt(best, path, out)
				fp := Fingerprint(next)
				if visited[fp] {
					continue
				}
				visited[fp] = true
				if cost := CostOf(next); cost < candidateCost {
					candidate, candidateCost, candidateRule = next, cost, r.Name()
				}
			}
			return nil
		})
		if err != nil {
			return nil, applications, err
		}
		if candidate == nil {
			break
		}
		best, bestCost = candidate, candidateCost
		applications++
		if env.OnRule != nil {
			env.OnRule(p.Name, candidateRule)
		}
	}
	return best, applications, nil
}

// visitPaths visits every node with the input indexes leading to it.
func visitPaths(n Node, path []int, visit func([]int, Node) error) error {
	for i, in := range n.Inputs() {
		child := append(append([]int(nil), path...), i)
		if err := visitPaths(in, child, visit); err != nil {
			return err
		}
	}
	return visit(path, n)
}

func replaceAt(root Node, path []int, n Node) Node {
	if len(path) == 0 {
		return n
	}
	inputs := append([]Node(nil), root.Inputs()...)
	inputs[path[0]] = replaceAt(inputs[path[0]], path[1:], n)
	return root.WithInputs(inputs)
}
