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
	"reflect"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gammazero/deque"
	"github.com/xlab/treeprint"

	"github.com/druidplan/druidplan/go/sqlerrors"
)

// Cost is the estimated cost of executing a plan.
type Cost float64

// LogicalCost is charged for every node that is still logical, so any
// plan with fewer logical nodes is cheaper.
const LogicalCost Cost = 1e6

// VisitTopDown visits root and its descendants breadth first.
func VisitTopDown(root Node, visitor func(Node) error) error {
	var queue deque.Deque[Node]
	queue.PushBack(root)
	for queue.Len() > 0 {
		this := queue.PopFront()
		for _, in := range this.Inputs() {
			queue.PushBack(in)
		}
		if err := visitor(this); err != nil {
			return err
		}
	}
	return nil
}

// CostOf sums the cost of every node in the tree.
func CostOf(root Node) (cost Cost) {
	_ = VisitTopDown(root, func(n Node) error {
		switch {
		case n.Convention() == Logical:
			cost += LogicalCost
		default:
			if c, ok := n.(costly); ok {
				cost += c.Cost()
			}
		}
		return nil
	})
	return
}

// CheckValid runs the self checks of every node.
func CheckValid(root Node) error {
	return VisitTopDown(root, func(n Node) error {
		chk, ok := n.(checkable)
		if !ok {
			return nil
		}
		if err := chk.IsValid(); err != nil {
			return sqlerrors.Errorf(sqlerrors.PlanConstruction, "%s is not a valid plan: %v", NodeTypeName(n), err)
		}
		return nil
	})
}

// FullDigest describes the whole tree.
func FullDigest(root Node) string {
	var sb strings.Builder
	writeDigest(&sb, root)
	return sb.String()
}

func writeDigest(sb *strings.Builder, n Node) {
	sb.WriteString(n.Digest())
	inputs := n.Inputs()
	if len(inputs) == 0 {
		return
	}
	sb.WriteString("[")
	for i, in := range inputs {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeDigest(sb, in)
	}
	sb.WriteString("]")
}

// Fingerprint hashes the full digest of the tree.
func Fingerprint(root Node) uint64 {
	return xxhash.Sum64String(FullDigest(root))
}

// ToTree renders the plan as an indented tree, one node per line.
func ToTree(root Node) string {
	return asTree(root, nil).String()
}

func nodeDescr(n Node) string {
	typ := reflect.TypeOf(n).Elem().Name()
	return fmt.Sprintf("%s [%s] %s", typ, n.Convention(), n.Digest())
}

func asTree(n Node, root treeprint.Tree) treeprint.Tree {
	txt := nodeDescr(n)
	var branch treeprint.Tree
	if root == nil {
		branch = treeprint.NewWithRoot(txt)
	} else {
		branch = root.AddBranch(txt)
	}
	for _, child := range n.Inputs() {
		asTree(child, branch)
	}
	return branch
}

type rewriterFunc func(Node) (newNode Node, changed bool, err error)

func rewriteBottomUp(root Node, rewriter rewriterFunc) (Node, bool, error) {
	oldInputs := root.Inputs()
	anythingChanged := false
	newInputs := make([]Node, len(oldInputs))
	for i, in := range oldInputs {
		newIn, changed, err := rewriteBottomUp(in, rewriter)
		if err != nil {
			return nil, false, err
		}
		if changed {
			anythingChanged = true
		}
		newInputs[i] = newIn
	}

	if anythingChanged {
		root = root.WithInputs(newInputs)
	}

	newNode, changed, err := rewriter(root)
	if err != nil {
		return nil, false, err
	}
	return newNode, anythingChanged || changed, nil
}
