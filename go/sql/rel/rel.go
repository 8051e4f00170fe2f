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

// Package rel is the relational algebra the planner rewrites.
/*
Plans go through two conventions while planning:
1. Logical
   The validated query is converted to a tree of logical nodes: a table
   scan at the leaf, then filters, projections, aggregates and sorts.
2. Druid
   Rule programs replace logical nodes with nodes the engine can execute
   natively. A plan is executable only when every node carries the Druid
   convention.
*/
package rel

import (
	"fmt"
	"strings"

	"github.com/druidplan/druidplan/go/sql/sqltypes"
)

// Convention is the calling convention of a node: who can execute it.
type Convention int

const (
	// Logical nodes describe what to compute, not how.
	Logical Convention = iota
	// Druid nodes map to a native engine query.
	Druid
)

func (c Convention) String() string {
	if c == Druid {
		return "DRUID"
	}
	return "LOGICAL"
}

// TraitDef names a physical property tracked by the planner.
type TraitDef int

const (
	ConventionTraitDef TraitDef = iota
	CollationTraitDef
)

func (t TraitDef) String() string {
	if t == CollationTraitDef {
		return "collation"
	}
	return "convention"
}

// Field is a named, typed column of a row.
type Field struct {
	Name string
	Type sqltypes.Type
}

// RowType is the shape of the rows a node produces.
type RowType []Field

// Names returns the field names.
func (rt RowType) Names() []string {
	names := make([]string, len(rt))
	for i, f := range rt {
		names[i] = f.Name
	}
	return names
}

func (rt RowType) String() string {
	parts := make([]string, len(rt))
	for i, f := range rt {
		parts[i] = f.Name + " " + f.Type.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

type (
	// Node is a relational expression. Nodes are immutable; rules
	// rewrite a plan by building new nodes.
	Node interface {
		Inputs() []Node
		WithInputs(inputs []Node) Node
		RowType() RowType
		Convention() Convention
		// Digest describes the node itself, excluding its inputs. Two
		// nodes with equal digests and equal inputs are interchangeable.
		Digest() string
	}

	// costly nodes report their own cost. Nodes that do not implement
	// it cost LogicalCost when logical and nothing otherwise.
	costly interface {
		Cost() Cost
	}

	// checkable nodes validate themselves once planning is done.
	checkable interface {
		IsValid() error
	}
)

func checkSize(inputs []Node, shouldBe int) {
	if len(inputs) != shouldBe {
		panic(fmt.Sprintf("BUG: got the wrong number of inputs: got %d, expected %d", len(inputs), shouldBe))
	}
}
