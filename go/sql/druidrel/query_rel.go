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

package druidrel

import (
	"github.com/druidplan/druidplan/go/sql/native"
	"github.com/druidplan/druidplan/go/sql/rel"
)

// Materializer turns a QueryRel into a native query.
type Materializer interface {
	ToNativeQuery(q *QueryRel) (native.Query, error)
}

// QueryRel is a leaf node executed by the engine as one native query.
type QueryRel struct {
	Partial PartialQuery
	maker   Materializer
}

var _ rel.Node = (*QueryRel)(nil)

// NewQueryRel wraps a table scan.
func NewQueryRel(scan *rel.TableScan, maker Materializer) *QueryRel {
	return &QueryRel{Partial: NewPartialQuery(scan), maker: maker}
}

// WithPartial returns a copy of q over p.
func (q *QueryRel) WithPartial(p PartialQuery) *QueryRel {
	return &QueryRel{Partial: p, maker: q.maker}
}

// Maker returns the materializer the node was built with.
func (q *QueryRel) Maker() Materializer {
	return q.maker
}

func (q *QueryRel) Inputs() []rel.Node { return nil }

func (q *QueryRel) WithInputs(inputs []rel.Node) rel.Node {
	if len(inputs) != 0 {
		panic("BUG: QueryRel has no inputs")
	}
	return q
}

func (q *QueryRel) RowType() rel.RowType       { return q.Partial.RowType() }
func (q *QueryRel) Convention() rel.Convention { return rel.Druid }

func (q *QueryRel) Digest() string {
	return "QueryRel(" + rel.FullDigest(q.Partial.Top()) + ")"
}

// Cost decreases with every absorbed stage so that pushing more work
// into the engine is preferred.
func (q *QueryRel) Cost() rel.Cost {
	return rel.Cost(100 - 10*int(q.Partial.Stage()))
}

// IsValid reports whether the partial query translates to a native query.
func (q *QueryRel) IsValid() error {
	_, err := q.maker.ToNativeQuery(q)
	return err
}

// ToNativeQuery translates the node.
func (q *QueryRel) ToNativeQuery() (native.Query, error) {
	return q.maker.ToNativeQuery(q)
}
