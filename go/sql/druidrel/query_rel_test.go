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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/druidplan/druidplan/go/sql/native"
	"github.com/druidplan/druidplan/go/sql/operators"
	"github.com/druidplan/druidplan/go/sql/rel"
	"github.com/druidplan/druidplan/go/sql/rex"
	"github.com/druidplan/druidplan/go/sql/schema"
	"github.com/druidplan/druidplan/go/sql/sqltypes"
)

var (
	ops  = operators.NewDefaultTable()
	foo  = &schema.Table{Name: "foo", DataSource: "foo", Columns: []schema.Column{{Name: "__time", Type: sqltypes.Timestamp}, {Name: "dim", Type: sqltypes.Varchar}}}
	scan = &rel.TableScan{Namespace: "druid", Table: foo}
)

type fakeMaker struct {
	err   error
	calls int
}

func (m *fakeMaker) ToNativeQuery(*QueryRel) (native.Query, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &native.ScanQuery{Type: native.TypeScan}, nil
}

func TestPartialQueryStages(t *testing.T) {
	p := NewPartialQuery(scan)
	assert.Equal(t, Scan, p.Stage())
	assert.Same(t, scan, p.Top())

	assert.False(t, p.CanAccept(HavingFilter), "HAVING needs an aggregate")
	assert.False(t, p.CanAccept(AggregateProject), "a post-aggregation projection needs an aggregate")
	assert.True(t, p.CanAccept(WhereFilter))

	cond, err := rex.NewCall(ops.MustLookup("IS NULL"), &rex.InputRef{Index: 1, Name: "dim", Typ: sqltypes.Varchar})
	require.NoError(t, err)
	p = p.WithWhereFilter(&rel.Filter{Input: scan, Condition: cond})
	assert.Equal(t, WhereFilter, p.Stage())
	assert.False(t, p.CanAccept(WhereFilter), "stages cannot repeat")

	p = p.WithAggregate(&rel.Aggregate{GroupKeys: []int{1}})
	assert.Equal(t, Aggregate, p.Stage())
	assert.False(t, p.CanAccept(SelectProject), "stages cannot go backwards")
	assert.True(t, p.CanAccept(HavingFilter))
	assert.Same(t, p.WhereFilter, p.Aggregate.Input, "stages are chained")
	assert.Equal(t, []string{"dim"}, p.RowType().Names())

	p = p.WithSort(&rel.Sort{Fetch: 3})
	assert.Equal(t, SortStage, p.Stage())
	assert.Equal(t, "SORT", p.Stage().String())
	assert.False(t, p.CanAccept(AggregateProject))
}

func TestQueryRel(t *testing.T) {
	maker := &fakeMaker{}
	q := NewQueryRel(scan, maker)

	assert.Empty(t, q.Inputs())
	assert.Equal(t, rel.Druid, q.Convention())
	assert.Same(t, maker, q.Maker())
	assert.Equal(t, "QueryRel(TableScan(table=[druid, foo]))", q.Digest())

	next := q.WithPartial(q.Partial.WithSort(&rel.Sort{Fetch: 1}))
	assert.Less(t, next.Cost(), q.Cost(), "absorbing a stage lowers the cost")
	assert.Less(t, float64(q.Cost()), float64(rel.LogicalCost))
	assert.Same(t, maker, next.Maker())
	assert.Equal(t, Scan, q.Partial.Stage(), "WithPartial does not modify the receiver")

	require.NoError(t, next.IsValid())
	got, err := next.ToNativeQuery()
	require.NoError(t, err)
	assert.Equal(t, native.TypeScan, got.QueryType())
	assert.Equal(t, 2, maker.calls)

	maker.err = errors.New("unsupported")
	assert.EqualError(t, next.IsValid(), "unsupported")
}
