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

package querymaker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/druidplan/druidplan/go/sql/druidrel"
	"github.com/druidplan/druidplan/go/sql/macros"
	"github.com/druidplan/druidplan/go/sql/native"
	"github.com/druidplan/druidplan/go/sql/operators"
	"github.com/druidplan/druidplan/go/sql/plancontext"
	"github.com/druidplan/druidplan/go/sql/rel"
	"github.com/druidplan/druidplan/go/sql/rex"
	"github.com/druidplan/druidplan/go/sql/schema"
	"github.com/druidplan/druidplan/go/sql/sqltypes"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

var (
	ops = operators.NewDefaultTable()
	mt  = macros.NewDefaultTable()

	wikipedia = &schema.Table{
		Name:       "wikipedia",
		DataSource: "wikipedia",
		Columns: []schema.Column{
			{Name: "__time", Type: sqltypes.Timestamp},
			{Name: "page", Type: sqltypes.Varchar},
			{Name: "added", Type: sqltypes.Bigint},
		},
	}

	timeRef  = &rex.InputRef{Index: 0, Name: "__time", Typ: sqltypes.Timestamp}
	pageRef  = &rex.InputRef{Index: 1, Name: "page", Typ: sqltypes.Varchar}
	addedRef = &rex.InputRef{Index: 2, Name: "added", Typ: sqltypes.Bigint}
)

type recordingWalker struct {
	got native.Query
}

func (w *recordingWalker) Walk(_ context.Context, q native.Query) ([][]any, error) {
	w.got = q
	return [][]any{{int64(1)}}, nil
}

func newMaker(t *testing.T, qc map[string]any) (*QueryMaker, *recordingWalker) {
	t.Helper()
	if qc == nil {
		qc = map[string]any{}
	}
	if _, ok := qc[plancontext.CtxQueryID]; !ok {
		qc[plancontext.CtxQueryID] = "q1"
	}
	pctx, err := plancontext.Create(ops, mt, plancontext.DefaultConfig(), qc)
	require.NoError(t, err)
	w := &recordingWalker{}
	return New(w, pctx, plancontext.DefaultServerConfig()), w
}

func mkCall(t *testing.T, name string, args ...rex.Expr) rex.Expr {
	t.Helper()
	c, err := rex.NewCall(ops.MustLookup(name), args...)
	require.NoError(t, err)
	return c
}

func scanRel(qm *QueryMaker) *druidrel.QueryRel {
	return druidrel.NewQueryRel(&rel.TableScan{Namespace: "druid", Table: wikipedia}, qm)
}

func countStar() rel.AggCall {
	return rel.AggCall{Op: ops.MustLookup("COUNT"), Name: "cnt", Type: sqltypes.Bigint}
}

func TestScanQuery(t *testing.T) {
	qm, _ := newMaker(t, nil)
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	q := scanRel(qm)
	p := q.Partial.WithWhereFilter(&rel.Filter{Condition: rex.And(ops,
		mkCall(t, ">=", timeRef, rex.NewLiteral(sqltypes.NewTimestamp(start))),
		mkCall(t, "=", pageRef, rex.NewLiteral(sqltypes.NewVarChar("Main_Page"))),
	)})
	p = p.WithSelectProject(&rel.Project{
		Exprs: []rex.Expr{pageRef, mkCall(t, "*", addedRef, rex.NewLiteral(sqltypes.NewInt64(2)))},
		Names: []string{"page", "doubled"},
	})
	p = p.WithSort(&rel.Sort{Offset: 5, Fetch: 10})

	got, err := qm.Materialize(q.WithPartial(p))
	require.NoError(t, err)

	scan, ok := got.Native.(*native.ScanQuery)
	require.True(t, ok, "got %T", got.Native)
	assert.Equal(t, native.TypeScan, scan.Type)
	assert.Equal(t, "wikipedia", scan.DataSource)
	assert.Equal(t, []native.Interval{{Start: start.UnixMilli(), End: native.MaxInstant}}, scan.Intervals)
	assert.Equal(t, native.Selector("page", native.StringPtr("Main_Page")), scan.Filter)
	require.Len(t, scan.VirtualColumns, 1)
	assert.Equal(t, "v0", scan.VirtualColumns[0].Name)
	assert.Equal(t, `("added" * 2)`, scan.VirtualColumns[0].Expression)
	assert.Equal(t, "LONG", scan.VirtualColumns[0].OutputType)
	assert.Equal(t, []string{"page", "v0"}, scan.Columns)
	assert.Equal(t, []string{"page", "v0"}, got.Columns)
	assert.EqualValues(t, 5, scan.Offset)
	assert.EqualValues(t, 10, scan.Limit)
	assert.Equal(t, []string{"page", "doubled"}, got.Fields.Names())
}

func TestScanOrderedByTime(t *testing.T) {
	qm, _ := newMaker(t, nil)
	q := scanRel(qm)
	p := q.Partial.WithSort(&rel.Sort{Collation: []rel.FieldCollation{{Index: 0, Desc: true}}, Fetch: -1})

	got, err := qm.Materialize(q.WithPartial(p))
	require.NoError(t, err)
	scan := got.Native.(*native.ScanQuery)
	assert.Equal(t, native.Descending, scan.Order)
	assert.Zero(t, scan.Limit)
	assert.Equal(t, []native.Interval{native.Eternity}, scan.Intervals)
	assert.Equal(t, []string{"__time", "page", "added"}, scan.Columns)
}

func TestScanOrderedByOtherColumn(t *testing.T) {
	qm, _ := newMaker(t, nil)
	q := scanRel(qm)
	p := q.Partial.WithSort(&rel.Sort{Collation: []rel.FieldCollation{{Index: 1}}, Fetch: -1})

	_, err := qm.Materialize(q.WithPartial(p))
	assert.True(t, sqlerrors.Is(err, sqlerrors.Translation), "got %v", err)
	assert.ErrorContains(t, err, "ordered by __time")
}

func TestTimeseriesAll(t *testing.T) {
	qm, _ := newMaker(t, nil)
	q := scanRel(qm)
	p := q.Partial.WithAggregate(&rel.Aggregate{Calls: []rel.AggCall{countStar()}})

	got, err := qm.Materialize(q.WithPartial(p))
	require.NoError(t, err)
	ts, ok := got.Native.(*native.TimeseriesQuery)
	require.True(t, ok, "got %T", got.Native)
	assert.True(t, ts.Granularity.IsAll())
	assert.Equal(t, []native.Aggregator{{Type: "count", Name: "a0"}}, ts.Aggregations)
	assert.Equal(t, []string{"a0"}, got.Columns)
}

func TestGrandTotalWithHaving(t *testing.T) {
	qm, _ := newMaker(t, nil)
	q := scanRel(qm)
	p := q.Partial.WithAggregate(&rel.Aggregate{Calls: []rel.AggCall{countStar()}})
	cnt := &rex.InputRef{Index: 0, Name: "cnt", Typ: sqltypes.Bigint}
	p = p.WithHavingFilter(&rel.Filter{Condition: mkCall(t, ">", cnt, rex.NewLiteral(sqltypes.NewInt64(100)))})

	got, err := qm.Materialize(q.WithPartial(p))
	require.NoError(t, err)
	groupBy, ok := got.Native.(*native.GroupByQuery)
	require.True(t, ok, "a timeseries cannot carry the having, got %T", got.Native)
	assert.Empty(t, groupBy.Dimensions)
	require.NotNil(t, groupBy.Having)
	assert.Equal(t, native.Bound("a0", native.StringPtr("100"), nil, true, false, native.Numeric), groupBy.Having.Filter)
	assert.Equal(t, []string{"a0"}, got.Columns)
}

func TestTimeseriesByDay(t *testing.T) {
	qm, _ := newMaker(t, map[string]any{plancontext.CtxTimeZone: "America/Los_Angeles"})
	floor, err := rex.NewMacroCall(mt.MustLookup(macros.TimestampFloor), timeRef,
		rex.NewLiteral(sqltypes.NewVarChar("P1D")),
		rex.NewLiteral(sqltypes.NewTypedNull(sqltypes.Varchar)),
		rex.NewLiteral(sqltypes.NewVarChar("America/Los_Angeles")))
	require.NoError(t, err)

	q := scanRel(qm)
	p := q.Partial.WithSelectProject(&rel.Project{Exprs: []rex.Expr{floor}, Names: []string{"day"}})
	p = p.WithAggregate(&rel.Aggregate{GroupKeys: []int{0}, Calls: []rel.AggCall{countStar()}})
	p = p.WithSort(&rel.Sort{Collation: []rel.FieldCollation{{Index: 0, Desc: true}}, Fetch: 7})

	got, err := qm.Materialize(q.WithPartial(p))
	require.NoError(t, err)
	ts, ok := got.Native.(*native.TimeseriesQuery)
	require.True(t, ok, "got %T", got.Native)
	assert.Equal(t, native.Granularity{Period: "P1D", TimeZone: "America/Los_Angeles"}, ts.Granularity)
	assert.True(t, ts.Descending)
	assert.EqualValues(t, 7, ts.Limit)
	assert.Empty(t, ts.VirtualColumns, "the floor is expressed by the granularity")
	assert.Equal(t, []string{"__time", "a0"}, got.Columns)
	assert.Equal(t, "America/Los_Angeles", ts.Context[CtxSQLTimeZone])
}

func TestTopNAndGroupBy(t *testing.T) {
	build := func(t *testing.T, qm *QueryMaker) native.Query {
		q := scanRel(qm)
		p := q.Partial.WithSelectProject(&rel.Project{Exprs: []rex.Expr{pageRef, addedRef}, Names: []string{"page", "added"}})
		p = p.WithAggregate(&rel.Aggregate{
			GroupKeys: []int{0},
			Calls:     []rel.AggCall{{Op: ops.MustLookup("SUM"), Args: []int{1}, Name: "total", Type: sqltypes.Bigint}},
		})
		p = p.WithSort(&rel.Sort{Collation: []rel.FieldCollation{{Index: 1, Desc: true}}, Fetch: 10})
		got, err := qm.Materialize(q.WithPartial(p))
		require.NoError(t, err)
		assert.Equal(t, []string{"d0", "a0"}, got.Columns)
		return got.Native
	}

	t.Run("topN", func(t *testing.T) {
		qm, _ := newMaker(t, nil)
		topN, ok := build(t, qm).(*native.TopNQuery)
		require.True(t, ok)
		assert.Equal(t, native.NewDimensionSpec("page", "d0", "STRING"), topN.Dimension)
		assert.Equal(t, native.NewNumericMetric("a0", false), topN.Metric)
		assert.EqualValues(t, 10, topN.Threshold)
		assert.Equal(t, []native.Aggregator{{Type: "longSum", Name: "a0", FieldName: "added"}}, topN.Aggregations)
	})

	t.Run("groupBy without approximate topN", func(t *testing.T) {
		qm, _ := newMaker(t, map[string]any{plancontext.CtxUseApproximateTopN: false})
		groupBy, ok := build(t, qm).(*native.GroupByQuery)
		require.True(t, ok)
		assert.Equal(t, []native.DimensionSpec{native.NewDimensionSpec("page", "d0", "STRING")}, groupBy.Dimensions)
		assert.Equal(t, &native.LimitSpec{
			Type:    "default",
			Columns: []native.OrderByColumnSpec{{Dimension: "a0", Direction: native.Descending, DimensionOrder: native.Numeric}},
			Limit:   10,
		}, groupBy.LimitSpec)
	})
}

func TestGroupByHavingAndPostAggregation(t *testing.T) {
	qm, _ := newMaker(t, nil)
	q := scanRel(qm)
	p := q.Partial.WithAggregate(&rel.Aggregate{GroupKeys: []int{1}, Calls: []rel.AggCall{countStar()}})
	cnt := &rex.InputRef{Index: 1, Name: "cnt", Typ: sqltypes.Bigint}
	p = p.WithHavingFilter(&rel.Filter{Condition: mkCall(t, ">", cnt, rex.NewLiteral(sqltypes.NewInt64(3)))})
	p = p.WithAggregateProject(&rel.Project{
		Exprs: []rex.Expr{
			&rex.InputRef{Index: 0, Name: "page", Typ: sqltypes.Varchar},
			mkCall(t, "+", cnt, rex.NewLiteral(sqltypes.NewInt64(1))),
		},
		Names: []string{"page", "cnt1"},
	})

	got, err := qm.Materialize(q.WithPartial(p))
	require.NoError(t, err)
	groupBy, ok := got.Native.(*native.GroupByQuery)
	require.True(t, ok, "got %T", got.Native)
	require.NotNil(t, groupBy.Having)
	assert.Equal(t, "filter", groupBy.Having.Type)
	assert.Equal(t, []native.PostAggregator{native.NewExpressionPostAggregator("p0", `("a0" + 1)`)}, groupBy.PostAggregations)
	assert.Equal(t, []string{"d0", "p0"}, got.Columns)
	assert.Nil(t, groupBy.LimitSpec)
}

func TestRequireTimeCondition(t *testing.T) {
	qm, _ := newMaker(t, map[string]any{plancontext.CtxRequireTimeCondition: true})
	q := scanRel(qm)

	_, err := qm.Materialize(q)
	assert.True(t, sqlerrors.Is(err, sqlerrors.PlanConstruction), "got %v", err)

	// partial queries are still translatable
	_, err = qm.ToNativeQuery(q)
	assert.NoError(t, err)

	p := q.Partial.WithWhereFilter(&rel.Filter{Condition: mkCall(t, "<", timeRef,
		rex.NewLiteral(sqltypes.NewTimestamp(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))))})
	_, err = qm.Materialize(q.WithPartial(p))
	assert.NoError(t, err)
}

func TestMaterializeUnknownNode(t *testing.T) {
	qm, _ := newMaker(t, nil)
	_, err := qm.Materialize(&rel.TableScan{Namespace: "druid", Table: wikipedia})
	assert.True(t, sqlerrors.Is(err, sqlerrors.Translation), "got %v", err)
	assert.ErrorContains(t, err, "no translator")
	assert.ErrorContains(t, err, "TableScan")
}

func TestRegisterTranslator(t *testing.T) {
	qm, _ := newMaker(t, nil)
	qm.Register((*rel.TableScan)(nil), func(qm *QueryMaker, n rel.Node) (*Query, error) {
		return translateQueryRel(qm, druidrel.NewQueryRel(n.(*rel.TableScan), qm))
	})
	got, err := qm.Materialize(&rel.TableScan{Namespace: "druid", Table: wikipedia})
	require.NoError(t, err)
	assert.Equal(t, native.TypeScan, got.Native.QueryType())
}

func TestNativeContext(t *testing.T) {
	qm, w := newMaker(t, map[string]any{"priority": 5, CtxTimeout: int64(1000)})
	got, err := qm.Materialize(scanRel(qm))
	require.NoError(t, err)

	ctx := got.Native.Common().Context
	assert.Equal(t, "q1", ctx[CtxSQLQueryID])
	assert.Equal(t, "UTC", ctx[CtxSQLTimeZone])
	assert.Equal(t, 5, ctx["priority"])
	assert.Equal(t, int64(1000), ctx[CtxTimeout], "the caller's timeout wins")
	assert.Equal(t, int64(1<<40), ctx[CtxMaxScatterGatherBytes])

	rows, err := got.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Same(t, got.Native, w.got)
}

func TestRunWithoutWalker(t *testing.T) {
	pctx, err := plancontext.Create(ops, mt, plancontext.DefaultConfig(), nil)
	require.NoError(t, err)
	qm := New(nil, pctx, plancontext.DefaultServerConfig())
	got, err := qm.Materialize(scanRel(qm))
	require.NoError(t, err)

	_, err = got.Run(context.Background())
	assert.True(t, sqlerrors.Is(err, sqlerrors.Internal), "got %v", err)
	assert.ErrorContains(t, err, "no walker")
}
