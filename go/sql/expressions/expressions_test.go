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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/druidplan/druidplan/go/sql/macros"
	"github.com/druidplan/druidplan/go/sql/native"
	"github.com/druidplan/druidplan/go/sql/operators"
	"github.com/druidplan/druidplan/go/sql/rel"
	"github.com/druidplan/druidplan/go/sql/rex"
	"github.com/druidplan/druidplan/go/sql/sqltypes"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

var (
	ops = operators.NewDefaultTable()
	sig = Signature{"__time", "x", "dim"}

	timeRef = &rex.InputRef{Index: 0, Name: "__time", Typ: sqltypes.Timestamp}
	xRef    = &rex.InputRef{Index: 1, Name: "x", Typ: sqltypes.Bigint}
	dimRef  = &rex.InputRef{Index: 2, Name: "dim", Typ: sqltypes.Varchar}
)

func mkCall(t *testing.T, name string, args ...rex.Expr) rex.Expr {
	t.Helper()
	c, err := rex.NewCall(ops.MustLookup(name), args...)
	require.NoError(t, err)
	return c
}

func lit(v sqltypes.Value) rex.Expr {
	return rex.NewLiteral(v)
}

func TestToNative(t *testing.T) {
	cases := []struct {
		expr rex.Expr
		want string
	}{
		{mkCall(t, "+", xRef, lit(sqltypes.NewInt64(1))), `("x" + 1)`},
		{mkCall(t, "AND", mkCall(t, ">", xRef, lit(sqltypes.NewInt64(1))), mkCall(t, "IS NULL", dimRef)), `(("x" > 1) && isnull("dim"))`},
		{mkCall(t, "NOT", mkCall(t, "=", dimRef, lit(sqltypes.NewVarChar("it's")))), `!(("dim" == 'it\'s'))`},
		{mkCall(t, "UPPER", dimRef), `upper("dim")`},
		{mkCall(t, "CONCAT", dimRef, lit(sqltypes.NewVarChar("a"))), `concat("dim",'a')`},
		{rex.NewCast(ops, dimRef, sqltypes.Bigint), `cast("dim", 'LONG')`},
		{rex.NewCast(ops, xRef, sqltypes.Timestamp), `"x"`},
		{lit(sqltypes.NewTypedNull(sqltypes.Varchar)), `null`},
		{lit(sqltypes.NewFloat64(2)), `2.0`},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			got, err := ToNative(sig, tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestToNativeMacro(t *testing.T) {
	floor, err := rex.NewMacroCall(macros.NewDefaultTable().MustLookup(macros.TimestampFloor),
		timeRef, lit(sqltypes.NewVarChar("P1D")), lit(sqltypes.NULL), lit(sqltypes.NewVarChar("UTC")))
	require.NoError(t, err)
	got, err := ToNative(sig, floor)
	require.NoError(t, err)
	assert.Equal(t, `timestamp_floor("__time",'P1D',null,'UTC')`, got)
}

func TestToNativeErrors(t *testing.T) {
	rand := mkCall(t, "RAND")
	_, err := ToNative(sig, rand)
	assert.True(t, sqlerrors.Is(err, sqlerrors.Translation))

	_, err = ToNative(sig, &rex.InputRef{Index: 7, Typ: sqltypes.Bigint})
	assert.True(t, sqlerrors.Is(err, sqlerrors.Translation))
}

func TestToFilter(t *testing.T) {
	cases := []struct {
		name string
		cond rex.Expr
		want string
	}{
		{"selector", mkCall(t, "=", xRef, lit(sqltypes.NewInt64(2))), "x = 2"},
		{"flipped bound", mkCall(t, "<", lit(sqltypes.NewInt64(2)), xRef), "2 < x (numeric)"},
		{"lexicographic bound", mkCall(t, "<=", dimRef, lit(sqltypes.NewVarChar("m"))), "dim <= m (lexicographic)"},
		{"not equal", mkCall(t, "<>", dimRef, lit(sqltypes.NewVarChar("a"))), "!(dim = a)"},
		{"is null", mkCall(t, "IS NOT NULL", dimRef), "!(dim IS NULL)"},
		{"in", mkCall(t, "OR",
			mkCall(t, "=", dimRef, lit(sqltypes.NewVarChar("a"))),
			mkCall(t, "=", dimRef, lit(sqltypes.NewVarChar("b")))), "dim IN (a, b)"},
		{"or", mkCall(t, "OR",
			mkCall(t, "=", dimRef, lit(sqltypes.NewVarChar("a"))),
			mkCall(t, "=", xRef, lit(sqltypes.NewInt64(1)))), "(dim = a || x = 1)"},
		{"expression", mkCall(t, ">", mkCall(t, "+", xRef, lit(sqltypes.NewInt64(1))), lit(sqltypes.NewInt64(3))), `(("x" + 1) > 3)`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := ToFilter(sig, tc.cond)
			require.NoError(t, err)
			assert.Equal(t, tc.want, f.String())
		})
	}
}

func TestLikeFilter(t *testing.T) {
	like, err := rex.NewMacroCall(macros.NewDefaultTable().MustLookup(macros.Like), dimRef, lit(sqltypes.NewVarChar("a%")))
	require.NoError(t, err)
	f, err := ToFilter(sig, like)
	require.NoError(t, err)
	assert.Equal(t, native.Like("dim", "a%", ""), f)
}

func TestExtractIntervals(t *testing.T) {
	day := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	cond := rex.And(ops,
		mkCall(t, ">=", timeRef, lit(sqltypes.NewTimestamp(day))),
		mkCall(t, "=", xRef, lit(sqltypes.NewInt64(2))),
		mkCall(t, ">", lit(sqltypes.NewTimestamp(day.AddDate(0, 0, 1))), timeRef),
	)
	f := ExtractIntervals(ops, sig, cond)
	assert.True(t, f.TimeBounded)
	require.Len(t, f.Intervals, 1)
	assert.Equal(t, "2000-01-01T00:00:00.000Z/2000-01-02T00:00:00.000Z", f.Intervals[0].String())
	assert.Equal(t, "=($1, 2)", f.Remaining.String())

	f = ExtractIntervals(ops, sig, nil)
	assert.False(t, f.TimeBounded)
	assert.Equal(t, []native.Interval{native.Eternity}, f.Intervals)
	assert.Nil(t, f.Remaining)

	empty := rex.And(ops,
		mkCall(t, ">", timeRef, lit(sqltypes.NewTimestamp(day))),
		mkCall(t, "<", timeRef, lit(sqltypes.NewTimestamp(day))),
	)
	f = ExtractIntervals(ops, sig, empty)
	assert.True(t, f.TimeBounded)
	assert.Empty(t, f.Intervals)
	assert.Nil(t, f.Remaining)
}

func TestToAggregation(t *testing.T) {
	count := ops.MustLookup("COUNT")
	sum := ops.MustLookup("SUM")
	avg := ops.MustLookup("AVG")

	agg, err := ToAggregation(sig, "a0", rel.AggCall{Op: count, Type: sqltypes.Bigint}, true)
	require.NoError(t, err)
	assert.Equal(t, []native.Aggregator{{Type: "count", Name: "a0"}}, agg.Aggregators)

	agg, err = ToAggregation(sig, "a1", rel.AggCall{Op: sum, Args: []int{1}, Type: sqltypes.Bigint}, true)
	require.NoError(t, err)
	assert.Equal(t, []native.Aggregator{{Type: "longSum", Name: "a1", FieldName: "x"}}, agg.Aggregators)

	agg, err = ToAggregation(sig, "a2", rel.AggCall{Op: count, Args: []int{2}, Distinct: true, Type: sqltypes.Bigint}, true)
	require.NoError(t, err)
	assert.Equal(t, []native.Aggregator{{Type: "cardinality", Name: "a2", Fields: []string{"dim"}, Round: true}}, agg.Aggregators)

	_, err = ToAggregation(sig, "a2", rel.AggCall{Op: count, Args: []int{2}, Distinct: true, Type: sqltypes.Bigint}, false)
	assert.True(t, sqlerrors.Is(err, sqlerrors.Translation))

	agg, err = ToAggregation(sig, "a3", rel.AggCall{Op: avg, Args: []int{1}, Type: sqltypes.Double}, true)
	require.NoError(t, err)
	require.Len(t, agg.Aggregators, 2)
	require.NotNil(t, agg.PostAggregator)
	assert.Equal(t, `(cast("a3:sum", 'DOUBLE') / "a3:count")`, agg.PostAggregator.Expression)

	_, err = ToAggregation(sig, "a4", rel.AggCall{Op: sum, Args: []int{2}, Type: sqltypes.Varchar}, true)
	assert.True(t, sqlerrors.Is(err, sqlerrors.Translation))
}
