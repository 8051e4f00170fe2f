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

package rex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/druidplan/druidplan/go/sql/macros"
	"github.com/druidplan/druidplan/go/sql/operators"
	"github.com/druidplan/druidplan/go/sql/sqltypes"
)

var ops = operators.NewDefaultTable()

func ref(i int, typ sqltypes.Type) *InputRef {
	return &InputRef{Index: i, Name: "c" + string(rune('0'+i)), Typ: typ}
}

func lit(i int64) *Literal {
	return NewLiteral(sqltypes.NewInt64(i))
}

func TestDigest(t *testing.T) {
	sum, err := NewCall(ops.MustLookup("+"), lit(1), lit(1))
	require.NoError(t, err)
	eq, err := NewCall(ops.MustLookup("="), ref(0, sqltypes.Bigint), sum)
	require.NoError(t, err)

	assert.Equal(t, "=($0, +(1, 1))", eq.String())
	assert.Equal(t, sqltypes.Boolean, eq.Type())
	assert.Equal(t, sqltypes.Bigint, sum.Type())

	cast := NewCast(ops, ref(1, sqltypes.Varchar), sqltypes.Bigint)
	assert.Equal(t, "CAST($1 AS BIGINT)", cast.String())

	floor, err := NewMacroCall(macros.NewDefaultTable().MustLookup(macros.TimestampFloor), ref(0, sqltypes.Timestamp), NewLiteral(sqltypes.NewVarChar("P1D")))
	require.NoError(t, err)
	assert.Equal(t, "timestamp_floor($0, 'P1D')", floor.String())
	assert.Equal(t, sqltypes.Timestamp, floor.Type())
}

func TestNewCallChecksArity(t *testing.T) {
	_, err := NewCall(ops.MustLookup("NOT"), lit(1), lit(2))
	assert.Error(t, err)
}

func TestSubstitute(t *testing.T) {
	eq, err := NewCall(ops.MustLookup("="), ref(1, sqltypes.Bigint), lit(3))
	require.NoError(t, err)

	got, err := Substitute(eq, []Expr{lit(0), ref(4, sqltypes.Bigint)})
	require.NoError(t, err)
	assert.Equal(t, "=($4, 3)", got.String())
	assert.Equal(t, "=($1, 3)", eq.String())

	_, err = Substitute(eq, []Expr{lit(0)})
	assert.ErrorContains(t, err, "out of range")
}

func TestConjuncts(t *testing.T) {
	a, _ := NewCall(ops.MustLookup(">"), ref(0, sqltypes.Bigint), lit(1))
	b, _ := NewCall(ops.MustLookup("<"), ref(0, sqltypes.Bigint), lit(9))
	c, _ := NewCall(ops.MustLookup("IS NOT NULL"), ref(1, sqltypes.Varchar))

	and := And(ops, a, And(ops, b, c), NewLiteral(sqltypes.NewBoolean(true)))
	assert.Len(t, Conjuncts(and), 3)
	assert.True(t, IsTrue(And(ops)))
	assert.Same(t, a, And(ops, a))
	assert.Equal(t, map[int]bool{0: true, 1: true}, InputRefs(and))
	assert.False(t, IsConstant(and))
	assert.True(t, IsConstant(lit(1)))
}
