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

package sqltypes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	for name, want := range map[string]Type{
		"int":       Bigint,
		"LONG":      Bigint,
		"double":    Double,
		"float":     Float,
		"string":    Varchar,
		"timestamp": Timestamp,
		"boolean":   Boolean,
	} {
		got, err := ParseType(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseType("geometry")
	assert.ErrorContains(t, err, "unknown column type")
}

func TestLeastRestrictive(t *testing.T) {
	tests := []struct {
		a, b Type
		want Type
		ok   bool
	}{
		{Bigint, Double, Double, true},
		{Float, Bigint, Float, true},
		{Null, Varchar, Varchar, true},
		{Timestamp, Date, Timestamp, true},
		{Varchar, Bigint, Null, false},
	}
	for _, tt := range tests {
		got, ok := LeastRestrictive(tt.a, tt.b)
		assert.Equal(t, tt.ok, ok, "%s %s", tt.a, tt.b)
		assert.Equal(t, tt.want, got, "%s %s", tt.a, tt.b)
	}
}

func TestValueConversions(t *testing.T) {
	i, err := NewVarChar(" 42 ").ToInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(42), i)

	f, err := NewInt64(3).ToFloat64()
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)

	_, err = NULL.ToInt64()
	assert.Error(t, err)

	ts := time.Date(2000, 1, 2, 3, 4, 5, 0, time.UTC)
	v := NewTimestamp(ts)
	assert.Equal(t, "946782245000", v.ToString())
	assert.Equal(t, "TIMESTAMP '2000-01-02 03:04:05.000'", v.String())
	back, err := v.ToTime()
	require.NoError(t, err)
	assert.True(t, ts.Equal(back))
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "NULL", NULL.String())
	assert.Equal(t, "'it''s'", NewVarChar("it's").String())
	assert.Equal(t, "2.0", NewFloat64(2).String())
	assert.Equal(t, "2.5", NewFloat64(2.5).String())
	assert.Equal(t, "true", NewBoolean(true).String())
	assert.True(t, NewTypedNull(Bigint).IsNull())
	assert.Equal(t, Bigint, NewTypedNull(Bigint).Type())
}

func TestCast(t *testing.T) {
	v, err := NewVarChar("7").Cast(Bigint)
	require.NoError(t, err)
	assert.Equal(t, NewInt64(7), v)

	v, err = NewInt64(7).Cast(Varchar)
	require.NoError(t, err)
	assert.Equal(t, NewVarChar("7"), v)

	_, err = NewVarChar("x").Cast(Timestamp)
	assert.Error(t, err)
}
