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

package plancontext

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/druidplan/druidplan/go/sql/macros"
	"github.com/druidplan/druidplan/go/sql/operators"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

func create(t *testing.T, queryContext map[string]any) (*PlannerContext, error) {
	t.Helper()
	return Create(operators.NewDefaultTable(), macros.NewDefaultTable(), DefaultConfig(), queryContext)
}

func TestCreateDefaults(t *testing.T) {
	pc, err := create(t, nil)
	require.NoError(t, err)

	assert.Equal(t, "UTC", pc.TimeZone().String())
	assert.Equal(t, DefaultConfig(), pc.Config())
	assert.Empty(t, pc.QueryContext())
	_, err = uuid.Parse(pc.SQLQueryID())
	assert.NoError(t, err, "a query id is generated when none is supplied")
	assert.WithinDuration(t, time.Now(), pc.UTCNow(), time.Minute)
}

func TestCreateAppliesSettings(t *testing.T) {
	qc := map[string]any{
		CtxTimeZone:                    "America/Los_Angeles",
		CtxCurrentTimestamp:            "2000-01-01T00:00:00Z",
		CtxQueryID:                     "q1",
		CtxUseApproximateTopN:          "false",
		CtxRequireTimeCondition:        true,
		CtxMaxTopNLimit:                int64(10),
		CtxUseApproximateCountDistinct: 0,
		"priority":                     7,
	}
	pc, err := create(t, qc)
	require.NoError(t, err)

	assert.Equal(t, "America/Los_Angeles", pc.TimeZone().String())
	assert.Equal(t, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), pc.UTCNow())
	assert.Equal(t, 1999, pc.LocalNow().Year())
	assert.Equal(t, "q1", pc.SQLQueryID())

	cfg := pc.Config()
	assert.False(t, cfg.UseApproximateTopN)
	assert.False(t, cfg.UseApproximateCountDistinct)
	assert.True(t, cfg.RequireTimeCondition)
	assert.Equal(t, 10, cfg.MaxTopNLimit)
	assert.Equal(t, "America/Los_Angeles", cfg.SQLTimeZone)

	v, ok := pc.Setting("priority")
	assert.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestCreateCopiesQueryContext(t *testing.T) {
	qc := map[string]any{"a": 1}
	pc, err := create(t, qc)
	require.NoError(t, err)

	qc["a"] = 2
	qc["b"] = 3
	got := pc.QueryContext()
	assert.Equal(t, map[string]any{"a": 1}, got)

	got["a"] = 4
	v, _ := pc.Setting("a")
	assert.Equal(t, 1, v)
}

func TestCreateRejectsMalformedSettings(t *testing.T) {
	tests := []struct {
		name string
		qc   map[string]any
		want string
	}{
		{"bad zone", map[string]any{CtxTimeZone: "Mars/Olympus"}, CtxTimeZone},
		{"bad timestamp", map[string]any{CtxCurrentTimestamp: "yesterday"}, CtxCurrentTimestamp},
		{"bad bool", map[string]any{CtxUseApproximateTopN: "maybe"}, CtxUseApproximateTopN},
		{"non positive limit", map[string]any{CtxMaxTopNLimit: 0}, "must be positive"},
		{"non scalar", map[string]any{"nested": map[string]any{"a": 1}}, "not a scalar"},
		{"slice", map[string]any{"list": []int{1}}, "not a scalar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := create(t, tt.qc)
			require.Error(t, err)
			assert.Equal(t, sqlerrors.QueryContext, sqlerrors.Code(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReservedKeys(t *testing.T) {
	assert.True(t, IsReserved("__internal"))
	assert.True(t, IsReserved("queryId"))
	assert.False(t, IsReserved("sqlQueryId"))
	assert.False(t, IsReserved("_single"))

	got := ReservedKeys(map[string]any{"__b": 1, "queryId": "x", "__a": 2, "ok": true})
	assert.Equal(t, []string{"__a", "__b", "queryId"}, got)
	assert.Empty(t, ReservedKeys(nil))
}

func TestNameFor(t *testing.T) {
	pc, err := create(t, nil)
	require.NoError(t, err)

	assert.Equal(t, "v0", pc.VirtualColumnName("+($0, 1)"))
	assert.Equal(t, "v1", pc.VirtualColumnName("upper($1)"))
	assert.Equal(t, "v0", pc.VirtualColumnName("+($0, 1)"))
	assert.Equal(t, "a0", pc.NameFor("a", "+($0, 1)"))

	other, err := create(t, nil)
	require.NoError(t, err)
	assert.Equal(t, "v0", other.VirtualColumnName("upper($1)"), "bookkeeping is per query")
}
