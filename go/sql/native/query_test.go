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

package native

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanQueryJSON(t *testing.T) {
	q := &ScanQuery{
		Type: TypeScan,
		BaseQuery: BaseQuery{
			DataSource: "T",
			Intervals:  []Interval{Eternity},
			Filter:     Selector("x", StringPtr("2")),
			Context:    map[string]any{"sqlTimeZone": "UTC"},
		},
		ResultFormat: "compactedList",
		Columns:      []string{"x"},
	}
	out, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"queryType": "scan",
		"dataSource": "T",
		"intervals": ["-146136543-09-08T08:23:32.096Z/146140482-04-24T15:36:27.903Z"],
		"filter": {"type": "selector", "dimension": "x", "value": "2"},
		"context": {"sqlTimeZone": "UTC"},
		"resultFormat": "compactedList",
		"columns": ["x"]
	}`, string(out))
	assert.Equal(t, TypeScan, q.QueryType())
	assert.Equal(t, "T", q.Common().DataSource)
}

func TestGranularityJSON(t *testing.T) {
	out, err := json.Marshal(AllGranularity)
	require.NoError(t, err)
	assert.Equal(t, `"all"`, string(out))

	out, err = json.Marshal(Granularity{Period: "P1D", TimeZone: "America/Los_Angeles"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"period","period":"P1D","timeZone":"America/Los_Angeles"}`, string(out))
}

func TestInterval(t *testing.T) {
	i := Interval{Start: 946684800000, End: 946771200000}
	assert.Equal(t, "2000-01-01T00:00:00.000Z/2000-01-02T00:00:00.000Z", i.String())
	assert.False(t, i.IsEternity())
	assert.True(t, Eternity.IsEternity())
}

func TestFilters(t *testing.T) {
	f := And(
		Selector("x", StringPtr("2")),
		Not(Selector("y", nil)),
		Bound("z", StringPtr("1"), nil, true, false, Numeric),
	)
	assert.Equal(t, "and", f.FilterType())
	assert.Equal(t, "(x = 2 && !(y IS NULL) && 1 < z (numeric))", f.String())
	assert.Same(t, f, Or(f))

	out, err := json.Marshal(Not(Expression(`("x" > 1)`)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"not","field":{"type":"expression","expression":"(\"x\" > 1)"}}`, string(out))
}

func TestEscaping(t *testing.T) {
	assert.Equal(t, `'it\'s'`, EscapeString("it's"))
	assert.Equal(t, `"a\"b"`, Identifier(`a"b`))
	assert.Equal(t, `{"type":"inverted","metric":{"type":"numeric","metric":"a0"}}`, mustJSON(t, NewNumericMetric("a0", true)))
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	out, err := json.Marshal(v)
	require.NoError(t, err)
	return string(out)
}
