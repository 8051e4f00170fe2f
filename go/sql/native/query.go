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

// Package native models the engine's native JSON queries.
package native

import (
	"encoding/json"
	"strings"
	"time"
)

// Query types.
const (
	TypeScan       = "scan"
	TypeTimeseries = "timeseries"
	TypeTopN       = "topN"
	TypeGroupBy    = "groupBy"
)

// Query is a native query.
type Query interface {
	QueryType() string
	// Common returns the fields shared by every query type.
	Common() *BaseQuery
}

// BaseQuery holds the fields every query type carries.
type BaseQuery struct {
	DataSource     string          `json:"dataSource"`
	Intervals      []Interval      `json:"intervals"`
	VirtualColumns []VirtualColumn `json:"virtualColumns,omitempty"`
	Filter         DimFilter       `json:"filter,omitempty"`
	Context        map[string]any  `json:"context,omitempty"`
}

// Common implements Query.
func (b *BaseQuery) Common() *BaseQuery { return b }

type (
	// ScanQuery returns raw rows.
	ScanQuery struct {
		Type string `json:"queryType"`
		BaseQuery
		ResultFormat string   `json:"resultFormat"`
		Columns      []string `json:"columns"`
		Order        string   `json:"order,omitempty"`
		Offset       int64    `json:"offset,omitempty"`
		Limit        int64    `json:"limit,omitempty"`
	}

	// TimeseriesQuery aggregates into time buckets.
	TimeseriesQuery struct {
		Type string `json:"queryType"`
		BaseQuery
		Descending       bool             `json:"descending,omitempty"`
		Granularity      Granularity      `json:"granularity"`
		Aggregations     []Aggregator     `json:"aggregations"`
		PostAggregations []PostAggregator `json:"postAggregations,omitempty"`
		Limit            int64            `json:"limit,omitempty"`
	}

	// TopNQuery ranks the values of one dimension by a metric.
	TopNQuery struct {
		Type string `json:"queryType"`
		BaseQuery
		Dimension        DimensionSpec    `json:"dimension"`
		Metric           TopNMetric       `json:"metric"`
		Threshold        int64            `json:"threshold"`
		Granularity      Granularity      `json:"granularity"`
		Aggregations     []Aggregator     `json:"aggregations"`
		PostAggregations []PostAggregator `json:"postAggregations,omitempty"`
	}

	// GroupByQuery aggregates by arbitrary dimensions.
	GroupByQuery struct {
		Type string `json:"queryType"`
		BaseQuery
		Granularity      Granularity      `json:"granularity"`
		Dimensions       []DimensionSpec  `json:"dimensions"`
		Aggregations     []Aggregator     `json:"aggregations"`
		PostAggregations []PostAggregator `json:"postAggregations,omitempty"`
		Having           *HavingSpec      `json:"having,omitempty"`
		LimitSpec        *LimitSpec       `json:"limitSpec,omitempty"`
	}
)

func (q *ScanQuery) QueryType() string       { return TypeScan }
func (q *TimeseriesQuery) QueryType() string { return TypeTimeseries }
func (q *TopNQuery) QueryType() string       { return TypeTopN }
func (q *GroupByQuery) QueryType() string    { return TypeGroupBy }

// Marshal renders q as indented JSON.
func Marshal(q Query) ([]byte, error) {
	return json.MarshalIndent(q, "", "  ")
}

// Granularity buckets time. The zero value is "all".
type Granularity struct {
	Period   string
	TimeZone string
}

// AllGranularity puts every row in one bucket.
var AllGranularity = Granularity{}

// IsAll reports whether g is the "all" granularity.
func (g Granularity) IsAll() bool {
	return g.Period == ""
}

// MarshalJSON renders "all" or a period granularity object.
func (g Granularity) MarshalJSON() ([]byte, error) {
	if g.IsAll() {
		return []byte(`"all"`), nil
	}
	return json.Marshal(struct {
		Type     string `json:"type"`
		Period   string `json:"period"`
		TimeZone string `json:"timeZone,omitempty"`
	}{"period", g.Period, g.TimeZone})
}

// Interval is a half-open range of epoch milliseconds.
type Interval struct {
	Start, End int64
}

// The engine's bounds on time, half of the int64 range.
const (
	MinInstant int64 = -4611686018427387904
	MaxInstant int64 = 4611686018427387903
)

// Eternity covers all time.
var Eternity = Interval{Start: MinInstant, End: MaxInstant}

const instantLayout = "2006-01-02T15:04:05.000Z"

func formatInstant(ms int64) string {
	switch ms {
	case MinInstant:
		return "-146136543-09-08T08:23:32.096Z"
	case MaxInstant:
		return "146140482-04-24T15:36:27.903Z"
	}
	return time.UnixMilli(ms).UTC().Format(instantLayout)
}

func (i Interval) String() string {
	return formatInstant(i.Start) + "/" + formatInstant(i.End)
}

// MarshalJSON renders start/end in ISO 8601.
func (i Interval) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

// IsEternity reports whether i covers all time.
func (i Interval) IsEternity() bool {
	return i == Eternity
}

// VirtualColumn computes a column from an expression.
type VirtualColumn struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	Expression string `json:"expression"`
	OutputType string `json:"outputType"`
}

// NewVirtualColumn returns an expression virtual column.
func NewVirtualColumn(name, expression, outputType string) VirtualColumn {
	return VirtualColumn{Type: "expression", Name: name, Expression: expression, OutputType: outputType}
}

// DimensionSpec selects a dimension, optionally renaming it.
type DimensionSpec struct {
	Type       string `json:"type"`
	Dimension  string `json:"dimension"`
	OutputName string `json:"outputName"`
	OutputType string `json:"outputType,omitempty"`
}

// NewDimensionSpec returns a default dimension spec.
func NewDimensionSpec(dimension, outputName, outputType string) DimensionSpec {
	return DimensionSpec{Type: "default", Dimension: dimension, OutputName: outputName, OutputType: outputType}
}

// Aggregator is one native aggregation. Only the fields relevant to Type
// are set.
type Aggregator struct {
	Type       string      `json:"type"`
	Name       string      `json:"name"`
	FieldName  string      `json:"fieldName,omitempty"`
	Expression string      `json:"expression,omitempty"`
	Fields     []string    `json:"fields,omitempty"`
	Round      bool        `json:"round,omitempty"`
	Filter     DimFilter   `json:"filter,omitempty"`
	Aggregator *Aggregator `json:"aggregator,omitempty"`
}

// PostAggregator computes a value from aggregated results.
type PostAggregator struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

// NewExpressionPostAggregator returns an expression post-aggregator.
func NewExpressionPostAggregator(name, expression string) PostAggregator {
	return PostAggregator{Type: "expression", Name: name, Expression: expression}
}

// TopNMetric orders topN results.
type TopNMetric struct {
	Type   string `json:"type"`
	Metric any    `json:"metric"`
}

// NewNumericMetric orders by a metric descending, or ascending when
// inverted.
func NewNumericMetric(metric string, inverted bool) TopNMetric {
	m := TopNMetric{Type: "numeric", Metric: metric}
	if inverted {
		return TopNMetric{Type: "inverted", Metric: m}
	}
	return m
}

// HavingSpec filters aggregated rows.
type HavingSpec struct {
	Type   string    `json:"type"`
	Filter DimFilter `json:"filter"`
}

// LimitSpec sorts and limits groupBy results.
type LimitSpec struct {
	Type    string              `json:"type"`
	Columns []OrderByColumnSpec `json:"columns"`
	Offset  int64               `json:"offset,omitempty"`
	Limit   int64               `json:"limit,omitempty"`
}

// OrderByColumnSpec orders by one output column.
type OrderByColumnSpec struct {
	Dimension      string `json:"dimension"`
	Direction      string `json:"direction"`
	DimensionOrder string `json:"dimensionOrder"`
}

// Directions and orderings.
const (
	Ascending     = "ascending"
	Descending    = "descending"
	Lexicographic = "lexicographic"
	Numeric       = "numeric"
)

// EscapeString renders s as a single-quoted expression literal.
func EscapeString(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}

// Identifier renders a column reference in the expression language.
func Identifier(name string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(name) + `"`
}
