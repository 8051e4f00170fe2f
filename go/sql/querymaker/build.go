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
	"slices"
	"strconv"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/druidplan/druidplan/go/sql/druidrel"
	"github.com/druidplan/druidplan/go/sql/expressions"
	"github.com/druidplan/druidplan/go/sql/macros"
	"github.com/druidplan/druidplan/go/sql/native"
	"github.com/druidplan/druidplan/go/sql/rel"
	"github.com/druidplan/druidplan/go/sql/rex"
	"github.com/druidplan/druidplan/go/sql/schema"
	"github.com/druidplan/druidplan/go/sql/sqltypes"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

// built is a translated partial query.
type built struct {
	query       native.Query
	columns     []string
	timeBounded bool
}

// selection is the row the aggregate, or the scan output, reads: one
// native column per field, with the expression computing it.
type selection struct {
	sig            expressions.Signature
	exprs          []rex.Expr
	types          []sqltypes.Type
	virtualColumns []native.VirtualColumn
}

func (qm *QueryMaker) build(q *druidrel.QueryRel) (*built, error) {
	p := q.Partial
	table := p.Scan.Table
	scanSig := make(expressions.Signature, len(table.Columns))
	for i, c := range table.Columns {
		scanSig[i] = c.Name
	}

	var cond rex.Expr
	if p.WhereFilter != nil {
		cond = p.WhereFilter.Condition
	}
	filtration := expressions.ExtractIntervals(qm.pctx.Operators(), scanSig, cond)
	base := native.BaseQuery{DataSource: table.DataSource, Intervals: filtration.Intervals}
	if filtration.Remaining != nil {
		f, err := expressions.ToFilter(scanSig, filtration.Remaining)
		if err != nil {
			return nil, err
		}
		base.Filter = f
	}

	sel, err := qm.selection(scanSig, p)
	if err != nil {
		return nil, err
	}
	base.VirtualColumns = sel.virtualColumns

	var b *built
	if p.Aggregate == nil {
		b, err = qm.buildScan(base, sel, p)
	} else {
		b, err = qm.buildAggregate(base, sel, p)
	}
	if err != nil {
		return nil, err
	}
	b.timeBounded = filtration.TimeBounded
	return b, nil
}

// selection computes the select projection as native columns, adding a
// virtual column for every expression that is not a plain column.
func (qm *QueryMaker) selection(scanSig expressions.Signature, p druidrel.PartialQuery) (*selection, error) {
	scanFields := p.Scan.RowType()
	sel := &selection{}
	if p.SelectProject == nil {
		sel.sig = scanSig
		for i, f := range scanFields {
			sel.exprs = append(sel.exprs, &rex.InputRef{Index: i, Name: f.Name, Typ: f.Type})
			sel.types = append(sel.types, f.Type)
		}
		return sel, nil
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	for _, e := range p.SelectProject.Exprs {
		sel.exprs = append(sel.exprs, e)
		sel.types = append(sel.types, e.Type())
		if ref, ok := e.(*rex.InputRef); ok {
			sel.sig = append(sel.sig, scanSig[ref.Index])
			continue
		}
		expr, err := expressions.ToNative(scanSig, e)
		if err != nil {
			return nil, err
		}
		name := qm.pctx.VirtualColumnName(e.String())
		sel.sig = append(sel.sig, name)
		if seen.Add(name) {
			outputType, ok := expressions.NativeType(e.Type())
			if !ok {
				outputType = "STRING"
			}
			sel.virtualColumns = append(sel.virtualColumns, native.NewVirtualColumn(name, expr, outputType))
		}
	}
	return sel, nil
}

func (qm *QueryMaker) buildScan(base native.BaseQuery, sel *selection, p druidrel.PartialQuery) (*built, error) {
	columns := mapset.NewThreadUnsafeSet[string]()
	var ordered []string
	for _, c := range sel.sig {
		if columns.Add(c) {
			ordered = append(ordered, c)
		}
	}
	q := &native.ScanQuery{
		Type:         native.TypeScan,
		BaseQuery:    base,
		ResultFormat: "compactedList",
		Columns:      ordered,
	}
	if s := p.Sort; s != nil {
		switch {
		case len(s.Collation) > 1:
			return nil, sqlerrors.New(sqlerrors.Translation, "scan queries can only be ordered by __time")
		case len(s.Collation) == 1:
			if sel.sig[s.Collation[0].Index] != schema.TimeColumn {
				return nil, sqlerrors.New(sqlerrors.Translation, "scan queries can only be ordered by __time")
			}
			q.Order = native.Ascending
			if s.Collation[0].Desc {
				q.Order = native.Descending
			}
		}
		q.Offset = s.Offset
		if s.Fetch >= 0 {
			q.Limit = s.Fetch
		}
	}
	return &built{query: q, columns: []string(sel.sig)}, nil
}

// aggregation is the translated aggregate, having and post-aggregation
// stages.
type aggregation struct {
	dimensions      []native.DimensionSpec
	aggregators     []native.Aggregator
	postAggregators []native.PostAggregator
	having          *native.HavingSpec
	// granularity is set when the only group key floors __time.
	granularity native.Granularity
	timeKey     bool
	// keyInPostAgg is set when a post-aggregator reads the time key.
	keyInPostAgg bool
	// sig names the columns of the rows the stages produce.
	sig   expressions.Signature
	types []sqltypes.Type
}

func (qm *QueryMaker) buildAggregate(base native.BaseQuery, sel *selection, p druidrel.PartialQuery) (*built, error) {
	a, err := qm.aggregation(sel, p)
	if err != nil {
		return nil, err
	}

	// timeseries has no having; those queries fall through to groupBy
	if a.having == nil && (len(a.dimensions) == 0 || (a.timeKey && !a.keyInPostAgg)) {
		if q, ok := qm.timeseries(base, a, p.Sort); ok {
			columns := append([]string(nil), a.sig...)
			if a.timeKey {
				for i, c := range columns {
					if c == a.dimensions[0].OutputName {
						columns[i] = schema.TimeColumn
					}
				}
			}
			return &built{query: q, columns: columns}, nil
		}
	}
	if len(a.dimensions) == 1 && !a.timeKey && a.having == nil {
		if q, ok := qm.topN(base, a, p.Sort); ok {
			return &built{query: q, columns: a.sig}, nil
		}
	}

	q := &native.GroupByQuery{
		Type:             native.TypeGroupBy,
		BaseQuery:        base,
		Granularity:      native.AllGranularity,
		Dimensions:       a.dimensions,
		Aggregations:     a.aggregators,
		PostAggregations: a.postAggregators,
		Having:           a.having,
	}
	if q.Dimensions == nil {
		q.Dimensions = []native.DimensionSpec{}
	}
	if q.Aggregations == nil {
		q.Aggregations = []native.Aggregator{}
	}
	if s := p.Sort; s != nil {
		spec := &native.LimitSpec{Type: "default", Columns: []native.OrderByColumnSpec{}, Offset: s.Offset}
		for _, fc := range s.Collation {
			spec.Columns = append(spec.Columns, orderBy(a, fc))
		}
		if s.Fetch >= 0 {
			spec.Limit = s.Fetch
		}
		q.LimitSpec = spec
	}
	return &built{query: q, columns: a.sig}, nil
}

func (qm *QueryMaker) aggregation(sel *selection, p druidrel.PartialQuery) (*aggregation, error) {
	a := &aggregation{granularity: native.AllGranularity}
	cfg := qm.pctx.Config()

	for i, k := range p.Aggregate.GroupKeys {
		name := "d" + strconv.Itoa(i)
		outputType, ok := expressions.NativeType(sel.types[k])
		if !ok {
			return nil, sqlerrors.Errorf(sqlerrors.Translation, "cannot group by a column of type %s", sel.types[k])
		}
		if len(p.Aggregate.GroupKeys) == 1 {
			a.granularity, a.timeKey = qm.timeFloorGranularity(sel.exprs[k])
		}
		a.dimensions = append(a.dimensions, native.NewDimensionSpec(sel.sig[k], name, outputType))
		a.sig = append(a.sig, name)
		a.types = append(a.types, sel.types[k])
	}

	for i, call := range p.Aggregate.Calls {
		name := "a" + strconv.Itoa(i)
		agg, err := expressions.ToAggregation(sel.sig, name, call, cfg.UseApproximateCountDistinct)
		if err != nil {
			return nil, err
		}
		a.aggregators = append(a.aggregators, agg.Aggregators...)
		if agg.PostAggregator != nil {
			a.postAggregators = append(a.postAggregators, *agg.PostAggregator)
		}
		a.sig = append(a.sig, name)
		a.types = append(a.types, call.Type)
	}

	if p.HavingFilter != nil {
		f, err := expressions.ToFilter(a.sig, p.HavingFilter.Condition)
		if err != nil {
			return nil, err
		}
		a.having = &native.HavingSpec{Type: "filter", Filter: f}
	}

	if p.AggregateProject != nil {
		var (
			sig   expressions.Signature
			types []sqltypes.Type
		)
		for _, e := range p.AggregateProject.Exprs {
			types = append(types, e.Type())
			if ref, ok := e.(*rex.InputRef); ok {
				sig = append(sig, a.sig[ref.Index])
				continue
			}
			if a.timeKey && rex.InputRefs(e)[0] {
				a.keyInPostAgg = true
			}
			expr, err := expressions.ToNative(a.sig, e)
			if err != nil {
				return nil, err
			}
			name := qm.pctx.NameFor("p", e.String())
			a.postAggregators = append(a.postAggregators, native.NewExpressionPostAggregator(name, expr))
			sig = append(sig, name)
		}
		a.sig, a.types = sig, types
	}
	return a, nil
}

// timeFloorGranularity recognizes timestamp_floor(__time, 'period', ...)
// and returns the equivalent granularity.
func (qm *QueryMaker) timeFloorGranularity(e rex.Expr) (native.Granularity, bool) {
	m, ok := e.(*rex.MacroCall)
	if !ok || m.Macro.Name != macros.TimestampFloor {
		return native.AllGranularity, false
	}
	ref, ok := m.Args[0].(*rex.InputRef)
	if !ok || ref.Name != schema.TimeColumn {
		return native.AllGranularity, false
	}
	period, ok := varcharLiteral(m.Args[1])
	if !ok {
		return native.AllGranularity, false
	}
	if len(m.Args) > 2 {
		if origin, ok := m.Args[2].(*rex.Literal); !ok || !origin.Value.IsNull() {
			return native.AllGranularity, false
		}
	}
	tz := qm.pctx.TimeZone().String()
	if len(m.Args) > 3 {
		if tz, ok = varcharLiteral(m.Args[3]); !ok {
			return native.AllGranularity, false
		}
	}
	return native.Granularity{Period: period, TimeZone: tz}, true
}

func varcharLiteral(e rex.Expr) (string, bool) {
	lit, ok := e.(*rex.Literal)
	if !ok || lit.Value.IsNull() || lit.Value.Type() != sqltypes.Varchar {
		return "", false
	}
	return lit.Value.ToString(), true
}

func (qm *QueryMaker) timeseries(base native.BaseQuery, a *aggregation, s *rel.Sort) (native.Query, bool) {
	q := &native.TimeseriesQuery{
		Type:             native.TypeTimeseries,
		BaseQuery:        base,
		Granularity:      a.granularity,
		Aggregations:     a.aggregators,
		PostAggregations: a.postAggregators,
	}
	if a.timeKey {
		q.VirtualColumns = unreferenced(q.VirtualColumns, a.dimensions[0].Dimension, a.aggregators)
	}
	if q.Aggregations == nil {
		q.Aggregations = []native.Aggregator{}
	}
	if s == nil {
		return q, true
	}
	if s.Offset != 0 {
		return nil, false
	}
	for _, fc := range s.Collation {
		if !a.timeKey {
			// a single row, any order will do
			continue
		}
		if a.sig[fc.Index] != a.dimensions[0].OutputName {
			return nil, false
		}
		q.Descending = fc.Desc
	}
	if s.Fetch >= 0 {
		q.Limit = s.Fetch
	}
	return q, true
}

// unreferenced drops the virtual column name unless an aggregator reads it.
func unreferenced(vcs []native.VirtualColumn, name string, aggs []native.Aggregator) []native.VirtualColumn {
	for _, agg := range aggs {
		for agg.Aggregator != nil {
			if agg.FieldName == name {
				return vcs
			}
			agg = *agg.Aggregator
		}
		if agg.FieldName == name || slices.Contains(agg.Fields, name) {
			return vcs
		}
	}
	return slices.DeleteFunc(slices.Clone(vcs), func(vc native.VirtualColumn) bool { return vc.Name == name })
}

func (qm *QueryMaker) topN(base native.BaseQuery, a *aggregation, s *rel.Sort) (native.Query, bool) {
	cfg := qm.pctx.Config()
	if !cfg.UseApproximateTopN || s == nil || len(s.Collation) != 1 || s.Offset != 0 ||
		s.Fetch < 0 || s.Fetch > int64(cfg.MaxTopNLimit) {
		return nil, false
	}
	fc := s.Collation[0]
	metric := a.sig[fc.Index]
	if metric == a.dimensions[0].OutputName || !a.types[fc.Index].IsNumeric() {
		return nil, false
	}
	return &native.TopNQuery{
		Type:             native.TypeTopN,
		BaseQuery:        base,
		Dimension:        a.dimensions[0],
		Metric:           native.NewNumericMetric(metric, !fc.Desc),
		Threshold:        s.Fetch,
		Granularity:      native.AllGranularity,
		Aggregations:     a.aggregators,
		PostAggregations: a.postAggregators,
	}, true
}

func orderBy(a *aggregation, fc rel.FieldCollation) native.OrderByColumnSpec {
	spec := native.OrderByColumnSpec{
		Dimension:      a.sig[fc.Index],
		Direction:      native.Ascending,
		DimensionOrder: native.Lexicographic,
	}
	if fc.Desc {
		spec.Direction = native.Descending
	}
	if t := a.types[fc.Index]; t.IsNumeric() || t.IsTemporal() {
		spec.DimensionOrder = native.Numeric
	}
	return spec
}
