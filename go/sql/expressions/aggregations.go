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
	"github.com/druidplan/druidplan/go/sql/native"
	"github.com/druidplan/druidplan/go/sql/rel"
	"github.com/druidplan/druidplan/go/sql/sqltypes"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

// Aggregation is the native form of one SQL aggregate call. Most calls
// need a single aggregator; AVG needs two plus a post-aggregator that
// divides them.
type Aggregation struct {
	Aggregators    []native.Aggregator
	PostAggregator *native.PostAggregator
}

// ToAggregation translates call, whose arguments index into sig, into
// aggregators producing an output column called name.
func ToAggregation(sig Signature, name string, call rel.AggCall, approxCountDistinct bool) (Aggregation, error) {
	fields := make([]string, len(call.Args))
	for i, a := range call.Args {
		col, err := sig.Column(a)
		if err != nil {
			return Aggregation{}, err
		}
		fields[i] = col
	}

	if call.Distinct && call.Op.Name != "COUNT" && call.Op.Name != "APPROX_COUNT_DISTINCT" {
		return Aggregation{}, sqlerrors.Errorf(sqlerrors.Translation, "%s(DISTINCT) is not supported", call.Op.Name)
	}

	single := func(a native.Aggregator) (Aggregation, error) {
		return Aggregation{Aggregators: []native.Aggregator{a}}, nil
	}

	switch call.Op.Name {
	case "COUNT":
		switch {
		case len(fields) == 0:
			return single(native.Aggregator{Type: "count", Name: name})
		case call.Distinct:
			if !approxCountDistinct {
				return Aggregation{}, sqlerrors.New(sqlerrors.Translation,
					"exact COUNT(DISTINCT) is not supported; set useApproximateCountDistinct to plan it approximately")
			}
			return single(cardinality(name, fields))
		}
		return single(native.Aggregator{
			Type:       "filtered",
			Name:       name,
			Filter:     native.Not(native.Selector(fields[0], nil)),
			Aggregator: &native.Aggregator{Type: "count", Name: name},
		})
	case "APPROX_COUNT_DISTINCT":
		return single(cardinality(name, fields))
	case "SUM", "MIN", "MAX":
		prefix, err := numericPrefix(call.Op.Name, call.Type)
		if err != nil {
			return Aggregation{}, err
		}
		return single(native.Aggregator{Type: prefix + titleCase(call.Op.Name), Name: name, FieldName: fields[0]})
	case "AVG":
		sum, count := name+":sum", name+":count"
		post := native.NewExpressionPostAggregator(name,
			"(cast("+native.Identifier(sum)+", 'DOUBLE') / "+native.Identifier(count)+")")
		return Aggregation{
			Aggregators: []native.Aggregator{
				{Type: "doubleSum", Name: sum, FieldName: fields[0]},
				{
					Type:       "filtered",
					Name:       count,
					Filter:     native.Not(native.Selector(fields[0], nil)),
					Aggregator: &native.Aggregator{Type: "count", Name: count},
				},
			},
			PostAggregator: &post,
		}, nil
	}
	return Aggregation{}, sqlerrors.Errorf(sqlerrors.Translation, "aggregate %s has no native form", call.Op.Name)
}

func cardinality(name string, fields []string) native.Aggregator {
	return native.Aggregator{Type: "cardinality", Name: name, Fields: fields, Round: true}
}

func numericPrefix(op string, typ sqltypes.Type) (string, error) {
	switch {
	case typ == sqltypes.Float:
		return "float", nil
	case typ.IsIntegral() || typ.IsTemporal():
		return "long", nil
	case typ.IsNumeric():
		return "double", nil
	}
	return "", sqlerrors.Errorf(sqlerrors.Translation, "%s over %s has no native form", op, typ)
}

func titleCase(op string) string {
	switch op {
	case "SUM":
		return "Sum"
	case "MIN":
		return "Min"
	}
	return "Max"
}
