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

// Package rules holds the engine's rule programs: a normalization phase
// over logical plans followed by a phase that packs logical nodes into
// native queries.
package rules

import (
	"github.com/druidplan/druidplan/go/sql/druidrel"
	"github.com/druidplan/druidplan/go/sql/plancontext"
	"github.com/druidplan/druidplan/go/sql/rel"
)

// Phase names.
const (
	Normalize = "normalize"
	Druid     = "druid"
)

// Programs returns the phases for one query. maker translates candidate
// partial queries so that only natively executable ones are produced.
func Programs(pctx *plancontext.PlannerContext, maker druidrel.Materializer) []rel.Program {
	limit := pctx.Config().MaxApplications
	return []rel.Program{
		{
			Name: Normalize,
			Rules: []rel.Rule{
				reduceExpressions{},
				filterMerge{},
				projectMerge{},
				filterProjectTranspose{},
				projectRemove{},
			},
			Convergence:     rel.FixedPoint,
			MaxApplications: limit,
		},
		{
			Name: Druid,
			Rules: []rel.Rule{
				tableScan{maker: maker},
				absorbFilter,
				absorbProject,
				absorbAggregate,
				absorbSort,
			},
			Convergence:     rel.CostBased,
			MaxApplications: limit,
		},
	}
}
