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

// Package planner assembles a single-use SQL planner per query from
// shared, immutable dependencies.
package planner

import (
	"strings"

	"github.com/druidplan/druidplan/go/log"
	"github.com/druidplan/druidplan/go/sql/convertlet"
	"github.com/druidplan/druidplan/go/sql/dialect"
	"github.com/druidplan/druidplan/go/sql/evalengine"
	"github.com/druidplan/druidplan/go/sql/framework"
	"github.com/druidplan/druidplan/go/sql/macros"
	"github.com/druidplan/druidplan/go/sql/operators"
	"github.com/druidplan/druidplan/go/sql/plancontext"
	"github.com/druidplan/druidplan/go/sql/querymaker"
	"github.com/druidplan/druidplan/go/sql/rel"
	"github.com/druidplan/druidplan/go/sql/rules"
	"github.com/druidplan/druidplan/go/sql/schema"
	"github.com/druidplan/druidplan/go/sqlerrors"
	"github.com/druidplan/druidplan/go/stats"
)

// DefaultSchemaName is the namespace unqualified tables resolve in.
const DefaultSchemaName = "druid"

var (
	plannersCreated = stats.NewCountersWithSingleLabel("planners_created_total", "Planners created, by outcome", "outcome")
	plansCompleted  = stats.NewCountersWithSingleLabel("plans_total", "Plans completed, by native query type or error code", "result")
	ruleApplied     = stats.NewCountersWithSingleLabel("rule_applications_total", "Rule applications, by program and rule", "rule")
	phaseTimings    = stats.NewTimings("plan_phase", "Time spent in each planning phase", "phase")
)

// Deps are injected once and shared by every planner the factory
// creates. None of them may be mutated afterwards.
type Deps struct {
	Provider schema.Provider
	// Walker executes materialized queries. Without one, planned queries
	// cannot be run.
	Walker        querymaker.Walker
	Operators     *operators.Table
	Macros        *macros.Table
	PlannerConfig plancontext.Config
	ServerConfig  plancontext.ServerConfig
	// SchemaName defaults to DefaultSchemaName.
	SchemaName string
	// DisableConstantFolding plans without an expression executor.
	DisableConstantFolding bool
}

// Factory creates planners. It is safe for concurrent use.
type Factory struct {
	deps Deps
}

// NewFactory checks deps and returns a factory.
func NewFactory(deps Deps) (*Factory, error) {
	switch {
	case deps.Provider == nil:
		return nil, sqlerrors.New(sqlerrors.Configuration, "planner factory: no catalog provider")
	case deps.Operators == nil:
		return nil, sqlerrors.New(sqlerrors.Configuration, "planner factory: no operator table")
	case deps.Macros == nil:
		return nil, sqlerrors.New(sqlerrors.Configuration, "planner factory: no macro table")
	}
	if deps.SchemaName == "" {
		deps.SchemaName = DefaultSchemaName
	}
	return &Factory{deps: deps}, nil
}

// CreatePlanner builds a planner for one query. Every call returns a
// planner sharing no mutable state with any other.
func (f *Factory) CreatePlanner(queryContext map[string]any) (*Planner, error) {
	p, err := f.createPlanner(queryContext)
	if err != nil {
		plannersCreated.Add(sqlerrors.Code(err).String(), 1)
		return nil, err
	}
	plannersCreated.Add("ok", 1)
	return p, nil
}

func (f *Factory) createPlanner(queryContext map[string]any) (*Planner, error) {
	if reserved := plancontext.ReservedKeys(queryContext); len(reserved) > 0 {
		return nil, sqlerrors.Errorf(sqlerrors.Configuration,
			"query context keys %s are reserved", strings.Join(reserved, ", "))
	}

	view, err := schema.ResolveView(f.deps.Provider, f.deps.SchemaName)
	if err != nil {
		return nil, err
	}
	pctx, err := plancontext.Create(f.deps.Operators, f.deps.Macros, f.deps.PlannerConfig, queryContext)
	if err != nil {
		return nil, err
	}
	qm := querymaker.New(f.deps.Walker, pctx, f.deps.ServerConfig)

	cfg := framework.Config{
		Parser:        dialect.Default,
		Traits:        []rel.TraitDef{rel.ConventionTraitDef, rel.CollationTraitDef},
		Convertlets:   convertlet.NewTable(pctx),
		Operators:     f.deps.Operators,
		Programs:      rules.Programs(pctx, qm),
		DefaultSchema: view,
		OnRule: func(program, rule string) {
			ruleApplied.Add(program+"/"+rule, 1)
		},
	}
	if !f.deps.DisableConstantFolding {
		cfg.Executor = evalengine.NewExecutor(evalengine.EmptyEnv())
	}
	fw, err := framework.NewPlanner(cfg)
	if err != nil {
		return nil, err
	}

	log.DebugS("created planner",
		"sqlQueryId", pctx.SQLQueryID(),
		"namespace", view.Name(),
		"catalogVersion", view.Version(),
		"sqlTimeZone", pctx.TimeZone().String(),
		"constantFolding", cfg.Executor != nil)
	return &Planner{fw: fw, pctx: pctx, qm: qm}, nil
}
