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

package planner

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pingcap/parser/ast"

	"github.com/druidplan/druidplan/go/log"
	"github.com/druidplan/druidplan/go/sql/framework"
	"github.com/druidplan/druidplan/go/sql/native"
	"github.com/druidplan/druidplan/go/sql/plancontext"
	"github.com/druidplan/druidplan/go/sql/querymaker"
	"github.com/druidplan/druidplan/go/sql/rel"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

// Planner plans exactly one statement. It is not safe for concurrent
// use and is closed once Plan or Explain returns.
type Planner struct {
	fw   *framework.Planner
	pctx *plancontext.PlannerContext
	qm   *querymaker.QueryMaker
}

// Result is a planned statement.
type Result struct {
	// Query is the native query ready to run.
	Query *querymaker.Query
	// Fields are the SQL output columns.
	Fields rel.RowType
	// Physical is the plan Query was materialized from.
	Physical rel.Node
}

// PlannerContext returns the per-query context.
func (p *Planner) PlannerContext() *plancontext.PlannerContext {
	return p.pctx
}

// QueryMaker returns the per-query query maker. Translators registered
// on it before Plan apply to this query only.
func (p *Planner) QueryMaker() *querymaker.QueryMaker {
	return p.qm
}

// Close releases the planner. Plan and Explain call it.
func (p *Planner) Close() {
	p.fw.Close()
}

// Plan parses, validates, converts, transforms and materializes sql.
func (p *Planner) Plan(ctx context.Context, sql string) (res *Result, err error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "planner.Plan")
	defer span.Finish()
	span.SetTag("sqlQueryId", p.pctx.SQLQueryID())
	defer p.Close()

	defer func() {
		if err != nil {
			span.SetTag("error", true)
			plansCompleted.Add(sqlerrors.Code(err).String(), 1)
			log.V(1).Infof("planning query %s failed: %v", p.pctx.SQLQueryID(), err)
			return
		}
		plansCompleted.Add(res.Query.Native.QueryType(), 1)
	}()

	stmt, err := phase(span, "parse", func() (ast.StmtNode, error) { return p.fw.Parse(sql) })
	if err != nil {
		return nil, err
	}
	validated, err := phase(span, "validate", func() (*framework.Validated, error) { return p.fw.Validate(stmt) })
	if err != nil {
		return nil, err
	}
	root, err := phase(span, "rel", func() (*framework.RelRoot, error) { return p.fw.Rel(validated) })
	if err != nil {
		return nil, err
	}
	physical, err := phase(span, "transform", func() (rel.Node, error) { return p.fw.Transform(root.Rel) })
	if err != nil {
		return nil, err
	}
	query, err := phase(span, "materialize", func() (*querymaker.Query, error) { return p.qm.Materialize(physical) })
	if err != nil {
		return nil, err
	}
	// the native query computes columns in plan order; names are the ones
	// the statement asked for
	query.Fields = root.Fields
	span.SetTag("queryType", query.Native.QueryType())
	return &Result{Query: query, Fields: root.Fields, Physical: physical}, nil
}

// phase runs one planning step in its own span and records its timing.
func phase[T any](parent opentracing.Span, name string, fn func() (T, error)) (T, error) {
	span := opentracing.StartSpan("planner."+name, opentracing.ChildOf(parent.Context()))
	defer span.Finish()
	defer phaseTimings.Record(name, time.Now())
	out, err := fn()
	if err != nil {
		span.SetTag("error", true)
	}
	return out, err
}

// Explain plans sql and renders the physical plan followed by the
// native query as JSON.
func (p *Planner) Explain(ctx context.Context, sql string) (string, error) {
	res, err := p.Plan(ctx, sql)
	if err != nil {
		return "", err
	}
	b, err := native.Marshal(res.Query.Native)
	if err != nil {
		return "", sqlerrors.Errorf(sqlerrors.Internal, "cannot marshal native query: %v", err)
	}
	return rel.ToTree(res.Physical) + "\n" + string(b), nil
}
