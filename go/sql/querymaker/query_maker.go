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

// Package querymaker materializes physical plans into native queries that
// run through a Walker.
package querymaker

import (
	"context"
	"reflect"

	"github.com/opentracing/opentracing-go"

	"github.com/druidplan/druidplan/go/sql/druidrel"
	"github.com/druidplan/druidplan/go/sql/native"
	"github.com/druidplan/druidplan/go/sql/plancontext"
	"github.com/druidplan/druidplan/go/sql/rel"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

// Native query context keys filled in by the planner.
const (
	CtxSQLQueryID            = plancontext.CtxQueryID
	CtxSQLTimeZone           = plancontext.CtxTimeZone
	CtxTimeout               = "timeout"
	CtxMaxScatterGatherBytes = "maxScatterGatherBytes"
)

// Walker runs native queries against the engine's segments.
type Walker interface {
	Walk(ctx context.Context, query native.Query) ([][]any, error)
}

// Translator turns one physical node into a native query.
type Translator func(qm *QueryMaker, n rel.Node) (*Query, error)

// Query is a materialized plan.
type Query struct {
	Native native.Query
	// Fields are the SQL output columns.
	Fields rel.RowType
	// Columns names, per SQL output column, the native result column
	// holding it.
	Columns []string

	walker Walker
}

// Run executes the query. Queries planned without a Walker can only be
// inspected.
func (q *Query) Run(ctx context.Context) ([][]any, error) {
	if q.walker == nil {
		return nil, sqlerrors.Errorf(sqlerrors.Internal, "cannot run %s query: no walker was configured", q.Native.QueryType())
	}
	span, ctx := opentracing.StartSpanFromContext(ctx, "querymaker.Run")
	defer span.Finish()
	span.SetTag("queryType", q.Native.QueryType())
	span.SetTag("dataSource", q.Native.Common().DataSource)

	rows, err := q.walker.Walk(ctx, q.Native)
	if err != nil {
		span.SetTag("error", true)
		return nil, err
	}
	return rows, nil
}

// QueryMaker is created per query. It carries the query's planner
// context, and translates physical nodes by their type.
type QueryMaker struct {
	walker      Walker
	pctx        *plancontext.PlannerContext
	server      plancontext.ServerConfig
	translators map[reflect.Type]Translator
}

var _ druidrel.Materializer = (*QueryMaker)(nil)

// New returns a QueryMaker with the engine's physical nodes registered.
func New(walker Walker, pctx *plancontext.PlannerContext, server plancontext.ServerConfig) *QueryMaker {
	qm := &QueryMaker{
		walker:      walker,
		pctx:        pctx,
		server:      server,
		translators: map[reflect.Type]Translator{},
	}
	qm.Register((*druidrel.QueryRel)(nil), translateQueryRel)
	return qm
}

// Register sets the translator for nodes of the same type as sample.
func (qm *QueryMaker) Register(sample rel.Node, t Translator) {
	qm.translators[reflect.TypeOf(sample)] = t
}

// PlannerContext returns the context the QueryMaker was built with.
func (qm *QueryMaker) PlannerContext() *plancontext.PlannerContext {
	return qm.pctx
}

// Materialize translates the root of a physical plan.
func (qm *QueryMaker) Materialize(node rel.Node) (*Query, error) {
	t, ok := qm.translators[reflect.TypeOf(node)]
	if !ok {
		return nil, sqlerrors.Errorf(sqlerrors.Translation, "cannot translate %s: no translator is registered for it", rel.NodeTypeName(node))
	}
	return t(qm, node)
}

// ToNativeQuery translates a QueryRel without checking query-wide
// requirements; rules call it on partial queries.
func (qm *QueryMaker) ToNativeQuery(q *druidrel.QueryRel) (native.Query, error) {
	b, err := qm.build(q)
	if err != nil {
		return nil, err
	}
	return b.query, nil
}

func translateQueryRel(qm *QueryMaker, n rel.Node) (*Query, error) {
	q := n.(*druidrel.QueryRel)
	b, err := qm.build(q)
	if err != nil {
		return nil, err
	}
	cfg := qm.pctx.Config()
	if cfg.RequireTimeCondition && !b.timeBounded {
		return nil, sqlerrors.Errorf(sqlerrors.PlanConstruction,
			"%s is enabled: the query must filter on %s", plancontext.CtxRequireTimeCondition, "__time")
	}
	b.query.Common().Context = qm.nativeContext()
	return &Query{
		Native:  b.query,
		Fields:  q.RowType(),
		Columns: b.columns,
		walker:  qm.walker,
	}, nil
}

// nativeContext is the caller's query context plus the settings the
// engine needs from the planner and server.
func (qm *QueryMaker) nativeContext() map[string]any {
	ctx := qm.pctx.QueryContext()
	ctx[CtxSQLQueryID] = qm.pctx.SQLQueryID()
	ctx[CtxSQLTimeZone] = qm.pctx.TimeZone().String()
	if _, ok := ctx[CtxTimeout]; !ok && qm.server.DefaultQueryTimeout > 0 {
		ctx[CtxTimeout] = qm.server.DefaultQueryTimeout.Milliseconds()
	}
	if _, ok := ctx[CtxMaxScatterGatherBytes]; !ok && qm.server.MaxScatterGatherBytes > 0 {
		ctx[CtxMaxScatterGatherBytes] = qm.server.MaxScatterGatherBytes
	}
	return ctx
}
