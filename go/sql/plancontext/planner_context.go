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

// Package plancontext holds the state scoped to planning one query: its
// settings, the shared registries, and bookkeeping for names generated
// while planning.
package plancontext

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/druidplan/druidplan/go/sql/macros"
	"github.com/druidplan/druidplan/go/sql/operators"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

// Query context keys understood by the planner. Any other key is passed
// through to the native query context unchanged.
const (
	CtxTimeZone                    = "sqlTimeZone"
	CtxCurrentTimestamp            = "sqlCurrentTimestamp"
	CtxQueryID                     = "sqlQueryId"
	CtxUseApproximateCountDistinct = "useApproximateCountDistinct"
	CtxUseApproximateTopN          = "useApproximateTopN"
	CtxRequireTimeCondition        = "requireTimeCondition"
	CtxMaxTopNLimit                = "maxTopNLimit"
)

// ReservedPrefix starts every key the planner keeps for itself.
const ReservedPrefix = "__"

// reservedKeys are assigned by the engine to each native query and cannot
// be supplied by callers.
var reservedKeys = mapset.NewThreadUnsafeSet("queryId", "subQueryId")

// IsReserved reports whether key may not appear in a query context.
func IsReserved(key string) bool {
	return strings.HasPrefix(key, ReservedPrefix) || reservedKeys.Contains(key)
}

// ReservedKeys returns the reserved keys present in queryContext.
func ReservedKeys(queryContext map[string]any) []string {
	found := mapset.NewThreadUnsafeSet[string]()
	for k := range queryContext {
		if IsReserved(k) {
			found.Add(k)
		}
	}
	keys := found.ToSlice()
	slices.Sort(keys)
	return keys
}

// PlannerContext is created for one query and discarded when planning
// ends. It is not safe for concurrent use.
type PlannerContext struct {
	operators    *operators.Table
	macros       *macros.Table
	config       Config
	queryContext map[string]any

	queryID  string
	timeZone *time.Location
	utcNow   time.Time

	// bookkeeping for generated names
	names    map[string]string
	counters map[string]int
}

// Create builds a context from the shared registries, the planner
// config, and the caller's settings. queryContext is copied; later
// changes by the caller are not observed.
func Create(ops *operators.Table, mt *macros.Table, cfg Config, queryContext map[string]any) (*PlannerContext, error) {
	ctx := maps.Clone(queryContext)
	if ctx == nil {
		ctx = map[string]any{}
	}
	for k, v := range ctx {
		if !isScalar(v) {
			return nil, sqlerrors.Errorf(sqlerrors.QueryContext, "query context key %q: value of type %T is not a scalar", k, v)
		}
	}

	pc := &PlannerContext{
		operators:    ops,
		macros:       mt,
		config:       cfg,
		queryContext: ctx,
		names:        map[string]string{},
		counters:     map[string]int{},
	}
	if err := pc.applySettings(); err != nil {
		return nil, err
	}
	return pc, nil
}

func (pc *PlannerContext) applySettings() error {
	tzName := pc.config.SQLTimeZone
	if v, ok := pc.queryContext[CtxTimeZone]; ok && v != nil {
		s, err := cast.ToStringE(v)
		if err != nil {
			return settingError(CtxTimeZone, err)
		}
		tzName = s
	}
	if tzName == "" {
		tzName = "UTC"
	}
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return settingError(CtxTimeZone, err)
	}
	pc.timeZone = tz

	pc.utcNow = time.Now().UTC().Truncate(time.Millisecond)
	if v, ok := pc.queryContext[CtxCurrentTimestamp]; ok && v != nil {
		now, err := parseTimestamp(v)
		if err != nil {
			return settingError(CtxCurrentTimestamp, err)
		}
		pc.utcNow = now
	}

	if v, ok := pc.queryContext[CtxQueryID]; ok && v != nil {
		id, err := cast.ToStringE(v)
		if err != nil {
			return settingError(CtxQueryID, err)
		}
		pc.queryID = id
	}
	if pc.queryID == "" {
		pc.queryID = uuid.NewString()
	}

	for key, dst := range map[string]*bool{
		CtxUseApproximateCountDistinct: &pc.config.UseApproximateCountDistinct,
		CtxUseApproximateTopN:          &pc.config.UseApproximateTopN,
		CtxRequireTimeCondition:        &pc.config.RequireTimeCondition,
	} {
		v, ok := pc.queryContext[key]
		if !ok || v == nil {
			continue
		}
		b, err := cast.ToBoolE(v)
		if err != nil {
			return settingError(key, err)
		}
		*dst = b
	}

	if v, ok := pc.queryContext[CtxMaxTopNLimit]; ok && v != nil {
		n, err := cast.ToIntE(v)
		if err != nil {
			return settingError(CtxMaxTopNLimit, err)
		}
		if n <= 0 {
			return sqlerrors.Errorf(sqlerrors.QueryContext, "query context key %q must be positive, got %d", CtxMaxTopNLimit, n)
		}
		pc.config.MaxTopNLimit = n
	}
	pc.config.SQLTimeZone = tz.String()
	return nil
}

func settingError(key string, err error) error {
	return sqlerrors.Errorf(sqlerrors.QueryContext, "query context key %q: %v", key, err)
}

// parseTimestamp accepts RFC 3339 text or epoch milliseconds.
func parseTimestamp(v any) (time.Time, error) {
	if s, ok := v.(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC().Truncate(time.Millisecond), nil
		}
	}
	millis, err := cast.ToInt64E(v)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(millis).UTC(), nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// Operators returns the shared operator table.
func (pc *PlannerContext) Operators() *operators.Table {
	return pc.operators
}

// Macros returns the shared macro table.
func (pc *PlannerContext) Macros() *macros.Table {
	return pc.macros
}

// Config returns the planner config with per-query overrides applied.
func (pc *PlannerContext) Config() Config {
	return pc.config
}

// QueryContext returns a copy of the caller's settings.
func (pc *PlannerContext) QueryContext() map[string]any {
	return maps.Clone(pc.queryContext)
}

// Setting returns one of the caller's settings.
func (pc *PlannerContext) Setting(key string) (any, bool) {
	v, ok := pc.queryContext[key]
	return v, ok
}

// SQLQueryID returns the caller's sqlQueryId, or a generated one.
func (pc *PlannerContext) SQLQueryID() string {
	return pc.queryID
}

// TimeZone returns the query time zone.
func (pc *PlannerContext) TimeZone() *time.Location {
	return pc.timeZone
}

// UTCNow returns the query's notion of the current instant in UTC.
func (pc *PlannerContext) UTCNow() time.Time {
	return pc.utcNow
}

// LocalNow returns the current instant in the query time zone.
func (pc *PlannerContext) LocalNow() time.Time {
	return pc.utcNow.In(pc.timeZone)
}

// NameFor returns a stable generated name for the expression with the
// given digest: the same digest always maps to the same name within one
// query, and names with the same prefix are numbered from zero.
func (pc *PlannerContext) NameFor(prefix, digest string) string {
	key := prefix + "\x00" + digest
	if name, ok := pc.names[key]; ok {
		return name
	}
	name := prefix + strconv.Itoa(pc.counters[prefix])
	pc.counters[prefix]++
	pc.names[key] = name
	return name
}

// VirtualColumnName names a virtual column computing digest.
func (pc *PlannerContext) VirtualColumnName(digest string) string {
	return pc.NameFor("v", digest)
}
