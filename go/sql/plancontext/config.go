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

import "time"

// Config holds planner-wide tunables. It is injected once and never
// mutated; per-query settings are applied to a copy.
type Config struct {
	// MaxTopNLimit is the largest LIMIT a topN query may use.
	MaxTopNLimit int `mapstructure:"max_topn_limit"`
	// UseApproximateCountDistinct plans COUNT(DISTINCT x) with a
	// cardinality sketch instead of rejecting it.
	UseApproximateCountDistinct bool `mapstructure:"use_approximate_count_distinct"`
	// UseApproximateTopN allows topN queries, which are approximate.
	UseApproximateTopN bool `mapstructure:"use_approximate_topn"`
	// RequireTimeCondition rejects queries without a bound on __time.
	RequireTimeCondition bool `mapstructure:"require_time_condition"`
	// SQLTimeZone is the default time zone of queries.
	SQLTimeZone string `mapstructure:"sql_time_zone"`
	// MaxApplications bounds rule applications per phase.
	MaxApplications int `mapstructure:"max_rule_applications"`
}

// DefaultConfig returns the planner defaults.
func DefaultConfig() Config {
	return Config{
		MaxTopNLimit:                100000,
		UseApproximateCountDistinct: true,
		UseApproximateTopN:          true,
		SQLTimeZone:                 "UTC",
		MaxApplications:             1000,
	}
}

// ServerConfig holds server-wide settings propagated into native query
// contexts.
type ServerConfig struct {
	// DefaultQueryTimeout is used when a query sets no timeout.
	DefaultQueryTimeout time.Duration `mapstructure:"default_query_timeout"`
	// MaxScatterGatherBytes bounds the data a broker may gather.
	MaxScatterGatherBytes int64 `mapstructure:"max_scatter_gather_bytes"`
}

// DefaultServerConfig returns the server defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		DefaultQueryTimeout:   5 * time.Minute,
		MaxScatterGatherBytes: 1 << 40,
	}
}
