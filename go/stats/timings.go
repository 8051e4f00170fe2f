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

package stats

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Timings records durations per label value as a Prometheus histogram and
// keeps a count and running total for in-process inspection.
type Timings struct {
	vec *prometheus.HistogramVec

	mu     sync.Mutex
	counts map[string]int64
	totals map[string]time.Duration
}

// NewTimings creates a Timings registered as Namespace_name_seconds.
func NewTimings(name, help, label string) *Timings {
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      name + "_seconds",
		Help:      help,
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{label})

	return &Timings{
		vec:    register(vec),
		counts: map[string]int64{},
		totals: map[string]time.Duration{},
	}
}

// Add records one observation of elapsed for name.
func (t *Timings) Add(name string, elapsed time.Duration) {
	t.vec.WithLabelValues(name).Observe(elapsed.Seconds())

	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[name]++
	t.totals[name] += elapsed
}

// Record is a convenience wrapper around Add measuring from startTime.
func (t *Timings) Record(name string, startTime time.Time) {
	t.Add(name, time.Since(startTime))
}

// Count returns the number of observations recorded for name.
func (t *Timings) Count(name string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[name]
}

// Total returns the sum of the durations recorded for name.
func (t *Timings) Total(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totals[name]
}
