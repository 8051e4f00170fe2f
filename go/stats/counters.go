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

// Package stats exposes planner counters and timings through Prometheus
// while keeping the current values readable in-process.
package stats

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every exported metric name.
const Namespace = "druidplan"

// register registers c with the default registerer. When an identical
// collector is already registered the existing one is returned instead,
// so package-level metrics survive repeated construction in tests.
func register[T prometheus.Collector](c T) T {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// CountersWithSingleLabel tracks multiple counter values for a single
// dimension ("label").
type CountersWithSingleLabel struct {
	vec   *prometheus.CounterVec
	label string

	mu     sync.Mutex
	counts map[string]*atomic.Int64
}

// NewCountersWithSingleLabel creates a new CountersWithSingleLabel and
// registers it with Prometheus under Namespace_name.
func NewCountersWithSingleLabel(name, help, label string) *CountersWithSingleLabel {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      name,
		Help:      help,
	}, []string{label})

	return &CountersWithSingleLabel{
		vec:    register(vec),
		label:  label,
		counts: map[string]*atomic.Int64{},
	}
}

// Add adds value to the counter for name.
func (c *CountersWithSingleLabel) Add(name string, value int64) {
	if value < 0 {
		panic("counters must be monotonic")
	}
	c.counter(name).Add(value)
	c.vec.WithLabelValues(name).Add(float64(value))
}

// Counts returns a copy of the current values.
func (c *CountersWithSingleLabel) Counts() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts := make(map[string]int64, len(c.counts))
	for k, v := range c.counts {
		counts[k] = v.Load()
	}
	return counts
}

// Get returns the current value for name.
func (c *CountersWithSingleLabel) Get(name string) int64 {
	return c.counter(name).Load()
}

// Label returns the label name.
func (c *CountersWithSingleLabel) Label() string {
	return c.label
}

// Keys returns the label values seen so far, sorted.
func (c *CountersWithSingleLabel) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.counts))
	for k := range c.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *CountersWithSingleLabel) counter(name string) *atomic.Int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.counts[name]
	if !ok {
		v = new(atomic.Int64)
		c.counts[name] = v
	}
	return v
}
