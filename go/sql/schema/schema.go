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

// Package schema exposes the engine's catalog to the planner.
//
// A Registry holds the current catalog as an immutable Snapshot and swaps
// it atomically on refresh. Planners resolve a View once, at build time,
// and keep using that snapshot even if the registry is refreshed while
// they are planning.
package schema

import (
	"sort"
	"sync/atomic"

	"github.com/druidplan/druidplan/go/sql/sqltypes"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

// TimeColumn is the engine's primary timestamp column.
const TimeColumn = "__time"

type (
	// Column is one field of a table.
	Column struct {
		Name string
		Type sqltypes.Type
	}

	// Table is a queryable data source.
	Table struct {
		Name string
		// DataSource is the engine-side name; it defaults to Name.
		DataSource string
		Columns    []Column
	}

	// Namespace is a named group of tables.
	Namespace struct {
		Name   string
		Tables map[string]*Table
	}

	// Snapshot is a point-in-time catalog. A Snapshot must not be
	// modified once handed to a Registry.
	Snapshot struct {
		Version    int64
		Namespaces map[string]*Namespace
	}
)

// Provider hands out catalog snapshots.
type Provider interface {
	Snapshot() *Snapshot
}

// ColumnIndex finds a column by exact name.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

// HasTimeColumn reports whether the table carries __time.
func (t *Table) HasTimeColumn() bool {
	_, ok := t.ColumnIndex(TimeColumn)
	return ok
}

// NewSnapshot builds a snapshot from namespaces.
func NewSnapshot(namespaces ...*Namespace) *Snapshot {
	s := &Snapshot{Namespaces: make(map[string]*Namespace, len(namespaces))}
	for _, ns := range namespaces {
		s.Namespaces[ns.Name] = ns
	}
	return s
}

// NewNamespace builds a namespace from tables.
func NewNamespace(name string, tables ...*Table) *Namespace {
	ns := &Namespace{Name: name, Tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		if t.DataSource == "" {
			t.DataSource = t.Name
		}
		ns.Tables[t.Name] = t
	}
	return ns
}

// Registry is a Provider whose snapshot can be replaced concurrently.
type Registry struct {
	current  atomic.Pointer[Snapshot]
	versions atomic.Int64
}

var _ Provider = (*Registry)(nil)

// NewRegistry returns a registry serving initial.
func NewRegistry(initial *Snapshot) *Registry {
	r := &Registry{}
	if initial == nil {
		initial = NewSnapshot()
	}
	r.Update(initial)
	return r
}

// Snapshot returns the current snapshot.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Update publishes s as the current snapshot and stamps its version.
func (r *Registry) Update(s *Snapshot) {
	s.Version = r.versions.Add(1)
	r.current.Store(s)
}

// View is one namespace of one snapshot, used as a planner's default
// schema.
type View struct {
	version int64
	ns      *Namespace
}

// ResolveView captures the namespace called name from the provider's
// current snapshot.
func ResolveView(p Provider, name string) (*View, error) {
	snap := p.Snapshot()
	if snap == nil {
		return nil, sqlerrors.Errorf(sqlerrors.Configuration, "catalog provider has no snapshot")
	}
	ns, ok := snap.Namespaces[name]
	if !ok {
		return nil, sqlerrors.Errorf(sqlerrors.Configuration, "namespace %q does not exist in the catalog", name)
	}
	return &View{version: snap.Version, ns: ns}, nil
}

// Name returns the namespace name.
func (v *View) Name() string {
	return v.ns.Name
}

// Version returns the snapshot version the view was resolved from.
func (v *View) Version() int64 {
	return v.version
}

// Table looks a table up by exact, case-sensitive name.
func (v *View) Table(name string) (*Table, bool) {
	t, ok := v.ns.Tables[name]
	return t, ok
}

// TableNames returns the table names in sorted order.
func (v *View) TableNames() []string {
	names := make([]string, 0, len(v.ns.Tables))
	for name := range v.ns.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
