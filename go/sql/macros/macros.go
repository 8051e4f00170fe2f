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

// Package macros is the registry of engine-native expression macros. The
// convertlet bridge rewrites SQL constructs such as EXTRACT or TIME_FLOOR
// into calls of these macros so later phases only see engine semantics.
package macros

import (
	"fmt"
	"sort"
	"strings"

	"github.com/druidplan/druidplan/go/sql/sqltypes"
)

// Macro describes one native expression macro.
type Macro struct {
	// Name is the macro name in the engine's expression language.
	Name             string
	MinArgs, MaxArgs int
	ReturnType       sqltypes.Type
}

// Expand renders a call of the macro over already rendered native
// argument expressions.
func (m *Macro) Expand(args []string) (string, error) {
	if len(args) < m.MinArgs || len(args) > m.MaxArgs {
		return "", fmt.Errorf("%s: expected %d to %d arguments, got %d", m.Name, m.MinArgs, m.MaxArgs, len(args))
	}
	return m.Name + "(" + strings.Join(args, ",") + ")", nil
}

func (m *Macro) String() string {
	return m.Name
}

// Table maps macro names to macros. Immutable once built.
type Table struct {
	macros map[string]*Macro
}

// NewTable builds a table from ms.
func NewTable(ms ...*Macro) *Table {
	t := &Table{macros: make(map[string]*Macro, len(ms))}
	for _, m := range ms {
		t.macros[strings.ToLower(m.Name)] = m
	}
	return t
}

// Lookup finds a macro by name, ignoring case.
func (t *Table) Lookup(name string) (*Macro, bool) {
	m, ok := t.macros[strings.ToLower(name)]
	return m, ok
}

// MustLookup is Lookup for macros registered by this package.
func (t *Table) MustLookup(name string) *Macro {
	m, ok := t.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("macro %s is not registered", name))
	}
	return m
}

// Names returns the registered macro names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.macros))
	for name := range t.macros {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const (
	TimestampFloor   = "timestamp_floor"
	TimestampCeil    = "timestamp_ceil"
	TimestampExtract = "timestamp_extract"
	TimestampShift   = "timestamp_shift"
	TimestampFormat  = "timestamp_format"
	TimestampParse   = "timestamp_parse"
	Like             = "like"
	RegexpExtract    = "regexp_extract"
)

// NewDefaultTable returns the engine's standard macros.
func NewDefaultTable() *Table {
	return NewTable(
		&Macro{Name: TimestampFloor, MinArgs: 2, MaxArgs: 4, ReturnType: sqltypes.Timestamp},
		&Macro{Name: TimestampCeil, MinArgs: 2, MaxArgs: 4, ReturnType: sqltypes.Timestamp},
		&Macro{Name: TimestampExtract, MinArgs: 2, MaxArgs: 3, ReturnType: sqltypes.Bigint},
		&Macro{Name: TimestampShift, MinArgs: 3, MaxArgs: 4, ReturnType: sqltypes.Timestamp},
		&Macro{Name: TimestampFormat, MinArgs: 1, MaxArgs: 3, ReturnType: sqltypes.Varchar},
		&Macro{Name: TimestampParse, MinArgs: 1, MaxArgs: 3, ReturnType: sqltypes.Timestamp},
		&Macro{Name: Like, MinArgs: 2, MaxArgs: 3, ReturnType: sqltypes.Boolean},
		&Macro{Name: RegexpExtract, MinArgs: 2, MaxArgs: 3, ReturnType: sqltypes.Varchar},
	)
}
