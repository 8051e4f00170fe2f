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

// Package operators is the registry of SQL scalar and aggregate operators
// understood by the planner. A Table is built once at process start and
// shared read-only by every query.
package operators

import (
	"fmt"
	"sort"
	"strings"

	"github.com/druidplan/druidplan/go/sql/sqltypes"
)

// Kind classifies operators.
type Kind int

const (
	Scalar Kind = iota
	Comparison
	Logical
	Arithmetic
	Aggregate
)

func (k Kind) String() string {
	switch k {
	case Comparison:
		return "comparison"
	case Logical:
		return "logical"
	case Arithmetic:
		return "arithmetic"
	case Aggregate:
		return "aggregate"
	}
	return "scalar"
}

// Syntax is how an operator is rendered in native expressions.
type Syntax int

const (
	// Function renders as name(arg, ...).
	Function Syntax = iota
	// Infix renders as (left op right).
	Infix
	// Prefix renders as op(arg).
	Prefix
)

// EvalFunc computes the operator over literal operands. Operands are never
// nil slices but may contain NULL values.
type EvalFunc func(args []sqltypes.Value) (sqltypes.Value, error)

// ReturnTypeFunc infers the result type from operand types.
type ReturnTypeFunc func(args []sqltypes.Type) (sqltypes.Type, error)

// Operator describes one SQL operator or function.
type Operator struct {
	// Name is the upper-case SQL name, e.g. "=", "AND", "UPPER".
	Name string
	Kind Kind
	// Native is the operator or function name in the engine's expression
	// language. Empty when the operator has no native expression form.
	Native string
	Syntax Syntax
	// MinArgs and MaxArgs bound the arity; MaxArgs < 0 means variadic.
	MinArgs, MaxArgs int
	// Deterministic operators may be folded when all operands are literals.
	Deterministic bool
	ReturnType    ReturnTypeFunc
	// Eval is nil for operators that cannot be evaluated at planning time.
	Eval EvalFunc
}

func (op *Operator) String() string {
	return op.Name
}

// CheckArity validates the operand count.
func (op *Operator) CheckArity(n int) error {
	if n < op.MinArgs || (op.MaxArgs >= 0 && n > op.MaxArgs) {
		return fmt.Errorf("%s: invalid number of arguments %d", op.Name, n)
	}
	return nil
}

// Table maps SQL names to operators. It is immutable once built.
type Table struct {
	byName map[string]*Operator
}

// NewTable builds a table from ops. Later duplicates replace earlier ones.
func NewTable(ops ...*Operator) *Table {
	t := &Table{byName: make(map[string]*Operator, len(ops))}
	for _, op := range ops {
		t.byName[strings.ToUpper(op.Name)] = op
	}
	return t
}

// Lookup finds an operator by name, ignoring case. Function names are
// not identifiers, so this lookup is case insensitive even though
// identifier resolution is not.
func (t *Table) Lookup(name string) (*Operator, bool) {
	op, ok := t.byName[strings.ToUpper(name)]
	return op, ok
}

// MustLookup is Lookup for names registered by this package.
func (t *Table) MustLookup(name string) *Operator {
	op, ok := t.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("operator %s is not registered", name))
	}
	return op
}

// Names returns the registered names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered operators.
func (t *Table) Len() int {
	return len(t.byName)
}
