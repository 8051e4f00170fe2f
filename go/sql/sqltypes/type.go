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

// Package sqltypes defines the SQL types and scalar values understood by
// the planner.
package sqltypes

import (
	"fmt"
	"strings"
)

// Type is a SQL type as seen by the planner.
type Type int

const (
	Null Type = iota
	Boolean
	Bigint
	Float
	Double
	Varchar
	Timestamp
	Date
	Other
)

var typeNames = [...]string{
	Null:      "NULL",
	Boolean:   "BOOLEAN",
	Bigint:    "BIGINT",
	Float:     "FLOAT",
	Double:    "DOUBLE",
	Varchar:   "VARCHAR",
	Timestamp: "TIMESTAMP",
	Date:      "DATE",
	Other:     "OTHER",
}

func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// IsNumeric returns true for BOOLEAN, BIGINT, FLOAT and DOUBLE. Booleans
// are stored as longs by the engine.
func (t Type) IsNumeric() bool {
	switch t {
	case Boolean, Bigint, Float, Double:
		return true
	}
	return false
}

// IsIntegral returns true for types stored as longs.
func (t Type) IsIntegral() bool {
	switch t {
	case Boolean, Bigint, Timestamp, Date:
		return true
	}
	return false
}

// IsTemporal returns true for TIMESTAMP and DATE.
func (t Type) IsTemporal() bool {
	return t == Timestamp || t == Date
}

// ParseType maps a catalog type name to a Type. Both engine names
// (long, double, string) and SQL names (BIGINT, VARCHAR) are accepted.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "long", "bigint", "int", "integer", "smallint", "tinyint":
		return Bigint, nil
	case "float", "real":
		return Float, nil
	case "double", "decimal":
		return Double, nil
	case "string", "varchar", "char", "text":
		return Varchar, nil
	case "timestamp":
		return Timestamp, nil
	case "date":
		return Date, nil
	case "boolean", "bool":
		return Boolean, nil
	case "complex", "other":
		return Other, nil
	}
	return Null, fmt.Errorf("unknown column type %q", name)
}

// LeastRestrictive returns the type both a and b can be widened to, and
// false if there is none.
func LeastRestrictive(a, b Type) (Type, bool) {
	switch {
	case a == b:
		return a, true
	case a == Null:
		return b, true
	case b == Null:
		return a, true
	case a.IsNumeric() && b.IsNumeric():
		return max(a, b), true
	case a.IsTemporal() && b.IsTemporal():
		return Timestamp, true
	}
	return Null, false
}
