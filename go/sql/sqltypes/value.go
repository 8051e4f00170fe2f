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

package sqltypes

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Value is an immutable scalar. Temporal values are stored as
// milliseconds since the epoch, the way the engine stores __time.
type Value struct {
	typ Type
	i   int64
	f   float64
	s   string
}

// NULL is the untyped null value.
var NULL = Value{}

// NewInt64 builds a BIGINT value.
func NewInt64(v int64) Value {
	return Value{typ: Bigint, i: v}
}

// NewFloat64 builds a DOUBLE value.
func NewFloat64(v float64) Value {
	return Value{typ: Double, f: v}
}

// NewVarChar builds a VARCHAR value.
func NewVarChar(v string) Value {
	return Value{typ: Varchar, s: v}
}

// NewBoolean builds a BOOLEAN value.
func NewBoolean(v bool) Value {
	if v {
		return Value{typ: Boolean, i: 1}
	}
	return Value{typ: Boolean}
}

// NewTimestamp builds a TIMESTAMP value with millisecond precision.
func NewTimestamp(t time.Time) Value {
	return Value{typ: Timestamp, i: t.UnixMilli()}
}

// NewDate builds a DATE value from the start of the day of t in t's location.
func NewDate(t time.Time) Value {
	y, m, d := t.Date()
	return Value{typ: Date, i: time.Date(y, m, d, 0, 0, 0, 0, t.Location()).UnixMilli()}
}

// NewTypedNull builds a null of the given type.
func NewTypedNull(typ Type) Value {
	return Value{typ: typ, s: "\x00null"}
}

// Type returns the value's type. Untyped NULL reports Null.
func (v Value) Type() Type {
	return v.typ
}

// IsNull reports whether v is a null of any type.
func (v Value) IsNull() bool {
	return v.typ == Null || v.s == "\x00null"
}

// ToInt64 returns the value as an int64.
func (v Value) ToInt64() (int64, error) {
	if v.IsNull() {
		return 0, fmt.Errorf("cannot convert NULL to BIGINT")
	}
	switch v.typ {
	case Boolean, Bigint, Timestamp, Date:
		return v.i, nil
	case Float, Double:
		return int64(v.f), nil
	case Varchar:
		return strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
	}
	return 0, fmt.Errorf("cannot convert %s to BIGINT", v.typ)
}

// ToFloat64 returns the value as a float64.
func (v Value) ToFloat64() (float64, error) {
	if v.IsNull() {
		return 0, fmt.Errorf("cannot convert NULL to DOUBLE")
	}
	switch v.typ {
	case Boolean, Bigint, Timestamp, Date:
		return float64(v.i), nil
	case Float, Double:
		return v.f, nil
	case Varchar:
		return strconv.ParseFloat(strings.TrimSpace(v.s), 64)
	}
	return 0, fmt.Errorf("cannot convert %s to DOUBLE", v.typ)
}

// ToBool returns the truth value of v. Numbers are true when non-zero.
func (v Value) ToBool() (bool, error) {
	if v.IsNull() {
		return false, fmt.Errorf("cannot convert NULL to BOOLEAN")
	}
	switch v.typ {
	case Boolean, Bigint:
		return v.i != 0, nil
	case Float, Double:
		return v.f != 0, nil
	case Varchar:
		return strconv.ParseBool(strings.TrimSpace(v.s))
	}
	return false, fmt.Errorf("cannot convert %s to BOOLEAN", v.typ)
}

// ToTime returns temporal values as a UTC time.
func (v Value) ToTime() (time.Time, error) {
	if v.IsNull() || !v.typ.IsTemporal() {
		return time.Time{}, fmt.Errorf("cannot convert %s to TIMESTAMP", v.typ)
	}
	return time.UnixMilli(v.i).UTC(), nil
}

// ToString returns the engine's string form of v: numbers in shortest
// form, temporal values as epoch milliseconds, booleans as 1 or 0.
func (v Value) ToString() string {
	if v.IsNull() {
		return ""
	}
	switch v.typ {
	case Boolean, Bigint, Timestamp, Date:
		return strconv.FormatInt(v.i, 10)
	case Float, Double:
		return formatFloat(v.f)
	}
	return v.s
}

// String returns a SQL-ish rendering, used in plan digests.
func (v Value) String() string {
	if v.IsNull() {
		return "NULL"
	}
	switch v.typ {
	case Varchar:
		return "'" + strings.ReplaceAll(v.s, "'", "''") + "'"
	case Boolean:
		if v.i != 0 {
			return "true"
		}
		return "false"
	case Timestamp:
		return "TIMESTAMP '" + time.UnixMilli(v.i).UTC().Format("2006-01-02 15:04:05.000") + "'"
	case Date:
		return "DATE '" + time.UnixMilli(v.i).UTC().Format("2006-01-02") + "'"
	}
	return v.ToString()
}

// Equal reports whether v and o have the same type and contents.
func (v Value) Equal(o Value) bool {
	return v == o
}

// Cast converts v to typ.
func (v Value) Cast(typ Type) (Value, error) {
	if v.IsNull() {
		return NewTypedNull(typ), nil
	}
	if v.typ == typ {
		return v, nil
	}
	switch typ {
	case Bigint:
		i, err := v.ToInt64()
		return NewInt64(i), err
	case Float, Double:
		f, err := v.ToFloat64()
		return Value{typ: typ, f: f}, err
	case Varchar:
		return NewVarChar(v.ToString()), nil
	case Boolean:
		b, err := v.ToBool()
		return NewBoolean(b), err
	case Timestamp, Date:
		if v.typ.IsTemporal() || v.typ == Bigint {
			return Value{typ: typ, i: v.i}, nil
		}
	}
	return NULL, fmt.Errorf("cannot cast %s to %s", v.typ, typ)
}

func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
