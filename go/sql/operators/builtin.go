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

package operators

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/druidplan/druidplan/go/sql/sqltypes"
)

var errDivisionByZero = errors.New("division by zero")

// NewDefaultTable returns the standard operator table.
func NewDefaultTable() *Table {
	return NewTable(Builtins()...)
}

// Builtins returns fresh descriptors for every standard operator.
func Builtins() []*Operator {
	return []*Operator{
		comparison("=", "==", func(c int) bool { return c == 0 }),
		comparison("<>", "!=", func(c int) bool { return c != 0 }),
		comparison("<", "<", func(c int) bool { return c < 0 }),
		comparison("<=", "<=", func(c int) bool { return c <= 0 }),
		comparison(">", ">", func(c int) bool { return c > 0 }),
		comparison(">=", ">=", func(c int) bool { return c >= 0 }),

		{Name: "AND", Kind: Logical, Native: "&&", Syntax: Infix, MinArgs: 2, MaxArgs: -1, Deterministic: true, ReturnType: boolean, Eval: evalAnd},
		{Name: "OR", Kind: Logical, Native: "||", Syntax: Infix, MinArgs: 2, MaxArgs: -1, Deterministic: true, ReturnType: boolean, Eval: evalOr},
		{Name: "NOT", Kind: Logical, Native: "!", Syntax: Prefix, MinArgs: 1, MaxArgs: 1, Deterministic: true, ReturnType: boolean, Eval: evalNot},
		{Name: "IS NULL", Kind: Logical, Native: "isnull", MinArgs: 1, MaxArgs: 1, Deterministic: true, ReturnType: boolean, Eval: func(args []sqltypes.Value) (sqltypes.Value, error) {
			return sqltypes.NewBoolean(args[0].IsNull()), nil
		}},
		{Name: "IS NOT NULL", Kind: Logical, Native: "notnull", MinArgs: 1, MaxArgs: 1, Deterministic: true, ReturnType: boolean, Eval: func(args []sqltypes.Value) (sqltypes.Value, error) {
			return sqltypes.NewBoolean(!args[0].IsNull()), nil
		}},

		arithmetic("+", func(a, b int64) (int64, error) { return a + b, nil }, func(a, b float64) (float64, error) { return a + b, nil }),
		arithmetic("-", func(a, b int64) (int64, error) { return a - b, nil }, func(a, b float64) (float64, error) { return a - b, nil }),
		arithmetic("*", func(a, b int64) (int64, error) { return a * b, nil }, func(a, b float64) (float64, error) { return a * b, nil }),
		arithmetic("/", func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, errDivisionByZero
			}
			return a / b, nil
		}, func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, errDivisionByZero
			}
			return a / b, nil
		}),
		arithmetic("%", func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, errDivisionByZero
			}
			return a % b, nil
		}, func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, errDivisionByZero
			}
			return math.Mod(a, b), nil
		}),
		{Name: "NEGATE", Kind: Arithmetic, Native: "-", Syntax: Prefix, MinArgs: 1, MaxArgs: 1, Deterministic: true, ReturnType: firstArg, Eval: evalNegate},

		{Name: "ABS", Native: "abs", MinArgs: 1, MaxArgs: 1, Deterministic: true, ReturnType: firstArg, Eval: mathFunc(math.Abs, func(i int64) int64 {
			if i < 0 {
				return -i
			}
			return i
		})},
		{Name: "FLOOR", Native: "floor", MinArgs: 1, MaxArgs: 1, Deterministic: true, ReturnType: firstArg, Eval: mathFunc(math.Floor, identity)},
		{Name: "CEIL", Native: "ceil", MinArgs: 1, MaxArgs: 1, Deterministic: true, ReturnType: firstArg, Eval: mathFunc(math.Ceil, identity)},
		{Name: "UPPER", Native: "upper", MinArgs: 1, MaxArgs: 1, Deterministic: true, ReturnType: varchar, Eval: stringFunc(strings.ToUpper)},
		{Name: "LOWER", Native: "lower", MinArgs: 1, MaxArgs: 1, Deterministic: true, ReturnType: varchar, Eval: stringFunc(strings.ToLower)},
		{Name: "CHAR_LENGTH", Native: "strlen", MinArgs: 1, MaxArgs: 1, Deterministic: true, ReturnType: bigint, Eval: func(args []sqltypes.Value) (sqltypes.Value, error) {
			if args[0].IsNull() {
				return sqltypes.NewTypedNull(sqltypes.Bigint), nil
			}
			return sqltypes.NewInt64(int64(utf8.RuneCountInString(args[0].ToString()))), nil
		}},
		{Name: "CONCAT", Native: "concat", MinArgs: 1, MaxArgs: -1, Deterministic: true, ReturnType: varchar, Eval: evalConcat},
		{Name: "COALESCE", Native: "nvl", MinArgs: 2, MaxArgs: 2, Deterministic: true, ReturnType: leastRestrictive, Eval: func(args []sqltypes.Value) (sqltypes.Value, error) {
			if args[0].IsNull() {
				return args[1], nil
			}
			return args[0], nil
		}},
		{Name: "CAST", Native: "cast", MinArgs: 1, MaxArgs: 1, Deterministic: true},
		{Name: "RAND", Native: "", MinArgs: 0, MaxArgs: 0, Deterministic: false, ReturnType: double},

		aggregate("COUNT", 0, 1, bigint),
		aggregate("SUM", 1, 1, func(args []sqltypes.Type) (sqltypes.Type, error) {
			if !args[0].IsNumeric() {
				return sqltypes.Null, fmt.Errorf("SUM: cannot sum %s", args[0])
			}
			if args[0].IsIntegral() {
				return sqltypes.Bigint, nil
			}
			return sqltypes.Double, nil
		}),
		aggregate("MIN", 1, 1, firstArg),
		aggregate("MAX", 1, 1, firstArg),
		aggregate("AVG", 1, 1, double),
		aggregate("APPROX_COUNT_DISTINCT", 1, 1, bigint),
	}
}

func comparison(name, native string, accept func(int) bool) *Operator {
	return &Operator{
		Name:          name,
		Kind:          Comparison,
		Native:        native,
		Syntax:        Infix,
		MinArgs:       2,
		MaxArgs:       2,
		Deterministic: true,
		ReturnType:    boolean,
		Eval: func(args []sqltypes.Value) (sqltypes.Value, error) {
			if args[0].IsNull() || args[1].IsNull() {
				return sqltypes.NewTypedNull(sqltypes.Boolean), nil
			}
			c, err := Compare(args[0], args[1])
			if err != nil {
				return sqltypes.NULL, err
			}
			return sqltypes.NewBoolean(accept(c)), nil
		},
	}
}

func arithmetic(name string, ints func(a, b int64) (int64, error), floats func(a, b float64) (float64, error)) *Operator {
	return &Operator{
		Name:          name,
		Kind:          Arithmetic,
		Native:        name,
		Syntax:        Infix,
		MinArgs:       2,
		MaxArgs:       2,
		Deterministic: true,
		ReturnType:    numeric,
		Eval: func(args []sqltypes.Value) (sqltypes.Value, error) {
			a, b := args[0], args[1]
			if a.IsNull() || b.IsNull() {
				typ, _ := sqltypes.LeastRestrictive(a.Type(), b.Type())
				return sqltypes.NewTypedNull(typ), nil
			}
			if !a.Type().IsNumeric() || !b.Type().IsNumeric() {
				return sqltypes.NULL, fmt.Errorf("%s: cannot apply to %s and %s", name, a.Type(), b.Type())
			}
			if a.Type().IsIntegral() && b.Type().IsIntegral() {
				x, _ := a.ToInt64()
				y, _ := b.ToInt64()
				r, err := ints(x, y)
				return sqltypes.NewInt64(r), err
			}
			x, _ := a.ToFloat64()
			y, _ := b.ToFloat64()
			r, err := floats(x, y)
			return sqltypes.NewFloat64(r), err
		},
	}
}

func aggregate(name string, minArgs, maxArgs int, ret ReturnTypeFunc) *Operator {
	return &Operator{
		Name:          name,
		Kind:          Aggregate,
		Native:        strings.ToLower(name),
		MinArgs:       minArgs,
		MaxArgs:       maxArgs,
		Deterministic: true,
		ReturnType:    ret,
	}
}

// Compare orders two non-null values. Numbers and temporal values compare
// numerically, strings lexically. A string compared to a number is
// converted to the number's type first.
func Compare(a, b sqltypes.Value) (int, error) {
	at, bt := a.Type(), b.Type()
	if at == sqltypes.Varchar && bt == sqltypes.Varchar {
		return strings.Compare(a.ToString(), b.ToString()), nil
	}
	if at.IsIntegral() && bt.IsIntegral() {
		x, _ := a.ToInt64()
		y, _ := b.ToInt64()
		return cmp3(x, y), nil
	}
	x, err := a.ToFloat64()
	if err != nil {
		return 0, fmt.Errorf("cannot compare %s with %s: %w", at, bt, err)
	}
	y, err := b.ToFloat64()
	if err != nil {
		return 0, fmt.Errorf("cannot compare %s with %s: %w", at, bt, err)
	}
	return cmp3(x, y), nil
}

func cmp3[T int64 | float64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

// evalAnd implements three-valued AND: false wins over null.
func evalAnd(args []sqltypes.Value) (sqltypes.Value, error) {
	sawNull := false
	for _, a := range args {
		if a.IsNull() {
			sawNull = true
			continue
		}
		b, err := a.ToBool()
		if err != nil {
			return sqltypes.NULL, err
		}
		if !b {
			return sqltypes.NewBoolean(false), nil
		}
	}
	if sawNull {
		return sqltypes.NewTypedNull(sqltypes.Boolean), nil
	}
	return sqltypes.NewBoolean(true), nil
}

// evalOr implements three-valued OR: true wins over null.
func evalOr(args []sqltypes.Value) (sqltypes.Value, error) {
	sawNull := false
	for _, a := range args {
		if a.IsNull() {
			sawNull = true
			continue
		}
		b, err := a.ToBool()
		if err != nil {
			return sqltypes.NULL, err
		}
		if b {
			return sqltypes.NewBoolean(true), nil
		}
	}
	if sawNull {
		return sqltypes.NewTypedNull(sqltypes.Boolean), nil
	}
	return sqltypes.NewBoolean(false), nil
}

func evalNot(args []sqltypes.Value) (sqltypes.Value, error) {
	if args[0].IsNull() {
		return sqltypes.NewTypedNull(sqltypes.Boolean), nil
	}
	b, err := args[0].ToBool()
	if err != nil {
		return sqltypes.NULL, err
	}
	return sqltypes.NewBoolean(!b), nil
}

func evalNegate(args []sqltypes.Value) (sqltypes.Value, error) {
	a := args[0]
	switch {
	case a.IsNull():
		return a, nil
	case a.Type().IsIntegral():
		i, _ := a.ToInt64()
		return sqltypes.NewInt64(-i), nil
	case a.Type().IsNumeric():
		f, _ := a.ToFloat64()
		return sqltypes.NewFloat64(-f), nil
	}
	return sqltypes.NULL, fmt.Errorf("cannot negate %s", a.Type())
}

func evalConcat(args []sqltypes.Value) (sqltypes.Value, error) {
	var sb strings.Builder
	for _, a := range args {
		if a.IsNull() {
			return sqltypes.NewTypedNull(sqltypes.Varchar), nil
		}
		sb.WriteString(a.ToString())
	}
	return sqltypes.NewVarChar(sb.String()), nil
}

func mathFunc(f func(float64) float64, i func(int64) int64) EvalFunc {
	return func(args []sqltypes.Value) (sqltypes.Value, error) {
		a := args[0]
		switch {
		case a.IsNull():
			return a, nil
		case a.Type().IsIntegral():
			v, _ := a.ToInt64()
			return sqltypes.NewInt64(i(v)), nil
		}
		v, err := a.ToFloat64()
		if err != nil {
			return sqltypes.NULL, err
		}
		return sqltypes.NewFloat64(f(v)), nil
	}
}

func stringFunc(f func(string) string) EvalFunc {
	return func(args []sqltypes.Value) (sqltypes.Value, error) {
		if args[0].IsNull() {
			return sqltypes.NewTypedNull(sqltypes.Varchar), nil
		}
		return sqltypes.NewVarChar(f(args[0].ToString())), nil
	}
}

func identity(i int64) int64 { return i }

func boolean([]sqltypes.Type) (sqltypes.Type, error) { return sqltypes.Boolean, nil }
func bigint([]sqltypes.Type) (sqltypes.Type, error) { return sqltypes.Bigint, nil }
func double([]sqltypes.Type) (sqltypes.Type, error) { return sqltypes.Double, nil }
func varchar([]sqltypes.Type) (sqltypes.Type, error) { return sqltypes.Varchar, nil }

func firstArg(args []sqltypes.Type) (sqltypes.Type, error) {
	return args[0], nil
}

func numeric(args []sqltypes.Type) (sqltypes.Type, error) {
	typ, ok := sqltypes.LeastRestrictive(args[0], args[1])
	if !ok || (typ != sqltypes.Null && !typ.IsNumeric()) {
		return sqltypes.Null, fmt.Errorf("cannot apply arithmetic to %s and %s", args[0], args[1])
	}
	return typ, nil
}

func leastRestrictive(args []sqltypes.Type) (sqltypes.Type, error) {
	typ, ok := sqltypes.LeastRestrictive(args[0], args[1])
	if !ok {
		return sqltypes.Null, fmt.Errorf("incompatible types %s and %s", args[0], args[1])
	}
	return typ, nil
}
