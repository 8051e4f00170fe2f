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

// Package expressions translates row expressions into the engine's
// native expression language, filters and aggregators.
package expressions

import (
	"strings"

	"github.com/druidplan/druidplan/go/sql/native"
	"github.com/druidplan/druidplan/go/sql/operators"
	"github.com/druidplan/druidplan/go/sql/rex"
	"github.com/druidplan/druidplan/go/sql/sqltypes"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

// Signature names the columns an expression's input references point to,
// by position.
type Signature []string

// Column returns the name of the column at index i.
func (s Signature) Column(i int) (string, error) {
	if i < 0 || i >= len(s) {
		return "", sqlerrors.Errorf(sqlerrors.Translation, "input reference $%d out of range for %d columns", i, len(s))
	}
	return s[i], nil
}

// ToNative renders e in the engine's expression language.
func ToNative(sig Signature, e rex.Expr) (string, error) {
	switch e := e.(type) {
	case *rex.Literal:
		return literal(e.Value), nil
	case *rex.InputRef:
		name, err := sig.Column(e.Index)
		if err != nil {
			return "", err
		}
		return native.Identifier(name), nil
	case *rex.MacroCall:
		args, err := toNativeAll(sig, e.Args)
		if err != nil {
			return "", err
		}
		out, err := e.Macro.Expand(args)
		if err != nil {
			return "", sqlerrors.Errorf(sqlerrors.Translation, "%v", err)
		}
		return out, nil
	case *rex.Call:
		return call(sig, e)
	}
	return "", sqlerrors.Errorf(sqlerrors.Translation, "cannot translate expression %s", e)
}

func toNativeAll(sig Signature, exprs []rex.Expr) ([]string, error) {
	out := make([]string, len(exprs))
	for i, e := range exprs {
		s, err := ToNative(sig, e)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func call(sig Signature, c *rex.Call) (string, error) {
	if c.Op.Name == "CAST" {
		return cast(sig, c)
	}
	if c.Op.Native == "" || c.Op.Kind == operators.Aggregate {
		return "", sqlerrors.Errorf(sqlerrors.Translation, "operator %s has no native expression form", c.Op.Name)
	}
	args, err := toNativeAll(sig, c.Args)
	if err != nil {
		return "", err
	}
	switch c.Op.Syntax {
	case operators.Infix:
		return "(" + strings.Join(args, " "+c.Op.Native+" ") + ")", nil
	case operators.Prefix:
		return c.Op.Native + "(" + args[0] + ")", nil
	}
	return c.Op.Native + "(" + strings.Join(args, ",") + ")", nil
}

func cast(sig Signature, c *rex.Call) (string, error) {
	arg, err := ToNative(sig, c.Args[0])
	if err != nil {
		return "", err
	}
	from := c.Args[0].Type()
	switch {
	case from == c.Typ:
		return arg, nil
	case c.Typ.IsTemporal() && (from.IsTemporal() || from == sqltypes.Bigint):
		return arg, nil
	}
	target, ok := NativeType(c.Typ)
	if !ok {
		return "", sqlerrors.Errorf(sqlerrors.Translation, "cannot cast %s to %s", from, c.Typ)
	}
	return "cast(" + arg + ", '" + target + "')", nil
}

// NativeType returns the engine's name for typ.
func NativeType(typ sqltypes.Type) (string, bool) {
	switch typ {
	case sqltypes.Bigint, sqltypes.Boolean, sqltypes.Timestamp, sqltypes.Date:
		return "LONG", true
	case sqltypes.Float:
		return "FLOAT", true
	case sqltypes.Double:
		return "DOUBLE", true
	case sqltypes.Varchar:
		return "STRING", true
	}
	return "", false
}

func literal(v sqltypes.Value) string {
	switch {
	case v.IsNull():
		return "null"
	case v.Type() == sqltypes.Varchar:
		return native.EscapeString(v.ToString())
	}
	return v.ToString()
}
