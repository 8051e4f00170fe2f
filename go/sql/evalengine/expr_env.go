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

package evalengine

import (
	"errors"
	"fmt"
	"time"

	"github.com/druidplan/druidplan/go/sql/rex"
	"github.com/druidplan/druidplan/go/sql/sqltypes"
)

// ErrNotFoldable is returned when an expression needs data, or an
// operator has no planning-time implementation.
var ErrNotFoldable = errors.New("expression cannot be evaluated at planning time")

// ExpressionEnv is the environment an expression evaluates in. The
// planner only ever uses it without a row: input references and
// engine macros cannot be evaluated and report ErrNotFoldable.
type ExpressionEnv struct {
	// Row is indexed by InputRef.Index. It is nil during planning.
	Row []sqltypes.Value
	// Now is reported by time-dependent operators. The zero value
	// means time is unavailable.
	Now time.Time
}

// EmptyEnv returns a new ExpressionEnv with no row and no data source.
func EmptyEnv() *ExpressionEnv {
	return &ExpressionEnv{}
}

// Evaluate computes expr to a value.
func (env *ExpressionEnv) Evaluate(expr rex.Expr) (sqltypes.Value, error) {
	if env == nil {
		panic("ExpressionEnv == nil")
	}
	switch e := expr.(type) {
	case *rex.Literal:
		return e.Value, nil
	case *rex.InputRef:
		if e.Index < 0 || e.Index >= len(env.Row) {
			return sqltypes.NULL, fmt.Errorf("%w: %s needs a row", ErrNotFoldable, e)
		}
		return env.Row[e.Index], nil
	case *rex.Call:
		if !e.Op.Deterministic {
			return sqltypes.NULL, fmt.Errorf("%w: %s is not deterministic", ErrNotFoldable, e.Op.Name)
		}
		args := make([]sqltypes.Value, len(e.Args))
		for i, arg := range e.Args {
			v, err := env.Evaluate(arg)
			if err != nil {
				return sqltypes.NULL, err
			}
			args[i] = v
		}
		if e.Op.Name == "CAST" {
			return args[0].Cast(e.Typ)
		}
		if e.Op.Eval == nil {
			return sqltypes.NULL, fmt.Errorf("%w: %s has no evaluator", ErrNotFoldable, e.Op.Name)
		}
		return e.Op.Eval(args)
	case *rex.MacroCall:
		return sqltypes.NULL, fmt.Errorf("%w: macro %s is evaluated by the engine", ErrNotFoldable, e.Macro.Name)
	}
	return sqltypes.NULL, fmt.Errorf("%w: unknown expression %T", ErrNotFoldable, expr)
}
