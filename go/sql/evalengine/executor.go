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

// Package evalengine folds constant scalar expressions during planning.
package evalengine

import (
	"github.com/druidplan/druidplan/go/log"
	"github.com/druidplan/druidplan/go/sql/rex"
	"github.com/druidplan/druidplan/go/sql/sqltypes"
)

// Executor reduces literal-only subtrees to literals. It implements
// rex.Executor and is safe for concurrent use as long as its env is not
// modified.
type Executor struct {
	env *ExpressionEnv
}

var _ rex.Executor = (*Executor)(nil)

// NewExecutor returns an executor evaluating in env.
func NewExecutor(env *ExpressionEnv) *Executor {
	return &Executor{env: env}
}

// Reduce returns exprs with every foldable subtree replaced by a literal.
// A subtree is foldable when all of its leaves are literals and every
// operator on the way up is deterministic with a planning-time
// implementation. Evaluation failures leave the subtree as it was.
func (ex *Executor) Reduce(exprs []rex.Expr) ([]rex.Expr, error) {
	out := make([]rex.Expr, len(exprs))
	for i, e := range exprs {
		r, err := rex.Rewrite(e, ex.fold)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func (ex *Executor) fold(e rex.Expr) (rex.Expr, error) {
	call, ok := e.(*rex.Call)
	if !ok || !call.Op.Deterministic {
		return e, nil
	}
	for _, arg := range call.Args {
		if _, ok := arg.(*rex.Literal); !ok {
			return e, nil
		}
	}

	v, err := ex.env.Evaluate(call)
	if err != nil {
		if log.V(2) {
			log.Infof("not folding %s: %v", call, err)
		}
		return e, nil
	}
	if !v.IsNull() && v.Type() != call.Typ {
		if cast, err := v.Cast(call.Typ); err == nil {
			v = cast
		}
	}
	if v.IsNull() && v.Type() != call.Typ {
		v = sqltypes.NewTypedNull(call.Typ)
	}
	return rex.NewLiteral(v), nil
}
