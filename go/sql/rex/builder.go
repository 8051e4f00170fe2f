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

package rex

import (
	"fmt"

	"github.com/druidplan/druidplan/go/sql/macros"
	"github.com/druidplan/druidplan/go/sql/operators"
	"github.com/druidplan/druidplan/go/sql/sqltypes"
)

// NewCall builds a call of op, checking arity and inferring the type.
func NewCall(op *operators.Operator, args ...Expr) (*Call, error) {
	if err := op.CheckArity(len(args)); err != nil {
		return nil, err
	}
	if op.ReturnType == nil {
		return nil, fmt.Errorf("%s: cannot infer return type", op.Name)
	}
	typ, err := op.ReturnType(operandTypes(args))
	if err != nil {
		return nil, err
	}
	return &Call{Op: op, Args: args, Typ: typ}, nil
}

// NewCast builds a CAST of arg to typ.
func NewCast(ops *operators.Table, arg Expr, typ sqltypes.Type) *Call {
	return &Call{Op: ops.MustLookup("CAST"), Args: []Expr{arg}, Typ: typ}
}

// NewMacroCall builds a call of a native macro.
func NewMacroCall(m *macros.Macro, args ...Expr) (*MacroCall, error) {
	if len(args) < m.MinArgs || len(args) > m.MaxArgs {
		return nil, fmt.Errorf("%s: invalid number of arguments %d", m.Name, len(args))
	}
	return &MacroCall{Macro: m, Args: args, Typ: m.ReturnType}, nil
}

func operandTypes(args []Expr) []sqltypes.Type {
	types := make([]sqltypes.Type, len(args))
	for i, a := range args {
		types[i] = a.Type()
	}
	return types
}

// Walk calls visit for e and its descendants in pre-order. Returning
// false from visit skips the subtree.
func Walk(e Expr, visit func(Expr) bool) {
	if !visit(e) {
		return
	}
	for _, op := range e.Operands() {
		Walk(op, visit)
	}
}

// Rewrite rebuilds e bottom-up, replacing every node with f(node). f
// receives nodes whose operands were already rewritten.
func Rewrite(e Expr, f func(Expr) (Expr, error)) (Expr, error) {
	operands := e.Operands()
	if len(operands) > 0 {
		changed := false
		rewritten := make([]Expr, len(operands))
		for i, op := range operands {
			r, err := Rewrite(op, f)
			if err != nil {
				return nil, err
			}
			rewritten[i] = r
			changed = changed || r != op
		}
		if changed {
			e = e.WithOperands(rewritten)
		}
	}
	return f(e)
}

// Substitute replaces every input reference $i with exprs[i].
func Substitute(e Expr, exprs []Expr) (Expr, error) {
	return Rewrite(e, func(e Expr) (Expr, error) {
		ref, ok := e.(*InputRef)
		if !ok {
			return e, nil
		}
		if ref.Index < 0 || ref.Index >= len(exprs) {
			return nil, fmt.Errorf("input reference %s out of range", ref)
		}
		return exprs[ref.Index], nil
	})
}

// InputRefs returns the set of referenced input positions.
func InputRefs(e Expr) map[int]bool {
	refs := map[int]bool{}
	Walk(e, func(e Expr) bool {
		if ref, ok := e.(*InputRef); ok {
			refs[ref.Index] = true
		}
		return true
	})
	return refs
}

// IsConstant reports whether e contains no input references.
func IsConstant(e Expr) bool {
	return len(InputRefs(e)) == 0
}

// IsCall reports whether e is a call of the operator named name.
func IsCall(e Expr, name string) (*Call, bool) {
	c, ok := e.(*Call)
	if !ok || c.Op.Name != name {
		return nil, false
	}
	return c, true
}

// IsTrue reports whether e is the literal TRUE.
func IsTrue(e Expr) bool {
	return isBoolLiteral(e, true)
}

// IsFalse reports whether e is the literal FALSE.
func IsFalse(e Expr) bool {
	return isBoolLiteral(e, false)
}

func isBoolLiteral(e Expr, want bool) bool {
	lit, ok := e.(*Literal)
	if !ok || lit.Value.IsNull() || lit.Value.Type() != sqltypes.Boolean {
		return false
	}
	b, _ := lit.Value.ToBool()
	return b == want
}

// Conjuncts flattens nested ANDs into a list.
func Conjuncts(e Expr) []Expr {
	if c, ok := IsCall(e, "AND"); ok {
		var out []Expr
		for _, arg := range c.Args {
			out = append(out, Conjuncts(arg)...)
		}
		return out
	}
	return []Expr{e}
}

// And combines conjuncts, dropping TRUE literals. An empty list yields TRUE.
func And(ops *operators.Table, conjuncts ...Expr) Expr {
	var kept []Expr
	for _, c := range conjuncts {
		if !IsTrue(c) {
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		return NewLiteral(sqltypes.NewBoolean(true))
	case 1:
		return kept[0]
	}
	return &Call{Op: ops.MustLookup("AND"), Args: kept, Typ: sqltypes.Boolean}
}

// Digests returns the digest of every expression.
func Digests(exprs []Expr) []string {
	out := make([]string, len(exprs))
	for i, e := range exprs {
		out[i] = e.String()
	}
	return out
}
