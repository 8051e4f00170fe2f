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

// Package dialect holds the lexical rules shared by every query and the
// parser front end that enforces them.
package dialect

import (
	"strings"

	"github.com/pingcap/parser"
	"github.com/pingcap/parser/ast"
	"github.com/pingcap/parser/mysql"
	_ "github.com/pingcap/parser/test_driver"

	"github.com/druidplan/druidplan/go/sqlerrors"
)

// Casing is the transformation applied to identifiers by the lexer.
type Casing int

const (
	// Unchanged keeps the identifier exactly as written.
	Unchanged Casing = iota
	ToUpper
	ToLower
)

func (c Casing) String() string {
	switch c {
	case ToUpper:
		return "TO_UPPER"
	case ToLower:
		return "TO_LOWER"
	}
	return "UNCHANGED"
}

// Apply transforms ident according to c.
func (c Casing) Apply(ident string) string {
	switch c {
	case ToUpper:
		return strings.ToUpper(ident)
	case ToLower:
		return strings.ToLower(ident)
	}
	return ident
}

// Config describes identifier handling. It is a value type; copies are
// independent and the package-level Default is never mutated.
type Config struct {
	CaseSensitive  bool
	UnquotedCasing Casing
	QuotedCasing   Casing
	Quoting        byte
}

// Default is the compatibility contract for SQL text: case sensitive,
// identifiers keep their casing, and double quotes delimit identifiers.
var Default = Config{
	CaseSensitive:  true,
	UnquotedCasing: Unchanged,
	QuotedCasing:   Unchanged,
	Quoting:        '"',
}

// SameIdentifier compares two identifiers under c.
func (c Config) SameIdentifier(a, b string) bool {
	if c.CaseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}

// Parse parses exactly one statement. The underlying parser runs in
// ANSI_QUOTES mode so that double-quoted text is an identifier.
func (c Config) Parse(sql string) (ast.StmtNode, error) {
	if c.Quoting != '"' {
		return nil, sqlerrors.Errorf(sqlerrors.Configuration, "unsupported identifier quote character %q", c.Quoting)
	}

	p := parser.New()
	p.SetSQLMode(mysql.ModeANSIQuotes)
	stmts, _, err := p.Parse(sql, "", "")
	if err != nil {
		return nil, sqlerrors.Errorf(sqlerrors.Parse, "cannot parse SQL: %v", err)
	}
	switch len(stmts) {
	case 0:
		return nil, sqlerrors.New(sqlerrors.Parse, "empty statement")
	case 1:
		return stmts[0], nil
	}
	return nil, sqlerrors.Errorf(sqlerrors.Parse, "expected one statement, got %d", len(stmts))
}
