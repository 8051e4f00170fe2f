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

package dialect

import (
	"testing"

	"github.com/pingcap/parser/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/druidplan/druidplan/go/sqlerrors"
)

func TestCasing(t *testing.T) {
	assert.Equal(t, "Page", Unchanged.Apply("Page"))
	assert.Equal(t, "PAGE", ToUpper.Apply("Page"))
	assert.Equal(t, "page", ToLower.Apply("Page"))
	assert.Equal(t, "TO_LOWER", ToLower.String())
	assert.Equal(t, "UNCHANGED", Casing(42).String())
}

func TestSameIdentifier(t *testing.T) {
	assert.True(t, Default.SameIdentifier("page", "page"))
	assert.False(t, Default.SameIdentifier("page", "Page"))

	insensitive := Default
	insensitive.CaseSensitive = false
	assert.True(t, insensitive.SameIdentifier("page", "Page"))
	assert.False(t, Default.SameIdentifier("page", "Page"), "copies do not change Default")
}

func TestParse(t *testing.T) {
	stmt, err := Default.Parse(`SELECT "page", COUNT(*) FROM "wikipedia" GROUP BY "page"`)
	require.NoError(t, err)
	sel, ok := stmt.(*ast.SelectStmt)
	require.True(t, ok, "got %T", stmt)
	require.Len(t, sel.Fields.Fields, 2)
	col, ok := sel.Fields.Fields[0].Expr.(*ast.ColumnNameExpr)
	require.True(t, ok, "double quotes delimit identifiers")
	assert.Equal(t, "page", col.Name.Name.O)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"syntax", "SELECT FROM WHERE"},
		{"empty", "   "},
		{"multiple", "SELECT 1; SELECT 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Default.Parse(tt.sql)
			assert.True(t, sqlerrors.Is(err, sqlerrors.Parse), "got %v", err)
		})
	}

	backticks := Default
	backticks.Quoting = '`'
	_, err := backticks.Parse("SELECT 1")
	assert.True(t, sqlerrors.Is(err, sqlerrors.Configuration), "got %v", err)
}
