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

package framework

import (
	"testing"

	"github.com/pingcap/parser/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/druidplan/druidplan/go/sql/dialect"
	"github.com/druidplan/druidplan/go/sql/druidrel"
	"github.com/druidplan/druidplan/go/sql/macros"
	"github.com/druidplan/druidplan/go/sql/operators"
	"github.com/druidplan/druidplan/go/sql/plancontext"
	"github.com/druidplan/druidplan/go/sql/querymaker"
	"github.com/druidplan/druidplan/go/sql/rel"
	"github.com/druidplan/druidplan/go/sql/rules"
	"github.com/druidplan/druidplan/go/sql/schema"
	"github.com/druidplan/druidplan/go/sql/sqltypes"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

type noConvertlets struct{}

func (noConvertlets) Lookup(ast.ExprNode) (Convertlet, bool) { return nil, false }

var ops = operators.NewDefaultTable()

func testView(t *testing.T) *schema.View {
	t.Helper()
	reg := schema.NewRegistry(schema.NewSnapshot(schema.NewNamespace("druid",
		&schema.Table{Name: "foo", Columns: []schema.Column{
			{Name: "__time", Type: sqltypes.Timestamp},
			{Name: "dim", Type: sqltypes.Varchar},
			{Name: "x", Type: sqltypes.Bigint},
		}},
	)))
	view, err := schema.ResolveView(reg, "druid")
	require.NoError(t, err)
	return view
}

func testConfig(t *testing.T) Config {
	t.Helper()
	pctx, err := plancontext.Create(ops, macros.NewDefaultTable(), plancontext.DefaultConfig(), nil)
	require.NoError(t, err)
	return Config{
		Parser:        dialect.Default,
		Traits:        []rel.TraitDef{rel.ConventionTraitDef, rel.CollationTraitDef},
		Convertlets:   noConvertlets{},
		Operators:     ops,
		Programs:      rules.Programs(pctx, querymaker.New(nil, pctx, plancontext.DefaultServerConfig())),
		DefaultSchema: testView(t),
	}
}

func toRel(t *testing.T, cfg Config, sql string) (*RelRoot, error) {
	t.Helper()
	p, err := NewPlanner(cfg)
	require.NoError(t, err)
	defer p.Close()
	stmt, err := p.Parse(sql)
	if err != nil {
		return nil, err
	}
	v, err := p.Validate(stmt)
	if err != nil {
		return nil, err
	}
	return p.Rel(v)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"no convertlets", func(c *Config) { c.Convertlets = nil }},
		{"no operators", func(c *Config) { c.Operators = nil }},
		{"no schema", func(c *Config) { c.DefaultSchema = nil }},
		{"no programs", func(c *Config) { c.Programs = nil }},
		{"mixed casing", func(c *Config) { c.Parser.QuotedCasing = dialect.ToUpper }},
		{"duplicate trait", func(c *Config) { c.Traits = append(c.Traits, rel.CollationTraitDef) }},
		{"no convention trait", func(c *Config) { c.Traits = []rel.TraitDef{rel.CollationTraitDef} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.modify(&cfg)
			_, err := NewPlanner(cfg)
			assert.True(t, sqlerrors.Is(err, sqlerrors.Configuration), "got %v", err)
		})
	}
}

func TestPlannerSteps(t *testing.T) {
	p, err := NewPlanner(testConfig(t))
	require.NoError(t, err)

	_, err = p.Validate(nil)
	assert.True(t, sqlerrors.Is(err, sqlerrors.Internal), "validate before parse: %v", err)

	p, err = NewPlanner(testConfig(t))
	require.NoError(t, err)
	stmt, err := p.Parse("SELECT dim FROM foo")
	require.NoError(t, err)
	p.Close()
	_, err = p.Validate(stmt)
	assert.ErrorContains(t, err, "cannot move from CLOSED to VALIDATED")
}

func TestRelProject(t *testing.T) {
	root, err := toRel(t, testConfig(t), `SELECT dim, x + 1 AS y FROM foo WHERE x > 2 ORDER BY y DESC LIMIT 3 OFFSET 1`)
	require.NoError(t, err)

	assert.Equal(t, []string{"dim", "y"}, root.Fields.Names())
	assert.Equal(t,
		"Sort(sort=[$1 DESC], offset=1, fetch=3)[Project(dim=[$1], y=[+($2, 1)])[Filter(condition=[>($2, 2)])[TableScan(table=[druid, foo])]]]",
		rel.FullDigest(root.Rel))
}

func TestRelStar(t *testing.T) {
	root, err := toRel(t, testConfig(t), `SELECT * FROM druid.foo`)
	require.NoError(t, err)
	assert.Equal(t, []string{"__time", "dim", "x"}, root.Fields.Names())
}

func TestRelAggregate(t *testing.T) {
	root, err := toRel(t, testConfig(t),
		`SELECT dim, COUNT(*) AS c, SUM(x) FROM foo GROUP BY dim HAVING COUNT(*) > 1 ORDER BY 2 DESC`)
	require.NoError(t, err)

	assert.Equal(t, []string{"dim", "c", "EXPR$2"}, root.Fields.Names())
	sort, ok := root.Rel.(*rel.Sort)
	require.True(t, ok)
	assert.Equal(t, []rel.FieldCollation{{Index: 1, Desc: true}}, sort.Collation)
	assert.EqualValues(t, -1, sort.Fetch)

	project := sort.Input.(*rel.Project)
	assert.Equal(t, "Project(dim=[$0], c=[$1], EXPR$2=[$2])", project.Digest())
	having := project.Input.(*rel.Filter)
	assert.Equal(t, ">($1, 1)", having.Condition.String())
	agg := having.Input.(*rel.Aggregate)
	assert.Equal(t, []int{0}, agg.GroupKeys)
	require.Len(t, agg.Calls, 2)
	assert.Equal(t, "COUNT", agg.Calls[0].Op.Name)
	assert.Empty(t, agg.Calls[0].Args)
	assert.Equal(t, []int{1}, agg.Calls[1].Args)
	assert.Equal(t, "Project(dim=[$1], x=[$2])", agg.Input.(*rel.Project).Digest())
}

func TestRelDistinct(t *testing.T) {
	root, err := toRel(t, testConfig(t), `SELECT DISTINCT dim FROM foo`)
	require.NoError(t, err)
	agg, ok := root.Rel.(*rel.Aggregate)
	require.True(t, ok)
	assert.Equal(t, []int{0}, agg.GroupKeys)
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		code sqlerrors.ErrorCode
	}{
		{"unknown table", "SELECT dim FROM bar", sqlerrors.Validation},
		{"unknown namespace", "SELECT dim FROM sys.foo", sqlerrors.Validation},
		{"unknown column", "SELECT nope FROM foo", sqlerrors.Validation},
		{"case sensitive column", "SELECT DIM FROM foo", sqlerrors.Validation},
		{"case sensitive table", "SELECT dim FROM FOO", sqlerrors.Validation},
		{"join", "SELECT foo.dim FROM foo JOIN foo AS f2 ON foo.dim = f2.dim", sqlerrors.Validation},
		{"subquery", "SELECT dim FROM foo WHERE x IN (SELECT x FROM foo)", sqlerrors.Validation},
		{"no from", "SELECT 1", sqlerrors.Validation},
		{"not a select", "DELETE FROM foo", sqlerrors.Validation},
		{"not grouped", "SELECT dim, x, COUNT(*) FROM foo GROUP BY dim", sqlerrors.Validation},
		{"nested aggregate", "SELECT SUM(COUNT(*)) FROM foo", sqlerrors.Validation},
		{"distinct aggregate", "SELECT DISTINCT COUNT(*) FROM foo", sqlerrors.Validation},
		{"order by unselected", "SELECT dim FROM foo ORDER BY x", sqlerrors.Validation},
		{"ordinal out of range", "SELECT dim FROM foo ORDER BY 3", sqlerrors.Validation},
		{"having without aggregate", "SELECT dim FROM foo HAVING dim = 'a'", sqlerrors.Validation},
		{"unknown function", "SELECT NOPE(dim) FROM foo", sqlerrors.Validation},
		{"syntax", "SELECT FROM foo WHERE", sqlerrors.Parse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := toRel(t, testConfig(t), tt.sql)
			require.Error(t, err)
			assert.Equal(t, tt.code, sqlerrors.Code(err), "got %v", err)
		})
	}
}

func TestCaseInsensitive(t *testing.T) {
	cfg := testConfig(t)
	cfg.Parser.CaseSensitive = false
	root, err := toRel(t, cfg, "SELECT DIM FROM FOO")
	require.NoError(t, err)
	assert.Equal(t, []string{"DIM"}, root.Fields.Names(), "output names keep the casing they were written with")
}

func TestTransform(t *testing.T) {
	var applied []string
	cfg := testConfig(t)
	cfg.OnRule = func(program, rule string) { applied = append(applied, program+"/"+rule) }
	p, err := NewPlanner(cfg)
	require.NoError(t, err)

	stmt, err := p.Parse("SELECT dim FROM foo WHERE dim = 'a'")
	require.NoError(t, err)
	v, err := p.Validate(stmt)
	require.NoError(t, err)
	root, err := p.Rel(v)
	require.NoError(t, err)
	out, err := p.Transform(root.Rel)
	require.NoError(t, err)

	q, ok := out.(*druidrel.QueryRel)
	require.True(t, ok, "got %s", rel.FullDigest(out))
	assert.Equal(t, druidrel.SelectProject, q.Partial.Stage())
	assert.Contains(t, applied, "druid/DruidTableScan")

	_, err = p.Transform(root.Rel)
	assert.True(t, sqlerrors.Is(err, sqlerrors.Internal), "steps run once")
}
