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

package planner

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/druidplan/druidplan/go/sql/plancontext"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

func readConfig(t *testing.T, content string) *viper.Viper {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/druidplan/config.yaml", []byte(content), 0o644))

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile("/etc/druidplan/config.yaml")
	require.NoError(t, v.ReadInConfig())
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, server, err := LoadConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, plancontext.DefaultConfig(), cfg)
	assert.Equal(t, plancontext.DefaultServerConfig(), server)
}

func TestLoadConfig(t *testing.T) {
	v := readConfig(t, `
planner:
  max_topn_limit: 10
  use_approximate_topn: false
  sql_time_zone: America/Los_Angeles
server:
  default_query_timeout: 30s
`)
	cfg, server, err := LoadConfig(v)
	require.NoError(t, err)

	want := plancontext.DefaultConfig()
	want.MaxTopNLimit = 10
	want.UseApproximateTopN = false
	want.SQLTimeZone = "America/Los_Angeles"
	assert.Equal(t, want, cfg)
	assert.Equal(t, 30*time.Second, server.DefaultQueryTimeout)
	assert.EqualValues(t, 1<<40, server.MaxScatterGatherBytes)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero topN limit", "planner:\n  max_topn_limit: 0\n"},
		{"zero rule applications", "planner:\n  max_rule_applications: 0\n"},
		{"bad time zone", "planner:\n  sql_time_zone: Mars/Olympus\n"},
		{"bad timeout", "server:\n  default_query_timeout: soon\n"},
		{"negative timeout", "server:\n  default_query_timeout: -1s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadConfig(readConfig(t, tt.content))
			assert.True(t, sqlerrors.Is(err, sqlerrors.Configuration), "got %v", err)
		})
	}
}
