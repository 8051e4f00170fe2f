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

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: " INFO ", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "trace", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := slogLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlogHandler(t *testing.T) {
	_, err := slogHandler("logfmt", nil)
	require.NoError(t, err)
	_, err = slogHandler("xml", nil)
	require.ErrorContains(t, err, "invalid log-fmt")
}

func TestInitWithoutFormatFlag(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))
	require.NoError(t, Init(fs))
	assert.False(t, structuredLoggingEnabled.Load())
}

func TestInitWithFormatFlag(t *testing.T) {
	useLogger(t, slog.Default())
	structuredLoggingEnabled.Store(false)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--log-fmt=logfmt", "--log-level=debug"}))
	require.NoError(t, Init(fs))
	assert.True(t, structuredLoggingEnabled.Load())
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))

	require.NoError(t, fs.Parse([]string{"--log-level=trace"}))
	assert.ErrorContains(t, Init(fs), "invalid log-level")
}

// useLogger routes structured calls to logger until the test ends.
func useLogger(t *testing.T, logger *slog.Logger) {
	prev, prevEnabled := slog.Default(), structuredLoggingEnabled.Load()
	slog.SetDefault(logger)
	structuredLoggingEnabled.Store(true)
	t.Cleanup(func() {
		slog.SetDefault(prev)
		structuredLoggingEnabled.Store(prevEnabled)
	})
}

func TestStructuredLogging(t *testing.T) {
	var buf bytes.Buffer
	useLogger(t, slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	InfoS("planner created", "queryId", "abc")
	DebugS("below the level", "queryId", "abc")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "planner created", record["msg"])
	assert.Equal(t, "abc", record["queryId"])
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")), "debug records are filtered by level")
}
