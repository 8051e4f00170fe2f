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
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/pflag"
)

var (
	logFormat string
	logLevel  string

	// structuredLoggingEnabled is set once Init installs an slog handler.
	structuredLoggingEnabled atomic.Bool
)

// Init switches InfoS and DebugS to slog when --log-fmt was given on fs.
// Otherwise it leaves glog in charge.
func Init(fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	if f := fs.Lookup("log-fmt"); f == nil || !f.Changed {
		return nil
	}

	level, err := slogLevel(logLevel)
	if err != nil {
		return err
	}
	handler, err := slogHandler(logFormat, &slog.HandlerOptions{AddSource: true, Level: level})
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(handler))
	structuredLoggingEnabled.Store(true)
	return nil
}

// slogLevel maps the log-level flag value to a slog.Level.
func slogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log-level %q: expected debug, info, warn, or error", level)
	}
}

// slogHandler returns a [slog.Handler] for the given format and options.
func slogHandler(format string, opts *slog.HandlerOptions) (slog.Handler, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return slog.NewJSONHandler(os.Stderr, opts), nil
	case "logfmt":
		return slog.NewTextHandler(os.Stderr, opts), nil
	default:
		return nil, fmt.Errorf("invalid log-fmt %q: expected json or logfmt", format)
	}
}

// emit writes one structured record through slog, or through glog with
// the attributes appended to the message when --log-fmt was not given.
// Debug records reach glog only at -v=1 and above.
func emit(level slog.Level, msg string, args ...any) {
	// skip runtime.Callers, emit and the exported caller
	const skip = 3

	if !structuredLoggingEnabled.Load() {
		if level < slog.LevelInfo && !glog.V(1) {
			return
		}
		glog.InfoDepth(skip-1, append([]any{msg, " "}, args...)...)
		return
	}

	logger := slog.Default()
	ctx := context.Background()
	if !logger.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(skip, pcs[:])
	record := slog.NewRecord(time.Now(), level, msg, pcs[0])
	record.Add(args...)
	_ = logger.Handler().Handle(ctx, record)
}

// InfoS logs msg and its key/value pairs at info level.
func InfoS(msg string, args ...any) {
	emit(slog.LevelInfo, msg, args...)
}

// DebugS logs msg and its key/value pairs at debug level.
func DebugS(msg string, args ...any) {
	emit(slog.LevelDebug, msg, args...)
}
