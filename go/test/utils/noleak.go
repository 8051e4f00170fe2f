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

// Package utils holds helpers shared by tests.
package utils

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

// ignoredGoroutines are started by dependencies at init and live for the
// whole process.
var ignoredGoroutines = []goleak.Option{
	goleak.IgnoreTopFunction("github.com/golang/glog.(*fileSink).flushDaemon"),
	goleak.IgnoreTopFunction("github.com/golang/glog.(*loggingT).flushDaemon"),
	goleak.IgnoreTopFunction("testing.tRunner.func1"),
}

// LeakCheckContext returns a Context that is cancelled at the end of the
// test. If the test passed, it is then checked for goroutine leaks.
func LeakCheckContext(t testing.TB) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		EnsureNoLeaks(t)
	})
	return ctx
}

// EnsureNoLeaks fails the test if goroutines other than the ignored ones
// are still running. Failed tests are not checked.
func EnsureNoLeaks(t testing.TB) {
	t.Helper()
	if t.Failed() {
		return
	}
	if err := findLeaks(); err != nil {
		t.Fatal(err)
	}
}

// findLeaks retries for a short while so goroutines that are already
// exiting are not reported.
func findLeaks() error {
	var err error
	for i := 0; i < 5; i++ {
		if err = goleak.Find(ignoredGoroutines...); err == nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return err
}
