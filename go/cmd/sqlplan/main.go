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

// sqlplan plans SQL statements into native engine queries.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/druidplan/druidplan/go/cmd/sqlplan/command"
	"github.com/druidplan/druidplan/go/log"
)

func main() {
	defer log.Flush()

	// glog registers its flags on the standard flag set
	command.Root.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := command.Root.ExecuteContext(ctx); err != nil {
		log.Error(err)
		log.Flush()
		os.Exit(1)
	}
}
