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

package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/druidplan/druidplan/go/log"
	"github.com/druidplan/druidplan/go/sql/schema"
)

// Watch re-plans statements whenever the catalog file changes.
var Watch = &cobra.Command{
	Use:   "watch <sql> [<sql> ...]",
	Short: "Re-plans SQL statements every time the catalog changes.",
	Long: `Plans the statements, then watches the catalog file and plans them
again against every new catalog version until interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: commandWatch,
}

func commandWatch(cmd *cobra.Command, args []string) error {
	f, registry, err := newFactory()
	if err != nil {
		return err
	}
	w, err := schema.NewWatcher(fs, rootOptions.Catalog, registry)
	if err != nil {
		return err
	}
	changed := make(chan struct{}, 1)
	w.Notify(changed)
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Close()

	for {
		outcomes, err := planAll(commandCtx, f, args, rootOptions.Parallelism)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "catalog version %d\n", registry.Snapshot().Version)
		if err := writeOutcomeTable(cmd.OutOrStdout(), outcomes); err != nil {
			return err
		}

		select {
		case <-commandCtx.Done():
			return nil
		case <-changed:
			log.Infof("catalog %s changed, planning again", rootOptions.Catalog)
		}
	}
}

func init() {
	Root.AddCommand(Watch)
}
