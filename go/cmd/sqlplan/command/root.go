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

// Package command contains the commands of the sqlplan binary.
package command

import (
	"context"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/druidplan/druidplan/go/log"
	"github.com/druidplan/druidplan/go/sql/macros"
	"github.com/druidplan/druidplan/go/sql/operators"
	"github.com/druidplan/druidplan/go/sql/planner"
	"github.com/druidplan/druidplan/go/sql/schema"
)

var (
	// fs is where catalog and config files are read from.
	fs = afero.NewOsFs()

	rootOptions = struct {
		Catalog     string
		Config      string
		SchemaName  string
		Context     map[string]string
		NoFold      bool
		JSON        bool
		Parallelism int
	}{
		SchemaName:  planner.DefaultSchemaName,
		Parallelism: 4,
	}

	commandCtx    context.Context
	commandCancel context.CancelFunc

	// Root is the root command of sqlplan.
	Root = &cobra.Command{
		Use:   "sqlplan",
		Short: "sqlplan plans SQL statements into native engine queries.",
		Long: `sqlplan plans SQL statements against a table catalog and prints the
native queries they translate to. It never contacts an engine.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			commandCtx, commandCancel = context.WithCancel(cmd.Context())
			return log.Init(cmd.Flags())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if commandCancel != nil {
				commandCancel()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// newFactory builds a planner factory from the catalog and config flags.
// The registry is returned so callers can watch the catalog.
func newFactory() (*planner.Factory, *schema.Registry, error) {
	snapshot, err := schema.LoadFile(fs, rootOptions.Catalog)
	if err != nil {
		return nil, nil, err
	}
	registry := schema.NewRegistry(snapshot)

	v := viper.New()
	v.SetFs(fs)
	if rootOptions.Config != "" {
		v.SetConfigFile(rootOptions.Config)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, err
		}
	}
	v.SetEnvPrefix("DRUIDPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, server, err := planner.LoadConfig(v)
	if err != nil {
		return nil, nil, err
	}
	f, err := planner.NewFactory(planner.Deps{
		Provider:               registry,
		Operators:              operators.NewDefaultTable(),
		Macros:                 macros.NewDefaultTable(),
		PlannerConfig:          cfg,
		ServerConfig:           server,
		SchemaName:             rootOptions.SchemaName,
		DisableConstantFolding: rootOptions.NoFold,
	})
	if err != nil {
		return nil, nil, err
	}
	return f, registry, nil
}

// queryContext returns the --context flags as a query context.
func queryContext() map[string]any {
	qc := make(map[string]any, len(rootOptions.Context))
	for k, v := range rootOptions.Context {
		qc[k] = v
	}
	return qc
}

func init() {
	log.RegisterFlags(Root.PersistentFlags())

	Root.PersistentFlags().StringVar(&rootOptions.Catalog, "catalog", "catalog.yaml", "YAML or JSON file describing the queryable tables")
	Root.PersistentFlags().StringVar(&rootOptions.Config, "config", "", "optional YAML file with planner and server sections")
	Root.PersistentFlags().StringVar(&rootOptions.SchemaName, "schema", rootOptions.SchemaName, "namespace unqualified table names resolve in")
	Root.PersistentFlags().StringToStringVarP(&rootOptions.Context, "context", "c", nil, "query context entries, as key=value")
	Root.PersistentFlags().BoolVar(&rootOptions.NoFold, "no-fold", false, "plan without folding constant expressions")
	Root.PersistentFlags().BoolVarP(&rootOptions.JSON, "json", "j", false, "print results as JSON")
	Root.PersistentFlags().IntVar(&rootOptions.Parallelism, "parallelism", rootOptions.Parallelism, "number of statements planned concurrently")
}
