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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/druidplan/druidplan/go/sql/planner"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

var (
	// Plan plans each statement and prints a summary of its native query.
	Plan = &cobra.Command{
		Use:   "plan <sql> [<sql> ...]",
		Short: "Plans SQL statements and summarizes the native queries.",
		Long: `Plans each SQL statement with its own planner, concurrently, and
prints the query type, data source, and output columns of each native query.`,
		Args: cobra.MinimumNArgs(1),
		RunE: commandPlan,
	}

	// Explain prints the physical plan and native query of one statement.
	Explain = &cobra.Command{
		Use:   "explain <sql>",
		Short: "Prints the physical plan and native query of a SQL statement.",
		Args:  cobra.ExactArgs(1),
		RunE:  commandExplain,
	}
)

// planOutcome is one row of plan output.
type planOutcome struct {
	SQL        string          `json:"sql"`
	QueryType  string          `json:"queryType,omitempty"`
	DataSource string          `json:"dataSource,omitempty"`
	Columns    []string        `json:"columns,omitempty"`
	Native     json.RawMessage `json:"native,omitempty"`
	Error      string          `json:"error,omitempty"`
	Code       string          `json:"code,omitempty"`
}

// planAll plans every statement with a fresh planner and returns the
// outcomes in statement order. Planning errors are reported per
// statement; only a failure to create a planner aborts the batch.
func planAll(ctx context.Context, f *planner.Factory, statements []string, parallelism int) ([]planOutcome, error) {
	out := make([]planOutcome, len(statements))
	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, sql := range statements {
		i, sql := i, sql
		g.Go(func() error {
			p, err := f.CreatePlanner(queryContext())
			if err != nil {
				return err
			}
			out[i] = outcome(ctx, p, sql)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func outcome(ctx context.Context, p *planner.Planner, sql string) planOutcome {
	o := planOutcome{SQL: sql}
	res, err := p.Plan(ctx, sql)
	if err != nil {
		o.Error = err.Error()
		o.Code = sqlerrors.Code(err).String()
		return o
	}
	o.QueryType = res.Query.Native.QueryType()
	o.DataSource = res.Query.Native.Common().DataSource
	o.Columns = res.Fields.Names()
	if b, err := json.Marshal(res.Query.Native); err == nil {
		o.Native = b
	}
	return o
}

func writeOutcomeTable(w io.Writer, outcomes []planOutcome) error {
	table := tablewriter.NewWriter(w)
	table.Header("SQL", "Query Type", "Data Source", "Columns", "Error")
	for _, o := range outcomes {
		if err := table.Append([]string{o.SQL, o.QueryType, o.DataSource, strings.Join(o.Columns, ", "), o.Error}); err != nil {
			return err
		}
	}
	return table.Render()
}

func commandPlan(cmd *cobra.Command, args []string) error {
	f, _, err := newFactory()
	if err != nil {
		return err
	}
	outcomes, err := planAll(commandCtx, f, args, rootOptions.Parallelism)
	if err != nil {
		return err
	}

	if rootOptions.JSON {
		data, err := json.MarshalIndent(outcomes, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
	} else if err := writeOutcomeTable(cmd.OutOrStdout(), outcomes); err != nil {
		return err
	}

	for _, o := range outcomes {
		if o.Error != "" {
			return fmt.Errorf("some statements could not be planned")
		}
	}
	return nil
}

func commandExplain(cmd *cobra.Command, args []string) error {
	f, _, err := newFactory()
	if err != nil {
		return err
	}
	p, err := f.CreatePlanner(queryContext())
	if err != nil {
		return err
	}
	out, err := p.Explain(commandCtx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func init() {
	Root.AddCommand(Plan)
	Root.AddCommand(Explain)
}
