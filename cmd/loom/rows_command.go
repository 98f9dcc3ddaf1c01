package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"loom/internal/api"
	sqlitestore "loom/internal/rowstore/sqlite"
)

func newRowsCommand(ctx *commandContext) *cobra.Command {
	var worker string
	var local bool

	cmd := &cobra.Command{
		Use:   "rows",
		Short: "List actionable pipeline rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			if local {
				return listLocalRows(cmd, ctx)
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			rows, err := client.Rows(cmd.Context(), worker)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No actionable rows")
				return nil
			}
			fmt.Fprintln(out, renderRows(rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&worker, "worker", "w", "", "Only rows assigned to this worker")
	cmd.Flags().BoolVar(&local, "local", false, "Read every row, terminal ones included, straight from the sqlite store")
	return cmd
}

func listLocalRows(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if cfg.Store.Backend != "sqlite" {
		return fmt.Errorf("rows --local requires the sqlite backend; configured backend is %q", cfg.Store.Backend)
	}

	store, err := sqlitestore.Open(cfg)
	if err != nil {
		return fmt.Errorf("open row store: %w", err)
	}
	defer store.Close()

	stored, err := store.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list rows: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(stored) == 0 {
		fmt.Fprintln(out, "No rows")
		return nil
	}

	rows := make([]api.Row, 0, len(stored))
	for _, item := range stored {
		wire := api.Row{
			ID:           item.ID,
			WorkflowType: item.WorkflowType,
			Status:       item.Status.String(),
			Worker:       item.Worker(),
			ErrorCount:   item.ErrorCount,
		}
		if item.LastAttempted != nil {
			wire.LastAttempted = item.LastAttempted.UTC().Format(time.RFC3339)
		}
		rows = append(rows, wire)
	}
	fmt.Fprintln(out, renderRows(rows))
	return nil
}

func renderRows(rows []api.Row) string {
	headers := []string{"ID", "Workflow", "Status", "Worker", "Errors", "Last Attempted"}
	body := make([][]string, 0, len(rows))
	for _, item := range rows {
		body = append(body, []string{
			strconv.FormatInt(item.ID, 10),
			item.WorkflowType,
			item.Status,
			item.Worker,
			strconv.Itoa(item.ErrorCount),
			item.LastAttempted,
		})
	}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}
	return renderTable(headers, body, aligns)
}

// stdoutIsTerminal reports whether stdout is attached to a terminal; plain
// output is used when piped.
func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
