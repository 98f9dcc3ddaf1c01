package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	sqlitestore "loom/internal/rowstore/sqlite"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show row counts per lifecycle phase (sqlite backend only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Store.Backend != "sqlite" {
				return fmt.Errorf("health requires the sqlite backend; configured backend is %q", cfg.Store.Backend)
			}

			store, err := sqlitestore.Open(cfg)
			if err != nil {
				return fmt.Errorf("open row store: %w", err)
			}
			defer store.Close()

			summary, err := store.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("read row health: %w", err)
			}

			headers := []string{"Phase", "Rows"}
			body := [][]string{
				{"Idle", strconv.Itoa(summary.Idle)},
				{"In flight", strconv.Itoa(summary.InFlight)},
				{"Completed", strconv.Itoa(summary.Completed)},
				{"Supervisor", strconv.Itoa(summary.Supervisor)},
				{"Total", strconv.Itoa(summary.Total)},
			}
			aligns := []columnAlignment{alignLeft, alignRight}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, body, aligns))
			return nil
		},
	}
}
