package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"loom/internal/catalog"
	sqlitestore "loom/internal/rowstore/sqlite"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var workflowType string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Seed a new row at its workflow's first step (sqlite backend only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Store.Backend != "sqlite" {
				return fmt.Errorf("add requires the sqlite backend; configured backend is %q", cfg.Store.Backend)
			}

			cat := catalog.Default()
			workflowType = strings.TrimSpace(workflowType)
			if !cat.Known(workflowType) {
				return fmt.Errorf("unknown workflow type %q (known: %s)",
					workflowType, strings.Join(cat.WorkflowTypes(), ", "))
			}
			firstStep, ok := cat.FirstStep(workflowType)
			if !ok {
				return fmt.Errorf("workflow %q has no steps", workflowType)
			}

			store, err := sqlitestore.Open(cfg)
			if err != nil {
				return fmt.Errorf("open row store: %w", err)
			}
			defer store.Close()

			created, err := store.NewRow(cmd.Context(), workflowType, firstStep)
			if err != nil {
				return fmt.Errorf("create row: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created row %d (%s) at step %q\n",
				created.ID, created.WorkflowType, firstStep)
			return nil
		},
	}

	cmd.Flags().StringVarP(&workflowType, "workflow", "t", "", "Workflow type for the new row")
	_ = cmd.MarkFlagRequired("workflow")
	return cmd
}
