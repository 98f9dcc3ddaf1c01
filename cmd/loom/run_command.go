package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"loom/internal/api"
	"loom/internal/bootstrap"
	"loom/internal/logging"
	"loom/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var workers []string
	var local bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Trigger one pipeline cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			if local {
				return runLocalCycle(cmd, ctx, workers)
			}

			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			result, err := client.Run(cmd.Context(), workers)
			if err != nil {
				if errors.Is(err, api.ErrCycleInProgress) {
					fmt.Fprintln(cmd.OutOrStdout(), "A cycle is already in progress; skipped")
					return nil
				}
				return err
			}
			printCycleResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&workers, "worker", "w", nil, "Override the worker pool (repeatable)")
	cmd.Flags().BoolVar(&local, "local", false, "Run the cycle in-process instead of through the daemon")
	return cmd
}

func runLocalCycle(cmd *cobra.Command, ctx *commandContext, workers []string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	components, err := bootstrap.Build(cfg, logger)
	if err != nil {
		return err
	}
	result, err := components.Pipeline.RunCycle(cmd.Context(), pipeline.Options{WorkerPool: workers})
	if err != nil {
		return err
	}
	printLocalResult(cmd, result)
	return nil
}

func printCycleResult(cmd *cobra.Command, result api.CycleResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cycle %s finished: %s\n", result.CycleID, result.Status)
	fmt.Fprintf(out, "  fetched=%d assigned=%d processed=%d succeeded=%d failed=%d\n",
		result.RowsFetched, len(result.Assignments), result.RowsProcessed, result.Succeeded, result.Failed)
	fmt.Fprintf(out, "  recovered=%d escalated=%d invalid=%d duration=%dms\n",
		result.Recovered, result.Escalated, result.Invalid, result.DurationMS)
	printWarnings(cmd, result.Warnings)
}

func printLocalResult(cmd *cobra.Command, result pipeline.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cycle %s finished: %s\n", result.CycleID, result.Status)
	fmt.Fprintf(out, "  fetched=%d assigned=%d processed=%d succeeded=%d failed=%d\n",
		result.RowsFetched, len(result.Assignments), result.RowsProcessed, result.Succeeded, result.Failed)
	fmt.Fprintf(out, "  recovered=%d escalated=%d invalid=%d duration=%s\n",
		result.Recovered, result.Escalated, result.Invalid, result.Duration.Round(time.Millisecond))
	printWarnings(cmd, result.Warnings)
}

func printWarnings(cmd *cobra.Command, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Warnings:")
	for _, warning := range warnings {
		fmt.Fprintf(out, "  - %s\n", strings.TrimSpace(warning))
	}
}
