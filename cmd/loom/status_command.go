package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			state := "stopped"
			if status.Running {
				state = "running"
			}
			fmt.Fprintf(out, "Daemon: %s (pid %d)\n", state, status.PID)
			if status.Schedule != "" {
				fmt.Fprintf(out, "Schedule: %s\n", status.Schedule)
			} else {
				fmt.Fprintln(out, "Schedule: manual trigger only")
			}
			fmt.Fprintf(out, "Lock file: %s\n", status.LockFilePath)

			if status.LastCycle == nil {
				fmt.Fprintln(out, "Last cycle: none")
				return nil
			}
			last := *status.LastCycle
			fmt.Fprintf(out, "Last cycle: %s (%s)\n", last.CycleID, last.Status)
			fmt.Fprintf(out, "  fetched=%d processed=%d succeeded=%d failed=%d recovered=%d escalated=%d\n",
				last.RowsFetched, last.RowsProcessed, last.Succeeded, last.Failed, last.Recovered, last.Escalated)
			printWarnings(cmd, last.Warnings)
			return nil
		},
	}
}
