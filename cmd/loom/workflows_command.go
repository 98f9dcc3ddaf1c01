package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"loom/internal/catalog"
)

func newWorkflowsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "workflows",
		Short:       "List workflow types and their step sequences",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := catalog.Default()
			headers := []string{"Workflow", "#", "Step"}
			var body [][]string
			for _, workflowType := range cat.WorkflowTypes() {
				for i, step := range cat.StepsFor(workflowType) {
					label := ""
					if i == 0 {
						label = catalog.DisplayLabel(workflowType)
					}
					body = append(body, []string{
						label,
						strconv.Itoa(i + 1),
						step,
					})
				}
			}
			aligns := []columnAlignment{alignLeft, alignRight, alignLeft}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, body, aligns))
			return nil
		},
	}
}
