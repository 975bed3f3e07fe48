package main

import (
	"github.com/spf13/cobra"
)

func newOrganizeCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "organize <dir>",
		Short: "Move the files in a folder into category subfolders",
		Long: "Moves every file at the top level of <dir> into a subfolder named after its\n" +
			"category. Files without an extension stay where they are. The run is recorded\n" +
			"so that 'tidyup undo' can put everything back.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := a.orchestrator()
			if err != nil {
				return err
			}

			if dryRun {
				plan := orch.Status(args[0])
				a.out.Status(plan)
				if plan.Invalid != "" {
					return errReported
				}
				return nil
			}

			summary := orch.Run(cmd.Context(), args[0])
			a.out.Summary(summary)
			if summary.HasErrors() || summary.Cancelled {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Show where files would go without moving them")
	return cmd
}
