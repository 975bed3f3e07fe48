package main

import (
	"errors"

	"github.com/spf13/cobra"

	"tidyup/internal/history"
)

func newUndoCmd(a *app) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Put back the files moved by the most recent run",
		Long: "Reverses the most recent organize run that has not been undone yet, or the run\n" +
			"named by --run. Files that cannot be restored are reported; the run is still\n" +
			"marked undone and those files are not retried.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := a.orchestrator()
			if err != nil {
				return err
			}

			result, err := orch.Undo(history.RunID(runID))
			switch {
			case errors.Is(err, history.ErrNothingToUndo) && runID == "":
				if a.out.IsJSON() {
					return a.out.JSON(map[string]string{"status": "nothing_to_undo"})
				}
				a.out.Info("Nothing to undo")
				return nil
			case err != nil:
				return err
			}

			a.out.UndoResult(result)
			if result.Partial() {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Undo this run id instead of the most recent one")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List recorded organize runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := a.orchestrator()
			if err != nil {
				return err
			}
			runs, err := orch.History()
			if err != nil {
				return err
			}
			a.out.History(runs)
			return nil
		},
	}
}
