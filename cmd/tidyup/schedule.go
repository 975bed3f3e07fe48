package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"tidyup/internal/schedule"
)

func newScheduleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Organize a folder at fixed times every day",
	}
	cmd.AddCommand(newScheduleSetCmd(a), newScheduleShowCmd(a), newScheduleRunCmd(a))
	return cmd
}

func newScheduleSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <dir> <HH:MM>...",
		Short: "Replace the schedule with a folder and one or more daily times",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			s := &schedule.Schedule{Folder: folder}
			for _, t := range args[1:] {
				if err := s.AddTime(t); err != nil {
					if errors.Is(err, schedule.ErrDuplicateTime) {
						a.out.Verbose("Skipping duplicate time %s", t)
						continue
					}
					return err
				}
			}
			if err := schedule.Save(a.cfg.ScheduleFile, s); err != nil {
				return err
			}
			if a.out.IsJSON() {
				return a.out.JSON(s)
			}
			a.out.Info("Scheduled %s at %d time(s) daily; start it with: tidyup schedule run", s.Folder, len(s.Times))
			return nil
		},
	}
}

func newScheduleShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the saved schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schedule.Load(a.cfg.ScheduleFile)
			if err != nil {
				return err
			}
			next := s.Next(a.now())
			if a.out.IsJSON() {
				return a.out.JSON(map[string]any{
					"folder": s.Folder,
					"times":  s.Times,
					"next":   next,
				})
			}
			a.out.Info("Folder: %s", s.Folder)
			for _, t := range s.Times {
				a.out.Info("  %s", t)
			}
			a.out.Info("Next run: %s", next.Format("2006-01-02 15:04"))
			return nil
		},
	}
}

func newScheduleRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the saved schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := schedule.Load(a.cfg.ScheduleFile)
			if err != nil {
				return err
			}
			orch, err := a.orchestrator()
			if err != nil {
				return err
			}

			trigger := func(ctx context.Context, folder string) {
				a.out.Info("Organizing %s at %s", folder, a.now().Format("2006-01-02 15:04:05"))
				a.out.Summary(orch.Run(ctx, folder))
			}
			runner := schedule.NewRunner(s, trigger, schedule.WithLogger(a.logger))

			a.serveMetrics(ctx)
			a.out.Info("Scheduler running for %s at %v (Ctrl+C to stop)", s.Folder, s.Times)
			if err := runner.Run(ctx); err != nil {
				return fmt.Errorf("scheduler stopped: %w", err)
			}
			a.out.Info("Scheduler stopped")
			return nil
		},
	}
}
