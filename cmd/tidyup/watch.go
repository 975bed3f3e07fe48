package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tidyup/internal/organizer"
	"tidyup/internal/watcher"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Organize a folder automatically whenever new files arrive",
		Long: "Watches the top level of <dir> and organizes it once new files have stopped\n" +
			"changing for the configured debounce and settle intervals. Partial downloads\n" +
			"(*.part, *.crdownload, ...) are left alone. Stop with Ctrl+C.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// Files still being downloaded must not be moved out from under
			// the browser.
			orch, err := a.orchestrator(organizer.WithIgnorePatterns(watcher.DefaultIgnorePatterns()))
			if err != nil {
				return err
			}

			trigger := func(ctx context.Context, dir string) {
				summary := orch.Run(ctx, dir)
				if !summary.Empty {
					a.out.Summary(summary)
				}
			}
			w, err := watcher.New(args[0], trigger, watcher.Options{
				Debounce:       a.cfg.Watch.Debounce(),
				Stable:         a.cfg.Watch.Stable(),
				IgnorePatterns: a.cfg.IgnorePatterns,
				Exclude:        []string{a.cfg.HistoryPath, a.logPath},
				Logger:         a.logger,
			})
			if err != nil {
				return err
			}

			a.serveMetrics(ctx)
			a.out.Info("Watching %s (Ctrl+C to stop)", w.Dir())
			summary, err := w.Run(ctx)
			if err != nil {
				return err
			}
			a.logger.Info("watch finished", zap.Int("runs", summary.Runs), zap.Int("events", summary.Events))
			if a.out.IsJSON() {
				return a.out.JSON(map[string]any{
					"status":      "watch_stopped",
					"directory":   w.Dir(),
					"runs":        summary.Runs,
					"events":      summary.Events,
					"ignored":     summary.Ignored,
					"duration_ms": summary.Duration.Milliseconds(),
				})
			}
			a.out.Info("Stopped watching after %s: %d run(s)", summary.Duration.Round(time.Second), summary.Runs)
			return nil
		},
	}
}
