package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tidyup/internal/scanner"
)

func newScanCmd(a *app) *cobra.Command {
	var (
		exportPath string
		top        int
	)

	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Report what a directory tree contains",
		Long: "Walks <dir> recursively and reports totals, the breakdown by extension, the\n" +
			"largest, oldest and newest files, empty folders, hidden files and groups of\n" +
			"same-size files that may be duplicates. Nothing is modified.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if top < 0 {
				return fmt.Errorf("--top must be >= 0")
			}
			orch, err := a.orchestrator()
			if err != nil {
				return err
			}

			report, err := orch.Scan(cmd.Context(), args[0], a.out.ScanProgress())
			a.out.EndProgress()
			if err != nil {
				return err
			}

			a.out.Report(report, top)
			if exportPath != "" {
				if err := scanner.Export(report, exportPath); err != nil {
					return err
				}
				a.out.Info("Exported scan results to %s", exportPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&exportPath, "export", "", "Also write the report as JSON to this file")
	cmd.Flags().IntVar(&top, "top", scanner.RankCap, "Entries to show per ranking")
	return cmd
}

func newReportCmd(a *app) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "report [file]",
		Short: "Show a scan report exported with 'scan --export'",
		Long:  "Renders an exported scan report. The file defaults to " + scanner.DefaultExportName + ".",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := scanner.DefaultExportName
			if len(args) == 1 {
				path = args[0]
			}
			report, err := scanner.Load(path)
			if err != nil {
				return err
			}
			a.out.Report(report, top)
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", scanner.RankCap, "Entries to show per ranking")
	return cmd
}
