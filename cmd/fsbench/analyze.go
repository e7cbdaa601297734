package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/fsbench/pkg/analysis"
	"github.com/cuemby/fsbench/pkg/archive"
	"github.com/cuemby/fsbench/pkg/parser"
	"github.com/cuemby/fsbench/pkg/report"
	"github.com/cuemby/fsbench/pkg/storage"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Parse run directories and score the filesystems",
	Long: `Parse every run directory under the results directory, write the
per-family record tables and the score tables as CSV, and print the
summary. Scores are min-max normalized per metric across filesystems;
higher is always better.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		results, _ := cmd.Flags().GetString("results")
		out, _ := cmd.Flags().GetString("out")
		detail, _ := cmd.Flags().GetBool("detail")

		if results == "" {
			_, settings, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			results = settings.ResultsDir
		}
		if out == "" {
			out = results
		}

		runs, records, err := parser.ParseResults(results)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Printf("No records found under %s\n", results)
			return nil
		}

		res := analysis.Analyze(records)
		written, err := report.Write(out, records, res)
		if err != nil {
			return err
		}

		fmt.Printf("Parsed %d record(s) from %d run(s)\n\n", len(records), len(runs))
		report.PrintSummary(os.Stdout, "Filesystems", res.FilesystemSummary)
		fmt.Println()
		report.PrintSummary(os.Stdout, "Devices", res.DeviceSummary)
		if detail {
			fmt.Println()
			report.PrintScores(os.Stdout, res.Filesystems)
		}
		fmt.Println()
		for _, f := range written {
			fmt.Printf("  wrote %s\n", f)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List runs recorded in the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, settings, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := storage.NewBoltStore(settings.StateDir)
		if err != nil {
			return fmt.Errorf("failed to open run ledger: %w", err)
		}
		defer store.Close()

		runs, err := store.ListRuns()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded")
			return nil
		}
		report.PrintRuns(os.Stdout, runs, time.Now())
		return nil
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive [RUN_DIR...]",
	Short: "Upload run directories to the configured bucket",
	Long: `Upload run directories to the S3-compatible bucket configured under
archive:. Without arguments every run directory under the results
directory is uploaded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, settings, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := context.Background()
		arch, err := archive.New(ctx, settings.Archive)
		if err != nil {
			return err
		}

		dirs := args
		if len(dirs) == 0 {
			runs, _, err := parser.ParseResults(settings.ResultsDir)
			if err != nil {
				return err
			}
			for _, r := range runs {
				dirs = append(dirs, r.Dir)
			}
		}

		for _, dir := range dirs {
			n, err := arch.UploadDir(ctx, dir)
			if err != nil {
				return err
			}
			fmt.Printf("✓ %s (%d object(s))\n", filepath.Base(dir), n)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("results", "", "Results directory (default from configuration)")
	analyzeCmd.Flags().String("out", "", "Directory for the CSV tables (default: the results directory)")
	analyzeCmd.Flags().Bool("detail", false, "Also print the per-metric score table")
}
