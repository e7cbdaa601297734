package main

import (
	"fmt"
	"os"

	"github.com/cuemby/fsbench/pkg/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// closeLog flushes the --log-file, if one was opened
var closeLog = func() error { return nil }

func main() {
	err := rootCmd.Execute()
	_ = closeLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fsbench",
	Short: "fsbench - filesystem benchmark matrix for raw block devices",
	Long: `fsbench formats each catalogued block device with each supported
filesystem in turn, runs I/O, container and ML checkpoint workloads against
it, tears it down again and scores the filesystems against each other.

Every destructive step refuses the configured system device.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		jsonOut, _ := cmd.Flags().GetBool("log-json")
		file, _ := cmd.Flags().GetString("log-file")
		closer, err := log.Init(log.Config{
			Level:      log.ParseLevel(level),
			JSONOutput: jsonOut,
			File:       file,
		})
		closeLog = closer
		return err
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"fsbench version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Path to the configuration file (default /etc/fsbench/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("log-file", "", "Also append JSON logs to this file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(detectDevicesCmd)
	rootCmd.AddCommand(formatOnlyCmd)
	rootCmd.AddCommand(teardownCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(archiveCmd)
}
