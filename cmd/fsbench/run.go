package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/fsbench/pkg/matrix"
	"github.com/cuemby/fsbench/pkg/types"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark matrix or a single device/filesystem pair",
	Long: `Run every (device, filesystem) pair of the matrix: device classes hdd,
ssd, nvme in that order, devices in catalogue order, filesystems in
configured order. Each pair is formatted, mounted, benchmarked and torn
down before the next one starts. A failed pair never stops the matrix.

With --device and --fs only that pair runs, with the same guarantees.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		devicePath, _ := cmd.Flags().GetString("device")
		fsName, _ := cmd.Flags().GetString("fs")
		resume, _ := cmd.Flags().GetBool("resume")
		skipBaseline, _ := cmd.Flags().GetBool("skip-baseline")

		if (devicePath == "") != (fsName == "") {
			return fmt.Errorf("--device and --fs must be given together")
		}
		var kind types.FilesystemKind
		if fsName != "" {
			k, err := types.ParseFilesystemKind(fsName)
			if err != nil {
				return err
			}
			kind = k
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("Results: %s\n", a.settings.ResultsDir)
		if a.settings.Constrained {
			fmt.Println("Constrained mode: shortened baseline, iterations and runtimes")
		}
		printPreflight(a.adapter.Preflight(ctx))

		done := make(chan struct{})
		go printProgress(a.broker.Subscribe(), done)
		finish := func() {
			a.broker.Stop()
			<-done
		}

		if devicePath != "" {
			run, err := a.matrix.RunPair(ctx, a.device(devicePath), kind)
			finish()
			printRunStatus(run, err)
			return nil
		}

		summary, err := a.matrix.RunAll(ctx, matrix.Options{Resume: resume, SkipBaseline: skipBaseline})
		finish()
		printMatrixSummary(summary)
		if errors.Is(err, context.Canceled) {
			fmt.Println("Interrupted; re-run with --resume to continue")
			return nil
		}
		return err
	},
}

func init() {
	runCmd.Flags().String("device", "", "Run only this device (requires --fs)")
	runCmd.Flags().String("fs", "", "Run only this filesystem (requires --device)")
	runCmd.Flags().Bool("resume", false, "Skip pairs whose last run completed")
	runCmd.Flags().Bool("constrained", false, "Use the shortened constrained-mode settings")
	runCmd.Flags().Bool("skip-baseline", false, "Skip the idle baseline before the matrix")
}
