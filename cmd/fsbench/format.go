package main

import (
	"context"
	"fmt"

	"github.com/cuemby/fsbench/pkg/types"
	"github.com/spf13/cobra"
)

var formatOnlyCmd = &cobra.Command{
	Use:   "format-only DEVICE FILESYSTEM",
	Short: "Format one device with one filesystem and stop",
	Long: `Run only the filesystem driver's format step, for diagnosing a driver
outside a full run. The device is left formatted and unmounted; use
"fsbench teardown" to clear it. The system device is always refused.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := types.ParseFilesystemKind(args[1])
		if err != nil {
			return err
		}
		ctx := context.Background()
		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		dev := a.device(args[0])
		fmt.Printf("Formatting %s as %s...\n", dev.Path, kind)
		token, err := a.lifecycle.FormatOnly(ctx, dev, kind)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Formatted (mount token: %s)\n", token)
		return nil
	},
}

var teardownCmd = &cobra.Command{
	Use:   "teardown DEVICE FILESYSTEM",
	Short: "Unmount the shared mount point and destroy a filesystem",
	Long: `Release what a killed run left behind: unmount the shared mount point
and destroy the filesystem (or zfs pool) on DEVICE. Safe to repeat.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := types.ParseFilesystemKind(args[1])
		if err != nil {
			return err
		}
		ctx := context.Background()
		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		dev := a.device(args[0])
		fmt.Printf("Tearing down %s on %s...\n", kind, dev.Path)
		if err := a.lifecycle.Release(ctx, dev, kind); err != nil {
			return err
		}
		fmt.Printf("✓ %s released\n", a.lifecycle.MountPoint())
		return nil
	},
}
