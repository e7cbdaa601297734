package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cuemby/fsbench/pkg/command"
	"github.com/cuemby/fsbench/pkg/registry"
	"github.com/spf13/cobra"
)

var detectDevicesCmd = &cobra.Command{
	Use:   "detect-devices",
	Short: "Build a device catalogue from the live block device list",
	Long: `Probe block devices with lsblk, classify them as hdd, ssd or nvme and
print a configuration document with the disk holding / marked as the
system device. Review the result before using it: every other disk in it
will be formatted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		det, err := registry.Detect(ctx, command.NewExec(0))
		if err != nil {
			return err
		}
		if det.SystemDevice == "" {
			fmt.Fprintln(os.Stderr, "Warning: no disk holds /, set system_device by hand")
		}

		data, err := det.Config().Marshal()
		if err != nil {
			return err
		}
		if output == "" {
			fmt.Print(string(data))
			return nil
		}
		if err := os.WriteFile(output, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", output, err)
		}
		fmt.Printf("✓ Catalogue with %d device(s) written to %s\n", len(det.Devices), output)
		return nil
	},
}

func init() {
	detectDevicesCmd.Flags().StringP("output", "o", "", "Write the catalogue to this file instead of stdout")
}
