package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cuemby/fsbench/pkg/command"
	"github.com/cuemby/fsbench/pkg/config"
	"github.com/cuemby/fsbench/pkg/types"
)

// lsblk JSON structures
type lsblkOutput struct {
	BlockDevices []lsblkDevice `json:"blockdevices"`
}

type lsblkDevice struct {
	Name       string        `json:"name"`
	Type       string        `json:"type"`
	Model      *string       `json:"model"`
	Tran       *string       `json:"tran"`
	Rota       *bool         `json:"rota"`
	MountPoint *string       `json:"mountpoint"`
	Children   []lsblkDevice `json:"children"`
}

// Detection is the result of probing the live block device list
type Detection struct {
	Devices      []types.Device
	SystemDevice string
}

// Detect lists whole disks with lsblk, classifies them and picks the disk
// holding the root filesystem as the system device.
func Detect(ctx context.Context, runner command.Runner) (*Detection, error) {
	out, err := runner.Run(ctx, "lsblk", "-J", "-o", "NAME,TYPE,MODEL,TRAN,ROTA,MOUNTPOINT")
	if err != nil {
		return nil, fmt.Errorf("failed to list block devices: %w", err)
	}
	return parseLsblk(out)
}

func parseLsblk(data []byte) (*Detection, error) {
	var lsblk lsblkOutput
	if err := json.Unmarshal(data, &lsblk); err != nil {
		return nil, fmt.Errorf("failed to decode lsblk output: %w", err)
	}

	det := &Detection{}
	for _, dev := range lsblk.BlockDevices {
		if dev.Type != "disk" {
			continue
		}
		path := "/dev/" + dev.Name
		if holdsRoot(dev) {
			det.SystemDevice = path
		}
		det.Devices = append(det.Devices, types.Device{
			Path:  path,
			Class: classify(dev),
			Label: label(dev),
		})
	}
	return det, nil
}

// Config renders the detection as a configuration document
func (d *Detection) Config() *config.Config {
	return &config.Config{
		SystemDevice: d.SystemDevice,
		Devices:      config.Catalogue{Devices: d.Devices},
	}
}

func classify(dev lsblkDevice) types.DeviceClass {
	tran := ""
	if dev.Tran != nil {
		tran = strings.ToLower(*dev.Tran)
	}
	if tran == "nvme" || strings.HasPrefix(dev.Name, "nvme") {
		return types.DeviceClassNVMe
	}
	if dev.Rota == nil || *dev.Rota {
		return types.DeviceClassHDD
	}
	return types.DeviceClassSSD
}

func label(dev lsblkDevice) string {
	model := ""
	if dev.Model != nil {
		model = strings.TrimSpace(*dev.Model)
	}
	if model == "" {
		return dev.Name
	}
	model = strings.ToLower(strings.Join(strings.Fields(model), "-"))
	model = strings.NewReplacer("/", "-", "\\", "-").Replace(model)
	return model + "-" + dev.Name
}

func holdsRoot(dev lsblkDevice) bool {
	if dev.MountPoint != nil && *dev.MountPoint == "/" {
		return true
	}
	for _, child := range dev.Children {
		if holdsRoot(child) {
			return true
		}
	}
	return false
}
