package registry

import (
	"os"
	"path/filepath"

	"github.com/cuemby/fsbench/pkg/config"
	"github.com/cuemby/fsbench/pkg/log"
	"github.com/cuemby/fsbench/pkg/types"
	"github.com/rs/zerolog"
)

// Registry is the in-memory device catalogue, built once per process
type Registry struct {
	devices      []types.Device
	systemDevice string
	exists       func(path string) bool
	logger       zerolog.Logger
}

// Option customizes a Registry
type Option func(*Registry)

// WithExistsFunc replaces the block device existence probe
func WithExistsFunc(fn func(path string) bool) Option {
	return func(r *Registry) { r.exists = fn }
}

// New builds a Registry from a loaded configuration. Catalogue warnings are
// logged here, once.
func New(cfg *config.Config, opts ...Option) *Registry {
	r := &Registry{
		devices:      cfg.Devices.Devices,
		systemDevice: filepath.Clean(cfg.SystemDevice),
		exists:       IsBlockDevice,
		logger:       log.WithComponent("registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, w := range cfg.Devices.Warnings {
		r.logger.Warn().Msg("Skipping catalogue entry: " + w)
	}
	return r
}

// SystemDevice returns the excluded device path
func (r *Registry) SystemDevice() string {
	return r.systemDevice
}

// ListDevices returns the devices of a class in catalogue order, leaving out
// the system device and paths that are not block devices right now. An
// empty result is normal.
func (r *Registry) ListDevices(class types.DeviceClass) []types.Device {
	var out []types.Device
	for _, d := range r.devices {
		if d.Class != class {
			continue
		}
		if r.IsSystemDevice(d.Path) {
			r.logger.Warn().Str("device", d.Path).Msg("Catalogue lists the system device, excluding it")
			continue
		}
		if !r.exists(d.Path) {
			r.logger.Warn().Str("device", d.Path).Msg("Device not present, excluding it")
			continue
		}
		out = append(out, d)
	}
	return out
}

// Lookup finds a catalogue entry by path. Unknown paths still resolve to a
// Device with no class so single-pair runs can target them.
func (r *Registry) Lookup(path string) (types.Device, bool) {
	clean := filepath.Clean(path)
	for _, d := range r.devices {
		if filepath.Clean(d.Path) == clean {
			return d, true
		}
	}
	return types.Device{Path: clean}, false
}

// ResolveName returns the configured label or the base name of the path
func (r *Registry) ResolveName(path string) string {
	d, _ := r.Lookup(path)
	return d.Name()
}

// IsSystemDevice reports whether path is the system device, a partition of
// it, or a symlink resolving to either.
func (r *Registry) IsSystemDevice(path string) bool {
	if path == "" {
		return false
	}
	candidate := resolve(path)
	system := resolve(r.systemDevice)
	return candidate == system || types.IsPartitionOf(candidate, system)
}

func resolve(path string) string {
	clean := filepath.Clean(path)
	if real, err := filepath.EvalSymlinks(clean); err == nil {
		return real
	}
	return clean
}

// IsBlockDevice reports whether path currently exists as a block device
func IsBlockDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeDevice != 0 && info.Mode()&os.ModeCharDevice == 0
}
