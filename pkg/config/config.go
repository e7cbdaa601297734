package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/fsbench/pkg/types"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is where the CLI looks for a configuration file
	DefaultPath = "/etc/fsbench/config.yaml"

	// DefaultMountPoint is the single shared mount point every Run leases
	DefaultMountPoint = "/mnt/testdisk"
)

// Config is the on-disk configuration document
type Config struct {
	SystemDevice string        `yaml:"system_device"`
	MountPoint   string        `yaml:"mount_point,omitempty"`
	ResultsDir   string        `yaml:"results_dir,omitempty"`
	StateDir     string        `yaml:"state_dir,omitempty"`
	Constrained  bool          `yaml:"constrained,omitempty"`
	Baseline     time.Duration `yaml:"baseline,omitempty"`
	Filesystems  []string      `yaml:"filesystems,omitempty"`
	Devices      Catalogue     `yaml:"devices"`

	Monitoring MonitoringConfig `yaml:"monitoring,omitempty"`
	Workloads  WorkloadConfig   `yaml:"workloads,omitempty"`
	Overlay    OverlayConfig    `yaml:"overlay,omitempty"`
	Archive    ArchiveConfig    `yaml:"archive,omitempty"`
}

// MonitoringConfig configures the telemetry fallback chain
type MonitoringConfig struct {
	Strategies     []string      `yaml:"strategies,omitempty"`
	ComposeCommand string        `yaml:"compose_command,omitempty"`
	ComposeFile    string        `yaml:"compose_file,omitempty"`
	PrometheusURL  string        `yaml:"prometheus_url,omitempty"`
	ExporterBinary string        `yaml:"exporter_binary,omitempty"`
	ExporterListen string        `yaml:"exporter_listen,omitempty"`
	BuiltinListen  string        `yaml:"builtin_listen,omitempty"`
	ReadyTimeout   time.Duration `yaml:"ready_timeout,omitempty"`
}

// WorkloadConfig configures the three workload collaborators
type WorkloadConfig struct {
	IO        IOConfig        `yaml:"io,omitempty"`
	Container ContainerConfig `yaml:"container,omitempty"`
	ML        MLConfig        `yaml:"ml,omitempty"`
}

// IOConfig configures fio and the metadata benchmark
type IOConfig struct {
	FioBinary     string        `yaml:"fio_binary,omitempty"`
	MdtestBinary  string        `yaml:"mdtest_binary,omitempty"`
	Runtime       time.Duration `yaml:"runtime,omitempty"`
	Size          string        `yaml:"size,omitempty"`
	IODepth       int           `yaml:"iodepth,omitempty"`
	MetadataItems int           `yaml:"metadata_items,omitempty"`
}

// ContainerConfig configures the container-ops suite
type ContainerConfig struct {
	Socket                string   `yaml:"socket,omitempty"`
	Namespace             string   `yaml:"namespace,omitempty"`
	Image                 string   `yaml:"image,omitempty"`
	BuildCommand          string   `yaml:"build_command,omitempty"`
	BuildContext          string   `yaml:"build_context,omitempty"`
	BuildTag              string   `yaml:"build_tag,omitempty"`
	Iterations            int      `yaml:"iterations,omitempty"`
	ConstrainedIterations int      `yaml:"constrained_iterations,omitempty"`
	Args                  []string `yaml:"args,omitempty"`
}

// MLConfig configures the checkpoint save/load collaborator
type MLConfig struct {
	Command         string        `yaml:"command,omitempty"`
	ConstrainedArgs string        `yaml:"constrained_args,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty"`
}

// OverlayConfig configures the overlay control filesystem
type OverlayConfig struct {
	BaseDir string `yaml:"base_dir,omitempty"`
}

// ArchiveConfig configures optional upload of run directories
type ArchiveConfig struct {
	Bucket          string `yaml:"bucket,omitempty"`
	Prefix          string `yaml:"prefix,omitempty"`
	Region          string `yaml:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	AfterRun        bool   `yaml:"after_run,omitempty"`
}

// Load reads and validates a configuration file. Every failure is a
// *types.ConfigurationError.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.ConfigurationError{Source: path, Err: err}
	}
	cfg, err := Parse(data)
	if err != nil {
		var cfgErr *types.ConfigurationError
		if errors.As(err, &cfgErr) {
			cfgErr.Source = path
			return nil, cfgErr
		}
		return nil, &types.ConfigurationError{Source: path, Err: err}
	}
	return cfg, nil
}

// Parse decodes and validates a configuration document
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &types.ConfigurationError{Source: "document", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &types.ConfigurationError{Source: "document", Err: err}
	}
	return &cfg, nil
}

// Validate checks document-level invariants. Malformed device entries were
// already dropped by the catalogue decoder.
func (c *Config) Validate() error {
	if c.SystemDevice == "" {
		return fmt.Errorf("system_device is required")
	}
	if !filepath.IsAbs(c.SystemDevice) {
		return fmt.Errorf("system_device %q must be an absolute path", c.SystemDevice)
	}
	if c.MountPoint != "" && !filepath.IsAbs(c.MountPoint) {
		return fmt.Errorf("mount_point %q must be an absolute path", c.MountPoint)
	}
	for _, fs := range c.Filesystems {
		if _, err := types.ParseFilesystemKind(fs); err != nil {
			return err
		}
	}
	for _, s := range c.Monitoring.Strategies {
		if !knownStrategy(s) {
			return fmt.Errorf("unknown monitoring strategy %q", s)
		}
	}
	if c.Workloads.Container.Iterations < 0 || c.Workloads.Container.ConstrainedIterations < 0 {
		return fmt.Errorf("container iterations must not be negative")
	}
	return nil
}

// Marshal renders the configuration as YAML, keeping catalogue order
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func knownStrategy(s string) bool {
	for _, k := range DefaultStrategies {
		if s == k {
			return true
		}
	}
	return false
}
