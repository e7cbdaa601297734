package config

import (
	"time"

	"github.com/cuemby/fsbench/pkg/types"
)

// Monitoring strategy names, in default fallback order
const (
	StrategyCompose  = "compose"
	StrategyExporter = "exporter"
	StrategyBuiltin  = "builtin"
)

// DefaultStrategies is the fallback chain used when none is configured
var DefaultStrategies = []string{StrategyCompose, StrategyExporter, StrategyBuiltin}

// Settings is the resolved, immutable view of a Config with every default
// and the constrained-mode reductions applied. It is built once and passed
// to constructors; nothing reads process-wide mode flags.
type Settings struct {
	Constrained  bool
	SystemDevice string
	MountPoint   string
	ResultsDir   string
	StateDir     string
	Baseline     time.Duration
	Filesystems  []types.FilesystemKind

	IO         IOSettings
	Container  ContainerSettings
	ML         MLSettings
	Monitoring MonitoringSettings
	OverlayDir string
	Archive    ArchiveConfig
}

// IOSettings drives the I/O suite
type IOSettings struct {
	FioBinary     string
	MdtestBinary  string
	Runtime       time.Duration
	Size          string
	IODepth       int
	MetadataItems int
}

// ContainerSettings drives the container-ops suite
type ContainerSettings struct {
	Socket       string
	Namespace    string
	Image        string
	BuildCommand string
	BuildContext string
	BuildTag     string
	Iterations   int
	Args         []string
}

// MLSettings drives the ML-checkpoint suite
type MLSettings struct {
	Command string
	Timeout time.Duration
}

// MonitoringSettings drives the monitoring controller
type MonitoringSettings struct {
	Strategies     []string
	ComposeCommand string
	ComposeFile    string
	PrometheusURL  string
	ExporterBinary string
	ExporterListen string
	BuiltinListen  string
	ReadyTimeout   time.Duration
}

// Settings resolves defaults. constrained forces constrained mode on even
// if the document leaves it off.
func (c *Config) Settings(constrained bool) Settings {
	constrained = constrained || c.Constrained

	s := Settings{
		Constrained:  constrained,
		SystemDevice: c.SystemDevice,
		MountPoint:   orString(c.MountPoint, DefaultMountPoint),
		ResultsDir:   orString(c.ResultsDir, "./results"),
		StateDir:     orString(c.StateDir, "/var/lib/fsbench"),
		OverlayDir:   orString(c.Overlay.BaseDir, "/var/tmp/fsbench-overlay"),
		Archive:      c.Archive,
	}

	s.Filesystems = types.MatrixFilesystems
	if len(c.Filesystems) > 0 {
		s.Filesystems = nil
		for _, name := range c.Filesystems {
			// Validate already rejected unknown names.
			kind, _ := types.ParseFilesystemKind(name)
			s.Filesystems = append(s.Filesystems, kind)
		}
	}

	io := c.Workloads.IO
	s.IO = IOSettings{
		FioBinary:     orString(io.FioBinary, "fio"),
		MdtestBinary:  orString(io.MdtestBinary, "mdtest"),
		Runtime:       orDuration(io.Runtime, 60*time.Second),
		Size:          orString(io.Size, "4G"),
		IODepth:       orInt(io.IODepth, 32),
		MetadataItems: orInt(io.MetadataItems, 10000),
	}

	ct := c.Workloads.Container
	s.Container = ContainerSettings{
		Socket:       orString(ct.Socket, "/run/containerd/containerd.sock"),
		Namespace:    orString(ct.Namespace, "fsbench"),
		Image:        orString(ct.Image, "docker.io/library/alpine:3.19"),
		BuildCommand: orString(ct.BuildCommand, "nerdctl build -t {tag} {context}"),
		BuildContext: orString(ct.BuildContext, "./workloads/container"),
		BuildTag:     orString(ct.BuildTag, "fsbench-build:latest"),
		Iterations:   orInt(ct.Iterations, 10),
		Args:         ct.Args,
	}
	if len(s.Container.Args) == 0 {
		s.Container.Args = []string{"/bin/true"}
	}

	ml := c.Workloads.ML
	s.ML = MLSettings{
		Command: orString(ml.Command, "python3 ./workloads/ml/checkpoint.py --target {target} --output {output}"),
		Timeout: orDuration(ml.Timeout, 30*time.Minute),
	}

	mon := c.Monitoring
	s.Monitoring = MonitoringSettings{
		Strategies:     mon.Strategies,
		ComposeCommand: orString(mon.ComposeCommand, "docker compose"),
		ComposeFile:    orString(mon.ComposeFile, "./monitoring/docker-compose.yml"),
		PrometheusURL:  orString(mon.PrometheusURL, "http://127.0.0.1:9090/-/ready"),
		ExporterBinary: orString(mon.ExporterBinary, "node_exporter"),
		ExporterListen: orString(mon.ExporterListen, "127.0.0.1:9100"),
		BuiltinListen:  orString(mon.BuiltinListen, "127.0.0.1:9101"),
		ReadyTimeout:   orDuration(mon.ReadyTimeout, 60*time.Second),
	}
	if len(s.Monitoring.Strategies) == 0 {
		s.Monitoring.Strategies = DefaultStrategies
	}

	s.Baseline = orDuration(c.Baseline, 5*time.Minute)

	if constrained {
		s.Baseline = minDuration(s.Baseline, 30*time.Second)
		s.IO.Runtime = minDuration(s.IO.Runtime, 10*time.Second)
		s.IO.Size = "256M"
		s.IO.MetadataItems = min(s.IO.MetadataItems, 1000)
		s.Container.Iterations = orInt(ct.ConstrainedIterations, 5)
		if ml.ConstrainedArgs != "" {
			s.ML.Command += " " + ml.ConstrainedArgs
		}
	}

	return s
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orDuration(v, def time.Duration) time.Duration {
	if v == 0 {
		return def
	}
	return v
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
