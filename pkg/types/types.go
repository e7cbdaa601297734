package types

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeviceClass is the storage medium of a device
type DeviceClass string

const (
	DeviceClassHDD  DeviceClass = "hdd"
	DeviceClassSSD  DeviceClass = "ssd"
	DeviceClassNVMe DeviceClass = "nvme"
)

// DeviceClasses is the fixed order in which the matrix visits classes.
var DeviceClasses = []DeviceClass{DeviceClassHDD, DeviceClassSSD, DeviceClassNVMe}

// ParseDeviceClass accepts the canonical names plus the long forms used in
// older catalogues.
func ParseDeviceClass(s string) (DeviceClass, error) {
	switch s {
	case "hdd", "rotational", "rotational-disk":
		return DeviceClassHDD, nil
	case "ssd", "solid-state":
		return DeviceClassSSD, nil
	case "nvme":
		return DeviceClassNVMe, nil
	}
	return "", fmt.Errorf("unknown device class %q", s)
}

// Device is a block device from the catalogue. Devices never change during
// a run; only their mount state does.
type Device struct {
	Path  string
	Class DeviceClass
	Label string
}

// Name returns the label, or the base name of the path if none is set.
func (d Device) Name() string {
	if d.Label != "" {
		return d.Label
	}
	return filepath.Base(d.Path)
}

// FilesystemKind is one of the supported filesystems
type FilesystemKind string

const (
	FilesystemExt4    FilesystemKind = "ext4"
	FilesystemXFS     FilesystemKind = "xfs"
	FilesystemBtrfs   FilesystemKind = "btrfs"
	FilesystemZFS     FilesystemKind = "zfs"
	FilesystemOverlay FilesystemKind = "overlay"
)

// MatrixFilesystems is the fixed order in which the matrix visits
// filesystems. The overlay control kind is only run when asked for.
var MatrixFilesystems = []FilesystemKind{FilesystemExt4, FilesystemXFS, FilesystemBtrfs, FilesystemZFS}

// ParseFilesystemKind validates a filesystem name
func ParseFilesystemKind(s string) (FilesystemKind, error) {
	switch k := FilesystemKind(s); k {
	case FilesystemExt4, FilesystemXFS, FilesystemBtrfs, FilesystemZFS, FilesystemOverlay:
		return k, nil
	case "overlay-control":
		return FilesystemOverlay, nil
	}
	return "", fmt.Errorf("unknown filesystem %q", s)
}

// RunState is a state of the per-run lifecycle
type RunState string

const (
	RunStatePending    RunState = "pending"
	RunStateFormatted  RunState = "formatted"
	RunStateMounted    RunState = "mounted"
	RunStateMonitoring RunState = "monitoring"
	RunStateExecuting  RunState = "executing"
	RunStateCollected  RunState = "collected"
	RunStateUnmounted  RunState = "unmounted"
	RunStateDestroyed  RunState = "destroyed"
	RunStateFailed     RunState = "failed"
)

// Terminal reports whether no further transition is allowed
func (s RunState) Terminal() bool {
	return s == RunStateDestroyed || s == RunStateFailed
}

// Transition records one state change of a Run
type Transition struct {
	From RunState  `json:"from"`
	To   RunState  `json:"to"`
	At   time.Time `json:"at"`
	Note string    `json:"note,omitempty"`
}

// SuiteFamily names a workload family
type SuiteFamily string

const (
	SuiteIO        SuiteFamily = "io"
	SuiteContainer SuiteFamily = "container"
	SuiteML        SuiteFamily = "ml"
)

// SuiteFamilies lists the families in execution order
var SuiteFamilies = []SuiteFamily{SuiteIO, SuiteContainer, SuiteML}

// SuiteResult is the outcome of one workload family within a Run
type SuiteResult struct {
	Family    SuiteFamily   `json:"family"`
	OK        bool          `json:"ok"`
	Artifacts []Artifact    `json:"artifacts,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Artifact is a raw output file written by a workload collaborator
type Artifact struct {
	Family  SuiteFamily `json:"family"`
	Variant string      `json:"variant"`
	File    string      `json:"file"` // relative to the run directory
	Partial bool        `json:"partial,omitempty"`
}

// ArtifactFileName is the artifact naming contract: <family>_<variant>.txt
func ArtifactFileName(family SuiteFamily, variant string) string {
	return fmt.Sprintf("%s_%s.txt", family, variant)
}

// RunTimestampLayout is used in run directory names
const RunTimestampLayout = "20060102_150405"

// Run is one (device, filesystem) trial
type Run struct {
	ID                 string         `json:"id"`
	Device             Device         `json:"device"`
	Filesystem         FilesystemKind `json:"filesystem"`
	Timestamp          time.Time      `json:"timestamp"`
	ResultDir          string         `json:"result_dir"`
	State              RunState       `json:"state"`
	History            []Transition   `json:"history"`
	Error              string         `json:"error,omitempty"`
	Suites             []SuiteResult  `json:"suites,omitempty"`
	MonitoringStrategy string         `json:"monitoring_strategy,omitempty"`
	TeardownError      string         `json:"teardown_error,omitempty"`
}

// NewRun creates a pending Run whose result directory lives under resultsDir
func NewRun(dev Device, fs FilesystemKind, resultsDir string, now time.Time) *Run {
	return &Run{
		ID:         uuid.New().String(),
		Device:     dev,
		Filesystem: fs,
		Timestamp:  now,
		ResultDir:  filepath.Join(resultsDir, RunDirName(dev.Name(), fs, now)),
		State:      RunStatePending,
	}
}

// RunDirName is the directory naming contract: <label>_<filesystem>_<timestamp>
func RunDirName(label string, fs FilesystemKind, ts time.Time) string {
	return fmt.Sprintf("%s_%s_%s", label, fs, ts.Format(RunTimestampLayout))
}

// runDirSuffix matches the _<filesystem>_<timestamp> tail of a run
// directory name
var runDirSuffix = regexp.MustCompile(`_(ext4|xfs|btrfs|zfs|overlay)_[0-9]{8}_[0-9]{6}`)

// ValidateLabel checks that label can lead a run directory name that reads
// back to the same label. It must be a single path element and must not
// itself look like a run directory tail.
func ValidateLabel(label string) error {
	switch {
	case label == "." || label == "..":
		return fmt.Errorf("label %q is not a directory name", label)
	case strings.ContainsAny(label, "/\\\x00"):
		return fmt.Errorf("label %q must not contain a path separator", label)
	case strings.TrimSpace(label) != label:
		return fmt.Errorf("label %q has surrounding whitespace", label)
	case runDirSuffix.MatchString(label):
		return fmt.Errorf("label %q contains a run directory suffix", label)
	}
	return nil
}

// Advance moves the Run to a new state and records the transition
func (r *Run) Advance(to RunState, note string, at time.Time) {
	r.History = append(r.History, Transition{From: r.State, To: to, At: at, Note: note})
	r.State = to
}

// Suite returns the result for a family, if any
func (r *Run) Suite(family SuiteFamily) (SuiteResult, bool) {
	for _, s := range r.Suites {
		if s.Family == family {
			return s, true
		}
	}
	return SuiteResult{}, false
}

// Key identifies the (device, filesystem) pair independent of time
func (r *Run) Key() string {
	return PairKey(r.Device.Path, r.Filesystem)
}

// PairKey builds the ledger key for a (device, filesystem) pair
func PairKey(devicePath string, fs FilesystemKind) string {
	return devicePath + "|" + string(fs)
}
