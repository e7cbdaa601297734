package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/cuemby/fsbench/pkg/log"
	"github.com/cuemby/fsbench/pkg/types"
)

// ManifestFile is the run manifest written at the end of teardown
const ManifestFile = "run.json"

var runDirPattern = regexp.MustCompile(`^(.+)_(ext4|xfs|btrfs|zfs|overlay)_([0-9]{8}_[0-9]{6})$`)

// RunInfo identifies the run a directory belongs to
type RunInfo struct {
	Dir        string
	Device     string // label
	Filesystem types.FilesystemKind
	Timestamp  time.Time
	State      types.RunState // empty without a manifest
}

// IdentifyRun reads run.json when present and falls back to the directory
// name contract <label>_<filesystem>_<YYYYMMDD_HHMMSS>
func IdentifyRun(dir string) (RunInfo, error) {
	info := RunInfo{Dir: dir}

	if data, err := os.ReadFile(filepath.Join(dir, ManifestFile)); err == nil {
		var run types.Run
		if err := json.Unmarshal(data, &run); err == nil && run.Filesystem != "" {
			info.Device = run.Device.Name()
			info.Filesystem = run.Filesystem
			info.Timestamp = run.Timestamp
			info.State = run.State
			return info, nil
		}
	}

	m := runDirPattern.FindStringSubmatch(filepath.Base(dir))
	if m == nil {
		return info, fmt.Errorf("%s is not a run directory", dir)
	}
	ts, err := time.ParseInLocation(types.RunTimestampLayout, m[3], time.Local)
	if err != nil {
		return info, fmt.Errorf("%s: bad timestamp: %w", dir, err)
	}
	info.Device = m[1]
	info.Filesystem = types.FilesystemKind(m[2])
	info.Timestamp = ts
	return info, nil
}

// ParseRunDir parses every artifact in one run directory. Files that do
// not follow the <family>_<variant>.txt contract are skipped.
func ParseRunDir(dir string) (RunInfo, []types.Record, error) {
	info, err := IdentifyRun(dir)
	if err != nil {
		return info, nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return info, nil, err
	}

	var records []types.Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		family, variant, ok := splitArtifactName(e.Name())
		if !ok {
			continue
		}
		rule, ok := RuleFor(family, variant)
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return info, records, err
		}
		for _, f := range rule(variant, data) {
			records = append(records, types.Record{
				Device:     info.Device,
				Filesystem: info.Filesystem,
				Family:     family,
				Variant:    variant,
				Metric:     f.Metric,
				Raw:        f.Raw,
				Value:      f.Value,
			})
		}
	}
	return info, records, nil
}

// ParseResults parses every run directory under resultsDir in timestamp
// order. Directories that cannot be parsed are reported and skipped.
func ParseResults(resultsDir string) ([]RunInfo, []types.Record, error) {
	entries, err := os.ReadDir(resultsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	logger := log.WithComponent("parser")
	var (
		runs    []RunInfo
		records []types.Record
		errs    []error
	)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(resultsDir, e.Name())
		info, recs, err := ParseRunDir(dir)
		if err != nil {
			logger.Warn().Err(err).Str("dir", dir).Msg("Skipping directory")
			errs = append(errs, err)
			continue
		}
		runs = append(runs, info)
		records = append(records, recs...)
	}

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	if len(runs) == 0 && len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}
	return runs, records, nil
}

func splitArtifactName(name string) (types.SuiteFamily, string, bool) {
	base := strings.TrimSuffix(name, ".txt")
	family, variant, ok := strings.Cut(base, "_")
	if !ok || variant == "" {
		return "", "", false
	}
	for _, f := range types.SuiteFamilies {
		if string(f) == family {
			return f, variant, true
		}
	}
	return "", "", false
}
