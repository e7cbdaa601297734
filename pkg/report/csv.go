package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cuemby/fsbench/pkg/analysis"
	"github.com/cuemby/fsbench/pkg/types"
)

// File names of the flat tables written next to the run directories
const (
	FilesystemScoresFile = "summary_scores.csv"
	DeviceScoresFile     = "device_scores.csv"
)

var (
	recordHeader = []string{"device", "filesystem", "family", "variant", "metric", "raw", "value"}
	scoreHeader  = []string{"group", "metric", "mean", "samples", "score", "direction"}
)

// RecordsFile is the per-family parsed record table: <family>_records.csv
func RecordsFile(family types.SuiteFamily) string {
	return string(family) + "_records.csv"
}

// Write persists the parsed records of every family plus both score tables
// under dir, returning the files written. A family table is written even
// when empty so consumers can rely on its presence.
func Write(dir string, records []types.Record, res analysis.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	byFamily := make(map[types.SuiteFamily][]types.Record)
	for _, r := range records {
		byFamily[r.Family] = append(byFamily[r.Family], r)
	}

	var written []string
	for _, family := range types.SuiteFamilies {
		path := filepath.Join(dir, RecordsFile(family))
		if err := WriteRecords(path, byFamily[family]); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	tables := []struct {
		name   string
		scores []types.Score
	}{
		{FilesystemScoresFile, res.Filesystems},
		{DeviceScoresFile, res.Devices},
	}
	for _, tbl := range tables {
		path := filepath.Join(dir, tbl.name)
		if err := WriteScores(path, tbl.scores); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// WriteRecords writes records as CSV. NotAvailable values are written as NA.
func WriteRecords(path string, records []types.Record) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Device, string(r.Filesystem), string(r.Family), r.Variant, r.Metric, r.Raw, r.Value.String(),
		})
	}
	return writeCSV(path, recordHeader, rows)
}

// WriteScores writes normalized scores as CSV
func WriteScores(path string, scores []types.Score) error {
	rows := make([][]string, 0, len(scores))
	for _, s := range scores {
		rows = append(rows, []string{
			s.Group,
			s.Metric,
			strconv.FormatFloat(s.Mean, 'f', -1, 64),
			strconv.Itoa(s.Samples),
			strconv.FormatFloat(s.Score, 'f', 4, 64),
			s.Direction.String(),
		})
	}
	return writeCSV(path, scoreHeader, rows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
