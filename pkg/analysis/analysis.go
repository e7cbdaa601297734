package analysis

import (
	"sort"

	"github.com/cuemby/fsbench/pkg/types"
	"github.com/montanaflynn/stats"
)

// TieScore is assigned to every group when a metric does not discriminate
const TieScore = 0.5

// GroupFunc picks the group a record is scored under
type GroupFunc func(types.Record) string

// ByFilesystem groups records by filesystem kind
func ByFilesystem(r types.Record) string { return string(r.Filesystem) }

// ByDevice groups records by device label
func ByDevice(r types.Record) string { return r.Device }

// Summary is the combined standing of one group across every scored metric
type Summary struct {
	Group   string  `json:"group"`
	Overall float64 `json:"overall"`
	Metrics int     `json:"metrics"`
}

type samples map[string]map[string][]float64 // metric -> group -> values

// Score computes the normalized score of every group on every comparable
// metric. NotAvailable readings are left out of the means, informational
// metrics are not scored, and a group with no available reading for a
// metric gets no score for it.
func Score(records []types.Record, group GroupFunc) []types.Score {
	data := make(samples)
	for _, r := range records {
		if types.MetricDirection(r.Metric) == types.Informational {
			continue
		}
		v, ok := r.Value.Float()
		if !ok {
			continue
		}
		key := r.MetricKey()
		if data[key] == nil {
			data[key] = make(map[string][]float64)
		}
		g := group(r)
		data[key][g] = append(data[key][g], v)
	}

	var out []types.Score
	for metric, groups := range data {
		means := make(map[string]float64, len(groups))
		counts := make(map[string]int, len(groups))
		for g, values := range groups {
			m, err := stats.Mean(values)
			if err != nil {
				continue
			}
			means[g] = m
			counts[g] = len(values)
		}
		dir := types.MetricDirection(metricName(metric))
		for g, s := range Normalize(means, dir) {
			out = append(out, types.Score{
				Group:     g,
				Metric:    metric,
				Mean:      means[g],
				Samples:   counts[g],
				Score:     s,
				Direction: dir,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Metric != out[j].Metric {
			return out[i].Metric < out[j].Metric
		}
		return out[i].Group < out[j].Group
	})
	return out
}

// Normalize min-max scales per-group means to [0,1]. Lower-is-better
// metrics are inverted so a higher score is always better. When every
// group ties, each scores TieScore.
func Normalize(means map[string]float64, dir types.Direction) map[string]float64 {
	if len(means) == 0 {
		return nil
	}
	values := make(stats.Float64Data, 0, len(means))
	for _, m := range means {
		values = append(values, m)
	}
	lo, _ := stats.Min(values)
	hi, _ := stats.Max(values)

	out := make(map[string]float64, len(means))
	for g, m := range means {
		if hi == lo {
			out[g] = TieScore
			continue
		}
		s := (m - lo) / (hi - lo)
		if dir == types.LowerIsBetter {
			s = 1 - s
		}
		out[g] = s
	}
	return out
}

// Summarize averages each group's metric scores into one overall figure,
// best first
func Summarize(scores []types.Score) []Summary {
	byGroup := make(map[string][]float64)
	for _, s := range scores {
		byGroup[s.Group] = append(byGroup[s.Group], s.Score)
	}

	out := make([]Summary, 0, len(byGroup))
	for g, values := range byGroup {
		overall, err := stats.Mean(values)
		if err != nil {
			continue
		}
		out = append(out, Summary{Group: g, Overall: overall, Metrics: len(values)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Overall != out[j].Overall {
			return out[i].Overall > out[j].Overall
		}
		return out[i].Group < out[j].Group
	})
	return out
}

// Result is a full analysis pass over a record set
type Result struct {
	Filesystems       []types.Score
	Devices           []types.Score
	FilesystemSummary []Summary
	DeviceSummary     []Summary
}

// Analyze scores records by filesystem and by device
func Analyze(records []types.Record) Result {
	fs := Score(records, ByFilesystem)
	dev := Score(records, ByDevice)
	return Result{
		Filesystems:       fs,
		Devices:           dev,
		FilesystemSummary: Summarize(fs),
		DeviceSummary:     Summarize(dev),
	}
}

// metricName strips the family/variant prefix of a metric key
func metricName(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return key[i+1:]
		}
	}
	return key
}
