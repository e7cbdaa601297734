package analysis

import (
	"testing"

	"github.com/cuemby/fsbench/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(fs types.FilesystemKind, metric string, v types.Value) types.Record {
	return types.Record{
		Device:     "fast",
		Filesystem: fs,
		Family:     types.SuiteIO,
		Variant:    "randread",
		Metric:     metric,
		Value:      v,
	}
}

func scoreMap(scores []types.Score) map[string]float64 {
	out := make(map[string]float64)
	for _, s := range scores {
		out[s.Group] = s.Score
	}
	return out
}

func TestNormalize(t *testing.T) {
	means := map[string]float64{"ext4": 10, "xfs": 20, "btrfs": 30}

	tests := []struct {
		name string
		dir  types.Direction
		want map[string]float64
	}{
		{"higher is better", types.HigherIsBetter, map[string]float64{"ext4": 0, "xfs": 0.5, "btrfs": 1}},
		{"lower is better", types.LowerIsBetter, map[string]float64{"ext4": 1, "xfs": 0.5, "btrfs": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(means, tt.dir)
			require.Len(t, got, 3)
			for g, want := range tt.want {
				assert.InDelta(t, want, got[g], 1e-12, g)
			}
		})
	}
}

func TestNormalizeTie(t *testing.T) {
	for _, dir := range []types.Direction{types.HigherIsBetter, types.LowerIsBetter} {
		got := Normalize(map[string]float64{"ext4": 7, "xfs": 7, "zfs": 7}, dir)
		for g, s := range got {
			assert.Equal(t, TieScore, s, g)
		}
	}

	got := Normalize(map[string]float64{"ext4": 3}, types.HigherIsBetter)
	assert.Equal(t, TieScore, got["ext4"], "a single group has nothing to be compared with")

	assert.Nil(t, Normalize(nil, types.HigherIsBetter))
}

func TestScoreExcludesNotAvailable(t *testing.T) {
	records := []types.Record{
		rec(types.FilesystemExt4, "read_iops", types.Number(10)),
		rec(types.FilesystemExt4, "read_iops", types.NotAvailable),
		rec(types.FilesystemXFS, "read_iops", types.Number(20)),
		rec(types.FilesystemXFS, "read_iops", types.Number(20)),
		rec(types.FilesystemBtrfs, "read_iops", types.Number(25)),
		rec(types.FilesystemBtrfs, "read_iops", types.Number(35)),
		rec(types.FilesystemZFS, "read_iops", types.NotAvailable),
	}

	scores := Score(records, ByFilesystem)
	require.Len(t, scores, 3, "a group with only NotAvailable readings is not scored")

	got := scoreMap(scores)
	assert.InDelta(t, 0.0, got["ext4"], 1e-12, "NotAvailable is not averaged in as zero")
	assert.InDelta(t, 0.5, got["xfs"], 1e-12)
	assert.InDelta(t, 1.0, got["btrfs"], 1e-12)

	for _, s := range scores {
		assert.Equal(t, "io/randread/read_iops", s.Metric)
		assert.Equal(t, types.HigherIsBetter, s.Direction)
		if s.Group == "ext4" {
			assert.Equal(t, 1, s.Samples)
			assert.Equal(t, 10.0, s.Mean)
		}
	}
}

func TestScoreDirections(t *testing.T) {
	records := []types.Record{
		rec(types.FilesystemExt4, "read_latency_usec", types.Number(100)),
		rec(types.FilesystemXFS, "read_latency_usec", types.Number(300)),
		rec(types.FilesystemExt4, "model_size_bytes", types.Number(1e9)),
		rec(types.FilesystemXFS, "model_size_bytes", types.Number(2e9)),
	}

	scores := Score(records, ByFilesystem)
	require.Len(t, scores, 2, "informational metrics are not scored")
	got := scoreMap(scores)
	assert.Equal(t, 1.0, got["ext4"])
	assert.Equal(t, 0.0, got["xfs"])
}

func TestScoreKeepsVariantsApart(t *testing.T) {
	seq := func(fs types.FilesystemKind, v float64) types.Record {
		r := rec(fs, "read_iops", types.Number(v))
		r.Variant = "seqread"
		return r
	}
	records := []types.Record{
		rec(types.FilesystemExt4, "read_iops", types.Number(100)),
		rec(types.FilesystemXFS, "read_iops", types.Number(200)),
		seq(types.FilesystemExt4, 5),
		seq(types.FilesystemXFS, 5),
	}

	scores := Score(records, ByFilesystem)
	require.Len(t, scores, 4)
	assert.Equal(t, "io/randread/read_iops", scores[0].Metric)
	assert.Equal(t, "io/seqread/read_iops", scores[2].Metric)
	assert.Equal(t, TieScore, scores[2].Score)
}

func TestAnalyzeByDevice(t *testing.T) {
	records := []types.Record{
		{Device: "spinner", Filesystem: types.FilesystemExt4, Family: types.SuiteContainer, Variant: "pull", Metric: "elapsed_seconds", Value: types.Number(40)},
		{Device: "gen4", Filesystem: types.FilesystemExt4, Family: types.SuiteContainer, Variant: "pull", Metric: "elapsed_seconds", Value: types.Number(10)},
		{Device: "gen4", Filesystem: types.FilesystemXFS, Family: types.SuiteContainer, Variant: "pull", Metric: "elapsed_seconds", Value: types.Number(12)},
	}

	res := Analyze(records)
	dev := scoreMap(res.Devices)
	assert.Equal(t, 1.0, dev["gen4"])
	assert.Equal(t, 0.0, dev["spinner"])

	require.Len(t, res.DeviceSummary, 2)
	assert.Equal(t, "gen4", res.DeviceSummary[0].Group)
	require.Len(t, res.FilesystemSummary, 2)
}

func TestSummarize(t *testing.T) {
	scores := []types.Score{
		{Group: "ext4", Metric: "a", Score: 1},
		{Group: "ext4", Metric: "b", Score: 0},
		{Group: "xfs", Metric: "a", Score: 0},
		{Group: "xfs", Metric: "b", Score: 1},
		{Group: "zfs", Metric: "a", Score: 1},
		{Group: "zfs", Metric: "b", Score: 1},
	}

	got := Summarize(scores)
	require.Len(t, got, 3)
	assert.Equal(t, Summary{Group: "zfs", Overall: 1, Metrics: 2}, got[0])
	assert.Equal(t, "ext4", got[1].Group, "ties are ordered by name")
	assert.Equal(t, 0.5, got[2].Overall)
	assert.Empty(t, Summarize(nil))
}
