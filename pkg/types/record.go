package types

import "strings"

// Record is one metric reading extracted from an Artifact
type Record struct {
	Device     string         `json:"device"`
	Filesystem FilesystemKind `json:"filesystem"`
	Family     SuiteFamily    `json:"family"`
	Variant    string         `json:"variant"`
	Metric     string         `json:"metric"`
	Raw        string         `json:"raw"`
	Value      Value          `json:"value"`
}

// MetricKey identifies a metric across runs: <family>/<variant>/<metric>
func (r Record) MetricKey() string {
	return string(r.Family) + "/" + r.Variant + "/" + r.Metric
}

// Direction says how a metric compares across filesystems
type Direction int

const (
	HigherIsBetter Direction = iota
	LowerIsBetter
	Informational
)

func (d Direction) String() string {
	switch d {
	case HigherIsBetter:
		return "higher"
	case LowerIsBetter:
		return "lower"
	default:
		return "info"
	}
}

// MetricDirection classifies a metric name by its suffix
func MetricDirection(metric string) Direction {
	switch {
	case strings.HasSuffix(metric, "_iops"),
		strings.HasSuffix(metric, "_bandwidth_bps"),
		strings.HasSuffix(metric, "_ops"):
		return HigherIsBetter
	case strings.HasSuffix(metric, "_latency_usec"),
		strings.HasSuffix(metric, "_seconds"):
		return LowerIsBetter
	default:
		return Informational
	}
}

// Score is the normalized comparative value of one group on one metric
type Score struct {
	Group     string    `json:"group"`
	Metric    string    `json:"metric"`
	Mean      float64   `json:"mean"`
	Samples   int       `json:"samples"`
	Score     float64   `json:"score"`
	Direction Direction `json:"direction"`
}
