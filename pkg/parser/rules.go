package parser

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/cuemby/fsbench/pkg/types"
)

// Field is one metric recovered from an artifact
type Field struct {
	Metric string
	Raw    string
	Value  types.Value
}

// Rule extracts the metrics of one artifact kind. Every metric the rule
// expects is present in the output; the ones it could not find carry
// types.NotAvailable.
type Rule func(variant string, data []byte) []Field

// fieldSet keeps fields in first-seen order
type fieldSet struct {
	order  []string
	fields map[string]Field
}

func newFieldSet(expected ...string) *fieldSet {
	fs := &fieldSet{fields: make(map[string]Field)}
	for _, m := range expected {
		fs.order = append(fs.order, m)
		fs.fields[m] = Field{Metric: m, Value: types.NotAvailable}
	}
	return fs
}

// set records a metric; the first available reading wins
func (fs *fieldSet) set(metric, raw string, v types.Value) {
	cur, seen := fs.fields[metric]
	if !seen {
		fs.order = append(fs.order, metric)
	} else if cur.Value.Available() {
		return
	}
	fs.fields[metric] = Field{Metric: metric, Raw: raw, Value: v}
}

func (fs *fieldSet) list() []Field {
	out := make([]Field, 0, len(fs.order))
	for _, m := range fs.order {
		out = append(out, fs.fields[m])
	}
	return out
}

var (
	fioDirection = regexp.MustCompile(`^\s*(read|write|trim)\s*:\s*IOPS=([^,\s]+),\s*BW=[^(]*\(([^)]*?)B/s\)`)
	fioLatency   = regexp.MustCompile(`^\s+lat\s*\((nsec|usec|msec)\)\s*:.*\bavg=\s*([0-9.]+)`)
)

// fioDirections lists what each variant is expected to report
var fioDirections = map[string][]string{
	"randread":  {"read"},
	"seqread":   {"read"},
	"randwrite": {"write"},
	"seqwrite":  {"write"},
	"randrw":    {"read", "write"},
}

// ParseFio reads fio's normal text output. For each direction it reports
// <dir>_iops, <dir>_bandwidth_bps (decimal bytes per second) and
// <dir>_latency_usec (total latency average, normalised to microseconds).
func ParseFio(variant string, data []byte) []Field {
	var expected []string
	for _, dir := range fioDirections[variant] {
		expected = append(expected, dir+"_iops", dir+"_bandwidth_bps", dir+"_latency_usec")
	}
	fs := newFieldSet(expected...)

	var dir string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if m := fioDirection.FindStringSubmatch(line); m != nil {
			dir = m[1]
			fs.set(dir+"_iops", m[2], ConvertUnit(m[2]))
			fs.set(dir+"_bandwidth_bps", m[3]+"B/s", ConvertUnit(m[3]))
			continue
		}
		if dir == "" {
			continue
		}
		if m := fioLatency.FindStringSubmatch(line); m != nil {
			fs.set(dir+"_latency_usec", m[2]+" "+m[1], latencyUsec(m[1], m[2]))
		}
	}
	return fs.list()
}

func latencyUsec(unit, raw string) types.Value {
	v := ConvertUnit(raw)
	f, ok := v.Float()
	if !ok {
		return types.NotAvailable
	}
	switch unit {
	case "nsec":
		return types.Number(f / 1000)
	case "msec":
		return types.Number(f * 1000)
	}
	return v
}

var mdtestRow = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z ]*?)\s*:?\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s*$`)

// mdtestExpected are the rows every mdtest rate summary carries
var mdtestExpected = []string{
	"directory_creation", "directory_stat", "directory_removal",
	"file_creation", "file_stat", "file_read", "file_removal",
	"tree_creation", "tree_removal",
}

// ParseMdtest reads the "SUMMARY rate" table and reports the mean column
// of every operation as <operation>_ops
func ParseMdtest(_ string, data []byte) []Field {
	expected := make([]string, 0, len(mdtestExpected))
	for _, op := range mdtestExpected {
		expected = append(expected, op+"_ops")
	}
	fs := newFieldSet(expected...)

	inRate := false
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "SUMMARY") {
			inRate = strings.Contains(line, "rate")
			continue
		}
		if !inRate {
			continue
		}
		m := mdtestRow.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		op := strings.ToLower(strings.Join(strings.Fields(m[1]), "_"))
		fs.set(op+"_ops", m[4], ConvertUnit(m[4]))
	}
	return fs.list()
}

var (
	realLine       = regexp.MustCompile(`^real\s+(\S+)`)
	iterationsLine = regexp.MustCompile(`^iterations:\s*(\S+)`)
)

// ParseContainer reads the shell-time style "real <m>m<s>s" line as
// elapsed_seconds; the start/stop variant also reports its iteration count
func ParseContainer(variant string, data []byte) []Field {
	expected := []string{"elapsed_seconds"}
	if variant == "startstop" {
		expected = append(expected, "iterations")
	}
	fs := newFieldSet(expected...)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if m := realLine.FindStringSubmatch(line); m != nil {
			fs.set("elapsed_seconds", m[1], ConvertDuration(m[1]))
		} else if m := iterationsLine.FindStringSubmatch(line); m != nil {
			fs.set("iterations", m[1], ConvertUnit(m[1]))
		}
	}
	return fs.list()
}

var mlLine = regexp.MustCompile(`^\s*(save_time|load_time|model_size)\s*[:=]\s*(\S+)(?:\s+(\S+))?`)

// ParseML reads "key: value [unit]" lines for save_time, load_time and
// model_size
func ParseML(_ string, data []byte) []Field {
	fs := newFieldSet("save_seconds", "load_seconds", "model_size_bytes")

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		m := mlLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		raw := strings.TrimSpace(m[2] + " " + m[3])
		switch m[1] {
		case "save_time":
			fs.set("save_seconds", raw, convertSeconds(m[2], m[3]))
		case "load_time":
			fs.set("load_seconds", raw, convertSeconds(m[2], m[3]))
		case "model_size":
			fs.set("model_size_bytes", raw, convertBytes(m[2]+m[3]))
		}
	}
	return fs.list()
}

// RuleFor returns the extraction rule for an artifact
func RuleFor(family types.SuiteFamily, variant string) (Rule, bool) {
	switch family {
	case types.SuiteIO:
		if variant == "metadata" {
			return ParseMdtest, true
		}
		if _, ok := fioDirections[variant]; ok {
			return ParseFio, true
		}
	case types.SuiteContainer:
		return ParseContainer, true
	case types.SuiteML:
		return ParseML, true
	}
	return nil, false
}
