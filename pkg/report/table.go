package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/cuemby/fsbench/pkg/analysis"
	"github.com/cuemby/fsbench/pkg/types"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(header)
	return table
}

// PrintSummary renders the overall standing of each group, best first
func PrintSummary(w io.Writer, title string, summaries []analysis.Summary) {
	fmt.Fprintln(w, title)
	table := newTable(w, []string{"Rank", "Group", "Score", "Metrics"})
	for i, s := range summaries {
		table.Append([]string{
			strconv.Itoa(i + 1),
			s.Group,
			strconv.FormatFloat(s.Overall, 'f', 3, 64),
			strconv.Itoa(s.Metrics),
		})
	}
	table.Render()
}

// PrintScores renders one row per metric and one column per group. A
// group with no score on a metric shows NA.
func PrintScores(w io.Writer, scores []types.Score) {
	var groups []string
	seen := make(map[string]bool)
	var metrics []string
	cells := make(map[string]map[string]float64)
	for _, s := range scores {
		if !seen[s.Group] {
			seen[s.Group] = true
			groups = append(groups, s.Group)
		}
		if cells[s.Metric] == nil {
			cells[s.Metric] = make(map[string]float64)
			metrics = append(metrics, s.Metric)
		}
		cells[s.Metric][s.Group] = s.Score
	}
	sort.Strings(groups)
	sort.Strings(metrics)

	table := newTable(w, append([]string{"Metric"}, groups...))
	for _, m := range metrics {
		row := []string{m}
		for _, g := range groups {
			if v, ok := cells[m][g]; ok {
				row = append(row, strconv.FormatFloat(v, 'f', 3, 64))
			} else {
				row = append(row, types.NotAvailable.String())
			}
		}
		table.Append(row)
	}
	table.Render()
}

// PrintRuns renders ledger entries, newest first
func PrintRuns(w io.Writer, runs []*types.Run, now time.Time) {
	sorted := append([]*types.Run(nil), runs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.After(sorted[j].Timestamp) })

	table := newTable(w, []string{"Device", "Filesystem", "State", "Started", "Duration", "Error"})
	for _, r := range sorted {
		table.Append([]string{
			r.Device.Name(),
			string(r.Filesystem),
			string(r.State),
			humanize.RelTime(r.Timestamp, now, "ago", "from now"),
			runDuration(r).Round(time.Second).String(),
			firstNonEmpty(r.Error, r.TeardownError),
		})
	}
	table.Render()
}

func runDuration(r *types.Run) time.Duration {
	if len(r.History) == 0 {
		return 0
	}
	return r.History[len(r.History)-1].At.Sub(r.Timestamp)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
