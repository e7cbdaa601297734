package main

import (
	"fmt"
	"sort"

	"github.com/cuemby/fsbench/pkg/events"
	"github.com/cuemby/fsbench/pkg/health"
	"github.com/cuemby/fsbench/pkg/matrix"
	"github.com/cuemby/fsbench/pkg/types"
)

// printProgress prints one line per pipeline event until sub is closed
func printProgress(sub events.Subscriber, done chan<- struct{}) {
	defer close(done)
	for e := range sub {
		pair := e.Metadata["device"] + "/" + e.Metadata["filesystem"]
		switch e.Type {
		case events.EventRunStarted:
			fmt.Printf("\n▶ %s\n", pair)
		case events.EventRunTransition:
			fmt.Printf("  → %s\n", e.Metadata["to"])
		case events.EventSuiteStarted:
			fmt.Printf("    %s suite\n", e.Metadata["family"])
		case events.EventSuiteFailed:
			fmt.Printf("    ✗ %s suite failed: %s\n", e.Metadata["family"], e.Message)
		case events.EventTeardownFailed:
			fmt.Printf("  ✗ TEARDOWN FAILED (%s): %s\n", e.Metadata["step"], e.Message)
		case events.EventRunFailed:
			fmt.Printf("  ✗ failed: %s\n", e.Message)
		case events.EventRunCompleted:
			fmt.Printf("  ✓ %s done\n", pair)
		case events.EventMonitoring:
			fmt.Printf("    monitoring: %s\n", e.Metadata["strategy"])
		case events.EventBaseline:
			fmt.Printf("✓ Idle baseline recorded (%s)\n", e.Metadata["duration"])
		case events.EventDeviceSkipped:
			fmt.Printf("- skipping %s (%s)\n", e.Metadata["device"], e.Message)
		}
	}
}

func printPreflight(results map[string]health.Result) {
	tools := make([]string, 0, len(results))
	for tool := range results {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	for _, tool := range tools {
		if r := results[tool]; !r.Healthy {
			fmt.Printf("Warning: %s not found (%s); its suite will fail\n", tool, r.Message)
		}
	}
}

func printRunStatus(run *types.Run, err error) {
	fmt.Println()
	fmt.Printf("Run %s: %s\n", run.ID, run.State)
	fmt.Printf("  Device: %s (%s)\n", run.Device.Path, run.Device.Name())
	fmt.Printf("  Filesystem: %s\n", run.Filesystem)
	fmt.Printf("  Results: %s\n", run.ResultDir)
	for _, s := range run.Suites {
		status := "ok"
		if !s.OK {
			status = "failed: " + s.Error
		}
		fmt.Printf("  %s: %s\n", s.Family, status)
	}
	if err != nil {
		fmt.Printf("  Error: %v\n", err)
	}
	if run.TeardownError != "" {
		fmt.Printf("  Teardown: %s\n", run.TeardownError)
	}
}

func printMatrixSummary(s *matrix.Summary) {
	if s == nil {
		return
	}
	fmt.Println()
	fmt.Printf("Matrix: %d completed, %d failed, %d skipped\n", s.Completed, s.Failed, s.Skipped)
	for _, o := range s.Outcomes {
		switch {
		case o.Skipped:
			fmt.Printf("  - %s (already done)\n", o.Pair)
		case o.Err != nil:
			fmt.Printf("  ✗ %s: %s (%v)\n", o.Pair, o.Run.State, o.Err)
		default:
			fmt.Printf("  ✓ %s\n", o.Pair)
		}
	}
}
