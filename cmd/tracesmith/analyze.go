package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tracesmith/tracesmith/internal/depgraph"
	"github.com/tracesmith/tracesmith/internal/metrics"
	"github.com/tracesmith/tracesmith/internal/timeline"
)

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "summarize one trace's timeline and dependency graph, or merge kernel statistics across several",
		ArgsUsage: "<trace.sbt> [more-traces.sbt...]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "top", Value: 10, Usage: "number of top kernels to report"},
		},
		Action: func(c *cli.Context) error {
			paths := c.Args().Slice()
			if len(paths) == 0 {
				return fmt.Errorf("analyze: missing trace path")
			}
			if len(paths) > 1 {
				return analyzeFleet(paths, c.Int("top"))
			}

			r, cleanup, err := openTraceFile(paths[0])
			if err != nil {
				return err
			}
			defer cleanup()
			rec, err := r.ReadAll()
			if err != nil {
				return err
			}

			tl := timeline.Build(rec.Events)
			fmt.Printf("spans: %d\n", len(tl.Spans))
			fmt.Printf("total duration: %d ns\n", tl.TotalDuration)
			fmt.Printf("GPU utilization: %.2f%%\n", tl.GPUUtilization*100)
			fmt.Printf("max concurrent ops: %d\n", tl.MaxConcurrentOps)

			top := timeline.TopKernels(tl, c.Int("top"))
			fmt.Printf("top %d kernels by total time:\n", len(top))
			for _, k := range top {
				fmt.Printf("  %-24s count=%-6d total=%-12dns p50=%dns p99=%dns\n", k.Name, k.Count, k.TotalNS, k.P50NS, k.P99NS)
			}

			graph := depgraph.Analyze(rec.Events)
			fmt.Printf("dependency graph: %d nodes, %d edges\n", len(graph.NodeLabels), len(graph.Dependencies))
			for dt, count := range graph.TotalByType {
				fmt.Printf("  %s: %d\n", dt, count)
			}
			return nil
		},
	}
}

// analyzeFleet merges per-kernel timing across every given trace, the
// cross-file counterpart to a single trace's TopKernels.
func analyzeFleet(paths []string, top int) error {
	agg := metrics.NewAggregator(uint(top), 5)
	for _, path := range paths {
		r, cleanup, err := openTraceFile(path)
		if err != nil {
			return err
		}
		rec, err := r.ReadAll()
		cleanup()
		if err != nil {
			return err
		}
		agg.AddTrace(timeline.Build(rec.Events), path)
	}

	fmt.Printf("merged %d traces, top %d kernels by total time:\n", len(paths), top)
	for _, m := range agg.ToMetrics() {
		fmt.Printf("  %-24s count=%-6d sum=%-12dns avg=%-10.0fns p99=%dns worst=%s\n",
			m.Name, m.Count, m.SumNS, m.AvgNS, m.P99NS, m.Worst)
	}
	return nil
}
