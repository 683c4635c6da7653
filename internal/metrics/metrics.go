// Package metrics aggregates per-kernel timing statistics across many
// trace files, the fleet-wide counterpart to internal/timeline's
// single-trace TopKernels: where TopKernels ranks kernels within one
// recording, Aggregator folds the same per-name duration samples across
// an arbitrary number of recordings and reports which trace held each
// kernel's worst single invocation.
package metrics

import (
	"sort"

	"github.com/tracesmith/tracesmith/internal/quantile"
	"github.com/tracesmith/tracesmith/internal/timeline"
)

// KernelMetadata tracks the worst single-invocation duration observed for
// one kernel name and which trace it came from, plus a capped sample of
// other traces that also launched it.
type KernelMetadata struct {
	WorstNS  uint64
	WorstID  string
	Examples []string
}

// Aggregator merges KernelStat samples from many timelines, keeping at
// most MaxUniqueKernels names (by total time) and MaxNumOfExamples trace
// ids per name.
type Aggregator struct {
	MaxUniqueKernels uint
	MaxNumOfExamples uint

	samples  map[string]*quantile.Quantile
	metadata map[string]KernelMetadata
}

// KernelMetrics is one kernel name's aggregated statistics across every
// trace fed to the Aggregator.
type KernelMetrics struct {
	Name     string   `json:"name"`
	P75NS    uint64   `json:"p75_ns"`
	P95NS    uint64   `json:"p95_ns"`
	P99NS    uint64   `json:"p99_ns"`
	AvgNS    float64  `json:"avg_ns"`
	SumNS    uint64   `json:"sum_ns"`
	Count    uint64   `json:"count"`
	Worst    string   `json:"worst_trace"`
	Examples []string `json:"examples"`
}

// NewAggregator returns an empty Aggregator.
func NewAggregator(maxUniqueKernels, maxNumOfExamples uint) Aggregator {
	return Aggregator{
		MaxUniqueKernels: maxUniqueKernels,
		MaxNumOfExamples: maxNumOfExamples,
		samples:          make(map[string]*quantile.Quantile),
		metadata:         make(map[string]KernelMetadata),
	}
}

// AddTrace folds one trace's timeline into the running aggregate, tagging
// every sample with traceID so the worst invocation and a bounded set of
// examples can be traced back to a specific file.
func (a *Aggregator) AddTrace(tl timeline.Timeline, traceID string) {
	for _, span := range tl.Spans {
		if span.Name == "" {
			continue
		}
		q, ok := a.samples[span.Name]
		if !ok {
			q = &quantile.Quantile{}
			a.samples[span.Name] = q
		}
		d := float64(span.Duration())
		q.Add(d)

		meta := a.metadata[span.Name]
		if uint64(d) > meta.WorstNS {
			meta.WorstNS = uint64(d)
			meta.WorstID = traceID
		}
		if len(meta.Examples) < int(a.MaxNumOfExamples) && (len(meta.Examples) == 0 || meta.Examples[len(meta.Examples)-1] != traceID) {
			meta.Examples = append(meta.Examples, traceID)
		}
		a.metadata[span.Name] = meta
	}
}

// ToMetrics renders the aggregate as a slice sorted by total time spent,
// descending, capped to MaxUniqueKernels entries.
func (a *Aggregator) ToMetrics() []KernelMetrics {
	out := make([]KernelMetrics, 0, len(a.samples))
	for name, q := range a.samples {
		q.Sort()
		meta := a.metadata[name]
		out = append(out, KernelMetrics{
			Name:     name,
			P75NS:    uint64(q.Percentile(0.75)),
			P95NS:    uint64(q.Percentile(0.95)),
			P99NS:    uint64(q.Percentile(0.99)),
			AvgNS:    q.Mean(),
			SumNS:    uint64(q.Sum()),
			Count:    uint64(len(q.Xs)),
			Worst:    meta.WorstID,
			Examples: meta.Examples,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SumNS > out[j].SumNS })
	if uint(len(out)) > a.MaxUniqueKernels {
		out = out[:a.MaxUniqueKernels]
	}
	return out
}
