package metrics

import (
	"testing"

	"github.com/tracesmith/tracesmith/internal/event"
	"github.com/tracesmith/tracesmith/internal/timeline"
)

func span(name string, start, end event.Timestamp) timeline.Span {
	return timeline.Span{Name: name, Start: start, End: end}
}

func TestAggregatorAddTraceMergesAcrossTraces(t *testing.T) {
	a := NewAggregator(100, 5)
	a.AddTrace(timeline.Timeline{Spans: []timeline.Span{
		span("saxpy", 0, 10),
		span("saxpy", 0, 5),
		span("gemm", 0, 100),
	}}, "trace-1")
	a.AddTrace(timeline.Timeline{Spans: []timeline.Span{
		span("saxpy", 0, 25),
	}}, "trace-2")

	metrics := a.ToMetrics()
	if len(metrics) != 2 {
		t.Fatalf("ToMetrics() returned %d entries, want 2", len(metrics))
	}
	// sorted descending by total time: gemm (100) before saxpy (40).
	if metrics[0].Name != "gemm" || metrics[0].SumNS != 100 {
		t.Fatalf("metrics[0] = %+v, want gemm with sum 100", metrics[0])
	}
	saxpy := metrics[1]
	if saxpy.Name != "saxpy" || saxpy.Count != 3 || saxpy.SumNS != 40 {
		t.Fatalf("saxpy metrics = %+v, want count=3 sum=40", saxpy)
	}
	if saxpy.Worst != "trace-2" {
		t.Fatalf("saxpy worst trace = %q, want trace-2 (the 25ns sample)", saxpy.Worst)
	}
	if len(saxpy.Examples) != 2 || saxpy.Examples[0] != "trace-1" || saxpy.Examples[1] != "trace-2" {
		t.Fatalf("saxpy examples = %v, want [trace-1 trace-2]", saxpy.Examples)
	}
}

func TestAggregatorCapsUniqueKernels(t *testing.T) {
	a := NewAggregator(1, 5)
	a.AddTrace(timeline.Timeline{Spans: []timeline.Span{
		span("small", 0, 1),
		span("big", 0, 1000),
	}}, "trace-1")

	metrics := a.ToMetrics()
	if len(metrics) != 1 {
		t.Fatalf("ToMetrics() returned %d entries, want 1 (capped)", len(metrics))
	}
	if metrics[0].Name != "big" {
		t.Fatalf("metrics[0].Name = %q, want big", metrics[0].Name)
	}
}

func TestAggregatorIgnoresUnnamedSpans(t *testing.T) {
	a := NewAggregator(100, 5)
	a.AddTrace(timeline.Timeline{Spans: []timeline.Span{
		span("", 0, 1000),
	}}, "trace-1")
	if len(a.ToMetrics()) != 0 {
		t.Fatal("unnamed span should not produce a kernel metric")
	}
}
