package timeline

import (
	"testing"

	"github.com/tracesmith/tracesmith/internal/event"
)

func TestBuildPairsLaunchAndComplete(t *testing.T) {
	events := []event.Event{
		{Kind: event.KindKernelLaunch, Timestamp: 100, CorrelationID: 1, Name: "k1"},
		{Kind: event.KindKernelLaunch, Timestamp: 110, CorrelationID: 2, Name: "k2"},
		{Kind: event.KindKernelComplete, Timestamp: 200, CorrelationID: 1},
		{Kind: event.KindKernelComplete, Timestamp: 150, CorrelationID: 2},
	}
	tl := Build(events)
	if len(tl.Spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(tl.Spans))
	}
	if tl.TotalDuration != 100 {
		t.Errorf("TotalDuration = %d, want 100", tl.TotalDuration)
	}
}

func TestBuildUnpairedCompleteUsesDuration(t *testing.T) {
	events := []event.Event{
		{Kind: event.KindKernelComplete, Timestamp: 500, Duration: 50, CorrelationID: 9},
	}
	tl := Build(events)
	if len(tl.Spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(tl.Spans))
	}
	if tl.Spans[0].Start != 500 || tl.Spans[0].End != 550 {
		t.Errorf("span = %+v, want [500,550]", tl.Spans[0])
	}
}

func TestBuildInstantZeroLengthSpan(t *testing.T) {
	events := []event.Event{
		{Kind: event.KindKernelComplete, Timestamp: 10, CorrelationID: 3},
	}
	tl := Build(events)
	if len(tl.Spans) != 1 || tl.Spans[0].Duration() != 0 {
		t.Fatalf("expected one zero-length span, got %+v", tl.Spans)
	}
}

func TestGPUUtilizationMergesOverlaps(t *testing.T) {
	events := []event.Event{
		{Kind: event.KindKernelLaunch, Timestamp: 0, CorrelationID: 1, Name: "a"},
		{Kind: event.KindKernelComplete, Timestamp: 100, CorrelationID: 1},
		{Kind: event.KindKernelLaunch, Timestamp: 50, CorrelationID: 2, Name: "b"},
		{Kind: event.KindKernelComplete, Timestamp: 150, CorrelationID: 2},
	}
	tl := Build(events)
	// union [0,150) over total [0,150) => utilization 1.0, since the two
	// spans overlap from 50 to 100.
	if tl.GPUUtilization != 1.0 {
		t.Errorf("GPUUtilization = %v, want 1.0", tl.GPUUtilization)
	}
}

func TestMaxConcurrentOpsTiesEndsBeforeStarts(t *testing.T) {
	events := []event.Event{
		{Kind: event.KindKernelLaunch, Timestamp: 0, CorrelationID: 1, Name: "a"},
		{Kind: event.KindKernelComplete, Timestamp: 100, CorrelationID: 1},
		{Kind: event.KindKernelLaunch, Timestamp: 100, CorrelationID: 2, Name: "b"},
		{Kind: event.KindKernelComplete, Timestamp: 200, CorrelationID: 2},
	}
	tl := Build(events)
	if tl.MaxConcurrentOps != 1 {
		t.Errorf("MaxConcurrentOps = %d, want 1 (end before start at t=100)", tl.MaxConcurrentOps)
	}
}

func TestTopKernelsRanksByTotalTime(t *testing.T) {
	events := []event.Event{
		{Kind: event.KindKernelLaunch, Timestamp: 0, CorrelationID: 1, Name: "small"},
		{Kind: event.KindKernelComplete, Timestamp: 10, CorrelationID: 1},
		{Kind: event.KindKernelLaunch, Timestamp: 20, CorrelationID: 2, Name: "big"},
		{Kind: event.KindKernelComplete, Timestamp: 120, CorrelationID: 2},
		{Kind: event.KindKernelLaunch, Timestamp: 130, CorrelationID: 3, Name: "big"},
		{Kind: event.KindKernelComplete, Timestamp: 230, CorrelationID: 3},
	}
	tl := Build(events)
	top := TopKernels(tl, 2)
	if len(top) != 2 {
		t.Fatalf("got %d kernel stats, want 2", len(top))
	}
	if top[0].Name != "big" || top[0].Count != 2 {
		t.Errorf("top kernel = %+v, want big/2", top[0])
	}
}
