package depgraph

import (
	"testing"

	"github.com/tracesmith/tracesmith/internal/event"
	"github.com/tracesmith/tracesmith/internal/testutil"
)

func TestAnalyzeSyncThenSequential(t *testing.T) {
	events := []event.Event{
		{Kind: event.KindKernelLaunch, Timestamp: 0, StreamID: 0, CorrelationID: 1, Name: "k1"},
		{Kind: event.KindKernelComplete, Timestamp: 10, StreamID: 0, CorrelationID: 1},
		{Kind: event.KindStreamSync, Timestamp: 20, StreamID: 0},
		{Kind: event.KindKernelLaunch, Timestamp: 30, StreamID: 0, CorrelationID: 2, Name: "k2"},
	}
	g := Analyze(events)

	if len(g.Dependencies) != 2 {
		t.Fatalf("got %d dependencies, want 2: %+v", len(g.Dependencies), g.Dependencies)
	}

	var sawSync, sawSeq bool
	for _, d := range g.Dependencies {
		switch d.Type {
		case Synchronization:
			if d.From.CorrelationID != 1 || !d.To.Sync {
				t.Errorf("unexpected synchronization edge: %+v", d)
			}
			sawSync = true
		case Sequential:
			if !d.From.Sync || d.To.CorrelationID != 2 {
				t.Errorf("unexpected sequential edge: %+v", d)
			}
			sawSeq = true
		}
	}
	if !sawSync || !sawSeq {
		t.Fatalf("expected one Synchronization and one Sequential edge, got %+v", g.Dependencies)
	}
}

func TestMemoryDependencyOverlap(t *testing.T) {
	events := []event.Event{
		{
			Kind: event.KindMemcpyH2D, Timestamp: 0, DeviceID: 0, CorrelationID: 1,
			HasMemoryParams: true,
			MemoryParams:    event.MemoryParams{DstAddr: 1000, ByteCount: 100},
		},
		{
			Kind: event.KindMemcpyD2D, Timestamp: 10, DeviceID: 0, CorrelationID: 2,
			HasMemoryParams: true,
			MemoryParams:    event.MemoryParams{SrcAddr: 1050, ByteCount: 100},
		},
	}
	g := Analyze(events)

	var found bool
	for _, d := range g.Dependencies {
		if d.Type == MemoryDependency && d.From.CorrelationID == 1 && d.To.CorrelationID == 2 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a MemoryDependency edge 1->2, got %+v", g.Dependencies)
	}
}

func TestDOTIsWellFormed(t *testing.T) {
	events := []event.Event{
		{Kind: event.KindKernelLaunch, Timestamp: 0, StreamID: 0, CorrelationID: 1, Name: "k1"},
		{Kind: event.KindKernelComplete, Timestamp: 10, StreamID: 0, CorrelationID: 1},
	}
	g := Analyze(events)
	dot := g.DOT()
	if dot == "" {
		t.Fatal("expected non-empty DOT output")
	}
	if dot[:len("digraph")] != "digraph" {
		t.Errorf("DOT output doesn't start with 'digraph': %q", dot[:20])
	}
}

func TestAnalyzeTotalByTypeCounts(t *testing.T) {
	events := []event.Event{
		{Kind: event.KindKernelLaunch, Timestamp: 0, StreamID: 0, CorrelationID: 1, Name: "k1"},
		{Kind: event.KindKernelComplete, Timestamp: 10, StreamID: 0, CorrelationID: 1},
		{Kind: event.KindStreamSync, Timestamp: 20, StreamID: 0},
		{Kind: event.KindKernelLaunch, Timestamp: 30, StreamID: 0, CorrelationID: 2, Name: "k2"},
	}
	g := Analyze(events)

	want := map[DependencyType]int{
		Synchronization: 1,
		Sequential:      1,
	}
	if diff := testutil.Diff(want, g.TotalByType); diff != "" {
		t.Errorf("TotalByType mismatch (-want +got):\n%s", diff)
	}
}

func TestGraphIsAcyclic(t *testing.T) {
	events := []event.Event{
		{Kind: event.KindKernelLaunch, Timestamp: 0, StreamID: 0, CorrelationID: 1, Name: "k1"},
		{Kind: event.KindKernelComplete, Timestamp: 10, StreamID: 0, CorrelationID: 1},
		{Kind: event.KindStreamSync, Timestamp: 20, StreamID: 0},
		{Kind: event.KindKernelLaunch, Timestamp: 30, StreamID: 0, CorrelationID: 2, Name: "k2"},
		{Kind: event.KindKernelComplete, Timestamp: 40, StreamID: 0, CorrelationID: 2},
	}
	g := Analyze(events)

	for _, d := range g.Dependencies {
		if d.From == d.To {
			t.Errorf("self-loop at %v", d.From)
		}
	}
}
