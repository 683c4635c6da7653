package replay

import (
	"testing"

	"github.com/tracesmith/tracesmith/internal/event"
)

func sampleEvents() []event.Event {
	return []event.Event{
		{Kind: event.KindKernelLaunch, Timestamp: 0, StreamID: 0, CorrelationID: 1, Name: "a"},
		{Kind: event.KindKernelLaunch, Timestamp: 5, StreamID: 1, CorrelationID: 2, Name: "b"},
		{Kind: event.KindKernelComplete, Timestamp: 10, StreamID: 0, CorrelationID: 1},
		{Kind: event.KindKernelComplete, Timestamp: 15, StreamID: 1, CorrelationID: 2},
	}
}

func TestCursorStepEvent(t *testing.T) {
	c := NewCursor(sampleEvents())
	c.Start()
	if idx := c.CurrentIndex(); idx != 0 {
		t.Fatalf("CurrentIndex() after Start = %d, want 0", idx)
	}
	e, ok := c.StepEvent()
	if !ok || e.CorrelationID != 2 {
		t.Fatalf("StepEvent() = %+v, %v", e, ok)
	}
}

func TestCursorStepKernel(t *testing.T) {
	c := NewCursor(sampleEvents())
	c.Start()
	e, ok := c.StepKernel()
	if !ok || e.CorrelationID != 2 || e.Kind != event.KindKernelLaunch {
		t.Fatalf("StepKernel() = %+v, %v", e, ok)
	}
	_, ok = c.StepKernel()
	if ok {
		t.Fatal("expected no further kernel launches")
	}
}

func TestCursorGotoTimestampClamps(t *testing.T) {
	c := NewCursor(sampleEvents())
	c.GotoTimestamp(1000)
	if idx := c.CurrentIndex(); idx != c.TotalEvents() {
		t.Fatalf("GotoTimestamp beyond range: index = %d, want %d", idx, c.TotalEvents())
	}
}

func TestCursorGotoTimestampFindsFirstGE(t *testing.T) {
	c := NewCursor(sampleEvents())
	c.GotoTimestamp(6)
	e, ok := c.Current()
	if !ok || e.Timestamp != 10 {
		t.Fatalf("Current() = %+v, %v, want timestamp 10", e, ok)
	}
}

func TestCursorPauseResume(t *testing.T) {
	c := NewCursor(sampleEvents())
	c.Start()
	c.Pause()
	if c.State() != CursorPaused {
		t.Fatalf("State() = %v, want Paused", c.State())
	}
	c.Resume()
	if c.State() != CursorRunning {
		t.Fatalf("State() = %v, want Running", c.State())
	}
}

func TestEngineDeterministic(t *testing.T) {
	eng := NewEngine(sampleEvents(), ModeDryRun, 0)
	res := eng.RunTwice()
	if !res.Deterministic {
		t.Fatalf("expected deterministic replay, got %+v", res)
	}
	if res.OperationsTotal != 4 {
		t.Fatalf("OperationsTotal = %d, want 4", res.OperationsTotal)
	}
}

func TestEngineStreamSpecificFilters(t *testing.T) {
	eng := NewEngine(sampleEvents(), ModeStreamSpecific, 0)
	_, res := eng.Run()
	if res.OperationsTotal != 2 {
		t.Fatalf("OperationsTotal = %d, want 2 (stream 0 only)", res.OperationsTotal)
	}
}

func TestEngineReportsOrphanAsError(t *testing.T) {
	events := []event.Event{
		{Kind: event.KindKernelComplete, Timestamp: 0, CorrelationID: 42},
	}
	eng := NewEngine(events, ModeFull, 0)
	_, res := eng.Run()
	if res.OperationsFailed != 1 {
		t.Fatalf("OperationsFailed = %d, want 1", res.OperationsFailed)
	}
}
