package debugengine

import (
	"testing"

	"github.com/tracesmith/tracesmith/internal/event"
)

func TestProcessFeedsStateMachineAndHistory(t *testing.T) {
	e := New()
	e.Process(event.Event{Kind: event.KindKernelLaunch, CorrelationID: 1, Name: "saxpy", DeviceID: 0, StreamID: 0, Timestamp: 10})
	e.Process(event.Event{Kind: event.KindKernelComplete, CorrelationID: 1, DeviceID: 0, StreamID: 0, Timestamp: 20})

	if got := e.StreamState(0, 0); got != 0 { // gpustate.Idle == 0
		t.Fatalf("StreamState after complete = %v, want Idle", got)
	}
	hist := e.KernelHistory()
	if len(hist) != 1 || hist[0].Name != "saxpy" || !hist[0].Completed || hist[0].CompleteTime != 20 {
		t.Fatalf("KernelHistory() = %+v, want one completed saxpy entry", hist)
	}
	if len(e.RecentEvents()) != 2 {
		t.Fatalf("RecentEvents() length = %d, want 2", len(e.RecentEvents()))
	}
}

func TestBreakpointMatchAndHitCount(t *testing.T) {
	e := New()
	id, err := e.AddBreakpoint(BreakKernel, "saxpy*", nil)
	if err != nil {
		t.Fatalf("AddBreakpoint: %v", err)
	}

	var matchedID int
	e.SetCallback(func(ev event.Event, bp *Breakpoint) {
		if bp != nil {
			matchedID = bp.ID
		}
	})

	e.Process(event.Event{Kind: event.KindKernelLaunch, Name: "saxpy_kernel", CorrelationID: 1})
	if matchedID != id {
		t.Fatalf("matched breakpoint id = %d, want %d", matchedID, id)
	}

	for _, bp := range e.ListBreakpoints() {
		if bp.ID == id && bp.HitCount != 1 {
			t.Fatalf("HitCount = %d, want 1", bp.HitCount)
		}
	}

	e.Process(event.Event{Kind: event.KindKernelLaunch, Name: "other_kernel", CorrelationID: 2})
	for _, bp := range e.ListBreakpoints() {
		if bp.ID == id && bp.HitCount != 1 {
			t.Fatalf("HitCount after non-matching event = %d, want still 1", bp.HitCount)
		}
	}
}

func TestDisabledBreakpointNeverMatches(t *testing.T) {
	e := New()
	id, _ := e.AddBreakpoint(BreakAlloc, "*", nil)
	e.EnableBreakpoint(id, false)

	matched := e.Process(event.Event{Kind: event.KindMemAlloc, Name: "buf"})
	if matched != nil {
		t.Fatalf("disabled breakpoint matched: %+v", matched)
	}
}

func TestRemoveBreakpoint(t *testing.T) {
	e := New()
	id, _ := e.AddBreakpoint(BreakSync, "*", nil)
	if !e.RemoveBreakpoint(id) {
		t.Fatal("RemoveBreakpoint returned false")
	}
	if len(e.ListBreakpoints()) != 0 {
		t.Fatal("expected no breakpoints after removal")
	}
}

func TestSearchKernelsWildcard(t *testing.T) {
	e := New()
	e.Process(event.Event{Kind: event.KindKernelLaunch, Name: "gemm_fp16", CorrelationID: 1})
	e.Process(event.Event{Kind: event.KindKernelLaunch, Name: "gemm_fp32", CorrelationID: 2})
	e.Process(event.Event{Kind: event.KindKernelLaunch, Name: "relu", CorrelationID: 3})

	got := e.SearchKernels("gemm_*")
	if len(got) != 2 {
		t.Fatalf("SearchKernels(gemm_*) returned %d entries, want 2", len(got))
	}
}

func TestTraceStartStopAccumulates(t *testing.T) {
	e := New()
	e.StartTrace()
	e.Process(event.Event{Kind: event.KindMarker, Name: "m1"})
	e.StopTrace()
	e.Process(event.Event{Kind: event.KindMarker, Name: "m2"})

	if len(e.trace.Events) != 1 {
		t.Fatalf("trace has %d events after stop, want 1 (stop should freeze accumulation)", len(e.trace.Events))
	}
}
