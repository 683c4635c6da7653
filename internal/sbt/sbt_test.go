package sbt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tracesmith/tracesmith/internal/event"
)

func sampleEvents() []event.Event {
	return []event.Event{
		{
			Kind:            event.KindKernelLaunch,
			Timestamp:       100,
			DeviceID:        0,
			StreamID:        0,
			CorrelationID:   1,
			ThreadID:        7,
			Name:            "sgemm",
			HasKernelParams: true,
			KernelParams:    event.KernelParams{GridX: 16, BlockX: 128, WarpSize: 32},
			HasCallStack:    true,
			CallStack: []event.StackFrame{
				{Address: 0x1000, Function: "main", File: "main.go", Line: 42},
			},
		},
		{
			Kind:          event.KindKernelComplete,
			Timestamp:     200,
			Duration:      100,
			DeviceID:      0,
			StreamID:      0,
			CorrelationID: 1,
			Name:          "sgemm",
		},
		{
			Kind:            event.KindMemcpyH2D,
			Timestamp:       50,
			DeviceID:        0,
			HasMemoryParams: true,
			MemoryParams:    event.MemoryParams{SrcAddr: 0x2000, DstAddr: 0x3000, ByteCount: 4096, Async: true},
			HasMetadata:     true,
			Metadata:        event.Metadata{}.Set("direction", "h2d"),
			HasFlowInfo:     true,
			FlowInfo:        event.FlowInfo{ID: 9, Type: event.FlowTypeSubmission, IsStart: true},
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.sbt")

	w, err := Create(path)
	if err != nil {
		t.Fatal(err)
	}
	meta := event.TraceMetadata{
		ApplicationName: "my-training-job",
		CommandLine:     []string{"train", "--epochs", "10"},
		StartTimestamp:  1,
		EndTimestamp:    1000,
		Extra:           event.Metadata{}.Set("host", "node-1"),
	}
	if err := w.WriteMetadata(meta); err != nil {
		t.Fatal(err)
	}
	devices := []event.DeviceInfo{{
		ID: 0, Vendor: event.PlatformCUDA, Name: "GPU0", ComputeCapability: "8.0",
		TotalMemory: 1 << 30, MultiprocessorCount: 80, ClockRateKHz: 1500000,
	}}
	if err := w.WriteDeviceInfo(devices); err != nil {
		t.Fatal(err)
	}
	events := sampleEvents()
	if err := w.WriteEvents(events); err != nil {
		t.Fatal(err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}
	if w.EventCount() != uint64(len(events)) {
		t.Fatalf("EventCount() = %d, want %d", w.EventCount(), len(events))
	}

	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if !r.IsValid() {
		t.Fatal("expected valid header")
	}
	if r.Header().EventCount != uint64(len(events)) {
		t.Fatalf("header EventCount = %d, want %d", r.Header().EventCount, len(events))
	}

	rec, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if rec.Metadata.ApplicationName != meta.ApplicationName {
		t.Errorf("ApplicationName = %q, want %q", rec.Metadata.ApplicationName, meta.ApplicationName)
	}
	if len(rec.Devices) != 1 || rec.Devices[0].Name != "GPU0" {
		t.Fatalf("unexpected devices: %+v", rec.Devices)
	}
	if len(rec.Events) != len(events) {
		t.Fatalf("got %d events, want %d", len(rec.Events), len(events))
	}
	for i, want := range events {
		got := rec.Events[i]
		if got.Kind != want.Kind || got.Timestamp != want.Timestamp || got.CorrelationID != want.CorrelationID || got.Name != want.Name {
			t.Errorf("event %d mismatch: got %+v, want %+v", i, got, want)
		}
	}
	if rec.Events[0].KernelParams.GridX != 16 {
		t.Errorf("kernel params not round-tripped: %+v", rec.Events[0].KernelParams)
	}
	if len(rec.Events[0].CallStack) != 1 || rec.Events[0].CallStack[0].Function != "main" {
		t.Errorf("call stack not round-tripped: %+v", rec.Events[0].CallStack)
	}
	if rec.Events[2].MemoryParams.ByteCount != 4096 {
		t.Errorf("memory params not round-tripped: %+v", rec.Events[2].MemoryParams)
	}
	if v, ok := rec.Events[2].Metadata.Get("direction"); !ok || v != "h2d" {
		t.Errorf("metadata not round-tripped: %+v", rec.Events[2].Metadata)
	}
	if rec.Events[2].FlowInfo.ID != 9 {
		t.Errorf("flow info not round-tripped: %+v", rec.Events[2].FlowInfo)
	}
	if !rec.Finalized() {
		t.Error("expected reconstructed TraceRecord to be finalized")
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.sbt")
	if err := os.WriteFile(path, make([]byte, 64), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if r.IsValid() {
		t.Fatal("expected invalid header for all-zero file")
	}
}

func TestEventsSortedFlag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sorted.sbt")

	w, err := Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w.SetSorted(true)
	events := sampleEvents()
	// Pre-sort to match SetSorted's claim.
	sorted := make([]event.Event, len(events))
	copy(sorted, events)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].Timestamp < sorted[i].Timestamp {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	if err := w.WriteEvents(sorted); err != nil {
		t.Fatal(err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if r.Header().Flags&FlagEventsSorted == 0 {
		t.Fatal("expected events-sorted flag to be set")
	}
	rec, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if !rec.SortedByTimestamp() {
		t.Error("expected SortedByTimestamp() to be true after reading a sorted trace")
	}
}

func TestUnknownEventKindSurfacesAsCustom(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unknown.sbt")
	w, err := Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteEvent(event.Event{Kind: event.Kind(200), Timestamp: 1}); err != nil {
		t.Fatal(err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if rec.Events[0].Kind != event.KindCustom {
		t.Errorf("got kind %v, want Custom", rec.Events[0].Kind)
	}
}
