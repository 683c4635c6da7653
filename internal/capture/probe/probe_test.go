package probe

import (
	"testing"
	"time"

	"github.com/tracesmith/tracesmith/internal/errorutil"
	"github.com/tracesmith/tracesmith/internal/event"
	"github.com/tracesmith/tracesmith/internal/sink"
)

func TestInitializeAbsentMarkerReturnsErrRuntimeUnavailable(t *testing.T) {
	b := NewBase(event.PlatformCUDA, func() ([]event.DeviceInfo, bool) { return nil, false })
	err := b.Initialize(Config{Sink: sink.New(0)})
	if err != errorutil.ErrRuntimeUnavailable {
		t.Fatalf("got %v, want ErrRuntimeUnavailable", err)
	}
}

func TestRunGeneratorProducesEvents(t *testing.T) {
	devices := []event.DeviceInfo{{ID: 0, Vendor: event.PlatformSimulation}}
	b := NewBase(event.PlatformSimulation, func() ([]event.DeviceInfo, bool) { return devices, true })
	s := sink.New(0)
	if err := b.Initialize(Config{Sink: s}); err != nil {
		t.Fatal(err)
	}
	var steps int
	if err := b.RunGenerator(func(b *Base) {
		steps++
		b.Submit(event.Event{Kind: event.KindMarker, CorrelationID: b.NextCorrelationID()})
	}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := b.StopGenerator(); err != nil {
		t.Fatal(err)
	}
	if steps == 0 {
		t.Fatal("expected generator to have run at least once")
	}
	if s.Len() == 0 {
		t.Fatal("expected submitted events in sink")
	}
	if got := b.Devices(); len(got) != 1 {
		t.Fatalf("Devices() = %v, want 1 entry", got)
	}
}

func TestStopGeneratorIdempotent(t *testing.T) {
	b := NewBase(event.PlatformSimulation, func() ([]event.DeviceInfo, bool) { return nil, true })
	if err := b.Initialize(Config{Sink: sink.New(0)}); err != nil {
		t.Fatal(err)
	}
	if err := b.StopGenerator(); err != nil {
		t.Fatalf("StopGenerator before Run: %v", err)
	}
	if err := b.RunGenerator(func(b *Base) {}); err != nil {
		t.Fatal(err)
	}
	if err := b.StopGenerator(); err != nil {
		t.Fatal(err)
	}
	if err := b.StopGenerator(); err != nil {
		t.Fatalf("second StopGenerator: %v", err)
	}
}
