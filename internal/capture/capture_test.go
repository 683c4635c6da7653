package capture

import (
	"testing"
	"time"

	"github.com/tracesmith/tracesmith/internal/event"
	"github.com/tracesmith/tracesmith/internal/sink"
)

func TestResolveFallsThroughToSimulation(t *testing.T) {
	s := sink.New(0)
	cfg := Config{Sink: s}
	a, err := Resolve([]event.PlatformKind{event.PlatformSimulation}, cfg)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if a.Platform() != event.PlatformSimulation {
		t.Fatalf("got platform %v, want simulation", a.Platform())
	}
}

func TestSimulationAdapterCapturesEvents(t *testing.T) {
	s := sink.New(0)
	a, err := New(event.PlatformSimulation)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Initialize(Config{Sink: s}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := a.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	got := s.Drain(0)
	if len(got) == 0 {
		t.Fatal("expected at least one captured event")
	}
	if a.EventsCaptured() == 0 {
		t.Error("expected EventsCaptured > 0")
	}
	devices := a.Devices()
	if len(devices) != 1 || devices[0].Vendor != event.PlatformSimulation {
		t.Fatalf("unexpected devices: %+v", devices)
	}
}

func TestNewUnknownPlatform(t *testing.T) {
	if _, err := New(event.PlatformUnknown); err == nil {
		t.Fatal("expected error for unknown platform")
	}
}
