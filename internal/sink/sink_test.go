package sink

import (
	"sync"
	"testing"

	"github.com/tracesmith/tracesmith/internal/event"
)

func TestSubmitDrainOrder(t *testing.T) {
	s := New(0)
	for i := 0; i < 5; i++ {
		ok := s.Submit(event.Event{Kind: event.KindMarker, CorrelationID: event.CorrelationID(i)})
		if !ok {
			t.Fatalf("submit %d: unexpected drop", i)
		}
	}
	got := s.Drain(0)
	if len(got) != 5 {
		t.Fatalf("drained %d events, want 5", len(got))
	}
	for i, e := range got {
		if e.CorrelationID != event.CorrelationID(i) {
			t.Errorf("event %d has CorrelationID %d, want %d", i, e.CorrelationID, i)
		}
	}
}

func TestSubmitDropsWhenFull(t *testing.T) {
	s := New(2)
	if !s.Submit(event.Event{}) {
		t.Fatal("first submit should not drop")
	}
	if !s.Submit(event.Event{}) {
		t.Fatal("second submit should not drop")
	}
	if s.Submit(event.Event{}) {
		t.Fatal("third submit should drop")
	}
	captured, dropped := s.Counts()
	if captured != 2 || dropped != 1 {
		t.Fatalf("counts = (%d, %d), want (2, 1)", captured, dropped)
	}
}

func TestDrainPartial(t *testing.T) {
	s := New(0)
	for i := 0; i < 10; i++ {
		s.Submit(event.Event{CorrelationID: event.CorrelationID(i)})
	}
	first := s.Drain(4)
	if len(first) != 4 {
		t.Fatalf("len(first) = %d, want 4", len(first))
	}
	if s.Len() != 6 {
		t.Fatalf("remaining len = %d, want 6", s.Len())
	}
	rest := s.Drain(0)
	if len(rest) != 6 {
		t.Fatalf("len(rest) = %d, want 6", len(rest))
	}
	for i, e := range append(first, rest...) {
		if e.CorrelationID != event.CorrelationID(i) {
			t.Errorf("event %d has CorrelationID %d, want %d", i, e.CorrelationID, i)
		}
	}
}

func TestLiveCallbackObservesEvent(t *testing.T) {
	s := New(0)
	var seen []event.Kind
	s.SetLiveCallback(func(e *event.Event) {
		seen = append(seen, e.Kind)
	})
	s.Submit(event.Event{Kind: event.KindKernelLaunch})
	s.Submit(event.Event{Kind: event.KindKernelComplete})
	if len(seen) != 2 || seen[0] != event.KindKernelLaunch || seen[1] != event.KindKernelComplete {
		t.Fatalf("live callback saw %v", seen)
	}
}

func TestLiveCallbackSingleReentry(t *testing.T) {
	s := New(0)
	var reentered bool
	s.SetLiveCallback(func(e *event.Event) {
		if e.Kind == event.KindMarker {
			reentered = s.Submit(event.Event{Kind: event.KindCustom})
		}
	})
	if !s.Submit(event.Event{Kind: event.KindMarker}) {
		t.Fatal("outer submit should succeed")
	}
	if !reentered {
		t.Fatal("re-entrant submit from within the live callback should succeed")
	}
	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
}

func TestCountsConcurrent(t *testing.T) {
	s := New(0)
	var wg sync.WaitGroup
	const producers = 8
	const perProducer = 100
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				s.Submit(event.Event{})
			}
		}()
	}
	wg.Wait()
	captured, dropped := s.Counts()
	if captured != producers*perProducer {
		t.Fatalf("captured = %d, want %d", captured, producers*perProducer)
	}
	if dropped != 0 {
		t.Fatalf("dropped = %d, want 0", dropped)
	}
}
