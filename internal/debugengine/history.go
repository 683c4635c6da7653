package debugengine

import "github.com/tracesmith/tracesmith/internal/event"

// eventRing is a bounded FIFO of recently drained events; once full, the
// oldest entry is discarded to make room for the newest.
type eventRing struct {
	buf      []event.Event
	capacity int
	start    int
	size     int
}

func newEventRing(capacity int) *eventRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &eventRing{buf: make([]event.Event, capacity), capacity: capacity}
}

func (r *eventRing) push(e event.Event) {
	idx := (r.start + r.size) % r.capacity
	r.buf[idx] = e
	if r.size < r.capacity {
		r.size++
	} else {
		r.start = (r.start + 1) % r.capacity
	}
}

// snapshot returns the ring's contents oldest-first.
func (r *eventRing) snapshot() []event.Event {
	out := make([]event.Event, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%r.capacity]
	}
	return out
}

// KernelHistoryEntry is one kernel launch/completion pair tracked by the
// bounded kernel-history ring.
type KernelHistoryEntry struct {
	CorrelationID event.CorrelationID
	Name          string
	Device        event.DeviceID
	Stream        event.StreamID
	LaunchTime    event.Timestamp
	CompleteTime  event.Timestamp
	Completed     bool
}

// kernelHistoryRing mirrors eventRing but also indexes entries by
// correlation id so a later KernelComplete can fill in CompleteTime on
// its matching launch entry, as long as it has not yet been evicted.
type kernelHistoryRing struct {
	entries  []KernelHistoryEntry
	capacity int
	start    int
	size     int
	index    map[event.CorrelationID]int // correlation id -> slot in entries
}

func newKernelHistoryRing(capacity int) *kernelHistoryRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &kernelHistoryRing{
		entries:  make([]KernelHistoryEntry, capacity),
		capacity: capacity,
		index:    make(map[event.CorrelationID]int),
	}
}

func (r *kernelHistoryRing) launch(e *event.Event) {
	var idx int
	if r.size == r.capacity {
		idx = r.start
		evicted := r.entries[idx]
		if r.index[evicted.CorrelationID] == idx {
			delete(r.index, evicted.CorrelationID)
		}
		r.start = (r.start + 1) % r.capacity
	} else {
		idx = (r.start + r.size) % r.capacity
		r.size++
	}
	r.entries[idx] = KernelHistoryEntry{
		CorrelationID: e.CorrelationID,
		Name:          e.Name,
		Device:        e.DeviceID,
		Stream:        e.StreamID,
		LaunchTime:    e.Timestamp,
	}
	r.index[e.CorrelationID] = idx
}

func (r *kernelHistoryRing) complete(e *event.Event) {
	idx, ok := r.index[e.CorrelationID]
	if !ok {
		return
	}
	r.entries[idx].CompleteTime = e.Timestamp
	r.entries[idx].Completed = true
}

func (r *kernelHistoryRing) snapshot() []KernelHistoryEntry {
	out := make([]KernelHistoryEntry, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.entries[(r.start+i)%r.capacity]
	}
	return out
}
