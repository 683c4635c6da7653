// Package gpustate implements the per-(device,stream) state machine: a
// single-threaded consumer that folds an event list into live state
// snapshots, a memory ledger, and warnings for orphan completions and
// double frees. It is driven synchronously by Apply over an ordered
// input rather than a goroutine-driven actor, since
// nothing here needs concurrency.
package gpustate

import (
	"fmt"

	"github.com/tracesmith/tracesmith/internal/event"
)

// State is one of the five per-(device,stream) states.
type State uint8

const (
	Idle State = iota
	Launching
	Executing
	Synchronizing
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Launching:
		return "Launching"
	case Executing:
		return "Executing"
	case Synchronizing:
		return "Synchronizing"
	default:
		return "Error"
	}
}

// streamKey identifies one (device, stream) pair.
type streamKey struct {
	Device event.DeviceID
	Stream event.StreamID
}

// streamState is the live state of one (device, stream) pair.
type streamState struct {
	state           State
	pendingCorr     event.CorrelationID
	pendingHasValue bool
	activeKernel    string
}

// Allocation is one currently-live memory allocation on a device.
type Allocation struct {
	Address   uint64
	ByteCount uint64
}

// MemoryLedger tracks one device's allocation lifecycle.
type MemoryLedger struct {
	live       map[uint64]uint64 // address -> byte count
	liveBytes  uint64
	peakBytes  uint64
	allocCount uint64
}

func newMemoryLedger() *MemoryLedger {
	return &MemoryLedger{live: make(map[uint64]uint64)}
}

// LiveBytes returns current live byte count.
func (m *MemoryLedger) LiveBytes() uint64 { return m.liveBytes }

// PeakBytes returns the high-water mark of live bytes.
func (m *MemoryLedger) PeakBytes() uint64 { return m.peakBytes }

// AllocCount returns the lifetime number of successful allocations.
func (m *MemoryLedger) AllocCount() uint64 { return m.allocCount }

// LiveAllocations returns a snapshot of every currently-live allocation.
func (m *MemoryLedger) LiveAllocations() []Allocation {
	out := make([]Allocation, 0, len(m.live))
	for addr, n := range m.live {
		out = append(out, Allocation{Address: addr, ByteCount: n})
	}
	return out
}

// Warning describes a non-fatal anomaly observed while folding events.
type Warning struct {
	EventIndex int
	Message    string
}

// Machine is the full state machine over every (device,stream) observed so
// far.
type Machine struct {
	streams  map[streamKey]*streamState
	ledgers  map[event.DeviceID]*MemoryLedger
	devices  map[event.DeviceID]bool
	warnings []Warning
}

// New returns an empty Machine.
func New() *Machine {
	return &Machine{
		streams: make(map[streamKey]*streamState),
		ledgers: make(map[event.DeviceID]*MemoryLedger),
		devices: make(map[event.DeviceID]bool),
	}
}

// Apply folds a full event list through the machine in order. Safe to
// call multiple times with disjoint, time-ordered slices (e.g. to drive
// the machine incrementally from a replay cursor).
func (m *Machine) Apply(events []event.Event) {
	for i := range events {
		m.applyOne(i, &events[i])
	}
}

func (m *Machine) applyOne(idx int, e *event.Event) {
	m.touchDevice(e.DeviceID)
	key := streamKey{Device: e.DeviceID, Stream: e.StreamID}
	s := m.streams[key]
	if s == nil {
		s = &streamState{state: Idle}
		m.streams[key] = s
	}

	// Synchronizing from a zero-duration sync lasts until the next event
	// on the stream.
	if s.state == Synchronizing {
		s.state = Idle
	}

	switch {
	case e.Kind == event.KindKernelLaunch:
		// KernelLaunch moves the stream to Launching and records
		// the pending correlation; it stays Launching for the whole
		// execution window, since the event model has no separate
		// "device began executing" notification.
		s.state = Launching
		s.pendingCorr = e.CorrelationID
		s.pendingHasValue = true
		s.activeKernel = e.Name

	case e.Kind == event.KindKernelComplete:
		if s.pendingHasValue && s.pendingCorr == e.CorrelationID {
			// the matching complete passes through Executing on
			// its way to Idle; since that's instantaneous, only Idle is
			// observable afterward.
			s.state = Idle
			s.pendingHasValue = false
			s.activeKernel = ""
		} else {
			m.warn(idx, fmt.Sprintf("orphan completion: correlation %d on device %d stream %d has no matching launch", e.CorrelationID, e.DeviceID, e.StreamID))
		}

	case e.Kind.IsSync():
		// A sync with non-zero duration covers all pending work and
		// returns to Idle immediately; a zero-duration sync leaves the
		// stream Synchronizing until the next event on it.
		if e.Duration > 0 {
			s.state = Idle
			s.pendingHasValue = false
		} else {
			s.state = Synchronizing
		}

	case e.Kind == event.KindMemAlloc:
		m.allocate(e)

	case e.Kind == event.KindMemFree:
		m.free(idx, e)
	}
}

func (m *Machine) touchDevice(id event.DeviceID) {
	if !m.devices[id] {
		m.devices[id] = true
		m.ledgers[id] = newMemoryLedger()
	}
}

func (m *Machine) allocate(e *event.Event) {
	if !e.HasMemoryParams {
		return
	}
	l := m.ledgers[e.DeviceID]
	addr := e.MemoryParams.DstAddr
	l.live[addr] = e.MemoryParams.ByteCount
	l.liveBytes += e.MemoryParams.ByteCount
	l.allocCount++
	if l.liveBytes > l.peakBytes {
		l.peakBytes = l.liveBytes
	}
}

func (m *Machine) free(idx int, e *event.Event) {
	if !e.HasMemoryParams {
		return
	}
	l := m.ledgers[e.DeviceID]
	addr := e.MemoryParams.DstAddr
	n, ok := l.live[addr]
	if !ok {
		m.warn(idx, fmt.Sprintf("double free: address 0x%x on device %d is not currently live", addr, e.DeviceID))
		return
	}
	delete(l.live, addr)
	l.liveBytes -= n
}

func (m *Machine) warn(idx int, msg string) {
	m.warnings = append(m.warnings, Warning{EventIndex: idx, Message: msg})
}

// Warnings returns every warning accumulated so far, in event order.
func (m *Machine) Warnings() []Warning { return m.warnings }

// StreamState reports the current state of (device,stream), or Idle if it
// has never been seen.
func (m *Machine) StreamState(device event.DeviceID, stream event.StreamID) State {
	s := m.streams[streamKey{Device: device, Stream: stream}]
	if s == nil {
		return Idle
	}
	return s.state
}

// ActiveKernel reports the name of the kernel currently executing on
// (device,stream), or "" if idle.
func (m *Machine) ActiveKernel(device event.DeviceID, stream event.StreamID) string {
	s := m.streams[streamKey{Device: device, Stream: stream}]
	if s == nil {
		return ""
	}
	return s.activeKernel
}

// Ledger returns the memory ledger for device, or nil if the device has
// not been observed.
func (m *Machine) Ledger(device event.DeviceID) *MemoryLedger {
	return m.ledgers[device]
}

// Devices returns every device id observed so far.
func (m *Machine) Devices() []event.DeviceID {
	out := make([]event.DeviceID, 0, len(m.devices))
	for id := range m.devices {
		out = append(out, id)
	}
	return out
}

// ActiveKernelEntry is a snapshot entry returned by ActiveKernels.
type ActiveKernelEntry struct {
	Device event.DeviceID
	Stream event.StreamID
	Name   string
}

// ActiveKernels returns a snapshot of every (device,stream) currently
// executing a kernel.
func (m *Machine) ActiveKernels() []ActiveKernelEntry {
	var out []ActiveKernelEntry
	for k, s := range m.streams {
		if s.state == Launching && s.activeKernel != "" {
			out = append(out, ActiveKernelEntry{Device: k.Device, Stream: k.Stream, Name: s.activeKernel})
		}
	}
	return out
}
