// Package debugengine implements the GPU debug engine: it
// aggregates live/replayed capture, the GPU state machine, the replay
// cursor and a list of GPU breakpoints behind the single pipeline the
// RSP stub (internal/rsp) and the CLI's debug subcommand both drive.
package debugengine

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/tracesmith/tracesmith/internal/event"
	"github.com/tracesmith/tracesmith/internal/gpustate"
	"github.com/tracesmith/tracesmith/internal/replay"
	"github.com/tracesmith/tracesmith/internal/sbt"
)

const (
	defaultEventRingSize  = 4096
	defaultKernelRingSize = 1024
)

// EventCallback is invoked once per drained event, after the state
// machine, kernel-history ring and breakpoint list have all observed it.
type EventCallback func(e event.Event, matched *Breakpoint)

// Engine is the GPU debug engine. It is safe for concurrent use:
// events may be fed from a capture goroutine while an RSP loop queries
// state.
type Engine struct {
	mu sync.Mutex

	machine *gpustate.Machine
	events  *eventRing
	kernels *kernelHistoryRing

	breakpoints []*Breakpoint
	nextBPID    int

	trace    *event.TraceRecord
	tracing  bool
	callback EventCallback

	cursor *replay.Cursor
}

// New returns an empty Engine with default ring sizes.
func New() *Engine {
	return &Engine{
		machine:  gpustate.New(),
		events:   newEventRing(defaultEventRingSize),
		kernels:  newKernelHistoryRing(defaultKernelRingSize),
		nextBPID: 1,
	}
}

// SetCallback installs the user callback invoked after each event is
// fully processed.
func (e *Engine) SetCallback(cb EventCallback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callback = cb
}

// StartTrace begins accumulating every processed event into a fresh,
// in-memory TraceRecord, independent of the bounded display ring, so a
// later SaveTrace can persist the full session.
func (e *Engine) StartTrace() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.trace = event.NewTraceRecord()
	e.tracing = true
}

// StopTrace stops accumulating events; already-accumulated events are
// kept until SaveTrace or the next StartTrace.
func (e *Engine) StopTrace() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracing = false
}

// SaveTrace finalizes and writes the accumulated trace to an SBT file.
func (e *Engine) SaveTrace(path string, devices []event.DeviceInfo) error {
	e.mu.Lock()
	trace := e.trace
	e.mu.Unlock()
	if trace == nil {
		return fmt.Errorf("debugengine: no trace accumulated, call StartTrace first")
	}

	w, err := sbt.Create(path)
	if err != nil {
		return err
	}
	if err := w.WriteMetadata(trace.Metadata); err != nil {
		return err
	}
	if err := w.WriteDeviceInfo(devices); err != nil {
		return err
	}
	if err := w.WriteEvents(trace.Events); err != nil {
		return err
	}
	return w.Finalize()
}

// LoadForReplay opens an SBT file and loads a fresh replay cursor over
// its events, replacing any cursor previously loaded.
func (e *Engine) LoadForReplay(path string) error {
	r, err := sbt.Open(path)
	if err != nil {
		return err
	}
	rec, err := r.ReadAll()
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.cursor = replay.NewCursor(rec.Events)
	e.mu.Unlock()
	return nil
}

// Process runs one drained event through the full state-machine,
// history-ring and breakpoint-matching pipeline and returns the
// breakpoint it tripped, if any.
func (e *Engine) Process(ev event.Event) *Breakpoint {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.events.push(ev)
	e.machine.Apply([]event.Event{ev})

	if ev.Kind == event.KindKernelLaunch {
		e.kernels.launch(&ev)
	} else if ev.Kind == event.KindKernelComplete {
		e.kernels.complete(&ev)
	}

	var matched *Breakpoint
	for _, bp := range e.breakpoints {
		if bp.matches(&ev) {
			bp.HitCount++
			matched = bp
			break
		}
	}

	if e.tracing && e.trace != nil {
		e.trace.AppendEvents(ev)
	}

	cb := e.callback
	// Run the callback outside the lock's remaining scope is unsafe here
	// since defer already queued the unlock; the callback must tolerate
	// being invoked with the engine locked and must not call back into
	// the Engine itself.
	if cb != nil {
		cb(ev, matched)
	}
	return matched
}

// RecentEvents returns a snapshot of the bounded event history, oldest
// first.
func (e *Engine) RecentEvents() []event.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events.snapshot()
}

// KernelHistory returns a snapshot of the bounded kernel-history ring,
// oldest first.
func (e *Engine) KernelHistory() []KernelHistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.kernels.snapshot()
}

// SearchKernels returns every kernel-history entry whose name matches
// the shell-style glob pattern.
func (e *Engine) SearchKernels(pattern string) []KernelHistoryEntry {
	all := e.KernelHistory()
	if pattern == "" || pattern == "*" {
		return all
	}
	out := make([]KernelHistoryEntry, 0)
	for _, k := range all {
		if ok, err := matchGlob(pattern, k.Name); err == nil && ok {
			out = append(out, k)
		}
	}
	return out
}

// ActiveKernels reports every (device,stream) currently executing a
// kernel, per the live GPU state machine.
func (e *Engine) ActiveKernels() []gpustate.ActiveKernelEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.ActiveKernels()
}

// Devices returns every device id observed so far.
func (e *Engine) Devices() []event.DeviceID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Devices()
}

// Ledger returns the memory ledger for a device, or nil if unobserved.
func (e *Engine) Ledger(device event.DeviceID) *gpustate.MemoryLedger {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Ledger(device)
}

// StreamState reports a (device,stream)'s current state.
func (e *Engine) StreamState(device event.DeviceID, stream event.StreamID) gpustate.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.StreamState(device, stream)
}

// Warnings returns every anomaly the state machine has recorded.
func (e *Engine) Warnings() []gpustate.Warning {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Warnings()
}

// AddBreakpoint installs a new GPU breakpoint and returns its id.
func (e *Engine) AddBreakpoint(kind BreakpointKind, pattern string, device *event.DeviceID) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch kind {
	case BreakKernel, BreakMemcpy, BreakAlloc, BreakFree, BreakSync:
	default:
		return 0, fmt.Errorf("debugengine: unknown breakpoint kind %q", kind)
	}
	id := e.nextBPID
	e.nextBPID++
	e.breakpoints = append(e.breakpoints, &Breakpoint{
		ID:            id,
		Kind:          kind,
		KernelPattern: pattern,
		DeviceFilter:  device,
		Enabled:       true,
	})
	return id, nil
}

// RemoveBreakpoint deletes a breakpoint by id.
func (e *Engine) RemoveBreakpoint(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, bp := range e.breakpoints {
		if bp.ID == id {
			e.breakpoints = append(e.breakpoints[:i], e.breakpoints[i+1:]...)
			return true
		}
	}
	return false
}

// EnableBreakpoint toggles a breakpoint's enabled state.
func (e *Engine) EnableBreakpoint(id int, enable bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, bp := range e.breakpoints {
		if bp.ID == id {
			bp.Enabled = enable
			return true
		}
	}
	return false
}

// ListBreakpoints returns a snapshot of every installed breakpoint.
func (e *Engine) ListBreakpoints() []Breakpoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Breakpoint, len(e.breakpoints))
	for i, bp := range e.breakpoints {
		out[i] = *bp
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Cursor returns the currently loaded replay cursor, or nil if none has
// been loaded via LoadForReplay.
func (e *Engine) Cursor() *replay.Cursor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

func matchGlob(pattern, name string) (bool, error) {
	// path.Match treats '/' specially, which event names never contain,
	// so it doubles as a plain shell glob here; strings.ToLower keeps
	// kernel-name matching case-insensitive the way `monitor` output is
	// meant to be skimmed by a human at a gdb prompt.
	return path.Match(strings.ToLower(pattern), strings.ToLower(name))
}
