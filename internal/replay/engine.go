package replay

import (
	"time"

	"github.com/tracesmith/tracesmith/internal/event"
	"github.com/tracesmith/tracesmith/internal/gpustate"
)

// Mode is one of the four replay engine modes. Full, Partial and DryRun
// all fold the whole event list through the state machine, and
// StreamSpecific folds one stream's events; no mode checks ordering or
// dependencies, and none submits work to a vendor runtime.
type Mode uint8

const (
	ModeFull Mode = iota
	ModePartial
	ModeDryRun
	ModeStreamSpecific
)

func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "Full"
	case ModePartial:
		return "Partial"
	case ModeDryRun:
		return "DryRun"
	case ModeStreamSpecific:
		return "StreamSpecific"
	default:
		return "Unknown"
	}
}

// Result is the report the engine returns.
type Result struct {
	Success            bool
	Deterministic      bool
	OperationsTotal    int
	OperationsExecuted int
	OperationsFailed   int
	ReplayDuration     time.Duration
	Errors             []string
}

// Engine folds a loaded event list into a gpustate.Machine in one of the
// four modes (replay is observation-only: the machine records what
// happened, it never re-issues any vendor call). It applies the events to
// the machine directly; it does not step a Cursor.
type Engine struct {
	events []event.Event
	mode   Mode
	// streamFilter restricts ModeStreamSpecific to one stream; ignored in
	// other modes.
	streamFilter event.StreamID
}

// NewEngine constructs an Engine over events in the given mode. stream is
// only consulted when mode is ModeStreamSpecific.
func NewEngine(events []event.Event, mode Mode, stream event.StreamID) *Engine {
	return &Engine{events: events, mode: mode, streamFilter: stream}
}

// Run replays the full event list once and returns the resulting
// snapshot and Result, without the determinism check (see RunTwice for
// that).
func (e *Engine) Run() (*gpustate.Machine, Result) {
	start := time.Now()
	machine := gpustate.New()

	selected := e.selectEvents()
	machine.Apply(selected)

	res := Result{
		Success:            true,
		OperationsTotal:    len(selected),
		OperationsExecuted: len(selected),
		ReplayDuration:     time.Since(start),
	}
	for _, w := range machine.Warnings() {
		res.Errors = append(res.Errors, w.Message)
	}
	res.OperationsFailed = len(res.Errors)
	return machine, res
}

// selectEvents applies the mode's event filter; Full/Partial/DryRun all
// observe the entire event list (their difference is about whether a
// vendor call would be issued, which this rendition never does),
// StreamSpecific restricts to one stream.
func (e *Engine) selectEvents() []event.Event {
	if e.mode != ModeStreamSpecific {
		return e.events
	}
	out := make([]event.Event, 0, len(e.events))
	for _, ev := range e.events {
		if ev.StreamID == e.streamFilter {
			out = append(out, ev)
		}
	}
	return out
}

// RunTwice replays the event list twice and compares outcomes, setting
// Result.Deterministic: identical operation counts and final
// state-machine snapshots that snapshotsEqual reports as equal.
func (e *Engine) RunTwice() Result {
	m1, res1 := e.Run()
	m2, res2 := e.Run()

	res1.Deterministic = snapshotsEqual(m1, m2) &&
		res1.OperationsTotal == res2.OperationsTotal &&
		res1.OperationsExecuted == res2.OperationsExecuted &&
		res1.OperationsFailed == res2.OperationsFailed
	return res1
}

// snapshotsEqual compares two independently-folded machines' observable
// state: per-device ledgers and the active-kernel listing must match
// exactly. Streams that are not running a kernel (Idle, Synchronizing)
// are not compared.
func snapshotsEqual(a, b *gpustate.Machine) bool {
	devicesA, devicesB := a.Devices(), b.Devices()
	if len(devicesA) != len(devicesB) {
		return false
	}
	seen := make(map[event.DeviceID]bool)
	for _, d := range devicesA {
		seen[d] = true
	}
	for _, d := range devicesB {
		if !seen[d] {
			return false
		}
		la, lb := a.Ledger(d), b.Ledger(d)
		if la == nil || lb == nil {
			if la != lb {
				return false
			}
			continue
		}
		if la.LiveBytes() != lb.LiveBytes() || la.PeakBytes() != lb.PeakBytes() || la.AllocCount() != lb.AllocCount() {
			return false
		}
	}

	kernelsA, kernelsB := a.ActiveKernels(), b.ActiveKernels()
	if len(kernelsA) != len(kernelsB) {
		return false
	}
	countA := make(map[gpustate.ActiveKernelEntry]int)
	for _, k := range kernelsA {
		countA[k]++
	}
	for _, k := range kernelsB {
		countA[k]--
	}
	for _, n := range countA {
		if n != 0 {
			return false
		}
	}
	return true
}
