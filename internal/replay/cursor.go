// Package replay implements the observation-only replay cursor and
// the replay engine built on top of it. Neither ever submits work
// to a vendor runtime; both only walk an already-captured event list.
package replay

import (
	"sync"

	"github.com/tracesmith/tracesmith/internal/event"
)

// CursorState is the run state of a Cursor, distinct from its position.
type CursorState uint8

const (
	CursorStopped CursorState = iota
	CursorRunning
	CursorPaused
)

// Cursor tracks current_index/current_timestamp over an ordered event
// list. It never executes anything; all operations only move the
// position.
type Cursor struct {
	mu     sync.Mutex
	events []event.Event
	index  int
	state  CursorState
}

// NewCursor loads events (already ordered by timestamp, typically via
// internal/sbt.Reader.ReadAll followed by TraceRecord.SortByTimestamp) into
// a new, stopped cursor positioned before the first event.
func NewCursor(events []event.Event) *Cursor {
	return &Cursor{events: events, index: -1, state: CursorStopped}
}

// Start moves the cursor to Running and positions it at the first event,
// if any.
func (c *Cursor) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = CursorRunning
	if c.index < 0 && len(c.events) > 0 {
		c.index = 0
	}
}

// Stop resets the cursor to Stopped and rewinds to before the first event.
func (c *Cursor) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = CursorStopped
	c.index = -1
}

// Pause moves a Running cursor to Paused. A no-op otherwise.
func (c *Cursor) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == CursorRunning {
		c.state = CursorPaused
	}
}

// Resume moves a Paused cursor back to Running. A no-op otherwise.
func (c *Cursor) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == CursorPaused {
		c.state = CursorRunning
	}
}

// State reports the cursor's current run state.
func (c *Cursor) State() CursorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentIndex returns the cursor's position, or -1 before the first
// event.
func (c *Cursor) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// CurrentTimestamp returns the timestamp at the current position, or 0
// before the first event.
func (c *Cursor) CurrentTimestamp() event.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timestampAt(c.index)
}

func (c *Cursor) timestampAt(idx int) event.Timestamp {
	if idx < 0 || idx >= len(c.events) {
		return 0
	}
	return c.events[idx].Timestamp
}

// Current returns the event at the current position and whether one
// exists.
func (c *Cursor) Current() (event.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index < 0 || c.index >= len(c.events) {
		return event.Event{}, false
	}
	return c.events[c.index], true
}

// TotalEvents returns the length of the loaded event list.
func (c *Cursor) TotalEvents() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// StepEvent advances by exactly one event and returns it, or ok=false if
// already at the end.
func (c *Cursor) StepEvent() (event.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index+1 >= len(c.events) {
		c.index = len(c.events)
		return event.Event{}, false
	}
	c.index++
	return c.events[c.index], true
}

// StepKernel advances to the next event whose kind is KernelLaunch,
// returning ok=false if none remains.
func (c *Cursor) StepKernel() (event.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := c.index + 1; i < len(c.events); i++ {
		if c.events[i].Kind == event.KindKernelLaunch {
			c.index = i
			return c.events[i], true
		}
	}
	c.index = len(c.events)
	return event.Event{}, false
}

// GotoTimestamp positions the cursor at the first event whose timestamp is
// >= target, clamping to total_events if target is beyond the last event.
func (c *Cursor) GotoTimestamp(target event.Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.events {
		if e.Timestamp >= target {
			c.index = i
			return
		}
	}
	c.index = len(c.events)
}

// GotoEvent positions the cursor at index idx, clamping into [0,
// len(events)].
func (c *Cursor) GotoEvent(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx < 0 {
		idx = 0
	}
	if idx > len(c.events) {
		idx = len(c.events)
	}
	c.index = idx
}
