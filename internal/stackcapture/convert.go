package stackcapture

import "github.com/tracesmith/tracesmith/internal/event"

// ToEventFrames converts stackcapture's local Frame slice into the
// event.StackFrame slice an Event's CallStack field expects. Kept as a
// separate conversion rather than having Capture return event.StackFrame
// directly so this package stays usable by anything that wants a raw
// call-stack snapshot without pulling in the event model.
func ToEventFrames(frames []Frame) []event.StackFrame {
	if frames == nil {
		return nil
	}
	out := make([]event.StackFrame, len(frames))
	for i, f := range frames {
		out[i] = event.StackFrame{
			Address:  f.Address,
			Function: f.Function,
			File:     f.File,
			Line:     f.Line,
		}
	}
	return out
}
