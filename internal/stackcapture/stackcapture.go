// Package stackcapture takes best-effort host call-stack snapshots for
// events that request one. It is deliberately independent of any
// vendor adapter: capture adapters call Capture from the goroutine that
// observed the vendor callback, so the stack reflects the host-side
// call path into the vendor SDK, not any GPU-side state.
package stackcapture

import "runtime"

// Config controls how much stack Capture walks and whether it resolves
// symbols, mirroring capture_max_stack and resolve_symbols from
// internal/config. There is no demangling setting.
type Config struct {
	MaxDepth       int
	ResolveSymbols bool
	SkipFrames     int
}

// DefaultConfig returns tracesmith's default capture depth and symbol
// resolution settings.
func DefaultConfig() Config {
	return Config{MaxDepth: 32, ResolveSymbols: true, SkipFrames: 0}
}

// Frame is one entry of a captured call stack, the stackcapture-local
// equivalent of event.StackFrame so this package carries no dependency on
// internal/event; callers convert with ToEventFrames.
type Frame struct {
	Address  uint64
	Function string
	File     string
	Line     uint32
}

// Capture walks up to cfg.MaxDepth frames above its caller, skipping
// cfg.SkipFrames additional frames on top of the two (runtime.Callers and
// Capture itself) this function always skips. When cfg.ResolveSymbols is
// false, Function/File/Line are left empty and only Address is populated,
// which is substantially cheaper since it avoids runtime.CallersFrames'
// line-table walk.
func Capture(cfg Config) []Frame {
	if cfg.MaxDepth <= 0 {
		return nil
	}
	pcs := make([]uintptr, cfg.MaxDepth)
	// Skip runtime.Callers, Capture, and the caller's requested extra frames.
	n := runtime.Callers(2+cfg.SkipFrames, pcs)
	if n == 0 {
		return nil
	}
	pcs = pcs[:n]

	if !cfg.ResolveSymbols {
		frames := make([]Frame, n)
		for i, pc := range pcs {
			frames[i] = Frame{Address: uint64(pc)}
		}
		return frames
	}

	out := make([]Frame, 0, n)
	iter := runtime.CallersFrames(pcs)
	for {
		fr, more := iter.Next()
		out = append(out, Frame{
			Address:  uint64(fr.PC),
			Function: fr.Function,
			File:     fr.File,
			Line:     uint32(fr.Line),
		})
		if !more {
			break
		}
	}
	return out
}
