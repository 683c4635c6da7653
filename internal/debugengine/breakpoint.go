package debugengine

import (
	"path"

	"github.com/tracesmith/tracesmith/internal/event"
)

// BreakpointKind is the GPU-breakpoint category named by its
// `ts break <kind>` grammar.
type BreakpointKind string

const (
	BreakKernel BreakpointKind = "kernel"
	BreakMemcpy BreakpointKind = "memcpy"
	BreakAlloc  BreakpointKind = "alloc"
	BreakFree   BreakpointKind = "free"
	BreakSync   BreakpointKind = "sync"
)

// Breakpoint is one GPU-level breakpoint: it matches events by
// kind and a wildcard pattern over the event name, optionally restricted
// to one device.
type Breakpoint struct {
	ID            int
	Kind          BreakpointKind
	KernelPattern string
	DeviceFilter  *event.DeviceID
	Enabled       bool
	HitCount      int
}

// matches reports whether e trips this breakpoint. Matching is by kind
// first (cheap), then device filter, then a shell-style glob against the
// event's name.
func (bp *Breakpoint) matches(e *event.Event) bool {
	if !bp.Enabled {
		return false
	}
	if !kindMatches(bp.Kind, e.Kind) {
		return false
	}
	if bp.DeviceFilter != nil && *bp.DeviceFilter != e.DeviceID {
		return false
	}
	if bp.KernelPattern == "" || bp.KernelPattern == "*" {
		return true
	}
	ok, err := path.Match(bp.KernelPattern, e.Name)
	return err == nil && ok
}

func kindMatches(bk BreakpointKind, k event.Kind) bool {
	switch bk {
	case BreakKernel:
		return k == event.KindKernelLaunch
	case BreakMemcpy:
		return k.IsMemcpy()
	case BreakAlloc:
		return k == event.KindMemAlloc
	case BreakFree:
		return k == event.KindMemFree
	case BreakSync:
		return k.IsSync()
	default:
		return false
	}
}
