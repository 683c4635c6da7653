// Package capture defines the vendor-adapter contract and the factory
// that resolves a platform.Kind to a concrete Adapter. Individual
// vendor adapters live in subpackages (cuda, rocm, metal, maca, ascend,
// simulation); this package only knows the shared interface and the
// preference-order fallthrough, the same split ALEYI17-InfraSight_gpu uses
// between its loaders package (the factory) and each probe's own package.
package capture

import (
	"github.com/tracesmith/tracesmith/internal/capture/probe"
	"github.com/tracesmith/tracesmith/internal/event"
)

// Config is passed to Adapter.Initialize. It carries everything a vendor
// adapter needs without reaching back into internal/config, so the capture
// package has no dependency on the CLI's configuration shape. It is an
// alias of probe.Config so every vendor package (which embeds probe.Base)
// satisfies this signature exactly, without probe importing capture.
type Config = probe.Config

// Adapter is the contract every vendor capture backend implements.
// A zero-value Adapter is never valid; adapters are constructed through
// their package's New function and handed to the factory.
type Adapter interface {
	// Initialize prepares the adapter to capture. It must return
	// errorutil.ErrRuntimeUnavailable if the vendor runtime cannot be
	// detected on this host, so the factory can fall through to the next
	// configured platform.
	Initialize(cfg Config) error

	// Start begins translating vendor callbacks into events submitted to
	// the configured sink. Must be called after a successful Initialize.
	Start() error

	// Stop halts capture. Safe to call more than once.
	Stop() error

	// Drain returns up to max buffered events directly from the adapter's
	// own sink, mirroring the sink's own Drain semantics; most callers
	// drain through the shared sink instead and never call this.
	Drain(max int) []event.Event

	// Devices reports the devices discovered during Initialize.
	Devices() []event.DeviceInfo

	// EventsCaptured and EventsDropped report the adapter's lifetime
	// counters, independent of whatever the sink itself reports, since an
	// adapter may discard unrecognized vendor records before they ever
	// reach the sink.
	EventsCaptured() uint64
	EventsDropped() uint64

	// Platform identifies which vendor this adapter implements.
	Platform() event.PlatformKind
}
