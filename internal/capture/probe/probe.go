// Package probe implements the shared "probe-only" adapter behavior used
// by every vendor package under internal/capture: detect a vendor marker
// on the host, and if present drive a deterministic synthetic event
// generator standing in for the vendor's real callback stream. None of the
// cuda/rocm/metal/maca/ascend packages talk to a real SDK (no cgo bindings
// are in scope); each supplies only its own marker-detection function and
// a device list, and embeds *probe.Base for everything else. This mirrors
// ALEYI17-InfraSight_gpu's loaders, which likewise translate a single
// kernel-side probe stream into the shared Gpu_loaders contract without any
// vendor SDK dependency.
package probe

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tracesmith/tracesmith/internal/errorutil"
	"github.com/tracesmith/tracesmith/internal/event"
	"github.com/tracesmith/tracesmith/internal/sink"
	"github.com/tracesmith/tracesmith/internal/stackcapture"
)

// Config is passed to Initialize. It is aliased as capture.Config so every
// vendor package and the top-level capture package share one type without
// probe importing capture (which would cycle back through the vendor
// packages capture's factory imports).
type Config struct {
	Sink            *sink.Sink
	StackCapture    stackcapture.Config
	CaptureStacks   bool
	CorrelationSeed event.CorrelationID
}

// Detector reports whether a vendor runtime marker is present on this
// host (e.g. nvidia-smi on PATH, /dev/kfd present) and, if so, the device
// list to report.
type Detector func() (devices []event.DeviceInfo, present bool)

// Base implements the capture.Adapter methods common to every probe-only
// vendor adapter. A vendor package embeds Base and supplies Platform and a
// Detector.
type Base struct {
	platform event.PlatformKind
	detect   Detector

	mu            sync.Mutex
	devices       []event.DeviceInfo
	sink          *sink.Sink
	scCfg         stackcapture.Config
	captureStacks bool

	running bool
	stopGen chan struct{}
	wg      sync.WaitGroup

	nextCorrelation uint64
	captured        atomic.Uint64
	dropped         atomic.Uint64
}

// NewBase constructs a Base for platform using detect to probe the host.
func NewBase(platform event.PlatformKind, detect Detector) *Base {
	return &Base{platform: platform, detect: detect}
}

// Platform implements capture.Adapter.
func (b *Base) Platform() event.PlatformKind { return b.platform }

// Initialize implements capture.Adapter.
func (b *Base) Initialize(cfg Config) error {
	devices, present := b.detect()
	if !present {
		return errorutil.ErrRuntimeUnavailable
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devices = devices
	b.sink = cfg.Sink
	b.scCfg = cfg.StackCapture
	b.captureStacks = cfg.CaptureStacks
	b.nextCorrelation = uint64(cfg.CorrelationSeed)
	return nil
}

// Devices implements capture.Adapter.
func (b *Base) Devices() []event.DeviceInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]event.DeviceInfo, len(b.devices))
	copy(out, b.devices)
	return out
}

// EventsCaptured implements capture.Adapter.
func (b *Base) EventsCaptured() uint64 { return b.captured.Load() }

// EventsDropped implements capture.Adapter.
func (b *Base) EventsDropped() uint64 { return b.dropped.Load() }

// Drain implements capture.Adapter by delegating to the configured sink.
func (b *Base) Drain(max int) []event.Event {
	b.mu.Lock()
	s := b.sink
	b.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Drain(max)
}

// NextCorrelationID returns the next correlation id, used by the
// synthetic generator to pair a launch with its completion the same way a
// real vendor callback pair would via internal bookkeeping.
func (b *Base) NextCorrelationID() event.CorrelationID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextCorrelation++
	return event.CorrelationID(b.nextCorrelation)
}

// Submit pushes e into the adapter's sink, counting captured/dropped
// independently of the sink's own counters (an adapter may discard a
// record before it ever reaches Submit; that discard is counted by the
// vendor package itself, not here).
func (b *Base) Submit(e event.Event) {
	b.mu.Lock()
	s := b.sink
	stacks := b.captureStacks
	scCfg := b.scCfg
	b.mu.Unlock()
	if s == nil {
		return
	}
	if stacks && e.Kind == event.KindKernelLaunch {
		e.HasCallStack = true
		e.CallStack = stackcapture.ToEventFrames(stackcapture.Capture(scCfg))
	}
	if s.Submit(e) {
		b.captured.Add(1)
	} else {
		b.dropped.Add(1)
	}
}

// generationInterval paces the synthetic stream; vendor adapters otherwise
// have no callback cadence of their own to rate-limit against.
const generationInterval = 2 * time.Millisecond

// RunGenerator starts gen on its own goroutine, calling it repeatedly
// (paced by generationInterval) until StopGenerator. gen performs one
// generation step, typically a launch+complete pair submitted through
// b.Submit. This is the shared driver behind every vendor package's
// synthetic stream; only the generation function itself (what kinds of
// events, what names) differs per vendor.
func (b *Base) RunGenerator(gen func(b *Base)) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = true
	b.stopGen = make(chan struct{})
	stop := b.stopGen
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(generationInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				gen(b)
			}
		}
	}()
	return nil
}

// StopGenerator signals the generator goroutine to exit and waits for it.
func (b *Base) StopGenerator() error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	close(b.stopGen)
	b.mu.Unlock()
	b.wg.Wait()
	return nil
}
