// Package rocm is the probe-only AMD ROCm capture adapter. Presence is
// inferred from /dev/kfd, the kernel fusion driver node ROCm userspace
// opens to talk to the GPU.
package rocm

import (
	"os"
	"time"

	"github.com/tracesmith/tracesmith/internal/capture/probe"
	"github.com/tracesmith/tracesmith/internal/event"
)

// Adapter is the ROCm capture.Adapter implementation.
type Adapter struct {
	*probe.Base
}

// New returns an uninitialized ROCm adapter.
func New() *Adapter {
	a := &Adapter{}
	a.Base = probe.NewBase(event.PlatformROCm, detect)
	return a
}

func detect() ([]event.DeviceInfo, bool) {
	if _, err := os.Stat("/dev/kfd"); err != nil {
		return nil, false
	}
	return []event.DeviceInfo{{
		ID:                  0,
		Vendor:              event.PlatformROCm,
		Name:                "Simulated AMD Instinct GPU",
		ComputeCapability:   "gfx942",
		TotalMemory:         32 << 30,
		MultiprocessorCount: 304,
		ClockRateKHz:        1700000,
	}}, true
}

// Start begins the synthetic ROCm event stream.
func (a *Adapter) Start() error { return a.RunGenerator(generate) }

// Stop halts the synthetic event stream.
func (a *Adapter) Stop() error { return a.StopGenerator() }

var kernelNames = []string{"hip_gemm", "hip_layernorm", "hip_attention_fwd"}

func generate(b *probe.Base) {
	corr := b.NextCorrelationID()
	now := event.Timestamp(time.Now().UnixNano())
	name := kernelNames[int(corr)%len(kernelNames)]

	b.Submit(event.Event{
		Kind:            event.KindKernelLaunch,
		Timestamp:       now,
		DeviceID:        0,
		StreamID:        0,
		CorrelationID:   corr,
		Name:            name,
		HasKernelParams: true,
		KernelParams: event.KernelParams{
			GridX: 128, GridY: 1, GridZ: 1,
			BlockX: 256, BlockY: 1, BlockZ: 1,
			SharedMemBytes: 0, RegistersPerThread: 48, WarpSize: 64,
		},
	})

	time.Sleep(time.Microsecond)

	// ROCm's memcpy direction is not always recoverable from the probe
	// marker alone; the event keeps the H2D kind as a fallback and
	// carries an explicit "direction=unknown" tag.
	b.Submit(event.Event{
		Kind:            event.KindMemcpyH2D,
		Timestamp:       event.Timestamp(time.Now().UnixNano()),
		DeviceID:        0,
		StreamID:        0,
		CorrelationID:   corr,
		HasMetadata:     true,
		Metadata:        event.Metadata{}.Set("direction", "unknown"),
		HasMemoryParams: true,
		MemoryParams:    event.MemoryParams{ByteCount: 4 << 20, Async: true},
	})

	b.Submit(event.Event{
		Kind:          event.KindKernelComplete,
		Timestamp:     event.Timestamp(time.Now().UnixNano()),
		DeviceID:      0,
		StreamID:      0,
		CorrelationID: corr,
		Name:          name,
	})
}
