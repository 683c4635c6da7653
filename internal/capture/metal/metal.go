// Package metal is the probe-only Apple Metal capture adapter. Presence is
// inferred from the MTL_CAPTURE_ENABLED / METAL_DEVICE_WRAPPER_TYPE style
// environment markers Metal's own performance-shader tooling uses, since
// there is no userspace device node to stat on macOS the way ROCm has
// /dev/kfd.
package metal

import (
	"os"
	"time"

	"github.com/tracesmith/tracesmith/internal/capture/probe"
	"github.com/tracesmith/tracesmith/internal/event"
)

// Adapter is the Metal capture.Adapter implementation.
type Adapter struct {
	*probe.Base
}

// New returns an uninitialized Metal adapter.
func New() *Adapter {
	a := &Adapter{}
	a.Base = probe.NewBase(event.PlatformMetal, detect)
	return a
}

func detect() ([]event.DeviceInfo, bool) {
	if os.Getenv("MTL_CAPTURE_ENABLED") == "" && os.Getenv("METAL_DEVICE_WRAPPER_TYPE") == "" {
		return nil, false
	}
	return []event.DeviceInfo{{
		ID:                  0,
		Vendor:              event.PlatformMetal,
		Name:                "Simulated Apple GPU",
		ComputeCapability:   "metal3",
		TotalMemory:         24 << 30,
		MultiprocessorCount: 40,
		ClockRateKHz:        1400000,
	}}, true
}

// Start begins the synthetic Metal event stream.
func (a *Adapter) Start() error { return a.RunGenerator(generate) }

// Stop halts the synthetic event stream.
func (a *Adapter) Stop() error { return a.StopGenerator() }

var kernelNames = []string{"mps_matmul", "mps_softmax", "metal_compute_shader"}

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
			GridX: 64, GridY: 1, GridZ: 1,
			BlockX: 32, BlockY: 1, BlockZ: 1,
			WarpSize: 32,
		},
	})

	time.Sleep(time.Microsecond)

	b.Submit(event.Event{
		Kind:          event.KindKernelComplete,
		Timestamp:     event.Timestamp(time.Now().UnixNano()),
		DeviceID:      0,
		StreamID:      0,
		CorrelationID: corr,
		Name:          name,
	})
}
