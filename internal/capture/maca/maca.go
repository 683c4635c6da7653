// Package maca is the probe-only MetaX MACA capture adapter. Presence is
// inferred from the MACA_PATH SDK environment variable MACA's toolchain
// sets when installed.
package maca

import (
	"os"
	"time"

	"github.com/tracesmith/tracesmith/internal/capture/probe"
	"github.com/tracesmith/tracesmith/internal/event"
)

// Adapter is the MACA capture.Adapter implementation.
type Adapter struct {
	*probe.Base
}

// New returns an uninitialized MACA adapter.
func New() *Adapter {
	a := &Adapter{}
	a.Base = probe.NewBase(event.PlatformMACA, detect)
	return a
}

func detect() ([]event.DeviceInfo, bool) {
	if os.Getenv("MACA_PATH") == "" {
		return nil, false
	}
	return []event.DeviceInfo{{
		ID:                  0,
		Vendor:              event.PlatformMACA,
		Name:                "Simulated MetaX GPU",
		ComputeCapability:   "maca1.0",
		TotalMemory:         32 << 30,
		MultiprocessorCount: 96,
		ClockRateKHz:        1600000,
	}}, true
}

// Start begins the synthetic MACA event stream.
func (a *Adapter) Start() error { return a.RunGenerator(generate) }

// Stop halts the synthetic event stream.
func (a *Adapter) Stop() error { return a.StopGenerator() }

var kernelNames = []string{"maca_gemm_kernel", "maca_elementwise"}

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
			GridX: 192, GridY: 1, GridZ: 1,
			BlockX: 128, BlockY: 1, BlockZ: 1,
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
