// Package simulation is the always-available capture adapter used by
// tests, "tracesmith record --platform simulation", and the replay
// determinism checks. It never probes the host: detect always
// reports present, and the event stream it generates is deterministic
// given a starting correlation seed, one full device/stream/memory
// lifecycle per generation step (alloc, launch, sync, free) rather than
// the simpler launch/complete pair the vendor adapters emit.
package simulation

import (
	"time"

	"github.com/tracesmith/tracesmith/internal/capture/probe"
	"github.com/tracesmith/tracesmith/internal/event"
)

// Adapter is the simulation capture.Adapter implementation.
type Adapter struct {
	*probe.Base
}

// New returns an uninitialized simulation adapter.
func New() *Adapter {
	a := &Adapter{}
	a.Base = probe.NewBase(event.PlatformSimulation, detect)
	return a
}

func detect() ([]event.DeviceInfo, bool) {
	return []event.DeviceInfo{{
		ID:                  0,
		Vendor:              event.PlatformSimulation,
		Name:                "Simulated Device",
		ComputeCapability:   "sim1.0",
		TotalMemory:         8 << 30,
		MultiprocessorCount: 16,
		ClockRateKHz:        1000000,
	}}, true
}

// Start begins the synthetic event stream.
func (a *Adapter) Start() error { return a.RunGenerator(generate) }

// Stop halts the synthetic event stream.
func (a *Adapter) Stop() error { return a.StopGenerator() }

var kernelNames = []string{"sim_vector_add", "sim_matmul", "sim_reduce"}

func generate(b *probe.Base) {
	corr := b.NextCorrelationID()
	now := event.Timestamp(time.Now().UnixNano())
	name := kernelNames[int(corr)%len(kernelNames)]
	addr := uint64(corr) * 4096

	b.Submit(event.Event{
		Kind:            event.KindMemAlloc,
		Timestamp:       now,
		DeviceID:        0,
		HasMemoryParams: true,
		MemoryParams:    event.MemoryParams{DstAddr: addr, ByteCount: 4096},
	})

	b.Submit(event.Event{
		Kind:            event.KindKernelLaunch,
		Timestamp:       event.Timestamp(time.Now().UnixNano()),
		DeviceID:        0,
		StreamID:        0,
		CorrelationID:   corr,
		Name:            name,
		HasKernelParams: true,
		KernelParams: event.KernelParams{
			GridX: 16, GridY: 1, GridZ: 1,
			BlockX: 64, BlockY: 1, BlockZ: 1,
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

	b.Submit(event.Event{
		Kind:      event.KindStreamSync,
		Timestamp: event.Timestamp(time.Now().UnixNano()),
		DeviceID:  0,
		StreamID:  0,
	})

	b.Submit(event.Event{
		Kind:            event.KindMemFree,
		Timestamp:       event.Timestamp(time.Now().UnixNano()),
		DeviceID:        0,
		HasMemoryParams: true,
		MemoryParams:    event.MemoryParams{DstAddr: addr, ByteCount: 4096},
	})
}
