// Package cuda is the probe-only CUDA capture adapter. It never links
// against the CUDA driver; presence is inferred from nvidia-smi on PATH,
// the same environment-marker technique ALEYI17-InfraSight_gpu uses to
// decide whether its eBPF GPU loaders have anything to attach to.
package cuda

import (
	"os/exec"
	"time"

	"github.com/tracesmith/tracesmith/internal/capture/probe"
	"github.com/tracesmith/tracesmith/internal/event"
)

// Adapter is the CUDA capture.Adapter implementation.
type Adapter struct {
	*probe.Base
}

// New returns an uninitialized CUDA adapter.
func New() *Adapter {
	a := &Adapter{}
	a.Base = probe.NewBase(event.PlatformCUDA, detect)
	return a
}

func detect() ([]event.DeviceInfo, bool) {
	if _, err := exec.LookPath("nvidia-smi"); err != nil {
		return nil, false
	}
	return []event.DeviceInfo{{
		ID:                  0,
		Vendor:              event.PlatformCUDA,
		Name:                "Simulated NVIDIA GPU",
		ComputeCapability:   "8.0",
		TotalMemory:         16 << 30,
		MultiprocessorCount: 80,
		ClockRateKHz:        1500000,
	}}, true
}

// Start begins the synthetic CUDA event stream.
func (a *Adapter) Start() error {
	return a.RunGenerator(generate)
}

// Stop halts the synthetic event stream.
func (a *Adapter) Stop() error {
	return a.StopGenerator()
}

var kernelNames = []string{"sgemm_kernel", "conv2d_forward", "relu_inplace", "reduce_sum"}

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
			GridX: 256, GridY: 1, GridZ: 1,
			BlockX: 128, BlockY: 1, BlockZ: 1,
			SharedMemBytes: 0, RegistersPerThread: 32, WarpSize: 32,
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
