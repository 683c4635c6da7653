// Package ascend is the probe-only Huawei Ascend NPU capture adapter.
// Presence is inferred from the ASCEND_TOOLKIT_HOME SDK environment
// variable the CANN toolkit sets when installed.
package ascend

import (
	"os"
	"time"

	"github.com/tracesmith/tracesmith/internal/capture/probe"
	"github.com/tracesmith/tracesmith/internal/event"
)

// Adapter is the Ascend capture.Adapter implementation.
type Adapter struct {
	*probe.Base
}

// New returns an uninitialized Ascend adapter.
func New() *Adapter {
	a := &Adapter{}
	a.Base = probe.NewBase(event.PlatformAscend, detect)
	return a
}

func detect() ([]event.DeviceInfo, bool) {
	if os.Getenv("ASCEND_TOOLKIT_HOME") == "" {
		return nil, false
	}
	return []event.DeviceInfo{{
		ID:                  0,
		Vendor:              event.PlatformAscend,
		Name:                "Simulated Ascend NPU",
		ComputeCapability:   "ascend910b",
		TotalMemory:         32 << 30,
		MultiprocessorCount: 32,
		ClockRateKHz:        1300000,
	}}, true
}

// Start begins the synthetic Ascend event stream.
func (a *Adapter) Start() error { return a.RunGenerator(generate) }

// Stop halts the synthetic event stream.
func (a *Adapter) Stop() error { return a.StopGenerator() }

var kernelNames = []string{"ascend_matmul_op", "ascend_conv_op"}

func generate(b *probe.Base) {
	corr := b.NextCorrelationID()
	now := event.Timestamp(time.Now().UnixNano())
	name := kernelNames[int(corr)%len(kernelNames)]

	b.Submit(event.Event{
		Kind:          event.KindKernelLaunch,
		Timestamp:     now,
		DeviceID:      0,
		StreamID:      0,
		CorrelationID: corr,
		Name:          name,
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
