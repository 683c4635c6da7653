package capture

import (
	"github.com/tracesmith/tracesmith/internal/capture/ascend"
	"github.com/tracesmith/tracesmith/internal/capture/cuda"
	"github.com/tracesmith/tracesmith/internal/capture/maca"
	"github.com/tracesmith/tracesmith/internal/capture/metal"
	"github.com/tracesmith/tracesmith/internal/capture/rocm"
	"github.com/tracesmith/tracesmith/internal/capture/simulation"
	"github.com/tracesmith/tracesmith/internal/errorutil"
	"github.com/tracesmith/tracesmith/internal/event"
)

// New returns the Adapter for platform, uninitialized. Initialize is the
// caller's responsibility, since construction never touches the host.
func New(platform event.PlatformKind) (Adapter, error) {
	switch platform {
	case event.PlatformCUDA:
		return cuda.New(), nil
	case event.PlatformROCm:
		return rocm.New(), nil
	case event.PlatformMetal:
		return metal.New(), nil
	case event.PlatformMACA:
		return maca.New(), nil
	case event.PlatformAscend:
		return ascend.New(), nil
	case event.PlatformSimulation:
		return simulation.New(), nil
	default:
		return nil, errorutil.ErrUnsupportedPlatform
	}
}

// Resolve tries each platform in preference order, returning the first
// adapter whose Initialize succeeds. Platforms whose runtime is absent
// (Initialize returning errorutil.ErrRuntimeUnavailable) are skipped
// silently; any other error aborts resolution immediately, since it
// indicates a configuration problem rather than an absent vendor.
func Resolve(preference []event.PlatformKind, cfg Config) (Adapter, error) {
	var lastErr error = errorutil.ErrRuntimeUnavailable
	for _, p := range preference {
		a, err := New(p)
		if err != nil {
			return nil, err
		}
		if err := a.Initialize(cfg); err != nil {
			if err == errorutil.ErrRuntimeUnavailable {
				lastErr = err
				continue
			}
			return nil, err
		}
		return a, nil
	}
	return nil, lastErr
}
