// Package event defines the cross-vendor event model shared by every other
// tracesmith package: the capture pipeline produces Events, the SBT format
// persists them, and the analysis/replay/debug components all consume the
// same flat []Event sequence. Keeping the type here with no outgoing
// dependencies (besides the stdlib) avoids the import cycles that a
// capture-adapter-owned event type would create once the SBT, timeline and
// debug packages all need to reference it.
package event

import "fmt"

// Timestamp is nanoseconds since a capture-scoped epoch; monotonic within
// one capture.
type Timestamp uint64

// CorrelationID pairs a KernelLaunch (or async op) with its completion.
type CorrelationID uint64

// DeviceID, StreamID and ThreadID identify the device/stream/host-thread an
// event belongs to.
type DeviceID uint32
type StreamID uint32
type ThreadID uint32

// PlatformKind identifies the GPU/NPU vendor runtime an event, device, or
// capture adapter belongs to.
type PlatformKind uint8

const (
	PlatformUnknown PlatformKind = iota
	PlatformCUDA
	PlatformROCm
	PlatformMetal
	PlatformMACA
	PlatformAscend
	PlatformSimulation
)

func (p PlatformKind) String() string {
	switch p {
	case PlatformCUDA:
		return "cuda"
	case PlatformROCm:
		return "rocm"
	case PlatformMetal:
		return "metal"
	case PlatformMACA:
		return "maca"
	case PlatformAscend:
		return "ascend"
	case PlatformSimulation:
		return "simulation"
	default:
		return "unknown"
	}
}

// ParsePlatformKind inverts PlatformKind.String, used by the CLI's
// --platform flag and the capture factory's preference-order config.
func ParsePlatformKind(s string) PlatformKind {
	switch s {
	case "cuda":
		return PlatformCUDA
	case "rocm":
		return PlatformROCm
	case "metal":
		return PlatformMetal
	case "maca":
		return PlatformMACA
	case "ascend":
		return PlatformAscend
	case "simulation":
		return PlatformSimulation
	default:
		return PlatformUnknown
	}
}

// Kind is the tagged variant of event kinds.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindKernelLaunch
	KindKernelComplete
	KindMemcpyH2D
	KindMemcpyD2H
	KindMemcpyD2D
	KindMemsetDevice
	KindStreamSync
	KindDeviceSync
	KindEventRecord
	KindEventSync
	KindStreamCreate
	KindStreamDestroy
	KindMemAlloc
	KindMemFree
	KindMarker
	KindRangeStart
	KindRangeEnd
	KindCustom
)

var kindNames = [...]string{
	"Unknown",
	"KernelLaunch",
	"KernelComplete",
	"MemcpyH2D",
	"MemcpyD2H",
	"MemcpyD2D",
	"MemsetDevice",
	"StreamSync",
	"DeviceSync",
	"EventRecord",
	"EventSync",
	"StreamCreate",
	"StreamDestroy",
	"MemAlloc",
	"MemFree",
	"Marker",
	"RangeStart",
	"RangeEnd",
	"Custom",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsMemcpy reports whether k is one of the three memcpy kinds; used by the
// dependency analyser's MemoryDependency rule and by breakpoint matching.
func (k Kind) IsMemcpy() bool {
	return k == KindMemcpyH2D || k == KindMemcpyD2H || k == KindMemcpyD2D
}

// IsSync reports whether k is one of the synchronization kinds; used by the
// GPU state machine and the dependency analyser's Synchronization rule.
func (k Kind) IsSync() bool {
	return k == KindStreamSync || k == KindDeviceSync || k == KindEventSync
}

// KernelParams is populated only on KernelLaunch events when the vendor
// adapter can provide it.
type KernelParams struct {
	GridX, GridY, GridZ    uint32
	BlockX, BlockY, BlockZ uint32
	SharedMemBytes         uint32
	RegistersPerThread     uint32
	WarpSize               uint32
}

// MemoryParams is populated on memcpy/memset/alloc/free events when the
// vendor adapter can provide it.
type MemoryParams struct {
	SrcAddr   uint64
	DstAddr   uint64
	ByteCount uint64
	Async     bool
}

// StackFrame is one entry of a captured call stack; Function, File
// are optional ("" when unresolved) and Line is optional (0 when unknown).
type StackFrame struct {
	Address  uint64
	Function string
	File     string
	Line     uint32
}

// FlowType distinguishes the two ends of a CPU/GPU flow link.
type FlowType uint8

const (
	FlowTypeSubmission FlowType = iota
	FlowTypeExecution
)

// FlowInfo links a CPU-side submission to its GPU-side execution.
type FlowInfo struct {
	ID      uint64
	Type    FlowType
	IsStart bool
}

// MetadataEntry is one key/value pair of an event's metadata mapping. Keys
// are unique within one event; order is preserved (an ordered mapping, not
// a map) so SBT round-trips are byte-identical.
type MetadataEntry struct {
	Key   string
	Value string
}

// Metadata is an ordered mapping from short key to string value.
type Metadata []MetadataEntry

// Get returns the value for key and whether it was present.
func (m Metadata) Get(key string) (string, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Set appends key/value, or overwrites the existing entry for key in place,
// preserving insertion order per the "keys unique within an event"
// invariant.
func (m Metadata) Set(key, value string) Metadata {
	for i := range m {
		if m[i].Key == key {
			m[i].Value = value
			return m
		}
	}
	return append(m, MetadataEntry{Key: key, Value: value})
}

// Event is the tagged record of one capture observation. Optional
// payloads are stored by value, never by pointer chains, behind presence
// flags so the in-memory shape mirrors the on-disk optional-block layout
// exactly.
type Event struct {
	Kind          Kind
	Timestamp     Timestamp
	Duration      Timestamp // 0 for instants
	DeviceID      DeviceID
	StreamID      StreamID
	CorrelationID CorrelationID
	ThreadID      ThreadID
	Name          string

	HasKernelParams bool
	KernelParams    KernelParams

	HasMemoryParams bool
	MemoryParams    MemoryParams

	HasCallStack bool
	CallStack    []StackFrame

	HasFlowInfo bool
	FlowInfo    FlowInfo

	HasMetadata bool
	Metadata    Metadata
}

// End returns the event's end timestamp (Timestamp + Duration); used
// pervasively by the timeline builder and dependency analyser.
func (e Event) End() Timestamp {
	return e.Timestamp + e.Duration
}
