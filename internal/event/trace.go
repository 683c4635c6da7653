package event

import "sort"

// TraceMetadata carries capture-session level information.
type TraceMetadata struct {
	ApplicationName string
	CommandLine     []string
	StartTimestamp  Timestamp
	EndTimestamp    Timestamp
	Extra           Metadata
}

// DeviceInfo describes one GPU/NPU device observed during capture.
type DeviceInfo struct {
	ID                  DeviceID
	Vendor              PlatformKind
	Name                string
	ComputeCapability   string
	TotalMemory         uint64
	MultiprocessorCount uint32
	ClockRateKHz        uint32
	Metadata            Metadata
}

// TraceRecord is the in-memory trace: metadata, device table and a flat
// event list. It is created empty by a capture session or by the SBT
// reader, is append-only during capture, and becomes immutable once
// Finalize is invoked — mirroring the writer's finalize() in , which is
// the only other place a TraceRecord's shape is allowed to settle.
type TraceRecord struct {
	Metadata  TraceMetadata
	Devices   []DeviceInfo
	Events    []Event
	finalized bool
	sorted    bool
}

// NewTraceRecord returns an empty, mutable trace record.
func NewTraceRecord() *TraceRecord {
	return &TraceRecord{}
}

// AppendEvents appends events to the trace in insertion order. It panics if
// called after Finalize, since the record is documented as append-only
// until finalized and callers that violate this have a programming error,
// not a recoverable runtime condition.
func (t *TraceRecord) AppendEvents(events ...Event) {
	if t.finalized {
		panic("event: AppendEvents called on a finalized TraceRecord")
	}
	t.Events = append(t.Events, events...)
	t.sorted = false
}

// Finalize marks the trace record immutable. Further calls are no-ops.
func (t *TraceRecord) Finalize() {
	t.finalized = true
}

// Finalized reports whether Finalize has been called.
func (t *TraceRecord) Finalized() bool {
	return t.finalized
}

// SortByTimestamp sorts Events by Timestamp in place, breaking ties by
// original insertion order (a stable sort). Per , events are sorted
// only on explicit request — nothing else in tracesmith calls this
// implicitly.
func (t *TraceRecord) SortByTimestamp() {
	sort.SliceStable(t.Events, func(i, j int) bool {
		return t.Events[i].Timestamp < t.Events[j].Timestamp
	})
	t.sorted = true
}

// SortedByTimestamp reports whether SortByTimestamp has been called since
// the last AppendEvents; used by the SBT writer to set header flag bit 1.
func (t *TraceRecord) SortedByTimestamp() bool {
	return t.sorted
}

// DeviceByID returns the device record for id, creating none if absent;
// ok is false when the device hasn't been seen. Callers that need
// lazy-creation semantics should use gpustate, not this accessor.
func (t *TraceRecord) DeviceByID(id DeviceID) (DeviceInfo, bool) {
	for _, d := range t.Devices {
		if d.ID == id {
			return d, true
		}
	}
	return DeviceInfo{}, false
}
