package sbt

import (
	"bytes"
	"fmt"
	"os"

	"github.com/tracesmith/tracesmith/internal/errorutil"
	"github.com/tracesmith/tracesmith/internal/event"
)

// Writer implements the SBT writer contract. The zero value is not
// usable; construct with Create.
type Writer struct {
	f    *os.File
	strs *stringTable

	metaSet    bool
	metadata   event.TraceMetadata
	devicesSet bool
	devices    []event.DeviceInfo

	events    bytes.Buffer
	eventCnt  uint64
	sorted    bool
	finalized bool
}

// Create opens path for writing, truncating any existing file. The header
// is not written until Finalize, since its offsets aren't known until
// every section has been buffered.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sbt: creating %q: %w", path, err)
	}
	return &Writer{f: f, strs: newStringTable()}, nil
}

// WriteMetadata buffers meta. May be called at most once, before Finalize.
func (w *Writer) WriteMetadata(meta event.TraceMetadata) error {
	if w.finalized {
		return errorutil.ErrAlreadyFinalized
	}
	if w.metaSet {
		return fmt.Errorf("sbt: WriteMetadata called more than once")
	}
	w.metaSet = true
	w.metadata = meta
	return nil
}

// WriteDeviceInfo buffers devices. May be called at most once, before
// Finalize.
func (w *Writer) WriteDeviceInfo(devices []event.DeviceInfo) error {
	if w.finalized {
		return errorutil.ErrAlreadyFinalized
	}
	if w.devicesSet {
		return fmt.Errorf("sbt: WriteDeviceInfo called more than once")
	}
	w.devicesSet = true
	w.devices = devices
	return nil
}

// SetSorted records whether the caller has already sorted the events it is
// about to write by timestamp, so Finalize can set the header's "events
// sorted" flag bit. It must be called, if at all, before the first
// WriteEvent call in the same spirit as event.TraceRecord's own
// SortByTimestamp/SortedByTimestamp pair.
func (w *Writer) SetSorted(sorted bool) {
	w.sorted = sorted
}

// WriteEvent encodes e directly into the buffered event stream, interning
// any strings it carries. O(1) amortised per event.
func (w *Writer) WriteEvent(e event.Event) error {
	if w.finalized {
		return errorutil.ErrAlreadyFinalized
	}
	if err := encodeEvent(&w.events, w.strs, e); err != nil {
		return err
	}
	w.eventCnt++
	return nil
}

// WriteEvents writes each event in es via WriteEvent.
func (w *Writer) WriteEvents(es []event.Event) error {
	for i := range es {
		if err := w.WriteEvent(es[i]); err != nil {
			return err
		}
	}
	return nil
}

// EventCount returns the number of events written so far.
func (w *Writer) EventCount() uint64 { return w.eventCnt }

// FileSize returns the current on-disk size of the file. Before Finalize
// this reflects only what has actually been flushed, which may be zero.
func (w *Writer) FileSize() (int64, error) {
	info, err := w.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Finalize lays out every section, writes the file in its final form, and
// forbids further writes. Calling Finalize more than once is a no-op.
func (w *Writer) Finalize() error {
	if w.finalized {
		return nil
	}
	w.finalized = true
	defer w.f.Close()

	// Metadata and device sections reference the string table, so encode
	// them into scratch buffers first; this also finishes interning every
	// string the metadata/device records need before the table itself is
	// serialized.
	var metaBuf, devBuf bytes.Buffer
	if err := encodeMetadata(&metaBuf, w.strs, w.metadata); err != nil {
		return fmt.Errorf("sbt: encoding metadata: %w", err)
	}
	if err := encodeDevices(&devBuf, w.strs, w.devices); err != nil {
		return fmt.Errorf("sbt: encoding devices: %w", err)
	}

	var strBuf bytes.Buffer
	if err := w.strs.writeTo(&strBuf); err != nil {
		return fmt.Errorf("sbt: encoding string table: %w", err)
	}

	metadataOffset := uint64(HeaderSize)
	stringTableOffset := metadataOffset + uint64(metaBuf.Len())
	deviceInfoOffset := stringTableOffset + uint64(strBuf.Len())
	eventsOffset := deviceInfoOffset + uint64(devBuf.Len())

	flags := FlagHasStringTable
	if w.sorted {
		flags |= FlagEventsSorted
	}

	hdr := Header{
		Magic:             magic,
		VersionMajor:      VersionMajor,
		VersionMinor:      VersionMinor,
		HeaderSize:        HeaderSize,
		Flags:             flags,
		EventCount:        w.eventCnt,
		MetadataOffset:    metadataOffset,
		StringTableOffset: stringTableOffset,
		DeviceInfoOffset:  deviceInfoOffset,
		EventsOffset:      eventsOffset,
	}
	hdrBytes, err := hdr.MarshalBinary()
	if err != nil {
		return err
	}

	if _, err := w.f.WriteAt(hdrBytes, 0); err != nil {
		return fmt.Errorf("sbt: writing header: %w", err)
	}
	if _, err := w.f.WriteAt(metaBuf.Bytes(), int64(metadataOffset)); err != nil {
		return fmt.Errorf("sbt: writing metadata section: %w", err)
	}
	if _, err := w.f.WriteAt(strBuf.Bytes(), int64(stringTableOffset)); err != nil {
		return fmt.Errorf("sbt: writing string table: %w", err)
	}
	if _, err := w.f.WriteAt(devBuf.Bytes(), int64(deviceInfoOffset)); err != nil {
		return fmt.Errorf("sbt: writing device info table: %w", err)
	}
	if _, err := w.f.WriteAt(w.events.Bytes(), int64(eventsOffset)); err != nil {
		return fmt.Errorf("sbt: writing event stream: %w", err)
	}
	return nil
}
