package sbt

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/tracesmith/tracesmith/internal/errorutil"
	"github.com/tracesmith/tracesmith/internal/event"
)

// Reader implements the SBT reader contract.
type Reader struct {
	header Header
	valid  bool
	path   string
}

// Open validates the header at path without reading the rest of
// the file. Use ReadAll to materialize a full TraceRecord.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sbt: opening %q: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	r := &Reader{path: path}
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return r, nil // header unreadable: IsValid reports false
	}
	var h Header
	if err := h.UnmarshalBinary(buf); err != nil {
		return r, nil
	}
	if !h.Valid() {
		return r, nil
	}
	size := uint64(info.Size())
	if h.MetadataOffset > size || h.StringTableOffset > size || h.DeviceInfoOffset > size || h.EventsOffset > size {
		return r, nil
	}
	if !(h.MetadataOffset <= h.StringTableOffset && h.StringTableOffset <= h.DeviceInfoOffset && h.DeviceInfoOffset <= h.EventsOffset) {
		return r, nil
	}
	r.header = h
	r.valid = true
	return r, nil
}

// IsValid reports whether the header passed validation.
func (r *Reader) IsValid() bool { return r.valid }

// Header returns the validated header. Only meaningful when IsValid is
// true.
func (r *Reader) Header() Header { return r.header }

// ReadAll populates a TraceRecord with the file's metadata, devices and
// events. O(n) over the event count.
func (r *Reader) ReadAll() (*event.TraceRecord, error) {
	if !r.valid {
		return nil, errorutil.ErrInvalidTrace
	}
	f, err := os.Open(r.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.Seek(int64(r.header.StringTableOffset), io.SeekStart); err != nil {
		return nil, err
	}
	strBr := bufio.NewReader(f)
	strs, err := readStringTable(strBr)
	if err != nil {
		return nil, fmt.Errorf("sbt: reading string table: %w", err)
	}

	if _, err := f.Seek(int64(r.header.MetadataOffset), io.SeekStart); err != nil {
		return nil, err
	}
	metaBr := bufio.NewReader(f)
	meta, err := decodeMetadata(metaBr, strs)
	if err != nil {
		return nil, fmt.Errorf("sbt: reading metadata: %w", err)
	}

	if _, err := f.Seek(int64(r.header.DeviceInfoOffset), io.SeekStart); err != nil {
		return nil, err
	}
	devBr := bufio.NewReader(f)
	devices, err := decodeDevices(devBr, strs)
	if err != nil {
		return nil, fmt.Errorf("sbt: reading device info table: %w", err)
	}

	if _, err := f.Seek(int64(r.header.EventsOffset), io.SeekStart); err != nil {
		return nil, err
	}
	evBr := bufio.NewReader(f)

	rec := event.NewTraceRecord()
	rec.Metadata = meta
	rec.Devices = devices

	events := make([]event.Event, 0, r.header.EventCount)
	for i := uint64(0); i < r.header.EventCount; i++ {
		e, err := decodeEvent(evBr, strs)
		if err != nil {
			return nil, fmt.Errorf("sbt: reading event %d: %w", i, err)
		}
		events = append(events, e)
	}
	rec.AppendEvents(events...)
	if r.header.Flags&FlagEventsSorted != 0 {
		// The writer only set this bit because the caller had already
		// sorted the events it wrote; this is a no-op reorder that just
		// restores TraceRecord.SortedByTimestamp() to true.
		rec.SortByTimestamp()
	}
	rec.Finalize()
	return rec, nil
}
