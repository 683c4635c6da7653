package sbt

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/tracesmith/tracesmith/internal/event"
)

// Optional event-record block flags.
const (
	eventFlagKernelParams uint8 = 1 << 0
	eventFlagMemoryParams uint8 = 1 << 1
	eventFlagCallStack    uint8 = 1 << 2
	eventFlagFlowInfo     uint8 = 1 << 3
	eventFlagMetadata     uint8 = 1 << 4
)

func encodeMetadata(w io.Writer, strs *stringTable, m event.TraceMetadata) error {
	if err := writeUint32(w, strs.intern(m.ApplicationName)); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(m.CommandLine))); err != nil {
		return err
	}
	for _, arg := range m.CommandLine {
		if err := writeUint32(w, strs.intern(arg)); err != nil {
			return err
		}
	}
	if err := writeUint64(w, uint64(m.StartTimestamp)); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(m.EndTimestamp)); err != nil {
		return err
	}
	return encodeMetadataMap(w, strs, m.Extra)
}

func encodeMetadataMap(w io.Writer, strs *stringTable, md event.Metadata) error {
	if err := writeUint32(w, uint32(len(md))); err != nil {
		return err
	}
	for _, kv := range md {
		if err := writeUint32(w, strs.intern(kv.Key)); err != nil {
			return err
		}
		if err := writeUint32(w, strs.intern(kv.Value)); err != nil {
			return err
		}
	}
	return nil
}

func decodeMetadata(r *bufio.Reader, strs *stringTable) (event.TraceMetadata, error) {
	var m event.TraceMetadata
	appRef, err := readUint32(r)
	if err != nil {
		return m, err
	}
	if m.ApplicationName, err = strs.lookup(appRef); err != nil {
		return m, err
	}
	argc, err := readUint32(r)
	if err != nil {
		return m, err
	}
	for i := uint32(0); i < argc; i++ {
		ref, err := readUint32(r)
		if err != nil {
			return m, err
		}
		arg, err := strs.lookup(ref)
		if err != nil {
			return m, err
		}
		m.CommandLine = append(m.CommandLine, arg)
	}
	start, err := readUint64(r)
	if err != nil {
		return m, err
	}
	m.StartTimestamp = event.Timestamp(start)
	end, err := readUint64(r)
	if err != nil {
		return m, err
	}
	m.EndTimestamp = event.Timestamp(end)
	m.Extra, err = decodeMetadataMap(r, strs)
	return m, err
}

func decodeMetadataMap(r *bufio.Reader, strs *stringTable) (event.Metadata, error) {
	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	md := make(event.Metadata, 0, count)
	for i := uint32(0); i < count; i++ {
		kRef, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		vRef, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		k, err := strs.lookup(kRef)
		if err != nil {
			return nil, err
		}
		v, err := strs.lookup(vRef)
		if err != nil {
			return nil, err
		}
		md = append(md, event.MetadataEntry{Key: k, Value: v})
	}
	return md, nil
}

func encodeDevices(w io.Writer, strs *stringTable, devices []event.DeviceInfo) error {
	if err := writeUint32(w, uint32(len(devices))); err != nil {
		return err
	}
	for _, d := range devices {
		if err := writeUint32(w, uint32(d.ID)); err != nil {
			return err
		}
		if err := writeUint8(w, uint8(d.Vendor)); err != nil {
			return err
		}
		if err := writeUint32(w, strs.intern(d.Name)); err != nil {
			return err
		}
		if err := writeUint32(w, strs.intern(d.ComputeCapability)); err != nil {
			return err
		}
		if err := writeUint64(w, d.TotalMemory); err != nil {
			return err
		}
		if err := writeUint32(w, d.MultiprocessorCount); err != nil {
			return err
		}
		if err := writeUint32(w, d.ClockRateKHz); err != nil {
			return err
		}
		if err := encodeMetadataMap(w, strs, d.Metadata); err != nil {
			return err
		}
	}
	return nil
}

func decodeDevices(r *bufio.Reader, strs *stringTable) ([]event.DeviceInfo, error) {
	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	devices := make([]event.DeviceInfo, 0, count)
	for i := uint32(0); i < count; i++ {
		var d event.DeviceInfo
		id, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		d.ID = event.DeviceID(id)
		vendor, err := readUint8(r)
		if err != nil {
			return nil, err
		}
		d.Vendor = event.PlatformKind(vendor)
		nameRef, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		if d.Name, err = strs.lookup(nameRef); err != nil {
			return nil, err
		}
		ccRef, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		if d.ComputeCapability, err = strs.lookup(ccRef); err != nil {
			return nil, err
		}
		if d.TotalMemory, err = readUint64(r); err != nil {
			return nil, err
		}
		if d.MultiprocessorCount, err = readUint32(r); err != nil {
			return nil, err
		}
		if d.ClockRateKHz, err = readUint32(r); err != nil {
			return nil, err
		}
		if d.Metadata, err = decodeMetadataMap(r, strs); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, nil
}

func encodeEvent(w io.Writer, strs *stringTable, e event.Event) error {
	var flags uint8
	if e.HasKernelParams {
		flags |= eventFlagKernelParams
	}
	if e.HasMemoryParams {
		flags |= eventFlagMemoryParams
	}
	if e.HasCallStack {
		flags |= eventFlagCallStack
	}
	if e.HasFlowInfo {
		flags |= eventFlagFlowInfo
	}
	if e.HasMetadata {
		flags |= eventFlagMetadata
	}

	if err := writeUint8(w, uint8(e.Kind)); err != nil {
		return err
	}
	if err := writeUint8(w, flags); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(e.StreamID)); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(e.DeviceID)); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(e.CorrelationID)); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(e.ThreadID)); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(e.Timestamp)); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(e.Duration)); err != nil {
		return err
	}
	if err := writeUint32(w, strs.intern(e.Name)); err != nil {
		return err
	}

	if e.HasKernelParams {
		if err := writeLengthPrefixedBlock(w, func(bw io.Writer) error {
			return encodeKernelParams(bw, e.KernelParams)
		}); err != nil {
			return err
		}
	}
	if e.HasMemoryParams {
		if err := writeLengthPrefixedBlock(w, func(bw io.Writer) error {
			return encodeMemoryParams(bw, e.MemoryParams)
		}); err != nil {
			return err
		}
	}
	if e.HasCallStack {
		if err := writeLengthPrefixedBlock(w, func(bw io.Writer) error {
			return encodeCallStack(bw, strs, e.CallStack)
		}); err != nil {
			return err
		}
	}
	if e.HasFlowInfo {
		if err := writeLengthPrefixedBlock(w, func(bw io.Writer) error {
			return encodeFlowInfo(bw, e.FlowInfo)
		}); err != nil {
			return err
		}
	}
	if e.HasMetadata {
		if err := writeLengthPrefixedBlock(w, func(bw io.Writer) error {
			return encodeMetadataMap(bw, strs, e.Metadata)
		}); err != nil {
			return err
		}
	}
	return nil
}

// writeLengthPrefixedBlock buffers body's output so its length can be
// written first, the way every optional event block is framed so readers
// can skip blocks they don't understand.
func writeLengthPrefixedBlock(w io.Writer, body func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := body(&buf); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(buf.Len())); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func encodeKernelParams(w io.Writer, p event.KernelParams) error {
	for _, v := range []uint32{p.GridX, p.GridY, p.GridZ, p.BlockX, p.BlockY, p.BlockZ, p.SharedMemBytes, p.RegistersPerThread, p.WarpSize} {
		if err := writeUint32(w, v); err != nil {
			return err
		}
	}
	return nil
}

func decodeKernelParams(r io.Reader) (event.KernelParams, error) {
	var p event.KernelParams
	fields := []*uint32{&p.GridX, &p.GridY, &p.GridZ, &p.BlockX, &p.BlockY, &p.BlockZ, &p.SharedMemBytes, &p.RegistersPerThread, &p.WarpSize}
	for _, f := range fields {
		v, err := readUint32(r)
		if err != nil {
			return p, err
		}
		*f = v
	}
	return p, nil
}

func encodeMemoryParams(w io.Writer, p event.MemoryParams) error {
	if err := writeUint64(w, p.SrcAddr); err != nil {
		return err
	}
	if err := writeUint64(w, p.DstAddr); err != nil {
		return err
	}
	if err := writeUint64(w, p.ByteCount); err != nil {
		return err
	}
	var async uint8
	if p.Async {
		async = 1
	}
	return writeUint8(w, async)
}

func decodeMemoryParams(r io.Reader) (event.MemoryParams, error) {
	var p event.MemoryParams
	var err error
	if p.SrcAddr, err = readUint64(r); err != nil {
		return p, err
	}
	if p.DstAddr, err = readUint64(r); err != nil {
		return p, err
	}
	if p.ByteCount, err = readUint64(r); err != nil {
		return p, err
	}
	async, err := readUint8(r)
	if err != nil {
		return p, err
	}
	p.Async = async != 0
	return p, nil
}

func encodeCallStack(w io.Writer, strs *stringTable, frames []event.StackFrame) error {
	if err := writeUint32(w, uint32(len(frames))); err != nil {
		return err
	}
	for _, f := range frames {
		if err := writeUint64(w, f.Address); err != nil {
			return err
		}
		if err := writeUint32(w, strs.intern(f.Function)); err != nil {
			return err
		}
		if err := writeUint32(w, strs.intern(f.File)); err != nil {
			return err
		}
		if err := writeUint32(w, f.Line); err != nil {
			return err
		}
	}
	return nil
}

func decodeCallStack(r io.Reader, strs *stringTable) ([]event.StackFrame, error) {
	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	frames := make([]event.StackFrame, 0, count)
	for i := uint32(0); i < count; i++ {
		var f event.StackFrame
		if f.Address, err = readUint64(r); err != nil {
			return nil, err
		}
		fnRef, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		if f.Function, err = strs.lookup(fnRef); err != nil {
			return nil, err
		}
		fileRef, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		if f.File, err = strs.lookup(fileRef); err != nil {
			return nil, err
		}
		if f.Line, err = readUint32(r); err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, nil
}

func encodeFlowInfo(w io.Writer, fi event.FlowInfo) error {
	if err := writeUint64(w, fi.ID); err != nil {
		return err
	}
	if err := writeUint8(w, uint8(fi.Type)); err != nil {
		return err
	}
	var start uint8
	if fi.IsStart {
		start = 1
	}
	return writeUint8(w, start)
}

func decodeFlowInfo(r io.Reader) (event.FlowInfo, error) {
	var fi event.FlowInfo
	id, err := readUint64(r)
	if err != nil {
		return fi, err
	}
	fi.ID = id
	typ, err := readUint8(r)
	if err != nil {
		return fi, err
	}
	fi.Type = event.FlowType(typ)
	start, err := readUint8(r)
	if err != nil {
		return fi, err
	}
	fi.IsStart = start != 0
	return fi, nil
}

// decodeEvent reads one event record from r. When the on-disk kind byte
// is outside the known Kind range, the returned event's Kind is
// event.KindCustom and the numeric kind is preserved in its metadata
// under "raw_kind".
func decodeEvent(r *bufio.Reader, strs *stringTable) (event.Event, error) {
	var e event.Event

	rawKind, err := readUint8(r)
	if err != nil {
		return e, err
	}
	flags, err := readUint8(r)
	if err != nil {
		return e, err
	}
	streamID, err := readUint32(r)
	if err != nil {
		return e, err
	}
	e.StreamID = event.StreamID(streamID)
	deviceID, err := readUint32(r)
	if err != nil {
		return e, err
	}
	e.DeviceID = event.DeviceID(deviceID)
	corrID, err := readUint64(r)
	if err != nil {
		return e, err
	}
	e.CorrelationID = event.CorrelationID(corrID)
	threadID, err := readUint32(r)
	if err != nil {
		return e, err
	}
	e.ThreadID = event.ThreadID(threadID)
	ts, err := readUint64(r)
	if err != nil {
		return e, err
	}
	e.Timestamp = event.Timestamp(ts)
	dur, err := readUint64(r)
	if err != nil {
		return e, err
	}
	e.Duration = event.Timestamp(dur)
	nameRef, err := readUint32(r)
	if err != nil {
		return e, err
	}
	if e.Name, err = strs.lookup(nameRef); err != nil {
		return e, err
	}

	if rawKind > uint8(event.KindCustom) {
		e.Kind = event.KindCustom
		e.HasMetadata = true
		e.Metadata = e.Metadata.Set("raw_kind", fmt.Sprintf("%d", rawKind))
	} else {
		e.Kind = event.Kind(rawKind)
	}

	if flags&eventFlagKernelParams != 0 {
		body, err := readBlock(r)
		if err != nil {
			return e, err
		}
		e.HasKernelParams = true
		if e.KernelParams, err = decodeKernelParams(body); err != nil {
			return e, err
		}
	}
	if flags&eventFlagMemoryParams != 0 {
		body, err := readBlock(r)
		if err != nil {
			return e, err
		}
		e.HasMemoryParams = true
		if e.MemoryParams, err = decodeMemoryParams(body); err != nil {
			return e, err
		}
	}
	if flags&eventFlagCallStack != 0 {
		body, err := readBlock(r)
		if err != nil {
			return e, err
		}
		e.HasCallStack = true
		if e.CallStack, err = decodeCallStack(body, strs); err != nil {
			return e, err
		}
	}
	if flags&eventFlagFlowInfo != 0 {
		body, err := readBlock(r)
		if err != nil {
			return e, err
		}
		e.HasFlowInfo = true
		if e.FlowInfo, err = decodeFlowInfo(body); err != nil {
			return e, err
		}
	}
	if flags&eventFlagMetadata != 0 {
		body, err := readBlock(r)
		if err != nil {
			return e, err
		}
		extra, err := decodeMetadataMap(bufio.NewReader(body), strs)
		if err != nil {
			return e, err
		}
		if len(extra) > 0 {
			e.HasMetadata = true
			for _, kv := range extra {
				e.Metadata = e.Metadata.Set(kv.Key, kv.Value)
			}
		}
	}
	// Flag bits above eventFlagMetadata mark optional blocks this reader
	// does not know; each carries its own length prefix and is skipped.
	for bit := eventFlagMetadata << 1; bit != 0; bit <<= 1 {
		if flags&bit != 0 {
			if _, err := readBlock(r); err != nil {
				return e, err
			}
		}
	}

	return e, nil
}

// readBlock reads a length-prefixed block's body into its own reader, so a
// block can be fully consumed (or simply discarded) independent of the
// outer event stream's position.
func readBlock(r *bufio.Reader) (*bytes.Reader, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return bytes.NewReader(buf), nil
}
