package sbt

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// stringTableIndex 0 is reserved to mean "empty string", so the
// table itself never stores an entry for it.
const emptyStringRef uint32 = 0

// stringTable interns strings on demand during writing and offers lookup
// by index during reading.
type stringTable struct {
	byIndex []string
	byValue map[string]uint32
}

func newStringTable() *stringTable {
	return &stringTable{byValue: make(map[string]uint32)}
}

// intern returns the table index for s, adding it if not already present.
// The empty string always maps to index 0 without occupying a table slot.
func (t *stringTable) intern(s string) uint32 {
	if s == "" {
		return emptyStringRef
	}
	if idx, ok := t.byValue[s]; ok {
		return idx
	}
	t.byIndex = append(t.byIndex, s)
	idx := uint32(len(t.byIndex)) // 1-based, so 0 stays reserved
	t.byValue[s] = idx
	return idx
}

// lookup returns the string at idx, or "" for index 0.
func (t *stringTable) lookup(idx uint32) (string, error) {
	if idx == emptyStringRef {
		return "", nil
	}
	pos := idx - 1
	if pos >= uint32(len(t.byIndex)) {
		return "", fmt.Errorf("sbt: string table index %d out of range", idx)
	}
	return t.byIndex[pos], nil
}

// writeTo encodes the table as a count-prefixed sequence of
// length-prefixed UTF-8 strings.
func (t *stringTable) writeTo(w io.Writer) error {
	if err := writeUint32(w, uint32(len(t.byIndex))); err != nil {
		return err
	}
	for _, s := range t.byIndex {
		if err := writeUint32(w, uint32(len(s))); err != nil {
			return err
		}
		if _, err := w.Write([]byte(s)); err != nil {
			return err
		}
	}
	return nil
}

// readStringTable decodes a table previously written by writeTo.
func readStringTable(r *bufio.Reader) (*stringTable, error) {
	count, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("sbt: reading string table count: %w", err)
	}
	t := newStringTable()
	t.byIndex = make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		n, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("sbt: reading string %d length: %w", i, err)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("sbt: reading string %d body: %w", i, err)
		}
		s := string(buf)
		t.byIndex = append(t.byIndex, s)
		t.byValue[s] = uint32(i) + 1
	}
	return t, nil
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func readUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func writeUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func readUint8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}
