package rsp

import (
	"bufio"
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	got := Encode([]byte("OK"))
	if string(got) != "$OK#9a" {
		t.Fatalf("Encode(OK) = %q, want $OK#9a", got)
	}
	payload, err := Decode(got)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(payload) != "OK" {
		t.Fatalf("Decode() = %q, want OK", payload)
	}
}

func TestDecodeRejectsBadChecksum(t *testing.T) {
	if _, err := Decode([]byte("$OK#00")); err == nil {
		t.Fatal("Decode($OK#00) succeeded, want checksum error")
	}
}

func TestDecodeRejectsMalformedFraming(t *testing.T) {
	cases := []string{"", "$", "OK#9a", "$OK", "$OK#9"}
	for _, c := range cases {
		if _, err := Decode([]byte(c)); err == nil {
			t.Errorf("Decode(%q) succeeded, want error", c)
		}
	}
}

func TestEscapeUnescapeRoundTrip(t *testing.T) {
	payload := []byte("a$b#c}d*e")
	escaped := Escape(payload)
	back, err := Unescape(escaped)
	if err != nil {
		t.Fatalf("Unescape: %v", err)
	}
	if !bytes.Equal(back, payload) {
		t.Fatalf("round trip = %q, want %q", back, payload)
	}
}

func TestChecksumOverEscapedBytes(t *testing.T) {
	payload := []byte("a}b") // contains a byte requiring escaping
	escaped := Escape(payload)
	encoded := Encode(payload)
	want := Checksum(escaped)
	gotSum := encoded[len(encoded)-2:]
	if string(gotSum) != hexByte(want) {
		t.Fatalf("checksum in encoded packet = %s, want %s (over escaped bytes)", gotSum, hexByte(want))
	}
}

func hexByte(b byte) string {
	const hexDigits = "0123456789abcdef"
	return string([]byte{hexDigits[b>>4], hexDigits[b&0xf]})
}

func TestReadRawPacket(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("OK#9a" + "next"))
	raw, err := readRawPacket(r)
	if err != nil {
		t.Fatalf("readRawPacket: %v", err)
	}
	if string(raw) != "$OK#9a" {
		t.Fatalf("readRawPacket = %q, want $OK#9a", raw)
	}
}

func TestReadRawPacketHandlesEscapedTerminator(t *testing.T) {
	// escaped '#' (0x23) is '}' followed by 0x23^0x20 = 0x03
	input := []byte{'}', 0x23, '#', '0', '0'}
	r := bufio.NewReader(bytes.NewReader(input))
	raw, err := readRawPacket(r)
	if err != nil {
		t.Fatalf("readRawPacket: %v", err)
	}
	want := []byte{'$', '}', 0x23, '#', '0', '0'}
	if !bytes.Equal(raw, want) {
		t.Fatalf("readRawPacket = %v, want %v", raw, want)
	}
}
