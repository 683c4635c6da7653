package rsp

import (
	"encoding/hex"

	"github.com/tracesmith/tracesmith/internal/proctrace"
)

// registerOrder lists every RegisterSet field in the order GDB's x86_64
// target description expects for the 'g'/'G' packets: general-purpose
// registers, rip, rflags, then the segment registers.
func registerOrder(r *proctrace.RegisterSet) [24]uint64 {
	return [24]uint64{
		r.RAX, r.RBX, r.RCX, r.RDX,
		r.RSI, r.RDI,
		r.RBP, r.RSP,
		r.R8, r.R9, r.R10, r.R11,
		r.R12, r.R13, r.R14, r.R15,
		r.RIP, r.RFlags,
		r.CS, r.SS, r.DS, r.ES, r.FS, r.GS,
	}
}

func setRegisterOrder(r *proctrace.RegisterSet, vals [24]uint64) {
	r.RAX, r.RBX, r.RCX, r.RDX = vals[0], vals[1], vals[2], vals[3]
	r.RSI, r.RDI = vals[4], vals[5]
	r.RBP, r.RSP = vals[6], vals[7]
	r.R8, r.R9, r.R10, r.R11 = vals[8], vals[9], vals[10], vals[11]
	r.R12, r.R13, r.R14, r.R15 = vals[12], vals[13], vals[14], vals[15]
	r.RIP, r.RFlags = vals[16], vals[17]
	r.CS, r.SS, r.DS, r.ES, r.FS, r.GS = vals[18], vals[19], vals[20], vals[21], vals[22], vals[23]
}

// registersToHex renders a RegisterSet as the 'g'-reply hex string: each
// 64-bit register as 16 hex digits, target-endian (little-endian on
// x86_64), concatenated with no separators.
func registersToHex(r proctrace.RegisterSet) string {
	vals := registerOrder(&r)
	out := make([]byte, 0, len(vals)*16)
	for _, v := range vals {
		var buf [8]byte
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		out = append(out, hexEncode(buf[:])...)
	}
	return string(out)
}

// registersFromHex parses a 'G'-packet hex string back into a RegisterSet.
// Registers beyond what the string covers are left at zero.
func registersFromHex(s string) (proctrace.RegisterSet, error) {
	var vals [24]uint64
	raw, err := hex.DecodeString(s)
	if err != nil {
		return proctrace.RegisterSet{}, err
	}
	for i := 0; i < len(vals) && (i+1)*8 <= len(raw); i++ {
		var v uint64
		for b := 0; b < 8; b++ {
			v |= uint64(raw[i*8+b]) << (8 * b)
		}
		vals[i] = v
	}
	var regs proctrace.RegisterSet
	setRegisterOrder(&regs, vals)
	return regs, nil
}

func hexEncode(b []byte) []byte {
	dst := make([]byte, hex.EncodedLen(len(b)))
	hex.Encode(dst, b)
	return dst
}
