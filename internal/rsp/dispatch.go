package rsp

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/tracesmith/tracesmith/internal/proctrace"
)

// dispatch decodes one already-unescaped packet payload and returns the
// unescaped reply payload (Encode is applied by the caller). An empty
// string is a valid "empty reply" for an unsupported command, per RSP
// convention.
func (s *Session) dispatch(payload string) string {
	if payload == "" {
		return ""
	}
	switch {
	case payload == "?":
		return s.replyStopReason()
	case payload == "g":
		return s.cmdReadRegisters()
	case strings.HasPrefix(payload, "G"):
		return s.cmdWriteRegisters(payload[1:])
	case strings.HasPrefix(payload, "m"):
		return s.cmdReadMemory(payload[1:])
	case strings.HasPrefix(payload, "M"):
		return s.cmdWriteMemory(payload[1:])
	case strings.HasPrefix(payload, "X"):
		return s.cmdWriteMemoryBinary(payload[1:])
	case strings.HasPrefix(payload, "c"):
		return s.cmdContinue(payload[1:], 0)
	case strings.HasPrefix(payload, "C"):
		return s.cmdContinue(payload[1:], 1)
	case strings.HasPrefix(payload, "s"):
		return s.cmdStep(payload[1:], 0)
	case strings.HasPrefix(payload, "S"):
		return s.cmdStep(payload[1:], 1)
	case payload == "k":
		s.controller.Kill()
		return ""
	case payload == "D":
		s.controller.Detach()
		return "OK"
	case strings.HasPrefix(payload, "Z0,"):
		return s.cmdSetBreakpoint(payload[3:])
	case strings.HasPrefix(payload, "z0,"):
		return s.cmdClearBreakpoint(payload[3:])
	case strings.HasPrefix(payload, "Z"), strings.HasPrefix(payload, "z"):
		return "" // hardware/watchpoint kinds not supported
	case strings.HasPrefix(payload, "H"):
		return s.cmdSetThread(payload[1:])
	case strings.HasPrefix(payload, "T"):
		return s.cmdThreadAlive(payload[1:])
	case payload == "!":
		s.extendedMode = true
		return "OK"
	case payload == "qC":
		return fmt.Sprintf("QC%x", s.controller.CurrentThread())
	case payload == "qAttached":
		return "1"
	case payload == "qfThreadInfo":
		return s.cmdFirstThreadInfo()
	case payload == "qsThreadInfo":
		return "l"
	case payload == "qSupported" || strings.HasPrefix(payload, "qSupported:"):
		return "PacketSize=4000;QStartNoAckMode+;qXfer:features:read-"
	case payload == "QStartNoAckMode":
		s.noAck = true
		return "OK"
	case strings.HasPrefix(payload, "qRcmd,"):
		return s.cmdMonitor(payload[len("qRcmd,"):])
	case strings.HasPrefix(payload, "vCont?"):
		return "vCont;c;C;s;S"
	case strings.HasPrefix(payload, "vCont"):
		return s.cmdVCont(payload[len("vCont"):])
	default:
		return ""
	}
}

func (s *Session) replyStopReason() string {
	if s.lastStop == nil {
		return "S05"
	}
	return stopReply(*s.lastStop)
}

// stopReply renders a StopEvent as its RSP stop-reply packet: Wxx for
// exit, Xxx for a fatal signal, Tnn for a trapped/signalled thread.
func stopReply(ev proctrace.StopEvent) string {
	switch ev.Reason {
	case proctrace.StopExited:
		return fmt.Sprintf("W%02x", ev.ExitCode&0xff)
	case proctrace.StopSignaled:
		return fmt.Sprintf("X%02x", ev.Signal&0xff)
	case proctrace.StopBreakpoint:
		return fmt.Sprintf("T%02x", sigTrap)
	default:
		sig := ev.Signal
		if sig == 0 {
			sig = sigTrap
		}
		return fmt.Sprintf("T%02x", sig&0xff)
	}
}

const sigTrap = 5

func (s *Session) cmdReadRegisters() string {
	regs, err := s.controller.ReadRegisters()
	if err != nil {
		return "E01"
	}
	return registersToHex(regs)
}

func (s *Session) cmdWriteRegisters(hexStr string) string {
	regs, err := registersFromHex(hexStr)
	if err != nil {
		return "E01"
	}
	if err := s.controller.WriteRegisters(regs); err != nil {
		return "E02"
	}
	return "OK"
}

func (s *Session) cmdReadMemory(args string) string {
	addr, length, ok := parseAddrLen(args, ",")
	if !ok {
		return "E01"
	}
	data, err := s.controller.ReadMemory(addr, length)
	if err != nil {
		return "E02"
	}
	return string(hexEncode(data))
}

func (s *Session) cmdWriteMemory(args string) string {
	head, hexData, ok := splitOnce(args, ":")
	if !ok {
		return "E01"
	}
	addr, _, ok := parseAddrLen(head, ",")
	if !ok {
		return "E01"
	}
	data, err := hex.DecodeString(hexData)
	if err != nil {
		return "E01"
	}
	if err := s.controller.WriteMemory(addr, data); err != nil {
		return "E02"
	}
	return "OK"
}

func (s *Session) cmdWriteMemoryBinary(args string) string {
	head, raw, ok := splitOnce(args, ":")
	if !ok {
		return "E01"
	}
	addr, _, ok := parseAddrLen(head, ",")
	if !ok {
		return "E01"
	}
	if err := s.controller.WriteMemory(addr, []byte(raw)); err != nil {
		return "E02"
	}
	return "OK"
}

func (s *Session) cmdSetBreakpoint(args string) string {
	addrStr, _, _ := splitOnce(args, ",")
	addr, err := strconv.ParseUint(addrStr, 16, 64)
	if err != nil {
		return "E01"
	}
	if _, err := s.controller.SetBreakpoint(addr); err != nil {
		return "E02"
	}
	return "OK"
}

func (s *Session) cmdClearBreakpoint(args string) string {
	addrStr, _, _ := splitOnce(args, ",")
	addr, err := strconv.ParseUint(addrStr, 16, 64)
	if err != nil {
		return "E01"
	}
	if !s.controller.RemoveBreakpointAt(addr) {
		return "E02"
	}
	return "OK"
}

func (s *Session) cmdSetThread(args string) string {
	if len(args) < 2 {
		return "E01"
	}
	tid, err := strconv.ParseInt(args[1:], 16, 64)
	if err != nil {
		return "E01"
	}
	if tid <= 0 {
		return "OK" // "any thread" / "all threads"
	}
	if !s.controller.SelectThread(int(tid)) {
		return "E02"
	}
	return "OK"
}

func (s *Session) cmdThreadAlive(args string) string {
	tid, err := strconv.ParseInt(args, 16, 64)
	if err != nil {
		return "E01"
	}
	for _, t := range s.controller.Threads() {
		if t == int(tid) {
			return "OK"
		}
	}
	return "E01"
}

func (s *Session) cmdFirstThreadInfo() string {
	threads := s.controller.Threads()
	if len(threads) == 0 {
		return "l"
	}
	parts := make([]string, len(threads))
	for i, t := range threads {
		parts[i] = fmt.Sprintf("%x", t)
	}
	return "m" + strings.Join(parts, ",")
}

func (s *Session) cmdMonitor(hexCmd string) string {
	raw, err := hex.DecodeString(hexCmd)
	if err != nil {
		return "E01"
	}
	out := s.runMonitor(string(raw))
	if out == "" {
		return "OK"
	}
	return string(hexEncode([]byte(out + "\n")))
}

func (s *Session) cmdVCont(args string) string {
	args = strings.TrimPrefix(args, ";")
	if args == "" {
		return ""
	}
	action := args[0]
	switch action {
	case 'c':
		return s.cmdContinue("", 0)
	case 's':
		return s.cmdStep("", 0)
	default:
		return ""
	}
}

func parseAddrLen(s, sep string) (uint64, int, bool) {
	a, b, ok := splitOnce(s, sep)
	if !ok {
		return 0, 0, false
	}
	addr, err := strconv.ParseUint(a, 16, 64)
	if err != nil {
		return 0, 0, false
	}
	length, err := strconv.ParseUint(b, 16, 64)
	if err != nil {
		return 0, 0, false
	}
	return addr, int(length), true
}

func splitOnce(s, sep string) (string, string, bool) {
	i := strings.Index(s, sep)
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+len(sep):], true
}
