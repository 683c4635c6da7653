package rsp

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/tracesmith/tracesmith/internal/debugengine"
	"github.com/tracesmith/tracesmith/internal/proctrace"
)

// fakeController is a minimal in-memory proctrace.Controller double for
// dispatch-level tests; it never touches the OS.
type fakeController struct {
	regs        proctrace.RegisterSet
	mem         map[uint64]byte
	breakpoints map[int]proctrace.Breakpoint
	nextBP      int
	threads     []int
	current     int
	attached    bool
	stopEvent   proctrace.StopEvent
}

func newFakeController() *fakeController {
	return &fakeController{
		mem:         make(map[uint64]byte),
		breakpoints: make(map[int]proctrace.Breakpoint),
		nextBP:      1,
		threads:     []int{100},
		current:     100,
		attached:    true,
	}
}

func (f *fakeController) Attach(pid int) error      { f.attached = true; return nil }
func (f *fakeController) Spawn(argv []string) error { f.attached = true; return nil }
func (f *fakeController) Detach() error             { f.attached = false; return nil }
func (f *fakeController) Kill() error               { f.attached = false; return nil }
func (f *fakeController) IsAttached() bool          { return f.attached }

func (f *fakeController) ContinueExecution(signal int) error { return nil }
func (f *fakeController) SingleStep(signal int) error        { return nil }
func (f *fakeController) Interrupt() error                   { return nil }
func (f *fakeController) WaitForStop() (proctrace.StopEvent, error) {
	return f.stopEvent, nil
}

func (f *fakeController) Threads() []int { return f.threads }
func (f *fakeController) SelectThread(tid int) bool {
	for _, t := range f.threads {
		if t == tid {
			f.current = tid
			return true
		}
	}
	return false
}
func (f *fakeController) CurrentThread() int { return f.current }

func (f *fakeController) ReadRegisters() (proctrace.RegisterSet, error) { return f.regs, nil }
func (f *fakeController) WriteRegisters(regs proctrace.RegisterSet) error {
	f.regs = regs
	return nil
}
func (f *fakeController) ReadRegister(n int) (uint64, error)      { return 0, nil }
func (f *fakeController) WriteRegister(n int, value uint64) error { return nil }

func (f *fakeController) ReadMemory(addr uint64, length int) ([]byte, error) {
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = f.mem[addr+uint64(i)]
	}
	return out, nil
}
func (f *fakeController) WriteMemory(addr uint64, data []byte) error {
	for i, b := range data {
		f.mem[addr+uint64(i)] = b
	}
	return nil
}

func (f *fakeController) SetBreakpoint(addr uint64) (int, error) {
	id := f.nextBP
	f.nextBP++
	f.breakpoints[id] = proctrace.Breakpoint{ID: id, Address: addr, Enabled: true}
	return id, nil
}
func (f *fakeController) RemoveBreakpoint(id int) error {
	delete(f.breakpoints, id)
	return nil
}
func (f *fakeController) RemoveBreakpointAt(addr uint64) bool {
	for id, bp := range f.breakpoints {
		if bp.Address == addr {
			delete(f.breakpoints, id)
			return true
		}
	}
	return false
}
func (f *fakeController) EnableBreakpoint(id int, enable bool) error { return nil }
func (f *fakeController) ListBreakpoints() []proctrace.Breakpoint {
	out := make([]proctrace.Breakpoint, 0, len(f.breakpoints))
	for _, bp := range f.breakpoints {
		out = append(out, bp)
	}
	return out
}
func (f *fakeController) HasBreakpointAt(addr uint64) bool {
	for _, bp := range f.breakpoints {
		if bp.Address == addr {
			return true
		}
	}
	return false
}
func (f *fakeController) SetCallback(cb proctrace.Callback) {}

func newTestSession() (*Session, *fakeController) {
	ctrl := newFakeController()
	e := debugengine.New()
	return &Session{controller: ctrl, engine: e, log: zerolog.Nop()}, ctrl
}

func TestDispatchReadWriteRegisters(t *testing.T) {
	s, ctrl := newTestSession()
	ctrl.regs.RAX = 0x42
	reply := s.dispatch("g")
	if len(reply) != 24*16 {
		t.Fatalf("g reply length = %d, want %d", len(reply), 24*16)
	}

	writeReply := s.dispatch("G" + reply)
	if writeReply != "OK" {
		t.Fatalf("G reply = %q, want OK", writeReply)
	}
}

func TestDispatchMemoryReadWrite(t *testing.T) {
	s, _ := newTestSession()
	if got := s.dispatch("M1000,2:aabb"); got != "OK" {
		t.Fatalf("M reply = %q, want OK", got)
	}
	if got := s.dispatch("m1000,2"); got != "aabb" {
		t.Fatalf("m reply = %q, want aabb", got)
	}
}

func TestDispatchBreakpointSetClear(t *testing.T) {
	s, ctrl := newTestSession()
	if got := s.dispatch("Z0,1000,1"); got != "OK" {
		t.Fatalf("Z0 reply = %q, want OK", got)
	}
	if !ctrl.HasBreakpointAt(0x1000) {
		t.Fatal("breakpoint not installed")
	}
	if got := s.dispatch("z0,1000,1"); got != "OK" {
		t.Fatalf("z0 reply = %q, want OK", got)
	}
	if ctrl.HasBreakpointAt(0x1000) {
		t.Fatal("breakpoint not removed")
	}
}

func TestDispatchUnknownWatchpointKindIsEmpty(t *testing.T) {
	s, _ := newTestSession()
	if got := s.dispatch("Z2,1000,4"); got != "" {
		t.Fatalf("Z2 reply = %q, want empty", got)
	}
}

func TestDispatchQSupportedAndNoAck(t *testing.T) {
	s, _ := newTestSession()
	if got := s.dispatch("qSupported:multiprocess+"); got == "" {
		t.Fatal("qSupported reply empty")
	}
	if s.noAck {
		t.Fatal("noAck set before QStartNoAckMode")
	}
	if got := s.dispatch("QStartNoAckMode"); got != "OK" {
		t.Fatalf("QStartNoAckMode reply = %q, want OK", got)
	}
	if !s.noAck {
		t.Fatal("noAck not set after QStartNoAckMode")
	}
}

func TestDispatchQRcmdRunsMonitorCommand(t *testing.T) {
	s, _ := newTestSession()
	// hex("ts devices")
	hexCmd := "74732064657669636573"
	got := s.dispatch("qRcmd," + hexCmd)
	if got == "E01" {
		t.Fatalf("qRcmd failed to decode: %q", got)
	}
}

func TestDispatchThreadInfo(t *testing.T) {
	s, _ := newTestSession()
	if got := s.dispatch("qfThreadInfo"); got != "m64" {
		t.Fatalf("qfThreadInfo = %q, want m64", got)
	}
	if got := s.dispatch("qsThreadInfo"); got != "l" {
		t.Fatalf("qsThreadInfo = %q, want l", got)
	}
}

func TestStopReplyVariants(t *testing.T) {
	cases := []struct {
		ev   proctrace.StopEvent
		want string
	}{
		{proctrace.StopEvent{Reason: proctrace.StopExited, ExitCode: 7}, "W07"},
		{proctrace.StopEvent{Reason: proctrace.StopSignaled, Signal: 11}, "X0b"},
		{proctrace.StopEvent{Reason: proctrace.StopBreakpoint}, "T05"},
		{proctrace.StopEvent{Reason: proctrace.StopSignal, Signal: 5}, "T05"},
	}
	for _, c := range cases {
		if got := stopReply(c.ev); got != c.want {
			t.Errorf("stopReply(%+v) = %q, want %q", c.ev, got, c.want)
		}
	}
}
