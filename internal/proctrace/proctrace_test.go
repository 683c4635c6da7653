package proctrace

import "testing"

func TestRegisterSetRegByIndex(t *testing.T) {
	var regs RegisterSet
	regs.RAX = 0xdead
	regs.RIP = 0x4000
	regs.RFlags = 0x246

	if p := regs.regByIndex(0); p == nil || *p != 0xdead {
		t.Fatalf("regByIndex(0) = %v, want rax 0xdead", p)
	}
	if p := regs.regByIndex(16); p == nil || *p != 0x4000 {
		t.Fatalf("regByIndex(16) = %v, want rip", p)
	}
	if p := regs.regByIndex(17); p == nil || *p != 0x246 {
		t.Fatalf("regByIndex(17) = %v, want rflags", p)
	}
	if p := regs.regByIndex(99); p != nil {
		t.Fatalf("regByIndex(99) = %v, want nil", p)
	}

	*regs.regByIndex(0) = 0xbeef
	if regs.RAX != 0xbeef {
		t.Fatalf("write through regByIndex(0) did not update RAX, got %x", regs.RAX)
	}
}

func TestStopReasonString(t *testing.T) {
	cases := map[StopReason]string{
		StopNone:       "None",
		StopExited:     "Exited",
		StopSignaled:   "Signaled",
		StopBreakpoint: "Breakpoint",
		StopSignal:     "Signal",
	}
	for reason, want := range cases {
		if got := reason.String(); got != want {
			t.Errorf("StopReason(%d).String() = %q, want %q", reason, got, want)
		}
	}
}
