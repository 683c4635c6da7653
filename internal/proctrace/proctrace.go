// Package proctrace implements the ptrace-based process controller:
// attach/spawn a target process, control its execution, read and
// write its registers and memory, and manage software breakpoints. No
// Go reference implementation of raw ptrace control exists anywhere in
// this codebase's lineage, so the platform-specific half of this
// package is grounded directly on golang.org/x/sys/unix's Ptrace
// wrappers, with exact sequencing (breakpoint byte save/restore, PC
// rewind on hit, attach/spawn option flags) taken from the original
// C++ process controller this module replaces.
package proctrace

// RegisterSet is the x86_64 general-purpose and segment register file,
// in the same field order the GDB RSP 'g' packet expects.
type RegisterSet struct {
	RAX, RBX, RCX, RDX     uint64
	RSI, RDI               uint64
	RBP, RSP               uint64
	R8, R9, R10, R11       uint64
	R12, R13, R14, R15     uint64
	RIP                    uint64
	RFlags                 uint64
	CS, SS, DS, ES, FS, GS uint64
}

// regByIndex returns a pointer to the register at GDB register index
// reg_num (0-17: rax..r15, rip, rflags), or nil if out of range.
func (r *RegisterSet) regByIndex(n int) *uint64 {
	switch n {
	case 0:
		return &r.RAX
	case 1:
		return &r.RBX
	case 2:
		return &r.RCX
	case 3:
		return &r.RDX
	case 4:
		return &r.RSI
	case 5:
		return &r.RDI
	case 6:
		return &r.RBP
	case 7:
		return &r.RSP
	case 8:
		return &r.R8
	case 9:
		return &r.R9
	case 10:
		return &r.R10
	case 11:
		return &r.R11
	case 12:
		return &r.R12
	case 13:
		return &r.R13
	case 14:
		return &r.R14
	case 15:
		return &r.R15
	case 16:
		return &r.RIP
	case 17:
		return &r.RFlags
	default:
		return nil
	}
}

// StopReason classifies why waitForStop returned.
type StopReason uint8

const (
	StopNone StopReason = iota
	StopExited
	StopSignaled
	StopBreakpoint
	StopSignal
)

func (r StopReason) String() string {
	switch r {
	case StopExited:
		return "Exited"
	case StopSignaled:
		return "Signaled"
	case StopBreakpoint:
		return "Breakpoint"
	case StopSignal:
		return "Signal"
	default:
		return "None"
	}
}

// StopEvent reports the outcome of one WaitForStop call.
type StopEvent struct {
	ThreadID int
	Reason   StopReason
	ExitCode int
	Signal   int
	PC       uint64
}

// Breakpoint is one installed software breakpoint.
type Breakpoint struct {
	ID           int
	Address      uint64
	Enabled      bool
	HitCount     int
	originalByte byte
}

// GPUBreakpointHit is passed to the Callback for every hit on an enabled
// software breakpoint; proctrace itself only counts hits and notifies via
// callback, it has no notion of what a breakpoint address "means".
type GPUBreakpointHit struct {
	BreakpointID int
	Address      uint64
	ThreadID     int
}

// Callback is invoked synchronously from WaitForStop whenever a
// breakpoint hit is resolved to a known Breakpoint entry.
type Callback func(GPUBreakpointHit)
