package proctrace

// Controller is the process-control surface the RSP stub (internal/rsp)
// and the debug engine (internal/debugengine) drive. Every operation
// returns a bool/error rather than panicking, mirroring the original
// implementation's all-failures-are-values convention: a debugger must
// keep running after a failed ptrace call, not crash.
type Controller interface {
	Attach(pid int) error
	Spawn(argv []string) error
	Detach() error
	Kill() error
	IsAttached() bool

	ContinueExecution(signal int) error
	SingleStep(signal int) error
	Interrupt() error
	WaitForStop() (StopEvent, error)

	Threads() []int
	SelectThread(tid int) bool
	CurrentThread() int

	ReadRegisters() (RegisterSet, error)
	WriteRegisters(regs RegisterSet) error
	ReadRegister(n int) (uint64, error)
	WriteRegister(n int, value uint64) error

	ReadMemory(addr uint64, length int) ([]byte, error)
	WriteMemory(addr uint64, data []byte) error

	SetBreakpoint(addr uint64) (int, error)
	RemoveBreakpoint(id int) error
	RemoveBreakpointAt(addr uint64) bool
	EnableBreakpoint(id int, enable bool) error
	ListBreakpoints() []Breakpoint
	HasBreakpointAt(addr uint64) bool

	SetCallback(cb Callback)
}
