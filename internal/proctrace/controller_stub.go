//go:build !(linux && amd64)

package proctrace

import "github.com/tracesmith/tracesmith/internal/errorutil"

// stubController satisfies Controller on platforms without a ptrace
// binding. Every operation
// fails with ErrUnsupportedPlatform, the same failures-are-values
// convention the real controller uses.
type stubController struct{}

// New returns a Controller that always reports itself unsupported.
func New() Controller { return &stubController{} }

func (*stubController) Attach(pid int) error               { return errorutil.ErrUnsupportedPlatform }
func (*stubController) Spawn(argv []string) error          { return errorutil.ErrUnsupportedPlatform }
func (*stubController) Detach() error                      { return errorutil.ErrUnsupportedPlatform }
func (*stubController) Kill() error                        { return errorutil.ErrUnsupportedPlatform }
func (*stubController) IsAttached() bool                   { return false }
func (*stubController) ContinueExecution(signal int) error { return errorutil.ErrUnsupportedPlatform }
func (*stubController) SingleStep(signal int) error        { return errorutil.ErrUnsupportedPlatform }
func (*stubController) Interrupt() error                   { return errorutil.ErrUnsupportedPlatform }
func (*stubController) WaitForStop() (StopEvent, error) {
	return StopEvent{}, errorutil.ErrUnsupportedPlatform
}
func (*stubController) Threads() []int            { return nil }
func (*stubController) SelectThread(tid int) bool { return false }
func (*stubController) CurrentThread() int        { return 0 }
func (*stubController) ReadRegisters() (RegisterSet, error) {
	return RegisterSet{}, errorutil.ErrUnsupportedPlatform
}
func (*stubController) WriteRegisters(regs RegisterSet) error {
	return errorutil.ErrUnsupportedPlatform
}
func (*stubController) ReadRegister(n int) (uint64, error) {
	return 0, errorutil.ErrUnsupportedPlatform
}
func (*stubController) WriteRegister(n int, value uint64) error {
	return errorutil.ErrUnsupportedPlatform
}
func (*stubController) ReadMemory(addr uint64, length int) ([]byte, error) {
	return nil, errorutil.ErrUnsupportedPlatform
}
func (*stubController) WriteMemory(addr uint64, data []byte) error {
	return errorutil.ErrUnsupportedPlatform
}
func (*stubController) SetBreakpoint(addr uint64) (int, error) {
	return 0, errorutil.ErrUnsupportedPlatform
}
func (*stubController) RemoveBreakpoint(id int) error       { return errorutil.ErrUnsupportedPlatform }
func (*stubController) RemoveBreakpointAt(addr uint64) bool { return false }
func (*stubController) EnableBreakpoint(id int, enable bool) error {
	return errorutil.ErrUnsupportedPlatform
}
func (*stubController) ListBreakpoints() []Breakpoint    { return nil }
func (*stubController) HasBreakpointAt(addr uint64) bool { return false }
func (*stubController) SetCallback(cb Callback)          {}
