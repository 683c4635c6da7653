package errorutil

import "errors"

// Sentinel errors shared across tracesmith's packages: unavailable
// runtimes, invalid input, protocol errors and unsupported platforms.
// Orphan events and capture drops are not sentinels — they are
// counters/warnings recorded in place, never returned.
var (
	// ErrDataIntegrity is a base error type for unrecoverable data
	// integrity issues, such as a structurally invalid SBT header.
	ErrDataIntegrity = errors.New("data integrity error")

	// ErrRuntimeUnavailable is returned by a capture adapter's Initialize
	// when the vendor runtime it targets is not present on the host.
	ErrRuntimeUnavailable = errors.New("vendor runtime unavailable")

	// ErrInvalidTrace is returned when an SBT file fails header validation.
	ErrInvalidTrace = errors.New("invalid trace file")

	// ErrVersionMismatch is returned when an SBT file's version_major is
	// not supported by the reader.
	ErrVersionMismatch = errors.New("trace version mismatch")

	// ErrAlreadyFinalized is returned by writer operations attempted after
	// finalize() has been called.
	ErrAlreadyFinalized = errors.New("trace writer already finalized")

	// ErrProtocol marks a malformed GDB RSP packet (bad checksum/framing).
	ErrProtocol = errors.New("rsp protocol error")

	// ErrUnsupportedPlatform is returned by the process controller on
	// build targets other than linux/amd64.
	ErrUnsupportedPlatform = errors.New("process control unsupported on this platform")

	// ErrNoResults represents situations in which no results were
	// returned by the called operation (kernel search, device lookup).
	ErrNoResults = errors.New("no results returned")
)
