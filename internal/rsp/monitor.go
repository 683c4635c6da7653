package rsp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tracesmith/tracesmith/internal/debugengine"
	"github.com/tracesmith/tracesmith/internal/event"
)

// runMonitor executes one `ts ...` monitor command against the engine and
// returns the plain-ASCII text to report back through qRcmd.
func (s *Session) runMonitor(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "ts" {
		return "unrecognized monitor command; try \"monitor ts help\""
	}
	if len(fields) == 1 {
		return monitorHelp()
	}
	args := fields[2:]
	switch fields[1] {
	case "help":
		return monitorHelp()
	case "status":
		return s.monitorStatus()
	case "devices":
		return s.monitorDevices()
	case "streams":
		return s.monitorStreams()
	case "memory":
		return s.monitorMemory(args)
	case "kernels":
		return s.monitorKernels(args)
	case "kernel-search":
		return s.monitorKernelSearch(args)
	case "break":
		return s.monitorBreak(args)
	case "gpu":
		return s.monitorGPU(args)
	case "allocs":
		return s.monitorAllocs(args)
	case "trace":
		return s.monitorTrace(args)
	case "replay":
		return s.monitorReplay(args)
	default:
		return fmt.Sprintf("unknown ts command %q; try \"monitor ts help\"", fields[1])
	}
}

func monitorHelp() string {
	return strings.Join([]string{
		"ts help",
		"ts status | devices | streams",
		"ts memory [device]",
		"ts kernels [N] | kernel-search <pattern>",
		"ts break <kernel|memcpy|alloc|free|sync> <pattern> [device] | ts break list | ts break delete <id> | ts break enable <id> | ts break disable <id>",
		"ts gpu read <device> <addr> <len>",
		"ts allocs [device]",
		"ts trace start | stop | save <file> | load <file>",
		"ts replay start | stop | pause | resume | step | step-kernel | goto <timestamp> | status",
	}, "\n")
}

func (s *Session) monitorStatus() string {
	var sb strings.Builder
	if s.lastGPUBreakpoint != nil {
		fmt.Fprintf(&sb, "last GPU breakpoint hit: id=%d kind=%s pattern=%q hits=%d\n",
			s.lastGPUBreakpoint.ID, s.lastGPUBreakpoint.Kind, s.lastGPUBreakpoint.KernelPattern, s.lastGPUBreakpoint.HitCount)
	} else {
		sb.WriteString("no GPU breakpoint has fired yet\n")
	}
	devices := s.engine.Devices()
	fmt.Fprintf(&sb, "devices observed: %d\n", len(devices))
	for _, d := range devices {
		l := s.engine.Ledger(d)
		if l == nil {
			continue
		}
		fmt.Fprintf(&sb, "  device %d: live=%d peak=%d allocs=%d\n", d, l.LiveBytes(), l.PeakBytes(), l.AllocCount())
	}
	warnings := s.engine.Warnings()
	fmt.Fprintf(&sb, "warnings: %d\n", len(warnings))
	return strings.TrimRight(sb.String(), "\n")
}

func (s *Session) monitorDevices() string {
	devices := s.engine.Devices()
	sort.Slice(devices, func(i, j int) bool { return devices[i] < devices[j] })
	if len(devices) == 0 {
		return "no devices observed"
	}
	parts := make([]string, len(devices))
	for i, d := range devices {
		parts[i] = fmt.Sprintf("device %d", d)
	}
	return strings.Join(parts, "\n")
}

func (s *Session) monitorStreams() string {
	kernels := s.engine.ActiveKernels()
	if len(kernels) == 0 {
		return "no streams currently executing a kernel"
	}
	parts := make([]string, len(kernels))
	for i, k := range kernels {
		parts[i] = fmt.Sprintf("device %d stream %d: %s", k.Device, k.Stream, k.Name)
	}
	return strings.Join(parts, "\n")
}

func (s *Session) monitorMemory(args []string) string {
	devices := s.engine.Devices()
	if len(args) > 0 {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Sprintf("invalid device id %q", args[0])
		}
		devices = []event.DeviceID{event.DeviceID(id)}
	}
	var sb strings.Builder
	for _, d := range devices {
		l := s.engine.Ledger(d)
		if l == nil {
			fmt.Fprintf(&sb, "device %d: not observed\n", d)
			continue
		}
		fmt.Fprintf(&sb, "device %d: live=%d peak=%d allocs=%d\n", d, l.LiveBytes(), l.PeakBytes(), l.AllocCount())
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (s *Session) monitorKernels(args []string) string {
	n := 20
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			n = v
		}
	}
	hist := s.engine.KernelHistory()
	if len(hist) > n {
		hist = hist[len(hist)-n:]
	}
	if len(hist) == 0 {
		return "no kernels recorded"
	}
	parts := make([]string, len(hist))
	for i, k := range hist {
		status := "running"
		if k.Completed {
			status = fmt.Sprintf("done in %d", k.CompleteTime-k.LaunchTime)
		}
		parts[i] = fmt.Sprintf("%s (device %d stream %d) launched@%d %s", k.Name, k.Device, k.Stream, k.LaunchTime, status)
	}
	return strings.Join(parts, "\n")
}

func (s *Session) monitorKernelSearch(args []string) string {
	if len(args) == 0 {
		return "usage: ts kernel-search <pattern>"
	}
	matches := s.engine.SearchKernels(args[0])
	if len(matches) == 0 {
		return "no matches"
	}
	parts := make([]string, len(matches))
	for i, k := range matches {
		parts[i] = fmt.Sprintf("%s (device %d stream %d) launched@%d", k.Name, k.Device, k.Stream, k.LaunchTime)
	}
	return strings.Join(parts, "\n")
}

func (s *Session) monitorBreak(args []string) string {
	if len(args) == 0 {
		return "usage: ts break <kind> <pattern> [device] | list | delete <id> | enable <id> | disable <id>"
	}
	switch args[0] {
	case "list":
		bps := s.engine.ListBreakpoints()
		if len(bps) == 0 {
			return "no breakpoints"
		}
		parts := make([]string, len(bps))
		for i, bp := range bps {
			state := "enabled"
			if !bp.Enabled {
				state = "disabled"
			}
			parts[i] = fmt.Sprintf("#%d %s %q %s hits=%d", bp.ID, bp.Kind, bp.KernelPattern, state, bp.HitCount)
		}
		return strings.Join(parts, "\n")
	case "delete":
		if len(args) < 2 {
			return "usage: ts break delete <id>"
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Sprintf("invalid id %q", args[1])
		}
		if s.engine.RemoveBreakpoint(id) {
			return fmt.Sprintf("removed breakpoint #%d", id)
		}
		return fmt.Sprintf("no breakpoint #%d", id)
	case "enable", "disable":
		if len(args) < 2 {
			return fmt.Sprintf("usage: ts break %s <id>", args[0])
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Sprintf("invalid id %q", args[1])
		}
		if s.engine.EnableBreakpoint(id, args[0] == "enable") {
			return fmt.Sprintf("breakpoint #%d %sd", id, args[0])
		}
		return fmt.Sprintf("no breakpoint #%d", id)
	case "kernel", "memcpy", "alloc", "free", "sync":
		if len(args) < 2 {
			return "usage: ts break <kind> <pattern> [device]"
		}
		var dev *event.DeviceID
		if len(args) > 2 {
			id, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Sprintf("invalid device id %q", args[2])
			}
			d := event.DeviceID(id)
			dev = &d
		}
		id, err := s.engine.AddBreakpoint(debugengine.BreakpointKind(args[0]), args[1], dev)
		if err != nil {
			return err.Error()
		}
		return fmt.Sprintf("breakpoint #%d set", id)
	default:
		return fmt.Sprintf("unknown break kind %q", args[0])
	}
}

func (s *Session) monitorGPU(args []string) string {
	if len(args) < 3 || args[0] != "read" {
		return "usage: ts gpu read <device> <addr> <len>"
	}
	return "GPU-side memory read requires a live vendor backend, not available in this capture session"
}

func (s *Session) monitorAllocs(args []string) string {
	devices := s.engine.Devices()
	if len(args) > 0 {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Sprintf("invalid device id %q", args[0])
		}
		devices = []event.DeviceID{event.DeviceID(id)}
	}
	var sb strings.Builder
	for _, d := range devices {
		l := s.engine.Ledger(d)
		if l == nil {
			continue
		}
		for _, a := range l.LiveAllocations() {
			fmt.Fprintf(&sb, "device %d: 0x%x (%d bytes)\n", d, a.Address, a.ByteCount)
		}
	}
	out := strings.TrimRight(sb.String(), "\n")
	if out == "" {
		return "no live allocations"
	}
	return out
}

func (s *Session) monitorTrace(args []string) string {
	if len(args) == 0 {
		return "usage: ts trace start | stop | save <file> | load <file>"
	}
	switch args[0] {
	case "start":
		s.engine.StartTrace()
		return "trace recording started"
	case "stop":
		s.engine.StopTrace()
		return "trace recording stopped"
	case "save":
		if len(args) < 2 {
			return "usage: ts trace save <file>"
		}
		if err := s.engine.SaveTrace(args[1], nil); err != nil {
			return err.Error()
		}
		return fmt.Sprintf("trace saved to %s", args[1])
	case "load":
		if len(args) < 2 {
			return "usage: ts trace load <file>"
		}
		if err := s.engine.LoadForReplay(args[1]); err != nil {
			return err.Error()
		}
		return fmt.Sprintf("trace loaded from %s for replay", args[1])
	default:
		return fmt.Sprintf("unknown ts trace command %q", args[0])
	}
}

func (s *Session) monitorReplay(args []string) string {
	if len(args) == 0 {
		return "usage: ts replay start | stop | pause | resume | step | step-kernel | goto <timestamp> | status"
	}
	c := s.engine.Cursor()
	if c == nil {
		return "no trace loaded for replay; use ts trace load <file> first"
	}
	switch args[0] {
	case "start":
		c.Start()
		return "replay started"
	case "stop":
		c.Stop()
		return "replay stopped"
	case "pause":
		c.Pause()
		return "replay paused"
	case "resume":
		c.Resume()
		return "replay resumed"
	case "step":
		e, ok := c.StepEvent()
		if !ok {
			return "end of trace"
		}
		return fmt.Sprintf("[%d] %s", e.Timestamp, e.Kind)
	case "step-kernel":
		e, ok := c.StepKernel()
		if !ok {
			return "no further kernel launches"
		}
		return fmt.Sprintf("[%d] %s", e.Timestamp, e.Name)
	case "goto":
		if len(args) < 2 {
			return "usage: ts replay goto <timestamp>"
		}
		ts, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Sprintf("invalid timestamp %q", args[1])
		}
		c.GotoTimestamp(event.Timestamp(ts))
		return fmt.Sprintf("positioned at index %d", c.CurrentIndex())
	case "status":
		return fmt.Sprintf("state=%v index=%d/%d timestamp=%d", c.State(), c.CurrentIndex(), c.TotalEvents(), c.CurrentTimestamp())
	default:
		return fmt.Sprintf("unknown ts replay command %q", args[0])
	}
}
