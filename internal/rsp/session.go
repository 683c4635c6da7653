package rsp

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tracesmith/tracesmith/internal/debugengine"
	"github.com/tracesmith/tracesmith/internal/event"
	"github.com/tracesmith/tracesmith/internal/logutil"
	"github.com/tracesmith/tracesmith/internal/proctrace"
)

// debugSampler caps per-packet debug logging independently of the global
// log level: a debugger session can exchange thousands of 'm'/'g' packets
// a second during a step, and that volume shouldn't depend on whatever
// level the rest of the process happens to be configured at.
var debugSampler = logutil.LevelSampler{Level: zerolog.DebugLevel}

// Session is one connected debugger's protocol state: ack mode, the
// currently selected thread, and the temporary bridge between GPU
// breakpoints (detected from the event stream by internal/debugengine)
// and the real ptrace-level stop this stub must report to the client.
type Session struct {
	conn   net.Conn
	reader *bufio.Reader
	log    zerolog.Logger

	controller proctrace.Controller
	engine     *debugengine.Engine

	noAck        bool
	extendedMode bool

	mu                sync.Mutex
	lastStop          *proctrace.StopEvent
	lastGPUBreakpoint *debugengine.Breakpoint
}

// NewSession wraps an accepted connection with the controller and engine
// it will drive commands against.
func NewSession(conn net.Conn, controller proctrace.Controller, engine *debugengine.Engine, log zerolog.Logger) *Session {
	return &Session{
		conn:       conn,
		reader:     bufio.NewReader(conn),
		log:        log,
		controller: controller,
		engine:     engine,
	}
}

// Serve runs the read-dispatch-reply loop until the connection closes or
// an unrecoverable read error occurs.
func (s *Session) Serve() error {
	for {
		payload, err := s.readPacket()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if payload == nil {
			continue // ack/nack byte or Ctrl-C handled inline, nothing to reply to
		}
		sampledLog := s.log.Sample(debugSampler)
		sampledLog.Debug().Str("payload", string(payload)).Msg("rsp: dispatching packet")
		reply := s.dispatch(string(payload))
		if err := s.send(Encode([]byte(reply))); err != nil {
			return err
		}
	}
}

// readPacket consumes bytes until it has a full decoded packet payload,
// handling bare ack/nack bytes and the async Ctrl-C interrupt inline by
// returning (nil, nil) so the caller's loop continues without replying.
func (s *Session) readPacket() ([]byte, error) {
	for {
		b, err := s.reader.ReadByte()
		if err != nil {
			return nil, err
		}
		switch b {
		case ackPositive, ackNegative:
			continue
		case ctrlC:
			s.controller.Interrupt()
			return nil, nil
		case packetStart:
			raw, err := readRawPacket(s.reader)
			if err != nil {
				return nil, err
			}
			payload, err := Decode(raw)
			if err != nil {
				if !s.noAck {
					s.conn.Write([]byte{ackNegative})
				}
				continue
			}
			if !s.noAck {
				s.conn.Write([]byte{ackPositive})
			}
			return payload, nil
		default:
			continue
		}
	}
}

func (s *Session) send(framed []byte) error {
	_, err := s.conn.Write(framed)
	return err
}

// cmdContinue resumes execution and blocks until either a real ptrace
// stop or a GPU breakpoint fires, racing the two: a GPU
// breakpoint is surfaced as a synthetic T05 on the most recently active
// thread, but the underlying process is still actually stopped via a
// real Interrupt so ptrace state never drifts from what the client is
// told.
func (s *Session) cmdContinue(args string, withSignal int) string {
	sig := s.parseOptionalSignal(args, withSignal)
	if err := s.controller.ContinueExecution(sig); err != nil {
		return "E01"
	}
	return s.waitRacingGPUBreakpoints()
}

func (s *Session) cmdStep(args string, withSignal int) string {
	sig := s.parseOptionalSignal(args, withSignal)
	if err := s.controller.SingleStep(sig); err != nil {
		return "E01"
	}
	return s.waitRacingGPUBreakpoints()
}

func (s *Session) parseOptionalSignal(args string, withSignal int) int {
	if withSignal == 0 || args == "" {
		return 0
	}
	addr := args
	if i := strings.IndexByte(args, ';'); i >= 0 {
		addr = args[:i]
	}
	sig, err := strconv.ParseInt(addr, 16, 32)
	if err != nil {
		return 0
	}
	return int(sig)
}

// waitRacingGPUBreakpoints registers a temporary engine callback for the
// duration of one continue/step, then blocks on whichever fires first:
// a real ptrace stop, or a GPU breakpoint hit reported through the
// capture event stream.
func (s *Session) waitRacingGPUBreakpoints() string {
	gpuHits := make(chan *debugengine.Breakpoint, 1)
	s.engine.SetCallback(func(_ event.Event, bp *debugengine.Breakpoint) {
		if bp != nil {
			select {
			case gpuHits <- bp:
			default:
			}
		}
	})
	defer s.engine.SetCallback(nil)

	type stopResult struct {
		ev  proctrace.StopEvent
		err error
	}
	realStop := make(chan stopResult, 1)
	go func() {
		ev, err := s.controller.WaitForStop()
		realStop <- stopResult{ev, err}
	}()

	select {
	case bp := <-gpuHits:
		if err := s.controller.Interrupt(); err == nil {
			<-realStop // drain and discard: the real stop is just SIGSTOP, not what we report
		}
		s.mu.Lock()
		s.lastGPUBreakpoint = bp
		s.mu.Unlock()
		return "T05"
	case res := <-realStop:
		if res.err != nil {
			return "E01"
		}
		s.mu.Lock()
		ev := res.ev
		s.lastStop = &ev
		s.mu.Unlock()
		return stopReply(res.ev)
	}
}
