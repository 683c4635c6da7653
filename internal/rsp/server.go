package rsp

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/tracesmith/tracesmith/internal/debugengine"
	"github.com/tracesmith/tracesmith/internal/proctrace"
)

// Server accepts GDB Remote Serial Protocol connections. It is a
// single-threaded event loop: at most one Session is ever active at a
// time, mirroring how a real gdbserver refuses a second client while it
// already has one attached.
type Server struct {
	listener   net.Listener
	controller proctrace.Controller
	engine     *debugengine.Engine
}

// NewServer wraps an already-bound listener (TCP ":1234" by convention,
// or a Unix domain socket) with the controller and engine every accepted
// session will drive.
func NewServer(listener net.Listener, controller proctrace.Controller, engine *debugengine.Engine) *Server {
	return &Server{listener: listener, controller: controller, engine: engine}
}

// Serve runs the single-connection-at-a-time accept loop until ctx is
// canceled or an interrupt/SIGTERM arrives, then closes the listener and
// returns.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			log.Info().Msg("rsp: shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		log.Info().Str("remote", conn.RemoteAddr().String()).Msg("rsp: client connected")
		sess := NewSession(conn, s.controller, s.engine, log.Logger)
		if err := sess.Serve(); err != nil {
			log.Warn().Err(err).Msg("rsp: session ended")
		}
		conn.Close()

		if ctx.Err() != nil {
			return nil
		}
	}
}
