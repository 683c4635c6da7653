package main

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/tracesmith/tracesmith/internal/config"
	"github.com/tracesmith/tracesmith/internal/debugengine"
	"github.com/tracesmith/tracesmith/internal/proctrace"
	"github.com/tracesmith/tracesmith/internal/rsp"
)

// debugCommand starts the GPU debug engine behind a GDB Remote
// Serial Protocol listener, optionally attaching to or spawning a
// target process first. It's the entry point that makes the process
// controller and RSP stub actually reachable from the CLI.
func debugCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "debug",
		Usage: "start the GPU debug engine behind a GDB remote-serial-protocol stub",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "attach", Usage: "pid to attach to"},
			&cli.StringFlag{Name: "spawn", Usage: "path to a binary to spawn and trace"},
			&cli.StringFlag{Name: "load-trace", Usage: "SBT file to load for replay-only debugging"},
			&cli.StringFlag{Name: "listen", Usage: "override the configured RSP listen address"},
		},
		Action: func(c *cli.Context) error {
			controller := proctrace.New()

			switch {
			case c.IsSet("attach"):
				if err := controller.Attach(c.Int("attach")); err != nil {
					return fmt.Errorf("debug: attach: %w", err)
				}
			case c.IsSet("spawn"):
				if err := controller.Spawn(append([]string{c.String("spawn")}, c.Args().Slice()...)); err != nil {
					return fmt.Errorf("debug: spawn: %w", err)
				}
			case c.IsSet("load-trace"):
				// Replay-only session: no live process, just a cursor.
			default:
				return fmt.Errorf("debug: one of --attach, --spawn or --load-trace is required")
			}

			engine := debugengine.New()
			if path := c.String("load-trace"); path != "" {
				if err := engine.LoadForReplay(path); err != nil {
					return fmt.Errorf("debug: loading trace: %w", err)
				}
			}

			network := cfg.RSPNetwork
			address := cfg.RSPAddress
			if c.IsSet("listen") {
				address = c.String("listen")
			}

			listener, err := net.Listen(network, address)
			if err != nil {
				return fmt.Errorf("debug: listening on %s %s: %w", network, address, err)
			}
			log.Info().Str("network", network).Str("address", address).Msg("rsp: listening")

			server := rsp.NewServer(listener, controller, engine)
			return server.Serve(context.Background())
		},
	}
}
