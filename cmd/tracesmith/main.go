// Command tracesmith is the front end for capturing, persisting,
// analysing and replaying GPU/NPU runtime traces. It is a thin
// shell over internal/capture, internal/sbt, internal/timeline,
// internal/depgraph, internal/replay and internal/debugengine; none of
// the core logic lives here.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/tracesmith/tracesmith/internal/config"
	"github.com/tracesmith/tracesmith/internal/envutil"
	"github.com/tracesmith/tracesmith/internal/logutil"
)

var release = "dev"

func main() {
	var cfg config.Config
	var configPath string

	app := &cli.App{
		Name:  "tracesmith",
		Usage: "capture, persist, analyze and replay GPU/NPU runtime traces",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to a YAML config file",
				Destination: &configPath,
			},
		},
		Before: func(c *cli.Context) error {
			if configPath == "" {
				configPath = envutil.GetEnvOrFallback("TRACESMITH_CONFIG", "")
			}
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			logutil.ConfigureLogger(cfg.Environment, logutil.ParseLevel(cfg.LogLevel))
			if cfg.SentryDSN != "" {
				if err := sentry.Init(sentry.ClientOptions{
					Dsn:         cfg.SentryDSN,
					Environment: cfg.Environment,
					Release:     release,
				}); err != nil {
					log.Error().Err(err).Msg("can't initialize sentry")
				}
			}
			return nil
		},
		Commands: []*cli.Command{
			recordCommand(&cfg),
			viewCommand(),
			infoCommand(),
			exportCommand(),
			analyzeCommand(),
			replayCommand(),
			devicesCommand(&cfg),
			debugCommand(&cfg),
			versionCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "tracesmith: %v\n", err)
		log.Error().Err(err).Msg("command failed")
		sentry.CaptureException(err)
		sentry.Flush(5 * time.Second)
		os.Exit(1)
	}
}
