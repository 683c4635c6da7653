package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tracesmith/tracesmith/internal/event"
	"github.com/tracesmith/tracesmith/internal/replay"
)

func replayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "run the deterministic trace-replay engine over a loaded trace",
		ArgsUsage: "<trace.sbt>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Value: "dry-run", Usage: "full, partial, dry-run or stream-specific"},
			&cli.Uint64Flag{Name: "stream", Usage: "stream id, required for stream-specific mode"},
			&cli.BoolFlag{Name: "check-determinism", Usage: "run the cursor twice and verify identical results"},
		},
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("replay: missing trace path")
			}
			r, cleanup, err := openTraceFile(path)
			if err != nil {
				return err
			}
			defer cleanup()
			rec, err := r.ReadAll()
			if err != nil {
				return err
			}

			mode, err := parseReplayMode(c.String("mode"))
			if err != nil {
				return err
			}

			eng := replay.NewEngine(rec.Events, mode, event.StreamID(c.Uint64("stream")))

			var result replay.Result
			if c.Bool("check-determinism") {
				result = eng.RunTwice()
			} else {
				_, result = eng.Run()
			}

			fmt.Printf("mode: %s\n", mode)
			fmt.Printf("success: %v\n", result.Success)
			fmt.Printf("deterministic: %v\n", result.Deterministic)
			fmt.Printf("operations: total=%d executed=%d failed=%d\n", result.OperationsTotal, result.OperationsExecuted, result.OperationsFailed)
			fmt.Printf("duration: %s\n", result.ReplayDuration)
			for _, e := range result.Errors {
				fmt.Printf("  error: %s\n", e)
			}
			if !result.Success {
				return fmt.Errorf("replay: completed with failures")
			}
			return nil
		},
	}
}

func parseReplayMode(s string) (replay.Mode, error) {
	switch s {
	case "full":
		return replay.ModeFull, nil
	case "partial":
		return replay.ModePartial, nil
	case "dry-run":
		return replay.ModeDryRun, nil
	case "stream-specific":
		return replay.ModeStreamSpecific, nil
	default:
		return 0, fmt.Errorf("replay: unknown mode %q", s)
	}
}
