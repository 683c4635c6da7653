package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tracesmith/tracesmith/internal/capture"
	"github.com/tracesmith/tracesmith/internal/config"
	"github.com/tracesmith/tracesmith/internal/event"
	"github.com/tracesmith/tracesmith/internal/sbt"
	"github.com/tracesmith/tracesmith/internal/sink"
	"github.com/tracesmith/tracesmith/internal/stackcapture"
	"github.com/tracesmith/tracesmith/internal/storageutil"
)

func recordCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "record",
		Usage:     "capture a live trace and write it to an SBT file",
		ArgsUsage: "<output.sbt>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "platform", Usage: "platform preference order (default: config EnabledPlatforms)"},
			&cli.DurationFlag{Name: "duration", Value: 5 * time.Second, Usage: "how long to capture"},
			&cli.StringFlag{Name: "app-name", Usage: "application name recorded in trace metadata"},
			&cli.BoolFlag{Name: "stacks", Usage: "capture host call stacks for each kernel launch event"},
		},
		Action: func(c *cli.Context) error {
			out := c.Args().First()
			if out == "" {
				return fmt.Errorf("record: missing output path")
			}

			preference := parsePlatformPreference(c.StringSlice("platform"), cfg.EnabledPlatforms)

			s := sink.New(cfg.CaptureBufferSize)
			adapter, err := capture.Resolve(preference, capture.Config{
				Sink:          s,
				CaptureStacks: c.Bool("stacks"),
				StackCapture: stackcapture.Config{
					MaxDepth:       cfg.CaptureMaxStack,
					ResolveSymbols: cfg.ResolveSymbols,
				},
			})
			if err != nil {
				return fmt.Errorf("record: resolving a capture platform: %w", err)
			}

			start := event.Timestamp(0)
			if err := adapter.Start(); err != nil {
				return fmt.Errorf("record: starting capture: %w", err)
			}

			deadline := time.After(c.Duration("duration"))
			var captured []event.Event
			ticker := time.NewTicker(50 * time.Millisecond)
			defer ticker.Stop()
		loop:
			for {
				select {
				case <-deadline:
					break loop
				case <-ticker.C:
					captured = append(captured, s.Drain(4096)...)
				}
			}
			captured = append(captured, s.Drain(4096)...)
			if err := adapter.Stop(); err != nil {
				return fmt.Errorf("record: stopping capture: %w", err)
			}

			if len(captured) > 0 {
				start = captured[0].Timestamp
			}
			end := start
			for _, e := range captured {
				if e.Timestamp > end {
					end = e.Timestamp
				}
			}

			ref, remote, err := resolveObjectRef(context.Background(), out)
			if err != nil {
				return fmt.Errorf("record: resolving output %q: %w", out, err)
			}

			localPath := out
			if remote {
				tmp, err := os.CreateTemp("", "tracesmith-*.sbt")
				if err != nil {
					return err
				}
				localPath = tmp.Name()
				tmp.Close()
				defer os.Remove(localPath)
				defer ref.close()
			}

			w, err := sbt.Create(localPath)
			if err != nil {
				return fmt.Errorf("record: creating %q: %w", localPath, err)
			}
			if err := w.WriteMetadata(event.TraceMetadata{
				ApplicationName: c.String("app-name"),
				StartTimestamp:  start,
				EndTimestamp:    end,
			}); err != nil {
				return err
			}
			if err := w.WriteDeviceInfo(adapter.Devices()); err != nil {
				return err
			}
			if err := w.WriteEvents(captured); err != nil {
				return err
			}
			if err := w.Finalize(); err != nil {
				return err
			}

			if remote {
				f, err := os.Open(localPath)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := storageutil.WriteObject(context.Background(), ref.handler, ref.name, f); err != nil {
					return fmt.Errorf("record: uploading to %q: %w", out, err)
				}
			}

			capturedCount, dropped := s.Counts()
			fmt.Printf("recorded %d events (%d dropped) from %s to %s\n", capturedCount, dropped, adapter.Platform(), out)
			return nil
		},
	}
}

func parsePlatformPreference(flagValues, configValues []string) []event.PlatformKind {
	values := flagValues
	if len(values) == 0 {
		values = configValues
	}
	out := make([]event.PlatformKind, 0, len(values))
	for _, v := range values {
		out = append(out, event.ParsePlatformKind(v))
	}
	return out
}
