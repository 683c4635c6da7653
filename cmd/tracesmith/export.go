package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/tracesmith/tracesmith/internal/depgraph"
	"github.com/tracesmith/tracesmith/internal/event"
)

// exportCommand is a thin consumer of the in-memory event list: the
// core never formats output for a visualizer, it only hands one back a
// slice of events or a dependency graph.
func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "export a trace's events as CSV or its dependency graph as DOT",
		ArgsUsage: "<trace.sbt> <output-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Value: "csv", Usage: "csv or dot"},
		},
		Action: func(c *cli.Context) error {
			in := c.Args().Get(0)
			out := c.Args().Get(1)
			if in == "" || out == "" {
				return fmt.Errorf("export: usage: export <trace.sbt> <output-file>")
			}

			r, cleanup, err := openTraceFile(in)
			if err != nil {
				return err
			}
			defer cleanup()
			rec, err := r.ReadAll()
			if err != nil {
				return err
			}

			switch c.String("format") {
			case "csv":
				return exportCSV(rec.Events, out)
			case "dot":
				graph := depgraph.Analyze(rec.Events)
				return os.WriteFile(out, []byte(graph.DOT()), 0o644)
			default:
				return fmt.Errorf("export: unknown format %q, want csv or dot", c.String("format"))
			}
		},
	}
}

func exportCSV(events []event.Event, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"timestamp", "duration", "kind", "device_id", "stream_id", "correlation_id", "name"}); err != nil {
		return err
	}
	for _, e := range events {
		row := []string{
			strconv.FormatUint(uint64(e.Timestamp), 10),
			strconv.FormatUint(uint64(e.Duration), 10),
			e.Kind.String(),
			strconv.FormatUint(uint64(e.DeviceID), 10),
			strconv.FormatUint(uint64(e.StreamID), 10),
			strconv.FormatUint(uint64(e.CorrelationID), 10),
			e.Name,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}
