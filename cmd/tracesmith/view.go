package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func viewCommand() *cli.Command {
	return &cli.Command{
		Name:      "view",
		Usage:     "print an SBT trace's events in the order stored in the file",
		ArgsUsage: "<trace.sbt>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 100, Usage: "maximum number of events to print, 0 for unlimited"},
			&cli.Uint64Flag{Name: "device", Usage: "restrict to one device id"},
			&cli.BoolFlag{Name: "all-devices", Usage: "show every device (overrides --device)"},
		},
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("view: missing trace path")
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

			filterDevice := !c.Bool("all-devices") && c.IsSet("device")
			device := c.Uint64("device")
			limit := c.Int("limit")

			printed := 0
			for _, e := range rec.Events {
				if filterDevice && uint64(e.DeviceID) != device {
					continue
				}
				fmt.Printf("[%12d] dev=%d stream=%d corr=%d %-16s %s\n",
					e.Timestamp, e.DeviceID, e.StreamID, e.CorrelationID, e.Kind, e.Name)
				printed++
				if limit > 0 && printed >= limit {
					fmt.Printf("... (%d more events not shown, raise --limit)\n", len(rec.Events)-printed)
					break
				}
			}
			return nil
		},
	}
}
