package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "print an SBT trace's header, metadata and device list",
		ArgsUsage: "<trace.sbt>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("info: missing trace path")
			}
			r, cleanup, err := openTraceFile(path)
			if err != nil {
				return err
			}
			defer cleanup()
			if !r.IsValid() {
				return fmt.Errorf("info: %q has an invalid SBT header", path)
			}
			h := r.Header()
			fmt.Printf("file: %s\n", path)
			fmt.Printf("version: %d.%d\n", h.VersionMajor, h.VersionMinor)
			fmt.Printf("event count: %d\n", h.EventCount)

			rec, err := r.ReadAll()
			if err != nil {
				return err
			}
			fmt.Printf("application: %s\n", rec.Metadata.ApplicationName)
			fmt.Printf("timestamps: %d..%d\n", rec.Metadata.StartTimestamp, rec.Metadata.EndTimestamp)
			fmt.Printf("devices: %d\n", len(rec.Devices))
			for _, d := range rec.Devices {
				fmt.Printf("  [%d] %s (%s) %d MB, %d SMs\n", d.ID, d.Name, d.Vendor, d.TotalMemory/(1<<20), d.MultiprocessorCount)
			}
			return nil
		},
	}
}
