package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tracesmith/tracesmith/internal/capture"
	"github.com/tracesmith/tracesmith/internal/config"
	"github.com/tracesmith/tracesmith/internal/event"
	"github.com/tracesmith/tracesmith/internal/sink"
)

func devicesCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "probe every configured platform and list the devices it finds",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "platform", Usage: "platforms to probe (default: config EnabledPlatforms)"},
		},
		Action: func(c *cli.Context) error {
			platforms := c.StringSlice("platform")
			if len(platforms) == 0 {
				platforms = cfg.EnabledPlatforms
			}

			found := 0
			for _, p := range platforms {
				kind := event.ParsePlatformKind(p)
				adapter, err := capture.New(kind)
				if err != nil {
					fmt.Printf("%s: %v\n", p, err)
					continue
				}
				s := sink.New(1)
				err = adapter.Initialize(capture.Config{Sink: s})
				if err != nil {
					fmt.Printf("%s: unavailable (%v)\n", kind, err)
					continue
				}
				for _, d := range adapter.Devices() {
					fmt.Printf("[%s] device %d: %s, %d MB, %d SMs, compute %s\n",
						kind, d.ID, d.Name, d.TotalMemory/(1<<20), d.MultiprocessorCount, d.ComputeCapability)
					found++
				}
			}
			if found == 0 {
				fmt.Println("no devices found on any configured platform")
			}
			return nil
		},
	}
}
