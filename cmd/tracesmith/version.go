package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print the tracesmith version",
		Action: func(c *cli.Context) error {
			fmt.Println("tracesmith", release)
			return nil
		},
	}
}
