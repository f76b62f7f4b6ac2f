package main

import (
	"context"
	"fmt"

	"github.com/nexussynth/nexusvoice/internal/version"
	"github.com/nexussynth/nexusvoice/pkg/nvm"

	"github.com/urfave/cli/v3"
)

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			info := version.Resolve()
			fmt.Printf("version:    %s\n", info.Version)
			if info.Commit != "" {
				fmt.Printf("commit:     %s\n", info.Commit)
			}
			if info.BuildTime != "" {
				fmt.Printf("build time: %s\n", info.BuildTime)
			}
			fmt.Printf("format:     %s (reads >= %s)\n", nvm.CurrentVersion, nvm.MinSupportedVersion)
			return nil
		},
	}
}
