package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/nexussynth/nexusvoice/pkg/nvm"
)

func verifyCmd() *cli.Command {
	var (
		filePath  string
		quick     bool
		checksums bool
	)

	return &cli.Command{
		Name:  "verify",
		Usage: "Verify the structure and checksums of an .nvm file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path to .nvm file",
				Destination: &filePath,
				Required:    true,
			},
			&cli.BoolFlag{Name: "quick", Usage: "header check only", Destination: &quick},
			&cli.BoolFlag{Name: "checksums", Usage: "verify chunk checksums only", Destination: &checksums},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx

			if quick {
				if !nvm.IsValidFile(filePath) {
					return fmt.Errorf("%s: not a valid voice container", filePath)
				}
				fmt.Printf("%s: header ok\n", filePath)
				return nil
			}
			if checksums {
				if err := nvm.VerifyFileChecksums(filePath); err != nil {
					return err
				}
				fmt.Printf("%s: checksums ok\n", filePath)
				return nil
			}

			if err := nvm.CheckFileIntegrity(filePath); err != nil {
				return err
			}
			if err := nvm.VerifyFileChecksums(filePath); err != nil {
				return err
			}
			fmt.Printf("%s: ok\n", filePath)
			return nil
		},
	}
}
