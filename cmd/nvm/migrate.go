package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/nexussynth/nexusvoice/pkg/nvm"
	"github.com/nexussynth/nexusvoice/pkg/nvm/migrate"
)

func migrateCmd() *cli.Command {
	var (
		filePath string
		target   string
		backup   bool
		dryRun   bool
	)

	return &cli.Command{
		Name:  "migrate",
		Usage: "Migrate an .nvm file to another format version",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path to .nvm file",
				Destination: &filePath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "target",
				Aliases:     []string{"t"},
				Usage:       "target format version (defaults to the current version)",
				Destination: &target,
			},
			&cli.BoolFlag{Name: "backup", Usage: "keep a .bak copy of the original", Destination: &backup},
			&cli.BoolFlag{Name: "dry-run", Usage: "report what would happen without writing", Destination: &dryRun},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx

			to := nvm.CurrentVersion
			if target != "" {
				v, err := nvm.ParseVersion(target)
				if err != nil {
					return err
				}
				to = v
			}

			mgr := migrate.NewManager()
			from, err := mgr.DetectFileVersion(filePath)
			if err != nil {
				return err
			}

			if dryRun {
				fmt.Printf("%s: %s -> %s\n", filePath, from, to)
				if from == to {
					fmt.Println("already at target version, nothing to do")
				} else if !mgr.CanRead(from) {
					fmt.Println("file is not readable by this version")
				}
				return nil
			}

			if err := mgr.Convert(filePath, to, migrate.ConvertOptions{Backup: backup}); err != nil {
				return err
			}
			fmt.Printf("%s: migrated %s -> %s\n", filePath, from, to)
			return nil
		},
	}
}
