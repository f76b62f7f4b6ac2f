package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/nexussynth/nexusvoice/pkg/nvm"
	"github.com/nexussynth/nexusvoice/pkg/nvm/checksum"
	"github.com/nexussynth/nexusvoice/pkg/nvm/compress"
)

func inspectCmd() *cli.Command {
	var (
		filePath    string
		showAll     bool
		showHeader  bool
		showMeta    bool
		showRawMeta bool
		showIndex   bool
		showStats   bool
		indexLimit  int
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect the contents of an .nvm voice container",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path to .nvm file",
				Destination: &filePath,
				Required:    true,
			},
			&cli.BoolFlag{Name: "all", Usage: "show everything", Destination: &showAll},
			&cli.BoolFlag{Name: "header", Usage: "show the file header", Destination: &showHeader},
			&cli.BoolFlag{Name: "metadata", Usage: "show voice metadata summary", Destination: &showMeta},
			&cli.BoolFlag{Name: "metadata-json", Usage: "print raw metadata JSON", Destination: &showRawMeta},
			&cli.BoolFlag{Name: "index", Usage: "list the model index", Destination: &showIndex},
			&cli.BoolFlag{Name: "stats", Usage: "show model statistics", Destination: &showStats},
			&cli.IntFlag{Name: "index-limit", Usage: "limit index listing (0 = no limit)", Value: 50, Destination: &indexLimit},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx

			if showAll {
				showHeader = true
				showMeta = true
				showRawMeta = true
				showIndex = true
				showStats = true
				if indexLimit == 50 {
					indexLimit = 0
				}
			}
			if !showHeader && !showMeta && !showRawMeta && !showIndex && !showStats {
				showHeader = true
				showMeta = true
				showStats = true
			}

			f, err := nvm.Open(filePath)
			if err != nil {
				return err
			}
			defer f.Close()

			if showHeader {
				printHeader(f.Header())
			}
			if showMeta {
				printMetadataSummary(f)
			}
			if showRawMeta {
				raw, err := f.Metadata().ToJSON()
				if err != nil {
					return err
				}
				fmt.Println("== metadata json ==")
				fmt.Println(string(raw))
			}
			if showIndex {
				printIndex(f, indexLimit)
			}
			if showStats {
				printStats(f.Stats())
			}
			return nil
		},
	}
}

func printHeader(h nvm.FileHeader) {
	fmt.Println("== header ==")
	fmt.Printf("magic:        0x%08X\n", h.Magic)
	fmt.Printf("version:      %s\n", h.SemVer())
	fmt.Printf("chunks:       %d\n", h.NumChunks)
	fmt.Printf("file size:    %d bytes\n", h.FileSize)
	fmt.Printf("checksum:     %s\n", checksum.Algorithm(h.ChecksumType))
	fmt.Printf("compression:  %s\n", compress.Algorithm(h.CompressionType))
	fmt.Printf("created:      %s\n", time.Unix(int64(h.CreationTime), 0).UTC().Format(time.RFC3339))
	fmt.Printf("metadata at:  %d\n", h.MetadataOffset)
	fmt.Printf("index at:     %d\n", h.IndexOffset)
	fmt.Printf("models at:    %d\n", h.ModelsOffset)
}

func printMetadataSummary(f *nvm.File) {
	m := f.Metadata()
	fmt.Println("== voice ==")
	fmt.Printf("name:         %s\n", m.FullName())
	fmt.Printf("id:           %s\n", m.ID)
	if m.Author != "" {
		fmt.Printf("author:       %s\n", m.Author)
	}
	fmt.Printf("version:      %s\n", m.Version)
	fmt.Printf("language:     %s\n", m.Language)
	fmt.Printf("model type:   %s\n", m.ModelType)
	fmt.Printf("phoneme set:  %s\n", m.PhonemeSet)
	fmt.Printf("engine:       %s\n", m.NexusSynthVersion)
	fmt.Printf("audio:        %d Hz / %.1f ms / %d-bit / %d ch\n",
		m.AudioFormat.SampleRate, m.AudioFormat.FramePeriod,
		m.AudioFormat.BitDepth, m.AudioFormat.Channels)
	if problems := m.Validate(); len(problems) > 0 {
		for _, p := range problems {
			fmt.Printf("warning:      %s\n", p)
		}
	}
}

func printIndex(f *nvm.File, limit int) {
	index := f.Index()
	fmt.Printf("== index (%d models) ==\n", len(index))
	for i, e := range index {
		if limit > 0 && i >= limit {
			fmt.Printf("... %d more\n", len(index)-limit)
			break
		}
		fmt.Printf("%6d  %-24s  off=%-8d size=%-8d ctx=0x%08X\n",
			i, e.ModelName, e.Offset, e.Size, e.ContextHash)
	}
}

func printStats(s nvm.Stats) {
	fmt.Println("== stats ==")
	fmt.Printf("models:       %d\n", s.TotalModels)
	fmt.Printf("states:       %d\n", s.TotalStates)
	fmt.Printf("gaussians:    %d\n", s.TotalGaussians)
	fmt.Printf("file size:    %d bytes\n", s.CompressedSize)
}
