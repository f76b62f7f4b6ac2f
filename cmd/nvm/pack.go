package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/nexussynth/nexusvoice/pkg/nvm"
	"github.com/nexussynth/nexusvoice/pkg/nvm/checksum"
	"github.com/nexussynth/nexusvoice/pkg/nvm/compress"
	"github.com/nexussynth/nexusvoice/pkg/voicebank/hmm"
)

// packManifest is the YAML description of a voice bank to assemble.
// Model entries are JSON model files or directories of them, relative to
// the manifest unless absolute.
type packManifest struct {
	Output      string   `yaml:"output"`
	Checksum    string   `yaml:"checksum"`
	Compression string   `yaml:"compression"`
	Models      []string `yaml:"models"`

	Metadata struct {
		Name        string `yaml:"name"`
		DisplayName string `yaml:"display_name"`
		Author      string `yaml:"author"`
		Language    string `yaml:"language"`
		Description string `yaml:"description"`
		PhonemeSet  string `yaml:"phoneme_set"`
	} `yaml:"metadata"`
}

func packCmd() *cli.Command {
	var (
		manifestPath    string
		outputPath      string
		checksumName    string
		compressionName string
	)

	return &cli.Command{
		Name:  "pack",
		Usage: "Assemble an .nvm container from a YAML manifest and model JSON files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "manifest",
				Aliases:     []string{"m"},
				Usage:       "path to the pack manifest",
				Destination: &manifestPath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"out"},
				Usage:       "output .nvm path (overrides the manifest)",
				Destination: &outputPath,
			},
			&cli.StringFlag{
				Name:        "checksum",
				Usage:       "checksum algorithm: none|crc32|sha256",
				Destination: &checksumName,
			},
			&cli.StringFlag{
				Name:        "compression",
				Usage:       "compression algorithm: none|zlib",
				Destination: &compressionName,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx
			cfg := LoadConfig()
			log := newLogger(cfg)
			applyPackConfig(c, cfg, &checksumName, &compressionName)

			manifest, err := loadManifest(manifestPath)
			if err != nil {
				return err
			}
			if outputPath == "" {
				outputPath = manifest.Output
			}
			if outputPath == "" {
				return fmt.Errorf("pack: no output path in manifest or flags")
			}
			if checksumName == "" {
				checksumName = manifest.Checksum
			}
			if compressionName == "" {
				compressionName = manifest.Compression
			}

			f := nvm.Create(outputPath)
			defer f.Close()

			if checksumName != "" {
				alg, err := parseChecksum(checksumName)
				if err != nil {
					return err
				}
				if err := f.SetChecksum(alg); err != nil {
					return err
				}
			}
			if compressionName != "" {
				alg, err := parseCompression(compressionName)
				if err != nil {
					return err
				}
				if err := f.SetCompression(alg); err != nil {
					return err
				}
			}

			applyManifestMetadata(f, manifest)

			baseDir := filepath.Dir(manifestPath)
			var added int
			for _, entry := range manifest.Models {
				path := entry
				if !filepath.IsAbs(path) {
					path = filepath.Join(baseDir, path)
				}
				n, err := addModelPath(f, path)
				if err != nil {
					return err
				}
				added += n
			}
			if added == 0 {
				return fmt.Errorf("pack: manifest lists no models")
			}

			if err := f.Save(); err != nil {
				return err
			}
			log.Info("packed voice bank",
				"output", outputPath,
				"models", added,
				"checksum", checksumName,
				"compression", compressionName)
			return nil
		},
	}
}

func loadManifest(path string) (*packManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m packManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("pack: parse manifest %s: %w", path, err)
	}
	return &m, nil
}

func applyManifestMetadata(f *nvm.File, manifest *packManifest) {
	meta := f.Metadata()
	mm := manifest.Metadata
	if mm.Name != "" {
		meta.Name = mm.Name
	}
	if mm.DisplayName != "" {
		meta.DisplayName = mm.DisplayName
	}
	if mm.Author != "" {
		meta.Author = mm.Author
	}
	if mm.Language != "" {
		meta.Language = mm.Language
	}
	if mm.Description != "" {
		meta.Description = mm.Description
	}
	if mm.PhonemeSet != "" {
		meta.PhonemeSet = mm.PhonemeSet
	}
}

// addModelPath loads one model JSON file, or every *.json file in a
// directory, and adds the models to the container.
func addModelPath(f *nvm.File, path string) (int, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !fi.IsDir() {
		return 1, addModelFile(f, path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, err
	}
	var added int
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := addModelFile(f, filepath.Join(path, e.Name())); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

func addModelFile(f *nvm.File, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var m hmm.PhonemeHmm
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("pack: parse model %s: %w", path, err)
	}
	if m.ModelName == "" {
		m.ModelName = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	if err := f.AddModel(&m); err != nil {
		return fmt.Errorf("pack: add model from %s: %w", path, err)
	}
	return nil
}

func parseChecksum(name string) (checksum.Algorithm, error) {
	switch strings.ToLower(name) {
	case "none":
		return checksum.None, nil
	case "crc32":
		return checksum.CRC32, nil
	case "sha256", "sha-256":
		return checksum.SHA256, nil
	default:
		return 0, fmt.Errorf("pack: unknown checksum algorithm %q", name)
	}
}

func parseCompression(name string) (compress.Algorithm, error) {
	switch strings.ToLower(name) {
	case "none":
		return compress.None, nil
	case "zlib":
		return compress.Zlib, nil
	default:
		return 0, fmt.Errorf("pack: unknown compression algorithm %q", name)
	}
}
