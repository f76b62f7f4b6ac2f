package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/nexussynth/nexusvoice/internal/logger"
)

// Config represents the nvm configuration file (~/.config/nvm/config.yaml).
type Config struct {
	// Pack defaults
	Checksum    string `yaml:"checksum"`
	Compression string `yaml:"compression"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "nvm", "config.yaml")
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

// applyPackConfig applies config file defaults to pack command variables
// when the corresponding CLI flag was not explicitly set.
func applyPackConfig(c *cli.Command, cfg Config, checksumName, compressionName *string) {
	if cfg.Checksum != "" && !c.IsSet("checksum") {
		*checksumName = cfg.Checksum
	}
	if cfg.Compression != "" && !c.IsSet("compression") {
		*compressionName = cfg.Compression
	}
}

// newLogger builds the CLI logger from config, honoring log_format
// ("json" or pretty text) and log_level.
func newLogger(cfg Config) logger.Logger {
	level := logger.ParseLevel(cfg.LogLevel)
	if cfg.LogFormat == "json" {
		return logger.JSON(os.Stderr, level)
	}
	return logger.Pretty(os.Stderr, level)
}
