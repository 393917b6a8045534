// Package config loads the YAML file that names the external telemetry tools.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the config file is looked up when --config is not given.
const DefaultPath = "./config.yml"

// ErrMissingTool is returned when one of the gopro tool paths is empty.
var ErrMissingTool = errors.New("missing tool path")

// Config represents the application configuration.
type Config struct {
	GoPro Tools `yaml:"gopro"`
	// FFmpeg and FFprobe default to the binaries on PATH.
	FFmpeg   string `yaml:"ffmpeg"`
	FFprobe  string `yaml:"ffprobe"`
	LogLevel string `yaml:"log_level"`
	// Journal enables the SQLite run journal. Defaults to true.
	Journal        *bool          `yaml:"journal"`
	SerialPrefixes []SerialPrefix `yaml:"serial_prefixes"`
}

// Tools are the three telemetry converters.
type Tools struct {
	ToGPX    string `yaml:"to_gpx"`
	ToJSON   string `yaml:"to_json"`
	GPMDInfo string `yaml:"gpmd_info"`
}

// SerialPrefix adds a camera serial prefix to the built-in table.
type SerialPrefix struct {
	Prefix string `yaml:"prefix"`
	Model  string `yaml:"model"`
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML config data, applies defaults, expands "~" in tool
// paths and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if cfg.FFmpeg == "" {
		cfg.FFmpeg = "ffmpeg"
	}
	if cfg.FFprobe == "" {
		cfg.FFprobe = "ffprobe"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.FFmpeg = ExpandHome(cfg.FFmpeg)
	cfg.FFprobe = ExpandHome(cfg.FFprobe)
	cfg.GoPro.ToGPX = ExpandHome(cfg.GoPro.ToGPX)
	cfg.GoPro.ToJSON = ExpandHome(cfg.GoPro.ToJSON)
	cfg.GoPro.GPMDInfo = ExpandHome(cfg.GoPro.GPMDInfo)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every tool is named and the log level is known.
func (c *Config) Validate() error {
	for key, v := range map[string]string{
		"gopro.to_gpx":    c.GoPro.ToGPX,
		"gopro.to_json":   c.GoPro.ToJSON,
		"gopro.gpmd_info": c.GoPro.GPMDInfo,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s", ErrMissingTool, key)
		}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	for _, sp := range c.SerialPrefixes {
		if strings.TrimSpace(sp.Prefix) == "" {
			return fmt.Errorf("serial_prefixes: empty prefix for model %q", sp.Model)
		}
	}
	return nil
}

// Level parses LogLevel into a slog level.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}

// JournalEnabled reports whether the run journal should be written.
func (c *Config) JournalEnabled() bool {
	return c.Journal == nil || *c.Journal
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	p = strings.TrimSpace(p)
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
