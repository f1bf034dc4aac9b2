// Package config loads the weekly-summary configuration document.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"weeklysummary/internal"
)

const (
	DefaultOutputDir = "reports"
	DefaultModel     = "gpt-4.1-mini"
)

// Summary modes.
const (
	ModeAuto    = "auto"
	ModeLive    = "live"
	ModeOffline = "offline"
	ModeOff     = "off"
)

// ErrNotFound is returned when the config file does not exist.
var ErrNotFound = errors.New("configuration file not found")

// Load reads the config at path. Files ending in .yaml or .yml are decoded as
// YAML, everything else as TOML.
func Load(path string) (*internal.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FromYAML(data)
	default:
		return FromTOML(data)
	}
}

// FromTOML parses and validates a TOML document.
func FromTOML(data []byte) (*internal.Config, error) {
	var cfg internal.Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid config toml: %w", err)
	}
	seen := make(map[string]bool)
	for _, key := range md.Keys() {
		if len(key) < 2 || key[0] != "sources" || seen[key[1]] {
			continue
		}
		seen[key[1]] = true
		cfg.SourceOrder = append(cfg.SourceOrder, key[1])
	}
	return finish(&cfg)
}

// FromYAML parses and validates a YAML document.
func FromYAML(data []byte) (*internal.Config, error) {
	var cfg internal.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}

	var doc struct {
		Sources yaml.Node `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if doc.Sources.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(doc.Sources.Content); i += 2 {
			cfg.SourceOrder = append(cfg.SourceOrder, doc.Sources.Content[i].Value)
		}
	}
	return finish(&cfg)
}

func finish(cfg *internal.Config) (*internal.Config, error) {
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *internal.Config) {
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.Summary.Mode == "" {
		cfg.Summary.Mode = ModeAuto
	}
	if cfg.Summary.Model == "" {
		cfg.Summary.Model = DefaultModel
	}
}

// Validate ensures the config meets the required structure.
func Validate(cfg *internal.Config) error {
	if len(cfg.Sources) == 0 {
		return errors.New("config.sources is required")
	}
	for name := range cfg.Sources {
		if strings.TrimSpace(name) == "" {
			return errors.New("config.sources contains an empty source name")
		}
	}
	switch cfg.Summary.Mode {
	case ModeAuto, ModeLive, ModeOffline, ModeOff:
	default:
		return fmt.Errorf("config.summary.mode must be one of auto, live, offline, off; got %q", cfg.Summary.Mode)
	}
	return nil
}
