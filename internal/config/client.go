// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"bcm/internal/dragdrop"
)

// ClientConfig is the configuration of the bcmctl client, read from
// ~/.config/bcm/config.yaml (or --config):
//
//	url: http://localhost:8080
//	taxonomy: category
//	timeout: 10s
//	state_file: ~/.local/state/bcm/tree.json
//	geometry:
//	  proximity_band: 50
//	  nest_threshold: 100
//	  start_delay: 150ms
//	cell:
//	  width: 10
//	  height: 20
type ClientConfig struct {
	URL       string          `yaml:"url"`
	Taxonomy  string          `yaml:"taxonomy"`
	Timeout   time.Duration   `yaml:"timeout"`
	StateFile string          `yaml:"state_file"`
	Geometry  dragdrop.Config `yaml:"geometry"`
	Cell      CellSize        `yaml:"cell"`
}

// CellSize converts terminal cells into drag geometry units.
type CellSize struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// DefaultClientConfig returns the client defaults. BCM_URL overrides the URL.
func DefaultClientConfig() ClientConfig {
	cfg := ClientConfig{
		URL:      envOrDefault("BCM_URL", "http://localhost:8080"),
		Taxonomy: "category",
		Timeout:  10 * time.Second,
		Geometry: dragdrop.DefaultConfig(),
		Cell:     CellSize{Width: 10, Height: 20},
	}
	if dir, err := os.UserCacheDir(); err == nil {
		cfg.StateFile = filepath.Join(dir, "bcm", "tree.json")
	}
	return cfg
}

// DefaultClientConfigPath returns ~/.config/bcm/config.yaml, or "" when the
// user config dir is unknown.
func DefaultClientConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "bcm", "config.yaml")
}

// LoadClientConfig reads path over the defaults. A missing file yields the
// defaults.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read client config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse client config %s: %w", path, err)
	}
	if os.Getenv("BCM_URL") != "" {
		cfg.URL = os.Getenv("BCM_URL")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("client config %s: %w", path, err)
	}
	cfg.Geometry = cfg.Geometry.WithDefaults()
	return cfg, nil
}

// Validate checks the values that have no usable fallback.
func (c ClientConfig) Validate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	if c.Taxonomy == "" {
		return errors.New("taxonomy is required")
	}
	if c.Cell.Width <= 0 || c.Cell.Height <= 0 {
		return errors.New("cell width and height must be positive")
	}
	return nil
}
