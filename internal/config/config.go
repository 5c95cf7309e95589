// Package config loads the ito project configuration consumed by the ralph
// controller: the worktree policy and optional validation commands.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Strategy names a worktree layout strategy. It shapes expected paths in
// error messages only; discovery always follows real git state.
type Strategy string

// Worktree strategies.
const (
	CheckoutSubdir      Strategy = "checkout-subdir"
	CheckoutSiblings    Strategy = "checkout-siblings"
	BareControlSiblings Strategy = "bare-control-siblings"
)

// Worktree is the worktree policy subset the controller consumes.
type Worktree struct {
	Enabled  bool     `json:"enabled" yaml:"enabled"`
	Strategy Strategy `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Dir      string   `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// Config holds the loaded project configuration.
type Config struct {
	Worktree Worktree `json:"worktree" yaml:"worktree"`
	// Validation lists project validation commands when configured directly.
	// Discovery across config and docs files lives in the validate package;
	// this field only mirrors what this file declares.
	Validation struct {
		Commands []string `json:"commands,omitempty" yaml:"commands,omitempty"`
	} `json:"validation" yaml:"validation"`
}

// maxConfigSize is the maximum config file size we'll read (64 KiB).
const maxConfigSize = 64 * 1024

// Load reads the project configuration from cwd, probing ito.json,
// .ito/config.json and .ito/config.yaml in that order. A missing file yields
// defaults.
func Load(cwd string) (*Config, error) {
	candidates := []struct {
		path string
		yaml bool
	}{
		{filepath.Join(cwd, "ito.json"), false},
		{filepath.Join(cwd, ".ito", "config.json"), false},
		{filepath.Join(cwd, ".ito", "config.yaml"), true},
	}

	for _, c := range candidates {
		cfg, err := loadFile(c.path, c.yaml)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		cfg.applyDefaults()
		return cfg, nil
	}

	cfg := &Config{}
	cfg.applyDefaults()
	return cfg, nil
}

func loadFile(path string, asYAML bool) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers branch on os.ErrNotExist
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %s is %d bytes (max %d)", path, info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if asYAML {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Worktree.Strategy {
	case "", CheckoutSubdir, CheckoutSiblings, BareControlSiblings:
		return nil
	default:
		return fmt.Errorf("unknown worktree strategy %q", c.Worktree.Strategy)
	}
}

func (c *Config) applyDefaults() {
	if c.Worktree.Strategy == "" {
		c.Worktree.Strategy = CheckoutSubdir
	}
	if c.Worktree.Dir == "" {
		c.Worktree.Dir = ".worktrees"
	}
}
