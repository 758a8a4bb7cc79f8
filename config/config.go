// Package config loads simulator settings from YAML files.
package config

import (
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/mipsim/emu"
)

// Region is one entry of the memory map.
type Region struct {
	Name  string `yaml:"name"`
	Base  uint32 `yaml:"base"`
	Limit uint32 `yaml:"limit"`
}

// Config represents the simulator configuration.
type Config struct {
	// Forwarding enables operand forwarding at startup.
	Forwarding bool `yaml:"forwarding"`
	// ClockFrequencyMHz converts cycles into simulated time.
	ClockFrequencyMHz float64 `yaml:"clock_frequency_mhz"`
	// MaxCycles bounds a run to completion. 0 means unlimited.
	MaxCycles uint64 `yaml:"max_cycles"`
	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level"`
	// TextRegion names the region hex programs are loaded into.
	TextRegion string `yaml:"text_region"`
	// Regions is the memory map.
	Regions []Region `yaml:"regions"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{
		ClockFrequencyMHz: 1000,
		LogLevel:          "info",
		TextRegion:        "text",
	}
	for _, r := range emu.DefaultRegions() {
		cfg.Regions = append(cfg.Regions, Region{Name: r.Name, Base: r.Base, Limit: r.Limit})
	}
	return cfg
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.ClockFrequencyMHz <= 0 {
		return fmt.Errorf("clock frequency must be positive")
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("unsupported log level: %s", c.LogLevel)
	}

	if len(c.Regions) == 0 {
		return fmt.Errorf("at least one memory region is required")
	}

	if _, err := emu.NewMemory(c.RegionConfigs()); err != nil {
		return err
	}

	if c.textRegion() == nil {
		return fmt.Errorf("text region %q is not defined", c.TextRegion)
	}

	return nil
}

// RegionConfigs converts the memory map for emu.NewMemory.
func (c *Config) RegionConfigs() []emu.RegionConfig {
	out := make([]emu.RegionConfig, 0, len(c.Regions))
	for _, r := range c.Regions {
		out = append(out, emu.RegionConfig{Name: r.Name, Base: r.Base, Limit: r.Limit})
	}
	return out
}

// NewMemory builds the memory described by the configuration.
func (c *Config) NewMemory() (*emu.Memory, error) {
	return emu.NewMemory(c.RegionConfigs())
}

// TextBase returns the load address for hex programs.
func (c *Config) TextBase() uint32 {
	if r := c.textRegion(); r != nil {
		return r.Base
	}
	return emu.TextBase
}

func (c *Config) textRegion() *Region {
	for i := range c.Regions {
		if c.Regions[i].Name == c.TextRegion {
			return &c.Regions[i]
		}
	}
	return nil
}

// ClockFreq returns the clock frequency.
func (c *Config) ClockFreq() sim.Freq {
	return sim.Freq(c.ClockFrequencyMHz) * sim.MHz
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
