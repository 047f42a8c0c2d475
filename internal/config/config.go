// Package config loads simulation settings from an optional YAML file
// layered over built-in defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/twofactor/pogicity-demo/internal/sim"
)

type Config struct {
	Seed        uint64      `yaml:"seed"`
	Grid        Grid        `yaml:"grid"`
	Vehicles    Vehicles    `yaml:"vehicles"`
	Pedestrians Pedestrians `yaml:"pedestrians"`
	Signals     Signals     `yaml:"signals"`
	Server      Server      `yaml:"server"`
}

type Grid struct {
	Width       int `yaml:"width"`
	Height      int `yaml:"height"`
	BlockPeriod int `yaml:"block_period"`
}

type Vehicles struct {
	Count int `yaml:"count"`
	// YieldToPedestrians makes vehicles hold short of occupied crosswalks.
	YieldToPedestrians bool `yaml:"yield_to_pedestrians"`
}

type Pedestrians struct {
	Count int `yaml:"count"`
}

type Signals struct {
	GreenTicks  int `yaml:"green_ticks"`
	YellowTicks int `yaml:"yellow_ticks"`
	AllRedTicks int `yaml:"all_red_ticks"`
}

type Server struct {
	Addr   string `yaml:"addr"`
	TickMS int    `yaml:"tick_ms"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Seed: 1,
		Grid: Grid{
			Width:       sim.GridWidth,
			Height:      sim.GridHeight,
			BlockPeriod: 6,
		},
		Vehicles: Vehicles{
			Count:              24,
			YieldToPedestrians: true,
		},
		Pedestrians: Pedestrians{
			Count: 40,
		},
		Signals: Signals{
			GreenTicks:  120,
			YellowTicks: 20,
			AllRedTicks: 30,
		},
		Server: Server{
			Addr:   ":8080",
			TickMS: 33,
		},
	}
}

// Load reads path and overlays it on the defaults. An empty path returns the
// defaults untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the simulation cannot run with.
func (c Config) Validate() error {
	if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
		return fmt.Errorf("grid dimensions must be positive, got %dx%d", c.Grid.Width, c.Grid.Height)
	}
	if c.Grid.BlockPeriod < 0 {
		return fmt.Errorf("block period must not be negative, got %d", c.Grid.BlockPeriod)
	}
	if c.Vehicles.Count < 0 || c.Pedestrians.Count < 0 {
		return fmt.Errorf("agent counts must not be negative")
	}
	if c.Server.TickMS <= 0 {
		return fmt.Errorf("tick interval must be positive, got %dms", c.Server.TickMS)
	}
	return nil
}
