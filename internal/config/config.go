// Package config loads engine and binary settings from YAML or TOML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/elektrokombinacija/warehouse-sim/internal/logging"
	"github.com/elektrokombinacija/warehouse-sim/internal/sim"
)

// Duration is a time.Duration written as a string ("16ms", "30s").
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string. TOML uses this directly.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText renders the duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalYAML accepts a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// Simulation holds playback settings.
type Simulation struct {
	Speed          float64  `yaml:"speed" toml:"speed"`
	FrameInterval  Duration `yaml:"frame_interval" toml:"frame_interval"`
	ObstaclePolicy string   `yaml:"obstacle_policy" toml:"obstacle_policy"`
	AutoReplan     bool     `yaml:"auto_replan" toml:"auto_replan"`
}

// Planner holds settings for the planning service client.
type Planner struct {
	URL     string   `yaml:"url" toml:"url"`
	Timeout Duration `yaml:"timeout" toml:"timeout"`
	// Discover looks the service up over mDNS when set.
	Discover bool   `yaml:"discover" toml:"discover"`
	Service  string `yaml:"service" toml:"service"`
}

// Stream holds WebSocket broadcast settings.
type Stream struct {
	Addr     string `yaml:"addr" toml:"addr"`
	Encoding string `yaml:"encoding" toml:"encoding"`
}

// Config is the complete file layout.
type Config struct {
	Simulation Simulation `yaml:"simulation" toml:"simulation"`
	Planner    Planner    `yaml:"planner" toml:"planner"`
	Stream     Stream     `yaml:"stream" toml:"stream"`
	LogLevel   string     `yaml:"log_level" toml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Simulation: Simulation{
			Speed:          sim.DefaultSpeed,
			FrameInterval:  Duration{16 * time.Millisecond},
			ObstaclePolicy: sim.ObstaclesIgnore.String(),
		},
		Planner: Planner{
			URL:     "http://localhost:5001/api",
			Timeout: Duration{30 * time.Second},
			Service: "_warehouse-planner._tcp",
		},
		Stream: Stream{
			Addr:     ":8080",
			Encoding: "json",
		},
		LogLevel: "info",
	}
}

// Load reads path over the defaults. The format follows the extension.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		_, err = toml.Decode(string(data), &cfg)
	default:
		return cfg, fmt.Errorf("config %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	cfg.Simulation.Speed = sim.ClampSpeed(cfg.Simulation.Speed)
	return cfg, cfg.Validate()
}

// Validate checks values that cannot be clamped.
func (c Config) Validate() error {
	var errs []error
	if c.Simulation.FrameInterval.Duration <= 0 {
		errs = append(errs, fmt.Errorf("frame_interval must be positive, got %s", c.Simulation.FrameInterval))
	}
	if _, err := sim.ParseObstaclePolicy(c.Simulation.ObstaclePolicy); err != nil {
		errs = append(errs, err)
	}
	if c.Planner.Timeout.Duration <= 0 {
		errs = append(errs, fmt.Errorf("planner timeout must be positive, got %s", c.Planner.Timeout))
	}
	switch c.Stream.Encoding {
	case "json", "proto":
	default:
		errs = append(errs, fmt.Errorf("unknown stream encoding %q", c.Stream.Encoding))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ControllerConfig maps file settings onto sim.Config. Scheduler, Replanner
// and Logger are left for the caller.
func (c Config) ControllerConfig() sim.Config {
	policy, _ := sim.ParseObstaclePolicy(c.Simulation.ObstaclePolicy)
	cfg := sim.DefaultConfig()
	cfg.Speed = c.Simulation.Speed
	cfg.FrameInterval = c.Simulation.FrameInterval.Duration
	cfg.ObstaclePolicy = policy
	cfg.AutoReplan = c.Simulation.AutoReplan
	return cfg
}

// Level returns the parsed log level, defaulting to info.
func (c Config) Level() logging.Level {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return logging.LevelInfo
	}
	return level
}
