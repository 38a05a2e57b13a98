/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
)

// ErrInvalidConfig is returned when a configuration value is out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// Global initial configuration of the forwarder.
// This configuration is IMMUTABLE. Do not modify it outside of tests.
var C = DefaultConfig()

// Config represents the configuration of the forwarder.
type Config struct {
	Core struct {
		// Logging level
		LogLevel string `json:"log_level"`
		// Output log to file
		LogFile string `json:"log_file"`

		// Config file base dir
		BaseDir string `json:"-"`
	} `json:"core"`

	Fw struct {
		// Size of the packet queue of each forwarding thread
		QueueSize int `json:"queue_size"`
		// Seed of the load balancing random source (0 picks a random seed)
		Seed uint64 `json:"seed"`
	} `json:"fw"`

	Ddos struct {
		// Interval between two rate limiting cycles (milliseconds)
		CheckWindow int `json:"check_window"`
		// Number of interests added to a face quota when no new Nack arrived
		AdditiveIncrease int `json:"additive_increase"`
		// Divisor applied to a face quota when a new Nack arrived
		MultiplicativeDecrease float64 `json:"multiplicative_decrease"`
		// Role of this router: producer-gateway, normal or edge
		RouterType string `json:"router_type"`
	} `json:"ddos"`

	Tables struct {
		Pit struct {
			// Lifetime used for Interests without InterestLifetime (milliseconds)
			DefaultLifetime int `json:"default_lifetime"`
			// Interval between two expiration sweeps (milliseconds)
			UpdateInterval int `json:"update_interval"`
		} `json:"pit"`
	} `json:"tables"`

	Journal struct {
		// Record journal backend: none, memory, badger or sqlite
		Backend string `json:"backend"`
		// Database path (relative to the config file)
		Path string `json:"path"`
	} `json:"journal"`

	Metrics struct {
		// Serve prometheus metrics over HTTP
		Enabled bool `json:"enabled"`
		// Bind address of the metrics endpoint
		Bind string `json:"bind"`
	} `json:"metrics"`

	Sim SimConfig `json:"sim"`
}

// SimConfig describes a simulated attack scenario.
type SimConfig struct {
	// Prefix served by the producer
	Prefix string `json:"prefix"`
	// Number of legitimate consumers behind the edge router
	Consumers int `json:"consumers"`
	// Number of attackers behind the edge router
	Attackers int `json:"attackers"`
	// Interests sent per tick by each consumer
	ConsumerRate int `json:"consumer_rate"`
	// Interests sent per tick by each attacker
	AttackerRate int `json:"attacker_rate"`
	// Tick length (milliseconds)
	Tick int `json:"tick"`
	// Simulated duration (milliseconds)
	Duration int `json:"duration"`
	// Fake interests the producer collects before sending a Nack
	DetectThreshold int `json:"detect_threshold"`
	// Tolerance carried by the producer's Nack
	Tolerance uint64 `json:"tolerance"`
}

// DefaultConfig returns the configuration used when no file overrides a value.
func DefaultConfig() *Config {
	c := &Config{}
	c.Core.LogLevel = "INFO"
	c.Core.LogFile = ""
	c.Core.BaseDir = ""

	c.Fw.QueueSize = 1024
	c.Fw.Seed = 0

	c.Ddos.CheckWindow = 1000
	c.Ddos.AdditiveIncrease = 10
	c.Ddos.MultiplicativeDecrease = 2
	c.Ddos.RouterType = "normal"

	c.Tables.Pit.DefaultLifetime = 4000
	c.Tables.Pit.UpdateInterval = 200

	c.Journal.Backend = "none"
	c.Journal.Path = ""

	c.Metrics.Enabled = false
	c.Metrics.Bind = "127.0.0.1:9797"

	c.Sim.Prefix = "/ucla/video"
	c.Sim.Consumers = 2
	c.Sim.Attackers = 2
	c.Sim.ConsumerRate = 5
	c.Sim.AttackerRate = 50
	c.Sim.Tick = 100
	c.Sim.Duration = 20000
	c.Sim.DetectThreshold = 100
	c.Sim.Tolerance = 100

	return c
}

// LoadConfig reads a YAML configuration file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	c.Core.BaseDir = filepath.Dir(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open configuration file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f, yaml.Strict())
	if err = dec.Decode(c); err != nil {
		return nil, fmt.Errorf("unable to parse configuration file: %w", err)
	}

	if err = c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks values that would make the strategy misbehave.
func (c *Config) Validate() error {
	if c.Ddos.CheckWindow <= 0 {
		return fmt.Errorf("%w: ddos.check_window must be positive", ErrInvalidConfig)
	}
	if c.Ddos.AdditiveIncrease <= 0 {
		return fmt.Errorf("%w: ddos.additive_increase must be positive", ErrInvalidConfig)
	}
	if c.Ddos.MultiplicativeDecrease < 1 {
		return fmt.Errorf("%w: ddos.multiplicative_decrease must be at least 1", ErrInvalidConfig)
	}
	switch c.Ddos.RouterType {
	case "producer-gateway", "normal", "edge":
	default:
		return fmt.Errorf("%w: unknown ddos.router_type %q", ErrInvalidConfig, c.Ddos.RouterType)
	}
	if c.Fw.QueueSize <= 0 {
		return fmt.Errorf("%w: fw.queue_size must be positive", ErrInvalidConfig)
	}
	return nil
}

// CheckWindow returns the rate limiting cycle interval.
func (c *Config) CheckWindow() time.Duration {
	return time.Duration(c.Ddos.CheckWindow) * time.Millisecond
}

// ResolveRelPath resolves a possibly relative path based on config file path.
func (c *Config) ResolveRelPath(target string) string {
	if filepath.IsAbs(target) {
		return target
	}
	return filepath.Join(c.Core.BaseDir, target)
}
