// Package config loads the TOML configuration for the driver/CLI layer:
// link addressing, MTU, timers and the holdoff rate. The engine itself
// takes a plain frag.Config struct built from this at startup — nothing
// here is read by frag directly.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// LinkConfig describes a UDPLink endpoint and the engine timers layered
// on top of it.
type LinkConfig struct {
	Name       string `toml:"name"`
	Bind       string `toml:"bind"`
	Peer       string `toml:"peer"`
	MTU        int    `toml:"mtu"`
	QueueDepth int    `toml:"queue_depth"`

	RetransmitMillis int `toml:"retransmit_millis"`
	DropMillis       int `toml:"drop_millis"`
	TickMillis       int `toml:"tick_millis"`

	RetransmitMultiplier uint `toml:"retransmit_multiplier"`
	GraceMultiplier      uint `toml:"grace_multiplier"`

	HoldoffPerSecond float64 `toml:"holdoff_per_second"`
	HoldoffBurst     int     `toml:"holdoff_burst"`
}

// Load reads and validates a LinkConfig from path, applying the same
// defaulted-fields treatment as the rest of this stack's config loaders.
func Load(path string) (LinkConfig, error) {
	var cfg LinkConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return LinkConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return LinkConfig{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *LinkConfig) {
	if cfg.Name == "" {
		cfg.Name = "fragtp"
	}
	if cfg.MTU == 0 {
		cfg.MTU = 512
	}
	if cfg.QueueDepth == 0 {
		cfg.QueueDepth = 16
	}
	if cfg.RetransmitMillis == 0 {
		cfg.RetransmitMillis = 200
	}
	if cfg.DropMillis == 0 {
		cfg.DropMillis = 2000
	}
	if cfg.TickMillis == 0 {
		cfg.TickMillis = 50
	}
	if cfg.RetransmitMultiplier == 0 {
		cfg.RetransmitMultiplier = 5
	}
	if cfg.GraceMultiplier == 0 {
		cfg.GraceMultiplier = 5
	}
	if cfg.HoldoffPerSecond == 0 {
		cfg.HoldoffPerSecond = 50
	}
	if cfg.HoldoffBurst == 0 {
		cfg.HoldoffBurst = 8
	}
}

// Validate checks the fields Load cannot default its way out of.
func Validate(cfg LinkConfig) error {
	if strings.TrimSpace(cfg.Bind) == "" {
		return fmt.Errorf("link config missing bind address")
	}
	if strings.TrimSpace(cfg.Peer) == "" {
		return fmt.Errorf("link config missing peer address")
	}
	if cfg.MTU <= 7 {
		return fmt.Errorf("link config mtu too small to carry a header: %d", cfg.MTU)
	}
	return nil
}

// RetransmitTime returns the configured retransmit interval as a Duration.
func (c LinkConfig) RetransmitTime() time.Duration {
	return time.Duration(c.RetransmitMillis) * time.Millisecond
}

// DropTime returns the configured idle timeout after which the engine
// abandons an incoming or outgoing transfer, as a Duration.
func (c LinkConfig) DropTime() time.Duration {
	return time.Duration(c.DropMillis) * time.Millisecond
}

// TickInterval returns how often the driver should call Engine.Tick.
func (c LinkConfig) TickInterval() time.Duration {
	return time.Duration(c.TickMillis) * time.Millisecond
}
