package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	PolicyEpsilonGreedy = "epsilon-greedy"
	PolicyRandom        = "random"
)

// Config holds all game configuration
type Config struct {
	// Policy table persistence
	TablePath string `mapstructure:"table_path"`
	Ephemeral bool   `mapstructure:"ephemeral"`

	// Move selection
	Policy  string  `mapstructure:"policy"`
	Epsilon float64 `mapstructure:"epsilon"`
	Seed    int64   `mapstructure:"seed"`

	// Game setup
	StartFEN string `mapstructure:"start_fen"`

	// Output
	NoColor  bool   `mapstructure:"no_color"`
	LogLevel string `mapstructure:"log_level"`
}

// Default returns a config with sensible defaults
func Default() *Config {
	return &Config{
		TablePath: "qtable.bin",
		Ephemeral: false,
		Policy:    PolicyEpsilonGreedy,
		Epsilon:   0.1,
		Seed:      0, // seeded from the clock
		StartFEN:  "",
		NoColor:   false,
		LogLevel:  "warn",
	}
}

// FromViper overlays values bound in v (flags, env) onto the defaults.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Policy = strings.ToLower(strings.TrimSpace(cfg.Policy))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.TablePath == "" && !c.Ephemeral {
		return fmt.Errorf("table_path is required")
	}
	switch c.Policy {
	case PolicyEpsilonGreedy, PolicyRandom:
	default:
		return fmt.Errorf("unknown policy %q", c.Policy)
	}
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("epsilon must be within [0, 1], got %v", c.Epsilon)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel into a zerolog level.
func (c *Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.WarnLevel, nil
	}
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
