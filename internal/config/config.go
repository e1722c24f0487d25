// Package config loads run configuration from a YAML file, or from
// built-in defaults when no path is given, with SIM_* environment
// variable overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/fairsim/marketsim/internal/scenario"
)

// RunConfig is the top-level configuration for a single simulation run.
type RunConfig struct {
	Scenario  string `mapstructure:"scenario"`
	Seed      int64  `mapstructure:"seed"`
	OutputDir string `mapstructure:"output_dir"`
	LogLevel  string `mapstructure:"log_level"`

	Config scenario.Config `mapstructure:"config"`
}

// Load reads run configuration from a YAML file, falling back to the
// named default scenario when no [config] table is present in it, then
// applies SIM_* environment variable overrides.
func Load(path string) (*RunConfig, error) {
	v := viper.New()
	v.SetDefault("scenario", "calm")
	v.SetDefault("seed", int64(1))
	v.SetDefault("output_dir", "runs")
	v.SetDefault("log_level", "warn")

	v.SetEnvPrefix("SIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var rc RunConfig
	if err := v.Unmarshal(&rc); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if rc.Config.Name == "" {
		def := scenario.GetConfig(rc.Scenario, rc.Seed)
		if def == nil {
			return nil, fmt.Errorf("config: unknown scenario %q", rc.Scenario)
		}
		rc.Config = *def
	} else {
		rc.Config.Seed = rc.Seed
	}

	return &rc, nil
}

// Validate checks required fields and value ranges.
func (rc *RunConfig) Validate() error {
	if rc.Config.Symbol == "" {
		return fmt.Errorf("config.symbol is required")
	}
	if rc.Config.DurationMs <= 0 {
		return fmt.Errorf("config.duration_ms must be > 0")
	}
	if len(rc.Config.Agents) == 0 {
		return fmt.Errorf("config.agents must contain at least one agent")
	}
	for i, a := range rc.Config.Agents {
		if a.Tag == "" {
			return fmt.Errorf("config.agents[%d].tag is required", i)
		}
		switch a.Kind {
		case "market-maker", "momentum", "mean-reversion":
		default:
			return fmt.Errorf("config.agents[%d].kind %q is not recognized", i, a.Kind)
		}
	}
	return nil
}
