// Package config loads application configuration from an optional YAML
// file and IMPORTMGR_-prefixed environment variables, with sane defaults
// for every knob.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration tree.
type Config struct {
	AWS       AWSConfig       `mapstructure:"aws"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Codegen   CodegenConfig   `mapstructure:"codegen"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Cost      CostConfig      `mapstructure:"cost"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AWSConfig selects the account context for discovery.
type AWSConfig struct {
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

// DiscoveryConfig bounds the discovery stage.
type DiscoveryConfig struct {
	ResourceCap     int           `mapstructure:"resource_cap"`
	StrategyTimeout time.Duration `mapstructure:"strategy_timeout"`
	JoinTimeout     time.Duration `mapstructure:"join_timeout"`
}

// CodegenConfig controls the IaC generation stage.
type CodegenConfig struct {
	ToolPath    string        `mapstructure:"tool_path"`
	ToolTimeout time.Duration `mapstructure:"tool_timeout"`
	WorkDir     string        `mapstructure:"work_dir"`
}

// ScoringConfig holds the per-severity score deductions.
type ScoringConfig struct {
	CriticalWeight int `mapstructure:"critical_weight"`
	HighWeight     int `mapstructure:"high_weight"`
	MediumWeight   int `mapstructure:"medium_weight"`
}

// CostConfig tunes cost-related advice.
type CostConfig struct {
	ReviewThreshold float64 `mapstructure:"review_threshold"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// LoggingConfig configures the zerolog backend.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("aws.region", "us-east-1")

	v.SetDefault("discovery.resource_cap", 100)
	v.SetDefault("discovery.strategy_timeout", 60*time.Second)
	v.SetDefault("discovery.join_timeout", 90*time.Second)

	v.SetDefault("codegen.tool_path", "terraformer")
	v.SetDefault("codegen.tool_timeout", 300*time.Second)
	v.SetDefault("codegen.work_dir", "")

	v.SetDefault("scoring.critical_weight", 20)
	v.SetDefault("scoring.high_weight", 10)
	v.SetDefault("scoring.medium_weight", 5)

	v.SetDefault("cost.review_threshold", 1000.0)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")
}

// Load reads configuration from path (optional; empty means defaults
// plus a search of the working directory) and the environment.
// IMPORTMGR_SERVER_PORT=9090 overrides server.port, and so on.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("IMPORTMGR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("importmgr")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.importmgr")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return &cfg, nil
}
