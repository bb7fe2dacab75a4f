package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Compose  ComposeConfig  `mapstructure:"compose"`
	Docker   DockerConfig   `mapstructure:"docker"`
	Data     DataConfig     `mapstructure:"data"`
	Log      LogConfig      `mapstructure:"log"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// ComposeConfig locates the source compose file.
type ComposeConfig struct {
	File string `mapstructure:"file"`
}

// DockerConfig holds Docker client configuration.
type DockerConfig struct {
	Host string `mapstructure:"host"`
}

// DataConfig holds fact-store configuration.
type DataConfig struct {
	// Dir is where per-instance fact databases live.
	Dir string `mapstructure:"dir"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PipelineConfig shapes the default up-test-down tree.
type PipelineConfig struct {
	// GracePeriod is how long to wait after "up" before testing.
	GracePeriod time.Duration `mapstructure:"grace_period"`

	// SanityService is the service whose container runs the sanity command.
	SanityService string `mapstructure:"sanity_service"`

	// SanityCommand runs inside SanityService between up and down.
	SanityCommand string `mapstructure:"sanity_command"`

	// PingServices are pinged on their primary IPs by the lazy test subtree.
	PingServices []string `mapstructure:"ping_services"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("compose.file", "docker-compose.yml")
	v.SetDefault("docker.host", "")
	v.SetDefault("data.dir", "./data")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("pipeline.grace_period", "20s")
	v.SetDefault("pipeline.sanity_service", "st2client")
	v.SetDefault("pipeline.sanity_command", "st2 action list --pack=core")
	v.SetDefault("pipeline.ping_services", []string{"st2api", "st2auth"})

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	v.SetEnvPrefix("PIPELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
