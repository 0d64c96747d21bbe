// Package config loads taskman settings from defaults, an optional YAML file and
// TASKMAN_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	taskerrors "github.com/maxkimambo/taskman/internal/errors"
	"github.com/maxkimambo/taskman/internal/taskmanager"
	"github.com/maxkimambo/taskman/internal/workerpool"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. TASKMAN_POOL_WORKERS.
const EnvPrefix = "TASKMAN"

// Config is the complete taskman configuration.
type Config struct {
	Pool    PoolConfig    `mapstructure:"pool"`
	Manager ManagerConfig `mapstructure:"manager"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// PoolConfig sizes the worker pool. Zero selects the pool's own default.
type PoolConfig struct {
	Workers         int           `mapstructure:"workers"`
	QueueSize       int           `mapstructure:"queue_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ManagerConfig controls event publication.
type ManagerConfig struct {
	// ProgressInterval is the minimum spacing between progress events; 0 disables throttling.
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
}

// LoggingConfig mirrors the root command's logging flags.
type LoggingConfig struct {
	Verbose bool `mapstructure:"verbose"`
	JSON    bool `mapstructure:"json"`
	Quiet   bool `mapstructure:"quiet"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Pool: PoolConfig{
			ShutdownTimeout: 30 * time.Second,
		},
		Manager: ManagerConfig{
			ProgressInterval: taskmanager.MinProgressInterval,
		},
	}
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("pool.workers", defaults.Pool.Workers)
	v.SetDefault("pool.queue_size", defaults.Pool.QueueSize)
	v.SetDefault("pool.shutdown_timeout", defaults.Pool.ShutdownTimeout)

	v.SetDefault("manager.progress_interval", defaults.Manager.ProgressInterval)

	v.SetDefault("logging.verbose", defaults.Logging.Verbose)
	v.SetDefault("logging.json", defaults.Logging.JSON)
	v.SetDefault("logging.quiet", defaults.Logging.Quiet)
}

// Load reads the configuration. An explicit path must exist; without one a
// taskman.yaml in the working directory is used when present.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("taskman")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the pool or manager cannot use.
func (c *Config) Validate() error {
	switch {
	case c.Pool.Workers < 0:
		return taskerrors.NewConfigurationError("pool.workers", c.Pool.Workers, "must not be negative")
	case c.Pool.QueueSize < 0:
		return taskerrors.NewConfigurationError("pool.queue_size", c.Pool.QueueSize, "must not be negative")
	case c.Pool.ShutdownTimeout < 0:
		return taskerrors.NewConfigurationError("pool.shutdown_timeout", c.Pool.ShutdownTimeout, "must not be negative")
	case c.Manager.ProgressInterval < 0:
		return taskerrors.NewConfigurationError("manager.progress_interval", c.Manager.ProgressInterval, "must not be negative")
	case c.Logging.Verbose && c.Logging.Quiet:
		return taskerrors.NewConfigurationError("logging.quiet", c.Logging.Quiet, "cannot be combined with logging.verbose")
	}
	return nil
}

// WorkerPool returns the pool sizing.
func (c *Config) WorkerPool() workerpool.Config {
	return workerpool.Config{
		Workers:   c.Pool.Workers,
		QueueSize: c.Pool.QueueSize,
	}
}

// ManagerOptions returns the options that build a Manager from c.
func (c *Config) ManagerOptions() []taskmanager.Option {
	return []taskmanager.Option{
		taskmanager.WithPoolConfig(c.WorkerPool()),
		taskmanager.WithProgressInterval(c.Manager.ProgressInterval),
		taskmanager.WithShutdownTimeout(c.Pool.ShutdownTimeout),
	}
}
