package taskmanager

import (
	"time"

	"github.com/maxkimambo/taskman/internal/workerpool"
	"github.com/sirupsen/logrus"
)

// Option configures a Manager.
type Option func(*managerConfig)

type managerConfig struct {
	pool             Pool
	poolConfig       workerpool.Config
	notifier         Notifier
	progressInterval time.Duration
	shutdownTimeout  time.Duration
	log              *logrus.Entry
}

func defaultManagerConfig() managerConfig {
	return managerConfig{
		progressInterval: MinProgressInterval,
		shutdownTimeout:  30 * time.Second,
	}
}

// WithPool runs tasks on p. The manager does not shut p down.
func WithPool(p Pool) Option {
	return func(c *managerConfig) {
		c.pool = p
	}
}

// WithPoolConfig sizes the pool the manager creates when WithPool is not given.
func WithPoolConfig(cfg workerpool.Config) Option {
	return func(c *managerConfig) {
		c.poolConfig = cfg
	}
}

// WithNotifier publishes events on n instead of a private bus.
func WithNotifier(n Notifier) Option {
	return func(c *managerConfig) {
		c.notifier = n
	}
}

// WithProgressInterval overrides MinProgressInterval. Zero or negative disables throttling.
func WithProgressInterval(d time.Duration) Option {
	return func(c *managerConfig) {
		c.progressInterval = d
	}
}

// WithShutdownTimeout bounds how long Close waits for an owned pool to drain.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *managerConfig) {
		c.shutdownTimeout = d
	}
}

// WithLogger sets the entry used for operational logs.
func WithLogger(l *logrus.Entry) Option {
	return func(c *managerConfig) {
		c.log = l
	}
}
