package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	taskerrors "github.com/maxkimambo/taskman/internal/errors"
	"github.com/maxkimambo/taskman/internal/taskmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskman.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, taskmanager.MinProgressInterval, cfg.Manager.ProgressInterval)
	assert.Equal(t, 30*time.Second, cfg.Pool.ShutdownTimeout)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
pool:
  workers: 4
  queue_size: 32
  shutdown_timeout: 5s
manager:
  progress_interval: 250ms
logging:
  json: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Pool.Workers)
	assert.Equal(t, 32, cfg.Pool.QueueSize)
	assert.Equal(t, 5*time.Second, cfg.Pool.ShutdownTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Manager.ProgressInterval)
	assert.True(t, cfg.Logging.JSON)
	assert.False(t, cfg.Logging.Quiet)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "pool:\n  workers: 4\n")
	t.Setenv("TASKMAN_POOL_WORKERS", "12")
	t.Setenv("TASKMAN_MANAGER_PROGRESS_INTERVAL", "0s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Pool.Workers)
	assert.Zero(t, cfg.Manager.ProgressInterval)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValue(t *testing.T) {
	path := writeConfig(t, "pool:\n  queue_size: -1\n")

	_, err := Load(path)
	require.Error(t, err)
	category, ok := taskerrors.CategoryOf(err)
	require.True(t, ok)
	assert.Equal(t, taskerrors.ErrorCategoryConfiguration, category)
	assert.Contains(t, err.Error(), "pool.queue_size")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"defaults", func(*Config) {}, ""},
		{"negative workers", func(c *Config) { c.Pool.Workers = -2 }, "pool.workers"},
		{"negative queue", func(c *Config) { c.Pool.QueueSize = -1 }, "pool.queue_size"},
		{"negative timeout", func(c *Config) { c.Pool.ShutdownTimeout = -time.Second }, "pool.shutdown_timeout"},
		{"negative interval", func(c *Config) { c.Manager.ProgressInterval = -time.Millisecond }, "manager.progress_interval"},
		{"zero interval", func(c *Config) { c.Manager.ProgressInterval = 0 }, ""},
		{"verbose and quiet", func(c *Config) { c.Logging.Verbose, c.Logging.Quiet = true, true }, "logging.quiet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.key == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestManagerOptions(t *testing.T) {
	cfg := Default()
	cfg.Pool.Workers = 3
	cfg.Pool.QueueSize = 9

	assert.Equal(t, 3, cfg.WorkerPool().Workers)
	assert.Equal(t, 9, cfg.WorkerPool().QueueSize)
	assert.Len(t, cfg.ManagerOptions(), 3)

	m := taskmanager.NewManager(cfg.ManagerOptions()...)
	require.NoError(t, m.StartInline(taskmanager.NewTaskFunc("configured", func(*taskmanager.Task) error { return nil })))
	assert.NoError(t, m.Close())
}
