package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blakegolliher/nfs-gaze/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nfs-gaze.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "/proc/self/mountstats", cfg.MountstatsPath)
	assert.Equal(t, time.Second, cfg.Interval)
	assert.Zero(t, cfg.Count)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9099", cfg.Metrics.ListenAddress)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, `
mount_point: /mnt/nfs
operations: [READ, WRITE]
interval: 5s
count: 10
nfsiostat_format: true
metrics:
  enabled: true
  listen_address: 0.0.0.0:9099
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/nfs", cfg.MountPoint)
	assert.Equal(t, []string{"READ", "WRITE"}, cfg.Operations)
	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.Equal(t, 10, cfg.Count)
	assert.True(t, cfg.NfsiostatMode)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "0.0.0.0:9099", cfg.Metrics.ListenAddress)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, "/proc/self/mountstats", cfg.MountstatsPath)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfigFile(t, "mount_piont: /mnt/nfs\n")

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mount_piont")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	cfg.Interval = 0
	assert.ErrorContains(t, cfg.Validate(), "interval")

	cfg = config.Default()
	cfg.Count = -1
	assert.ErrorContains(t, cfg.Validate(), "count")

	cfg = config.Default()
	cfg.MountstatsPath = ""
	assert.ErrorContains(t, cfg.Validate(), "mountstats_path")
}

func TestOperationsFilter(t *testing.T) {
	cfg := config.Config{Operations: []string{"READ", " WRITE ", ""}}
	filter := cfg.OperationsFilter()
	assert.Equal(t, map[string]bool{"READ": true, "WRITE": true}, filter)

	assert.Empty(t, (&config.Config{}).OperationsFilter())
}

func TestParseOperationsList(t *testing.T) {
	assert.Equal(t, []string{"READ", "WRITE", "GETATTR"},
		config.ParseOperationsList("READ, WRITE ,GETATTR"))
	assert.Equal(t, []string{"READ"}, config.ParseOperationsList(",READ,,"))
	assert.Nil(t, config.ParseOperationsList(""))
}
