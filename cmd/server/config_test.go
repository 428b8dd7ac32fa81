package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"GOVNA_HTTP_ADDR", "GOVNA_NATS_URL", "GOVNA_DEVICE_PROFILE", "GOVNA_ACQUIRE_PORT", "GOVNA_ACQUIRE_INTERVAL", "GOVNA_VERBOSE"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.NATSURL)
	assert.Equal(t, "ultra", cfg.DeviceProfile)
	assert.Zero(t, cfg.AcquireInterval)
	assert.Equal(t, "govna.scan", cfg.Subject)
	assert.False(t, cfg.Verbose)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GOVNA_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("GOVNA_NATS_URL", "nats://broker:4222")
	t.Setenv("GOVNA_ACQUIRE_PORT", "auto")
	t.Setenv("GOVNA_ACQUIRE_INTERVAL", "30s")
	t.Setenv("GOVNA_VERBOSE", "true")

	cfg := Load()
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.Equal(t, "nats://broker:4222", cfg.NATSURL)
	assert.Equal(t, "auto", cfg.AcquirePort)
	assert.Equal(t, 30*time.Second, cfg.AcquireInterval)
	assert.True(t, cfg.Verbose)
}

func TestLoadIgnoresBadDuration(t *testing.T) {
	t.Setenv("GOVNA_ACQUIRE_INTERVAL", "often")
	assert.Zero(t, Load().AcquireInterval)
}

func TestSessionConfigProfiles(t *testing.T) {
	cfg := &Config{DeviceProfile: "basic", Verbose: true}
	sc, err := cfg.SessionConfig()
	require.NoError(t, err)
	assert.Equal(t, 290, sc.Device.MaxPoints)
	assert.True(t, sc.Verbose)

	path := filepath.Join(t.TempDir(), "bench.toml")
	require.NoError(t, os.WriteFile(path, []byte("base = \"f-v2\"\nmax_points = 64\n"), 0o600))
	sc, err = (&Config{DeviceProfile: path}).SessionConfig()
	require.NoError(t, err)
	assert.Equal(t, 64, sc.Device.MaxPoints)
	assert.Equal(t, 800, sc.Device.ScreenWidth)

	_, err = (&Config{DeviceProfile: "v3"}).SessionConfig()
	assert.Error(t, err)
}
