package svcwrap

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearConfigEnv unsets the SVCWRAP_* variables for the duration of the test
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvHelperPath, EnvStopGrace, EnvStopTimeout, EnvStopPollInterval} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	want := filepath.Join("executables", "svcwrap-helper")
	if runtime.GOOS == "windows" {
		want += ".exe"
	}
	assert.Equal(t, want, cfg.HelperPath)
	assert.Equal(t, 100*time.Millisecond, cfg.StopGrace)
	assert.Zero(t, cfg.StopTimeout)
	assert.Equal(t, DefaultStopPollInterval, cfg.StopPollInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv(EnvHelperPath, "/opt/svcwrap/helper")
	t.Setenv(EnvStopGrace, "250ms")
	t.Setenv(EnvStopTimeout, "5s")
	t.Setenv(EnvStopPollInterval, "20ms")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/opt/svcwrap/helper", cfg.HelperPath)
	assert.Equal(t, 250*time.Millisecond, cfg.StopGrace)
	assert.Equal(t, 5*time.Second, cfg.StopTimeout)
	assert.Equal(t, 20*time.Millisecond, cfg.StopPollInterval)
}

func TestLoadConfigDoesNotWriteEnv(t *testing.T) {
	clearConfigEnv(t)

	_, err := LoadConfig()
	require.NoError(t, err)

	_, set := os.LookupEnv(EnvHelperPath)
	assert.False(t, set, "LoadConfig must not set %s", EnvHelperPath)
}

func TestLoadConfigInvalidDuration(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv(EnvStopGrace, "soon")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConfig), "got %v", err)
}

func TestLoadConfigInvalidPollInterval(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv(EnvStopPollInterval, "fast")

	_, err := LoadConfig()
	require.Error(t, err)

	var oe *OpError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, KindConfig, oe.Kind)
	assert.Equal(t, OpLoadConfig, oe.Op)
}

func TestLoadConfigNegativeDuration(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv(EnvStopTimeout, "-1s")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConfig))
}

func TestLoadConfigDotenv(t *testing.T) {
	clearConfigEnv(t)

	envFile := filepath.Join(t.TempDir(), "svcwrap.env")
	content := "SVCWRAP_HELPER_PATH=bin/helper\nSVCWRAP_STOP_GRACE=1s\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)
	assert.Equal(t, "bin/helper", cfg.HelperPath)
	assert.Equal(t, time.Second, cfg.StopGrace)
}

func TestLoadConfigEnvOverridesDotenv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv(EnvStopGrace, "2s")

	envFile := filepath.Join(t.TempDir(), "svcwrap.env")
	require.NoError(t, os.WriteFile(envFile, []byte("SVCWRAP_STOP_GRACE=1s\n"), 0o644))

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.StopGrace)
}

func TestLoadConfigMissingDotenv(t *testing.T) {
	clearConfigEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConfig))
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{StopTimeout: time.Second}.withDefaults()

	assert.Equal(t, DefaultHelperPath(), cfg.HelperPath)
	assert.Equal(t, DefaultStopGrace, cfg.StopGrace)
	assert.Equal(t, DefaultStopPollInterval, cfg.StopPollInterval)
	assert.Equal(t, time.Second, cfg.StopTimeout)
}

func TestConfigZeroStopGraceTakesDefault(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv(EnvStopGrace, "0s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Zero(t, cfg.StopGrace)

	c := New(WithPlatform(NewMockPlatform()), WithConfig(cfg))
	assert.Equal(t, DefaultStopGrace, c.Config().StopGrace)
}
