// internal/config/load_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	p := writeFile(t, "battmon.yaml", `
http:
  listen: ":8080"
storage:
  driver: i2c
  i2c:
    device: /dev/i2c-0
    address: 0x50
provisioning:
  join_timeout_ms: 5000
`)

	cfg, err := Load(p, "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Listen)
	assert.Equal(t, DriverI2C, cfg.Storage.Driver)
	assert.Equal(t, "/dev/i2c-0", cfg.Storage.I2C.Device)
	assert.Equal(t, uint8(0x50), cfg.Storage.I2C.Address)
	assert.Equal(t, 5000, cfg.Provisioning.JoinTimeoutMs)

	// untouched keys keep defaults
	assert.Equal(t, 4096, cfg.Storage.Size)
	assert.Equal(t, 10, cfg.Provisioning.PollIntervalMs)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.yaml", ""), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yaml", "storage:\n  drvier: i2c\n"), "")
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BATTMON_HTTP_LISTEN", ":9000")
	t.Setenv("BATTMON_JOIN_TIMEOUT_MS", "1234")
	t.Setenv("BATTMON_I2C_ADDRESS", "0x51")

	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Listen)
	assert.Equal(t, 1234, cfg.Provisioning.JoinTimeoutMs)
	assert.Equal(t, uint8(0x51), cfg.Storage.I2C.Address)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	p := writeFile(t, "battmon.yaml", "log:\n  level: debug\n")
	t.Setenv("BATTMON_LOG_LEVEL", "warn")

	cfg, err := Load(p, "")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_BadIntegerEnv(t *testing.T) {
	t.Setenv("BATTMON_GRACE_MS", "soon")

	_, err := Load("", "")
	assert.Error(t, err)
}

func TestLoad_DotEnvFile(t *testing.T) {
	// registered so t.Setenv restores the variable after the test
	t.Setenv("BATTMON_WIFI_DRIVER", "")
	require.NoError(t, os.Unsetenv("BATTMON_WIFI_DRIVER"))

	env := writeFile(t, ".env", "BATTMON_WIFI_DRIVER=wpa\n")

	cfg, err := Load("", env)
	require.NoError(t, err)
	assert.Equal(t, DriverWPA, cfg.WiFi.Driver)
}
