// cmd/battmon/main_test.go
package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/battmon/internal/config"
	"github.com/tamzrod/battmon/internal/eeprom"
	"github.com/tamzrod/battmon/internal/logging"
	"github.com/tamzrod/battmon/internal/metrics"
	"github.com/tamzrod/battmon/internal/registry"
)

func TestRunSchema_ListsEveryField(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runSchema(&buf))

	out := buf.String()
	for _, f := range registry.DefaultSchema() {
		assert.Contains(t, out, f.Key)
	}
	assert.Contains(t, out, "[0,100]")
}

func TestRunDump_ReadsPersistedImage(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.SettleMs = 0
	cfg.Storage.ImagePath = filepath.Join(t.TempDir(), "eeprom.bin")

	// seed the image through the same wiring
	dev, err := openBus(cfg.Storage)
	require.NoError(t, err)
	reg, err := openRegistry(cfg, dev, metrics.NoopRecorder{}, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, reg.ApplyUpdate(map[string]float64{registry.KeySOC: 40, registry.KeyCapacityAh: 10}))
	require.NoError(t, reg.SetCredentials(registry.Credentials{SSID: "Net", Password: "pass1234"}))
	require.NoError(t, dev.Close())

	var buf bytes.Buffer
	require.NoError(t, runDump(cfg, logging.Discard(), &buf))

	var got dumpView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, float32(40), got.Settings[registry.KeySOC])
	assert.Equal(t, registry.Coulombs(40, 10), got.TotalCoulombs)
	assert.Equal(t, "Net", got.NetworkSSID)
	assert.True(t, got.PasswordSet)
	assert.False(t, strings.Contains(buf.String(), "pass1234"))
}

func TestOpenBus_UnknownDriver(t *testing.T) {
	_, err := openBus(config.StorageConfig{Driver: "flash"})
	assert.Error(t, err)
}

func TestOpenLink_Sim(t *testing.T) {
	l, err := openLink(config.Default().WiFi)
	require.NoError(t, err)
	assert.NoError(t, l.Close())
}

var _ eeprom.Device = (*eeprom.Memory)(nil)
