// internal/config/load.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BATTMON_"

// Load builds the configuration: defaults, then the YAML file (if path is
// set), then the .env file (if envFile is set), then BATTMON_* variables.
// It does not validate.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}

		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if envFile != "" {
		// existing variables win over the file
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("config: env file %s: %w", envFile, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies BATTMON_* environment variables to cfg.
func applyEnvOverrides(cfg *Config) error {
	str := map[string]*string{
		"HTTP_LISTEN":        &cfg.HTTP.Listen,
		"STORAGE_DRIVER":     &cfg.Storage.Driver,
		"STORAGE_IMAGE_PATH": &cfg.Storage.ImagePath,
		"I2C_DEVICE":         &cfg.Storage.I2C.Device,
		"MODBUS_ENDPOINT":    &cfg.Storage.Modbus.Endpoint,
		"WIFI_DRIVER":        &cfg.WiFi.Driver,
		"SIM_ADDRESS":        &cfg.WiFi.Sim.Address,
		"SIM_ACCEPT_SSID":    &cfg.WiFi.Sim.AcceptSSID,
		"WPA_CTRL_PATH":      &cfg.WiFi.WPA.CtrlPath,
		"LOG_LEVEL":          &cfg.Log.Level,
		"LOG_FILE":           &cfg.Log.File,
	}
	for name, dst := range str {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"STORAGE_SETTLE_MS":  &cfg.Storage.SettleMs,
		"SIM_JOIN_AFTER_MS":  &cfg.WiFi.Sim.JoinAfterMs,
		"JOIN_TIMEOUT_MS":    &cfg.Provisioning.JoinTimeoutMs,
		"POLL_INTERVAL_MS":   &cfg.Provisioning.PollIntervalMs,
		"GRACE_MS":           &cfg.Provisioning.GraceMs,
		"MODBUS_TIMEOUT_MS":  &cfg.Storage.Modbus.TimeoutMs,
		"LOG_RING_LINES":     &cfg.Log.RingLines,
		"LOG_MAX_SIZE_MB":    &cfg.Log.MaxSizeMB,
		"LOG_MAX_BACKUPS":    &cfg.Log.MaxBackups,
		"MODBUS_BAUD_RATE":   &cfg.Storage.Modbus.BaudRate,
		"STORAGE_SIZE_BYTES": &cfg.Storage.Size,
	}
	for name, dst := range ints {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s%s=%q is not an integer", EnvPrefix, name, v)
		}
		*dst = n
	}

	if v, ok := os.LookupEnv(EnvPrefix + "MODBUS_UNIT_ID"); ok {
		n, err := strconv.ParseUint(v, 0, 8)
		if err != nil {
			return fmt.Errorf("config: %sMODBUS_UNIT_ID=%q: %w", EnvPrefix, v, err)
		}
		cfg.Storage.Modbus.UnitID = uint8(n)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "I2C_ADDRESS"); ok {
		n, err := strconv.ParseUint(v, 0, 8)
		if err != nil {
			return fmt.Errorf("config: %sI2C_ADDRESS=%q: %w", EnvPrefix, v, err)
		}
		cfg.Storage.I2C.Address = uint8(n)
	}

	return nil
}
