// internal/config/validate.go
package config

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/tamzrod/battmon/internal/logging"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if strings.TrimSpace(cfg.HTTP.Listen) == "" {
		return fmt.Errorf("http.listen must be set")
	}

	// ------------------------------------------------------------
	// STORAGE
	// ------------------------------------------------------------

	s := cfg.Storage

	if s.Size <= 0 || s.Size > 1<<16 {
		return fmt.Errorf("storage.size=%d out of range (1..65536)", s.Size)
	}
	if s.SettleMs < 0 {
		return fmt.Errorf("storage.settle_ms must not be negative")
	}

	switch {
	case strings.EqualFold(s.Driver, DriverMemory):
		// image_path optional

	case strings.EqualFold(s.Driver, DriverI2C):
		if s.I2C.Device == "" {
			return fmt.Errorf("storage.i2c.device must be set for driver %q", s.Driver)
		}
		if s.I2C.Address > 0x7F {
			return fmt.Errorf("storage.i2c.address=0x%02X is not a 7-bit address", s.I2C.Address)
		}
		if s.I2C.PageSize <= 0 {
			return fmt.Errorf("storage.i2c.page_size must be > 0")
		}

	case strings.EqualFold(s.Driver, DriverModbus):
		ep := strings.TrimSpace(s.Modbus.Endpoint)
		if !strings.HasPrefix(ep, "tcp://") && !strings.HasPrefix(ep, "rtu://") {
			return fmt.Errorf("storage.modbus.endpoint %q must start with tcp:// or rtu://", s.Modbus.Endpoint)
		}
		if s.Modbus.TimeoutMs <= 0 {
			return fmt.Errorf("storage.modbus.timeout_ms must be > 0")
		}
		if strings.HasPrefix(ep, "rtu://") && s.Modbus.BaudRate <= 0 {
			return fmt.Errorf("storage.modbus.baud_rate must be > 0 for rtu endpoints")
		}

	default:
		return fmt.Errorf("storage.driver %q unknown (memory, i2c, modbus)", s.Driver)
	}

	// ------------------------------------------------------------
	// WIFI
	// ------------------------------------------------------------

	w := cfg.WiFi

	switch {
	case strings.EqualFold(w.Driver, DriverSim):
		if w.Sim.JoinAfterMs < 0 {
			return fmt.Errorf("wifi.sim.join_after_ms must not be negative")
		}
		if _, err := netip.ParseAddr(strings.TrimSpace(w.Sim.Address)); err != nil {
			return fmt.Errorf("wifi.sim.address %q: %w", w.Sim.Address, err)
		}

	case strings.EqualFold(w.Driver, DriverWPA):
		if w.WPA.CtrlPath == "" {
			return fmt.Errorf("wifi.wpa.ctrl_path must be set for driver %q", w.Driver)
		}

	default:
		return fmt.Errorf("wifi.driver %q unknown (sim, wpa)", w.Driver)
	}

	// ------------------------------------------------------------
	// PROVISIONING TIMINGS
	// ------------------------------------------------------------

	p := cfg.Provisioning

	if p.JoinTimeoutMs <= 0 {
		return fmt.Errorf("provisioning.join_timeout_ms must be > 0")
	}
	if p.PollIntervalMs <= 0 {
		return fmt.Errorf("provisioning.poll_interval_ms must be > 0")
	}
	if p.PollIntervalMs >= p.JoinTimeoutMs {
		return fmt.Errorf(
			"provisioning.poll_interval_ms=%d must be below join_timeout_ms=%d",
			p.PollIntervalMs,
			p.JoinTimeoutMs,
		)
	}
	if p.GraceMs < 0 {
		return fmt.Errorf("provisioning.grace_ms must not be negative")
	}

	// ------------------------------------------------------------
	// LOG
	// ------------------------------------------------------------

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if cfg.Log.RingLines < 0 || cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 {
		return fmt.Errorf("log sizes must not be negative")
	}

	return nil
}
