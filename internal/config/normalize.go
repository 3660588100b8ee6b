// internal/config/normalize.go
package config

import (
	"strings"

	"github.com/tamzrod/battmon/internal/logging"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// Driver names are matched case-insensitively by Validate.
	cfg.Storage.Driver = strings.ToLower(cfg.Storage.Driver)
	cfg.WiFi.Driver = strings.ToLower(cfg.WiFi.Driver)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	cfg.Storage.Modbus.Endpoint = strings.TrimSpace(cfg.Storage.Modbus.Endpoint)
	cfg.WiFi.Sim.Address = strings.TrimSpace(cfg.WiFi.Sim.Address)

	// ------------------------------------------------------------
	// RING SIZE
	// ------------------------------------------------------------

	// 0 means "use the device default", never "keep nothing"
	if cfg.Log.RingLines == 0 {
		cfg.Log.RingLines = logging.DefaultRingLines
	}
}
