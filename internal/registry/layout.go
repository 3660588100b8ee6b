// internal/registry/layout.go
package registry

// Persistent storage layout.
// These addresses are protocol-locked: changing any of them orphans the
// values already stored on deployed devices.

// ---- CALIBRATION ----

const AddrBatteryCapacity uint16 = 20
const AddrVoltageOffset uint16 = 30
const AddrCurrentOffset uint16 = 40
const AddrMVPerAmp uint16 = 50

// ---- STATE ----

// AddrStateOfCharge is shared with the sensor loop that integrates current.
const AddrStateOfCharge uint16 = 140

// ---- THRESHOLDS ----

const AddrChargingThreshold uint16 = 200
const AddrDischargingThreshold uint16 = 210

// AddrCurrentDeadzone uses bytes 220-223.
const AddrCurrentDeadzone uint16 = 220

// ---- NETWORK ----

const AddrNetworkSSID uint16 = 500
const AddrNetworkPassword uint16 = 564

// ---- WIDTHS ----

const WidthScalar uint16 = 4
const WidthSSID uint16 = 32
const WidthPassword uint16 = 64

// ---- WIRE KEYS ----

const (
	KeyCapacityAh         = "capacity_ah"
	KeyVoltageOffset      = "voltage_offset"
	KeyCurrentOffset      = "current_offset"
	KeyMVPerAmp           = "mv_per_amp"
	KeyChargeThreshold    = "charge_threshold"
	KeyDischargeThreshold = "discharge_threshold"
	KeySOC                = "soc"
	KeyCurrentDeadzone    = "current_deadzone"
	KeyNetworkSSID        = "network_ssid"
	KeyNetworkPassword    = "network_password"
)

// SecondsPerHour converts amp-hours to coulombs.
const SecondsPerHour = 3600
