// internal/registry/settings.go
package registry

// Credentials identify the target network.
type Credentials struct {
	SSID     string
	Password string
}

// Valid reports whether c fits the persisted slots and names a network.
func (c Credentials) Valid() bool {
	return c.SSID != "" &&
		len(c.SSID) < int(WidthSSID) &&
		len(c.Password) < int(WidthPassword)
}

// Settings is the configuration context shared with the rest of the device.
// The registry owns the authoritative copy; everyone else gets a value copy.
type Settings struct {
	CapacityAh         float32
	VoltageOffset      float32
	CurrentOffset      float32
	MVPerAmp           float32
	ChargeThreshold    float32
	DischargeThreshold float32
	SOC                float32
	CurrentDeadzone    float32

	// TotalCoulombs is derived from SOC and CapacityAh; never persisted.
	TotalCoulombs float64

	Network Credentials
}

// DefaultSettings are the mirror values used when storage holds nothing usable.
func DefaultSettings() Settings {
	return Settings{
		CapacityAh:         100,
		VoltageOffset:      0,
		CurrentOffset:      0,
		MVPerAmp:           100,
		ChargeThreshold:    0.1,
		DischargeThreshold: 0.1,
		SOC:                0,
		CurrentDeadzone:    0.05,
	}
}

// Coulombs computes the accumulator for the given charge and capacity.
func Coulombs(soc, capacityAh float32) float64 {
	return (float64(soc) / 100) * float64(capacityAh) * SecondsPerHour
}

// scalar returns the mirror slot for a float wire key, or nil.
func (s *Settings) scalar(key string) *float32 {
	switch key {
	case KeyCapacityAh:
		return &s.CapacityAh
	case KeyVoltageOffset:
		return &s.VoltageOffset
	case KeyCurrentOffset:
		return &s.CurrentOffset
	case KeyMVPerAmp:
		return &s.MVPerAmp
	case KeyChargeThreshold:
		return &s.ChargeThreshold
	case KeyDischargeThreshold:
		return &s.DischargeThreshold
	case KeySOC:
		return &s.SOC
	case KeyCurrentDeadzone:
		return &s.CurrentDeadzone
	default:
		return nil
	}
}

// text returns the mirror slot for a string wire key, or nil.
func (s *Settings) text(key string) *string {
	switch key {
	case KeyNetworkSSID:
		return &s.Network.SSID
	case KeyNetworkPassword:
		return &s.Network.Password
	default:
		return nil
	}
}
