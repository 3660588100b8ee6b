// internal/registry/schema.go
package registry

import (
	"fmt"
	"math"
)

// Kind is the storage representation of a field.
type Kind uint8

const (
	KindFloat  Kind = iota // 4-byte IEEE-754, little-endian
	KindString             // bounded, null-terminated within Width
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Field binds a wire key to a fixed storage slot.
type Field struct {
	Key   string
	Addr  uint16
	Width uint16
	Kind  Kind

	// Clamp is the optional validator applied before persistence and on
	// bootstrap. nil means the value is stored as given.
	Clamp func(float64) float64
}

// End returns the first address past the slot.
func (f Field) End() int {
	return int(f.Addr) + int(f.Width)
}

// Schema is the full field table.
// Order matters: ApplyUpdate processes fields in schema order.
type Schema []Field

// DefaultSchema returns the device layout.
func DefaultSchema() Schema {
	return Schema{
		{Key: KeyCapacityAh, Addr: AddrBatteryCapacity, Width: WidthScalar, Kind: KindFloat},
		{Key: KeyVoltageOffset, Addr: AddrVoltageOffset, Width: WidthScalar, Kind: KindFloat},
		{Key: KeyCurrentOffset, Addr: AddrCurrentOffset, Width: WidthScalar, Kind: KindFloat},
		{Key: KeyMVPerAmp, Addr: AddrMVPerAmp, Width: WidthScalar, Kind: KindFloat},
		{Key: KeySOC, Addr: AddrStateOfCharge, Width: WidthScalar, Kind: KindFloat, Clamp: ClampPercent},
		{Key: KeyChargeThreshold, Addr: AddrChargingThreshold, Width: WidthScalar, Kind: KindFloat},
		{Key: KeyDischargeThreshold, Addr: AddrDischargingThreshold, Width: WidthScalar, Kind: KindFloat},
		{Key: KeyCurrentDeadzone, Addr: AddrCurrentDeadzone, Width: WidthScalar, Kind: KindFloat},
		{Key: KeyNetworkSSID, Addr: AddrNetworkSSID, Width: WidthSSID, Kind: KindString},
		{Key: KeyNetworkPassword, Addr: AddrNetworkPassword, Width: WidthPassword, Kind: KindString},
	}
}

// Lookup finds a field by wire key.
func (s Schema) Lookup(key string) (Field, bool) {
	for _, f := range s {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks the schema geometry.
// It performs declarative validation only.
// deviceSize <= 0 skips the capacity check.
func (s Schema) Validate(deviceSize int) error {
	type span struct {
		start int
		end   int // exclusive
		key   string
	}

	seen := make(map[string]struct{}, len(s))
	var spans []span

	for _, f := range s {
		if f.Key == "" {
			return fmt.Errorf("schema: field at %d has no key", f.Addr)
		}
		if _, dup := seen[f.Key]; dup {
			return fmt.Errorf("schema: duplicate key %q", f.Key)
		}
		seen[f.Key] = struct{}{}

		switch f.Kind {
		case KindFloat:
			if f.Width != WidthScalar {
				return fmt.Errorf("schema: %q: float width must be %d, got %d", f.Key, WidthScalar, f.Width)
			}
		case KindString:
			// one byte is always reserved for the terminator
			if f.Width < 2 {
				return fmt.Errorf("schema: %q: string width must be >= 2, got %d", f.Key, f.Width)
			}
		default:
			return fmt.Errorf("schema: %q: unknown kind %s", f.Key, f.Kind)
		}

		if deviceSize > 0 && f.End() > deviceSize {
			return fmt.Errorf("schema: %q: range %d-%d exceeds device size %d", f.Key, f.Addr, f.End()-1, deviceSize)
		}

		start, end := int(f.Addr), f.End()
		for _, sp := range spans {
			// half-open overlap check
			if start < sp.end && sp.start < end {
				return fmt.Errorf(
					"schema overlap: %q range=%d-%d overlaps with %q range=%d-%d",
					f.Key, start, end-1, sp.key, sp.start, sp.end-1,
				)
			}
		}
		spans = append(spans, span{start: start, end: end, key: f.Key})
	}

	return nil
}

// ClampPercent limits v to [0,100]. NaN maps to 0.
func ClampPercent(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
