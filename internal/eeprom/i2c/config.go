// internal/eeprom/i2c/config.go
package i2c

import "time"

// DefaultAddress is the AT24C32 address on DS3231 breakout boards.
const DefaultAddress uint8 = 0x57

const (
	// DefaultPageSize is the AT24C32 write page.
	DefaultPageSize = 32

	// DefaultWriteCycle is the datasheet maximum self-timed write cycle.
	DefaultWriteCycle = 5 * time.Millisecond
)

// Config is minimal adapter config.
type Config struct {
	Device  string // e.g. /dev/i2c-1
	Address uint8  // 7-bit chip address

	// PageSize bounds one write frame; the chip wraps inside a page.
	// 0 means DefaultPageSize.
	PageSize int

	// WriteCycle is waited after every page frame. 0 means DefaultWriteCycle.
	WriteCycle time.Duration
}

func (c Config) pageSize() int {
	if c.PageSize <= 0 {
		return DefaultPageSize
	}
	return c.PageSize
}

func (c Config) writeCycle() time.Duration {
	if c.WriteCycle <= 0 {
		return DefaultWriteCycle
	}
	return c.WriteCycle
}
