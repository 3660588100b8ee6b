// internal/eeprom/i2c/bus_other.go

//go:build !linux

package i2c

import "errors"

// Bus is unavailable outside Linux.
type Bus struct{}

// Open always fails: i2c-dev is a Linux interface.
func Open(cfg Config) (*Bus, error) {
	return nil, errors.New("i2c: i2c-dev is only supported on linux")
}

func (b *Bus) Write(addr uint16, p []byte) error {
	return errors.New("i2c: unsupported platform")
}

func (b *Bus) Read(addr uint16, p []byte) (int, error) {
	return 0, errors.New("i2c: unsupported platform")
}

func (b *Bus) Close() error { return nil }
