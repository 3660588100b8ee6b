// internal/eeprom/bus.go
package eeprom

import "errors"

// ErrOutOfRange is returned when a transaction addresses memory past the device size.
var ErrOutOfRange = errors.New("eeprom: address out of range")

// Bus is the transaction surface of a byte-addressed memory device.
// One call = one bus transaction. No retries, no semantics.
type Bus interface {
	// Write stores p starting at addr in a single transaction.
	Write(addr uint16, p []byte) error

	// Read requests len(p) bytes starting at addr in a single transaction.
	// n is the number of bytes the device actually returned; n < len(p)
	// means the device signalled no more data.
	Read(addr uint16, p []byte) (n int, err error)
}

// Device is a Bus that owns a connection or file handle.
type Device interface {
	Bus
	Close() error
}

// SizeAT24C32 is the capacity of the AT24C32 part fitted next to the DS3231.
const SizeAT24C32 = 4096
