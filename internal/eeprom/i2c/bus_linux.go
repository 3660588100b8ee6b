// internal/eeprom/i2c/bus_linux.go

//go:build linux

package i2c

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// ioctl request selecting the target device address (linux/i2c-dev.h).
const ioctlI2CSlave = 0x0703

// Bus talks to a 24Cxx-style EEPROM through /dev/i2c-N.
// Every transaction carries a 16-bit big-endian memory address header.
// It serializes transactions because the address pointer lives in the device.
type Bus struct {
	mu    sync.Mutex
	fd    int
	page  int
	cycle time.Duration
	sleep func(time.Duration)
}

// Open opens the adapter device and selects the 7-bit chip address.
func Open(cfg Config) (*Bus, error) {
	if cfg.Device == "" {
		return nil, errors.New("i2c: device required")
	}
	if cfg.Address > 0x7F {
		return nil, fmt.Errorf("i2c: address 0x%02x is not 7-bit", cfg.Address)
	}

	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("i2c: open %s: %w", cfg.Device, err)
	}

	if err := unix.IoctlSetInt(fd, ioctlI2CSlave, int(cfg.Address)); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("i2c: select 0x%02x: %w", cfg.Address, err)
	}

	return &Bus{
		fd:    fd,
		page:  cfg.pageSize(),
		cycle: cfg.writeCycle(),
		sleep: time.Sleep,
	}, nil
}

// Write sends p as one frame per device page and waits a write cycle
// after each, since the chip ignores the bus until the page is committed.
func (b *Bus) Write(addr uint16, p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range splitPages(addr, p, b.page) {
		frame := w.frame()
		n, err := unix.Write(b.fd, frame)
		if err != nil {
			return fmt.Errorf("i2c: write @%d: %w", w.Addr, err)
		}
		if n != len(frame) {
			return fmt.Errorf("i2c: short write @%d: %d/%d", w.Addr, n, len(frame))
		}
		b.sleep(b.cycle)
	}
	return nil
}

func (b *Bus) Read(addr uint16, p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// dummy write positions the device address pointer
	if _, err := unix.Write(b.fd, []byte{byte(addr >> 8), byte(addr)}); err != nil {
		return 0, fmt.Errorf("i2c: set pointer @%d: %w", addr, err)
	}

	n, err := unix.Read(b.fd, p)
	if err != nil {
		return 0, fmt.Errorf("i2c: read @%d: %w", addr, err)
	}
	return n, nil
}

// Close releases the adapter file descriptor.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fd < 0 {
		return nil
	}
	err := unix.Close(b.fd)
	b.fd = -1
	return err
}
