// internal/eeprom/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// Bus reaches the EEPROM through a Modbus bridge that exposes every
// memory byte as one holding register (value in the low byte).
// It serializes requests because the bridge forwards them to one i2c bus.
type Bus struct {
	mu     sync.Mutex
	closer func() error
	client modbus.Client
}

// Config is minimal transport config.
//
// Endpoint forms:
//
//	tcp://host:port
//	rtu:///dev/ttyUSB0
type Config struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration
	BaudRate int // RTU only
}

// New connects to the bridge.
func New(cfg Config) (*Bus, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("eeprom modbus: endpoint required")
	}

	switch {
	case strings.HasPrefix(cfg.Endpoint, "tcp://"):
		h := modbus.NewTCPClientHandler(strings.TrimPrefix(cfg.Endpoint, "tcp://"))
		h.Timeout = cfg.Timeout
		h.SlaveId = cfg.UnitID

		if err := h.Connect(); err != nil {
			return nil, fmt.Errorf("eeprom modbus: connect %s: %w", cfg.Endpoint, err)
		}
		return &Bus{closer: h.Close, client: modbus.NewClient(h)}, nil

	case strings.HasPrefix(cfg.Endpoint, "rtu://"):
		h := modbus.NewRTUClientHandler(strings.TrimPrefix(cfg.Endpoint, "rtu://"))
		h.BaudRate = cfg.BaudRate
		h.DataBits = 8
		h.Parity = "N"
		h.StopBits = 1
		h.Timeout = cfg.Timeout
		h.SlaveId = cfg.UnitID

		if err := h.Connect(); err != nil {
			return nil, fmt.Errorf("eeprom modbus: open %s: %w", cfg.Endpoint, err)
		}
		return &Bus{closer: h.Close, client: modbus.NewClient(h)}, nil

	default:
		return nil, fmt.Errorf("eeprom modbus: unsupported endpoint %q", cfg.Endpoint)
	}
}

// NewWithClient wraps an already connected client.
func NewWithClient(client modbus.Client) *Bus {
	return &Bus{client: client}
}

// Close closes the transport.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closer == nil {
		return nil
	}
	fn := b.closer
	b.closer = nil
	return fn()
}

// ---- eeprom.Bus ----

func (b *Bus) Write(addr uint16, p []byte) error {
	if len(p) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(p) == 1 {
		_, err := b.client.WriteSingleRegister(addr, uint16(p[0]))
		return err
	}

	_, err := b.client.WriteMultipleRegisters(addr, uint16(len(p)), packBytes(p))
	return err
}

func (b *Bus) Read(addr uint16, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	raw, err := b.client.ReadHoldingRegisters(addr, uint16(len(p)))
	if err != nil {
		return 0, err
	}
	return unpackBytes(raw, p), nil
}

// ---- helpers (pure geometry) ----

// packBytes widens each byte into one big-endian register.
func packBytes(p []byte) []byte {
	out := make([]byte, len(p)*2)
	for i, v := range p {
		out[2*i] = 0
		out[2*i+1] = v
	}
	return out
}

// unpackBytes takes the low byte of each register into dst.
// Returns the number of bytes filled.
func unpackBytes(raw []byte, dst []byte) int {
	n := len(raw) / 2
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = raw[2*i+1]
	}
	return n
}
