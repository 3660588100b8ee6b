// internal/eeprom/memory.go
package eeprom

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// erased is the content of a never-written EEPROM cell.
const erased = 0xFF

// Memory is an in-process EEPROM image.
// When opened with OpenImage every write is mirrored to the backing file,
// so a simulated device keeps its settings across restarts.
type Memory struct {
	mu   sync.Mutex
	data []byte
	file *os.File
}

// NewMemory returns an erased image of the given size.
func NewMemory(size int) *Memory {
	data := make([]byte, size)
	for i := range data {
		data[i] = erased
	}
	return &Memory{data: data}
}

// OpenImage opens (or creates) a backing image file of exactly size bytes.
// A shorter existing file is padded with erased cells.
func OpenImage(path string, size int) (*Memory, error) {
	if path == "" {
		return nil, errors.New("eeprom: image path required")
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("eeprom: open image: %w", err)
	}

	m := NewMemory(size)

	n, err := io.ReadFull(f, m.data)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		_ = f.Close()
		return nil, fmt.Errorf("eeprom: read image: %w", err)
	}
	if n < size {
		if _, err := f.WriteAt(m.data[n:], int64(n)); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("eeprom: pad image: %w", err)
		}
	}

	m.file = f
	return m, nil
}

// Size returns the device capacity in bytes.
func (m *Memory) Size() int {
	return len(m.data)
}

func (m *Memory) Write(addr uint16, p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := int(addr)
	if start+len(p) > len(m.data) {
		return fmt.Errorf("%w: write %d bytes at %d (size %d)", ErrOutOfRange, len(p), addr, len(m.data))
	}

	copy(m.data[start:], p)

	if m.file != nil {
		if _, err := m.file.WriteAt(p, int64(start)); err != nil {
			return fmt.Errorf("eeprom: image write: %w", err)
		}
	}
	return nil
}

func (m *Memory) Read(addr uint16, p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := int(addr)
	if start >= len(m.data) {
		return 0, fmt.Errorf("%w: read at %d (size %d)", ErrOutOfRange, addr, len(m.data))
	}
	return copy(p, m.data[start:]), nil
}

// Close syncs and closes the backing file, if any.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		return nil
	}
	f := m.file
	m.file = nil
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
