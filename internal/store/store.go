// internal/store/store.go
package store

import (
	"encoding/binary"
	"log/slog"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tamzrod/battmon/internal/eeprom"
	"github.com/tamzrod/battmon/internal/logging"
	"github.com/tamzrod/battmon/internal/metrics"
)

// DefaultSettleDelay is the AT24Cxx internal write cycle time.
const DefaultSettleDelay = 5 * time.Millisecond

// Store is byte-exact typed persistence over an eeprom.Bus.
//
// Scalars are stored as their raw little-endian 4-byte representation,
// one bus transaction per byte. A 4-byte write is therefore NOT atomic
// with respect to power loss: an interruption can leave a torn value.
//
// I/O is best-effort. Bus errors and absent devices look the same
// (short reads); nothing is retried and nothing is raised.
type Store struct {
	bus    eeprom.Bus
	clock  clockwork.Clock
	settle time.Duration
	rec    metrics.Recorder
	log    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock injects the clock used for settle delays.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithSettleDelay overrides the per-write settle delay. Zero disables it.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Store) { s.settle = d }
}

// WithRecorder attaches metrics.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Store) { s.rec = r }
}

// WithLogger attaches a logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New wraps bus.
func New(bus eeprom.Bus, opts ...Option) *Store {
	s := &Store{
		bus:    bus,
		clock:  clockwork.NewRealClock(),
		settle: DefaultSettleDelay,
		rec:    metrics.NoopRecorder{},
		log:    logging.Discard(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ---- scalars ----

// WriteFloat32 persists v at addr..addr+3.
func (s *Store) WriteFloat32(addr uint16, v float32) {
	s.writeWord(addr, math.Float32bits(v))
}

// WriteUint32 persists v at addr..addr+3.
func (s *Store) WriteUint32(addr uint16, v uint32) {
	s.writeWord(addr, v)
}

// ReadFloat32 reads addr..addr+3.
// ok is false when any byte could not be read; unread bytes are zero.
func (s *Store) ReadFloat32(addr uint16) (float32, bool) {
	w, ok := s.readWord(addr)
	return math.Float32frombits(w), ok
}

// ReadUint32 reads addr..addr+3.
// ok is false when any byte could not be read; unread bytes are zero.
func (s *Store) ReadUint32(addr uint16) (uint32, bool) {
	return s.readWord(addr)
}

func (s *Store) writeWord(addr uint16, w uint32) {
	var raw [4]byte
	binary.LittleEndian.PutUint32(raw[:], w)

	for i := 0; i < len(raw); i++ {
		a := addr + uint16(i)
		if err := s.bus.Write(a, raw[i:i+1]); err != nil {
			// Best-effort: keep going, the caller may read back.
			s.rec.IncStoreWriteError()
			s.log.Warn("eeprom byte write failed", logging.Addr(a), logging.Error(err))
		} else {
			s.rec.AddStoreBytesWritten(1)
		}
		s.sleepSettle()
	}
}

func (s *Store) readWord(addr uint16) (uint32, bool) {
	var raw [4]byte
	ok := true

	for i := 0; i < len(raw); i++ {
		a := addr + uint16(i)
		n, err := s.bus.Read(a, raw[i:i+1])
		if err != nil || n != 1 {
			ok = false
			s.log.Debug("eeprom byte read short", logging.Addr(a), logging.Error(err))
		}
	}

	if !ok {
		s.rec.IncStoreShortRead()
	}
	return binary.LittleEndian.Uint32(raw[:]), ok
}

// ---- bounded strings ----

// WriteString persists value followed by one 0x00 terminator in a single
// transaction. maxLen is the slot width; the caller must ensure
// len(value) < maxLen or the write spills into the next slot.
func (s *Store) WriteString(addr uint16, value string, maxLen int) {
	if len(value) >= maxLen {
		s.log.Warn("eeprom string exceeds slot", logging.Addr(addr), slog.Int("len", len(value)), slog.Int("max", maxLen))
	}

	frame := make([]byte, 0, len(value)+1)
	frame = append(frame, value...)
	frame = append(frame, 0x00)

	if err := s.bus.Write(addr, frame); err != nil {
		s.rec.IncStoreWriteError()
		s.log.Warn("eeprom string write failed", logging.Addr(addr), logging.Error(err))
	} else {
		s.rec.AddStoreBytesWritten(len(frame))
	}
	s.sleepSettle()
}

// ReadString reads at most maxLen-1 bytes from addr, stopping at the bus's
// short count or the first terminator.
func (s *Store) ReadString(addr uint16, maxLen int) string {
	if maxLen <= 1 {
		return ""
	}

	buf := make([]byte, maxLen)
	n, err := s.bus.Read(addr, buf)
	if err != nil {
		s.rec.IncStoreShortRead()
		s.log.Debug("eeprom string read failed", logging.Addr(addr), logging.Error(err))
		return ""
	}
	if n < maxLen {
		s.rec.IncStoreShortRead()
	}

	if n > maxLen-1 {
		n = maxLen - 1
	}
	for i := 0; i < n; i++ {
		if buf[i] == 0x00 {
			return string(buf[:i])
		}
	}
	return string(buf[:n])
}

func (s *Store) sleepSettle() {
	if s.settle > 0 {
		s.clock.Sleep(s.settle)
	}
}
