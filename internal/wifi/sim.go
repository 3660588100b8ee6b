// internal/wifi/sim.go
package wifi

import (
	"errors"
	"net/netip"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// SimConfig drives the simulated radio.
type SimConfig struct {
	JoinAfter  time.Duration // association delay after Join
	Addr       netip.Addr    // address handed out on success
	AcceptSSID string        // empty accepts any SSID
	AcceptPass string        // empty accepts any password
}

// Sim is a clock-driven stand-in for a real radio, used on hosts without
// WiFi hardware and in tests.
type Sim struct {
	mu    sync.Mutex
	cfg   SimConfig
	clock clockwork.Clock

	dual      bool
	joining   bool
	accepted  bool
	joinStart time.Time
	joins     []string
}

// NewSim returns a simulated link. A nil clock uses the real clock.
func NewSim(cfg SimConfig, clock clockwork.Clock) *Sim {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Sim{cfg: cfg, clock: clock}
}

func (s *Sim) EnableDualMode() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dual = true
	return nil
}

func (s *Sim) Join(ssid, password string) error {
	if ssid == "" {
		return errors.New("wifi sim: empty ssid")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.joining = true
	s.joinStart = s.clock.Now()
	s.accepted = (s.cfg.AcceptSSID == "" || s.cfg.AcceptSSID == ssid) &&
		(s.cfg.AcceptPass == "" || s.cfg.AcceptPass == password)
	s.joins = append(s.joins, ssid)
	return nil
}

func (s *Sim) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.joining || !s.accepted {
		return Status{}
	}
	if s.clock.Since(s.joinStart) < s.cfg.JoinAfter {
		return Status{}
	}
	return Status{Joined: true, Addr: s.cfg.Addr}
}

// DualMode reports whether EnableDualMode was called.
func (s *Sim) DualMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dual
}

// Joins returns the SSIDs passed to Join, in order.
func (s *Sim) Joins() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.joins))
	copy(out, s.joins)
	return out
}

func (s *Sim) Close() error { return nil }
