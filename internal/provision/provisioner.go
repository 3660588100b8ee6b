// internal/provision/provisioner.go
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tamzrod/battmon/internal/logging"
	"github.com/tamzrod/battmon/internal/metrics"
	"github.com/tamzrod/battmon/internal/registry"
	"github.com/tamzrod/battmon/internal/system"
	"github.com/tamzrod/battmon/internal/wifi"
)

// ErrBusy rejects a submission while another one is in progress or its
// restart is pending.
var ErrBusy = errors.New("provision: attempt in progress")

// Config holds the fixed timings of a join.
type Config struct {
	JoinTimeout  time.Duration
	PollInterval time.Duration
	Grace        time.Duration
}

// DefaultConfig returns the device timings.
func DefaultConfig() Config {
	return Config{
		JoinTimeout:  20 * time.Second,
		PollInterval: 10 * time.Millisecond,
		Grace:        1500 * time.Millisecond,
	}
}

// Provisioner moves the device from standalone to joined.
// Not safe for concurrent use: the control loop owns it.
type Provisioner struct {
	cfg       Config
	clock     clockwork.Clock
	reg       *registry.Registry
	link      wifi.Link
	restarter system.Restarter
	yield     func() int
	rec       metrics.Recorder
	log       *slog.Logger

	state State
	addr  netip.Addr
}

// Option configures a Provisioner.
type Option func(*Provisioner)

func WithClock(c clockwork.Clock) Option {
	return func(p *Provisioner) { p.clock = c }
}

// WithYield sets the function run between polls so pending requests are
// served during the join wait. loop.Loop.ServePending fits.
func WithYield(fn func() int) Option {
	return func(p *Provisioner) { p.yield = fn }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(p *Provisioner) { p.rec = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Provisioner) { p.log = l }
}

// New returns a provisioner in Standalone.
func New(cfg Config, reg *registry.Registry, link wifi.Link, restarter system.Restarter, opts ...Option) (*Provisioner, error) {
	if reg == nil || link == nil || restarter == nil {
		return nil, errors.New("provision: registry, link and restarter are required")
	}
	if cfg.JoinTimeout <= 0 || cfg.PollInterval <= 0 || cfg.Grace < 0 {
		return nil, fmt.Errorf("provision: invalid timings %+v", cfg)
	}

	p := &Provisioner{
		cfg:       cfg,
		clock:     clockwork.NewRealClock(),
		reg:       reg,
		link:      link,
		restarter: restarter,
		yield:     func() int { return 0 },
		rec:       metrics.NoopRecorder{},
		log:       logging.Discard(),
		state:     Standalone,
	}
	for _, fn := range opts {
		fn(p)
	}
	return p, nil
}

// State returns the current provisioning state.
func (p *Provisioner) State() State {
	return p.state
}

// StationAddr returns the address obtained by the last successful join.
func (p *Provisioner) StationAddr() (netip.Addr, bool) {
	return p.addr, p.addr.IsValid()
}

// Submit runs a full credential submission: persist, join within the
// budget, respond, wait the grace period, restart. Every accepted
// submission ends in a restart, whatever the join outcome. Requests that
// arrive during the grace period are served and see RebootPending.
//
// respond is called exactly once, before the grace wait, unless Submit
// returns an error first.
func (p *Provisioner) Submit(ctx context.Context, creds registry.Credentials, respond func(Outcome)) error {
	if !p.state.accepting() {
		p.rec.IncProvisionOutcome(metrics.OutcomeRejected)
		p.log.WarnContext(ctx, "credential submission rejected", logging.State(p.state.String()))
		return ErrBusy
	}

	// persisting validates; nothing changes on rejection
	if err := p.reg.SetCredentials(creds); err != nil {
		return err
	}

	p.setState(ctx, Connecting)
	if err := p.link.EnableDualMode(); err != nil {
		p.log.WarnContext(ctx, "dual mode not enabled", logging.Error(err))
	}

	a := p.join(ctx, creds)

	if a.Status == Connected {
		p.addr = a.Addr
		p.setState(ctx, Joined)
		p.rec.IncProvisionOutcome(metrics.OutcomeJoined)
		p.log.InfoContext(ctx, "joined network", logging.SSID(creds.SSID), logging.IP(a.Addr))
	} else {
		p.setState(ctx, JoinFailed)
		p.rec.IncProvisionOutcome(metrics.OutcomeFailed)
		p.log.WarnContext(ctx, "join failed", logging.SSID(creds.SSID))
	}

	out := a.Outcome()
	p.setState(ctx, RebootPending)
	respond(out)

	p.graceWait(p.cfg.Grace)
	if err := p.restarter.Restart(system.ReasonProvisioned); err != nil {
		p.log.ErrorContext(ctx, "restart failed", logging.Error(err))
		return fmt.Errorf("provision: restart: %w", err)
	}
	return nil
}

// Boot joins the persisted network once at start-up. Success leaves the
// device Joined; failure returns it to Standalone without a restart.
func (p *Provisioner) Boot(ctx context.Context) {
	creds := p.reg.Credentials()
	if creds.SSID == "" {
		p.log.InfoContext(ctx, "no stored network, staying standalone")
		return
	}
	if p.state != Standalone {
		return
	}

	p.setState(ctx, Connecting)
	if err := p.link.EnableDualMode(); err != nil {
		p.log.WarnContext(ctx, "dual mode not enabled", logging.Error(err))
	}

	a := p.join(ctx, creds)
	if a.Status == Connected {
		p.addr = a.Addr
		p.setState(ctx, Joined)
		p.rec.IncProvisionOutcome(metrics.OutcomeJoined)
		p.log.InfoContext(ctx, "joined stored network", logging.SSID(creds.SSID), logging.IP(a.Addr))
		return
	}

	p.setState(ctx, Standalone)
	p.rec.IncProvisionOutcome(metrics.OutcomeFailed)
	p.log.WarnContext(ctx, "stored network unreachable, staying standalone", logging.SSID(creds.SSID))
}

// ---- internals ----

// join runs the bounded polling loop. Between polls it yields to pending
// requests, then sleeps one poll interval.
func (p *Provisioner) join(ctx context.Context, creds registry.Credentials) *Attempt {
	a := NewAttempt(creds, p.clock.Now(), p.cfg.JoinTimeout)

	if err := p.link.Join(creds.SSID, creds.Password); err != nil {
		p.log.WarnContext(ctx, "join request refused", logging.SSID(creds.SSID), logging.Error(err))
		a.Fail()
	}

	for a.Poll(p.clock.Now(), p.link.Status()) == Pending {
		p.yield()
		p.clock.Sleep(p.cfg.PollInterval)
	}

	p.rec.ObserveJoinDuration(p.clock.Since(a.Start))
	return a
}

// graceWait sleeps d in poll-interval steps, yielding before each step
// and once more at the deadline.
func (p *Provisioner) graceWait(d time.Duration) {
	deadline := p.clock.Now().Add(d)
	for {
		p.yield()
		left := deadline.Sub(p.clock.Now())
		if left <= 0 {
			return
		}
		p.clock.Sleep(min(left, p.cfg.PollInterval))
	}
}

func (p *Provisioner) setState(ctx context.Context, s State) {
	if p.state == s {
		return
	}
	p.log.DebugContext(ctx, "provisioning state", slog.String("from", p.state.String()), logging.State(s.String()))
	p.state = s
}
