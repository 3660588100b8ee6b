// internal/provision/attempt_test.go
package provision

import (
	"net/netip"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tamzrod/battmon/internal/registry"
	"github.com/tamzrod/battmon/internal/wifi"
)

func TestAttempt_TimesOutOnBudget(t *testing.T) {
	clk := clockwork.NewFakeClock()
	a := NewAttempt(registry.Credentials{SSID: "Net"}, clk.Now(), 20*time.Second)

	clk.Advance(19 * time.Second)
	if got := a.Poll(clk.Now(), wifi.Status{}); got != Pending {
		t.Fatalf("at 19s: got %s, want pending", got)
	}

	clk.Advance(time.Second)
	if got := a.Poll(clk.Now(), wifi.Status{}); got != Failed {
		t.Fatalf("at 20s: got %s, want failed", got)
	}

	if o := a.Outcome(); o != (Outcome{Status: StatusNotConnected, StaIP: ""}) {
		t.Fatalf("unexpected outcome %+v", o)
	}
}

func TestAttempt_ConnectsBeforeBudget(t *testing.T) {
	clk := clockwork.NewFakeClock()
	a := NewAttempt(registry.Credentials{SSID: "Net"}, clk.Now(), 20*time.Second)
	addr := netip.MustParseAddr("192.168.1.50")

	clk.Advance(3 * time.Second)
	if got := a.Poll(clk.Now(), wifi.Status{Joined: true, Addr: addr}); got != Connected {
		t.Fatalf("got %s, want connected", got)
	}
	if a.Addr != addr {
		t.Fatalf("addr = %s, want %s", a.Addr, addr)
	}
	if o := a.Outcome(); o != (Outcome{Status: StatusOK, StaIP: "192.168.1.50"}) {
		t.Fatalf("unexpected outcome %+v", o)
	}
}

func TestAttempt_JoinOnDeadlinePollCounts(t *testing.T) {
	clk := clockwork.NewFakeClock()
	a := NewAttempt(registry.Credentials{SSID: "Net"}, clk.Now(), time.Second)

	clk.Advance(time.Second)
	if got := a.Poll(clk.Now(), wifi.Status{Joined: true, Addr: netip.MustParseAddr("10.0.0.2")}); got != Connected {
		t.Fatalf("got %s, want connected", got)
	}
}

func TestAttempt_TerminalIsSticky(t *testing.T) {
	clk := clockwork.NewFakeClock()
	a := NewAttempt(registry.Credentials{SSID: "Net"}, clk.Now(), time.Second)

	clk.Advance(2 * time.Second)
	a.Poll(clk.Now(), wifi.Status{})
	if got := a.Poll(clk.Now(), wifi.Status{Joined: true, Addr: netip.MustParseAddr("10.0.0.2")}); got != Failed {
		t.Fatalf("failed attempt resurrected: %s", got)
	}
}

func TestAttempt_FailEndsPending(t *testing.T) {
	clk := clockwork.NewFakeClock()
	a := NewAttempt(registry.Credentials{SSID: "Net"}, clk.Now(), time.Hour)

	a.Fail()
	if got := a.Poll(clk.Now(), wifi.Status{}); got != Failed {
		t.Fatalf("got %s, want failed", got)
	}
}
