// internal/provision/attempt.go
package provision

import (
	"net/netip"
	"time"

	"github.com/tamzrod/battmon/internal/registry"
	"github.com/tamzrod/battmon/internal/wifi"
)

// AttemptStatus is the progress of one join attempt.
type AttemptStatus int

const (
	Pending AttemptStatus = iota
	Connected
	Failed
)

func (s AttemptStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Attempt is one bounded join. It lives for a single submission and is
// never persisted.
type Attempt struct {
	Target registry.Credentials
	Start  time.Time
	Budget time.Duration
	Status AttemptStatus
	Addr   netip.Addr // set only when Connected
}

// NewAttempt starts an attempt at start with the given budget.
func NewAttempt(target registry.Credentials, start time.Time, budget time.Duration) *Attempt {
	return &Attempt{Target: target, Start: start, Budget: budget}
}

// Poll advances the attempt by one observation of the link. Terminal
// statuses are sticky. A join observed on the deadline poll still counts.
func (a *Attempt) Poll(now time.Time, st wifi.Status) AttemptStatus {
	if a.Status != Pending {
		return a.Status
	}

	if st.Joined {
		a.Status = Connected
		a.Addr = st.Addr
		return a.Status
	}

	if now.Sub(a.Start) >= a.Budget {
		a.Status = Failed
	}
	return a.Status
}

// Fail ends a pending attempt early, e.g. when the link refused the join.
func (a *Attempt) Fail() {
	if a.Status == Pending {
		a.Status = Failed
	}
}

// ---- outcome ----

// Outcome status markers.
const (
	StatusOK           = "OK"
	StatusNotConnected = "NOT_CONNECTED"
)

// Outcome is the response body sent before restart.
type Outcome struct {
	Status string `json:"status"`
	StaIP  string `json:"sta_ip"`
}

// Outcome describes a finished attempt.
func (a *Attempt) Outcome() Outcome {
	if a.Status == Connected && a.Addr.IsValid() {
		return Outcome{Status: StatusOK, StaIP: a.Addr.String()}
	}
	return Outcome{Status: StatusNotConnected, StaIP: ""}
}
