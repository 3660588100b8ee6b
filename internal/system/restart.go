// internal/system/restart.go
package system

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"github.com/tamzrod/battmon/internal/logging"
	"github.com/tamzrod/battmon/internal/metrics"
)

// Restart reasons.
const (
	ReasonProvisioned = "provisioned"
	ReasonRequested   = "requested"
)

// Restarter performs a full device restart. On success it does not return.
type Restarter interface {
	Restart(reason string) error
}

// RestarterFunc adapts a function to Restarter.
type RestarterFunc func(reason string) error

func (f RestarterFunc) Restart(reason string) error { return f(reason) }

// ExecRestarter replaces the running process with a fresh copy of itself,
// so the next boot re-reads persisted settings exactly as a power cycle would.
type ExecRestarter struct {
	// Flush runs before exec; storage and log files are closed here.
	Flush func()

	Rec metrics.Recorder
	Log *slog.Logger

	exec func(argv0 string, argv, envv []string) error
}

func (r *ExecRestarter) Restart(reason string) error {
	log := r.Log
	if log == nil {
		log = logging.Discard()
	}
	if r.Rec != nil {
		r.Rec.IncRestart(reason)
	}
	log.Warn("restarting", logging.Reason(reason))

	if r.Flush != nil {
		r.Flush()
	}

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("system: resolve executable: %w", err)
	}

	exec := r.exec
	if exec == nil {
		exec = unix.Exec
	}
	if err := exec(self, os.Args, os.Environ()); err != nil {
		return fmt.Errorf("system: exec %s: %w", self, err)
	}
	return nil
}
