// internal/metrics/recorder.go
package metrics

import "time"

// Outcome labels for provisioning attempts.
const (
	OutcomeJoined   = "joined"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// Recorder is the observability hook set used by the store, the registry and
// the provisioner. Implementations must tolerate being called from the
// control loop at byte granularity.
type Recorder interface {
	AddStoreBytesWritten(n int)
	IncStoreWriteError()
	IncStoreShortRead()
	IncVerifyMismatch(key string)
	IncSettingsUpdate(key string)
	IncProvisionOutcome(outcome string)
	ObserveJoinDuration(d time.Duration)
	IncRestart(reason string)
}

// NoopRecorder is the default when metrics are not configured.
type NoopRecorder struct{}

func (NoopRecorder) AddStoreBytesWritten(int)          {}
func (NoopRecorder) IncStoreWriteError()               {}
func (NoopRecorder) IncStoreShortRead()                {}
func (NoopRecorder) IncVerifyMismatch(string)          {}
func (NoopRecorder) IncSettingsUpdate(string)          {}
func (NoopRecorder) IncProvisionOutcome(string)        {}
func (NoopRecorder) ObserveJoinDuration(time.Duration) {}
func (NoopRecorder) IncRestart(string)                 {}
