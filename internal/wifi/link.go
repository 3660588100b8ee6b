// internal/wifi/link.go
package wifi

import "net/netip"

// Status is the station side of the radio as seen by one poll.
type Status struct {
	Joined bool
	Addr   netip.Addr // valid only when Joined
}

// Link abstracts the radio. The access point is assumed to be always up;
// the link only controls the station side.
type Link interface {
	// EnableDualMode keeps the access point serving while the station joins.
	EnableDualMode() error

	// Join starts associating with the target network. It must not block
	// until association completes; progress is observed through Status.
	Join(ssid, password string) error

	// Status reports the current station state. Cheap; called every poll.
	Status() Status

	Close() error
}
