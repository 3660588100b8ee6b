// internal/provision/state.go
package provision

// State is the provisioning state of the device.
type State int

const (
	Standalone State = iota // access point only
	Connecting
	Joined
	JoinFailed
	RebootPending
)

func (s State) String() string {
	switch s {
	case Standalone:
		return "standalone"
	case Connecting:
		return "connecting"
	case Joined:
		return "joined"
	case JoinFailed:
		return "join_failed"
	case RebootPending:
		return "reboot_pending"
	default:
		return "unknown"
	}
}

// accepting reports whether a new credential submission may start.
func (s State) accepting() bool {
	return s == Standalone || s == Joined
}
