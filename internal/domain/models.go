package domain

import "fmt"

// MPRIS and D-Bus names used by the supervisor
const (
	PlayerInterface = "org.mpris.MediaPlayer2.Player"
	PeerInterface   = "org.freedesktop.DBus.Peer"

	MethodPing = "Ping"
	MethodPlay = "Play"
	MethodNext = "Next"

	MetadataProperty = "Metadata"
	TrackIDKey       = "mpris:trackid"
)

// TrackID is the opaque identifier of the track a player reports as current
type TrackID string

// PropertiesChanged is a decoded org.freedesktop.DBus.Properties.PropertiesChanged
// notification. Nested variants are already unwrapped into plain Go values.
type PropertiesChanged struct {
	// Interface whose properties changed (unused by the supervisor)
	Interface string
	// Changed maps property names to their new values
	Changed map[string]any
	// Invalidated lists properties whose values were dropped (unused by the supervisor)
	Invalidated []string
}

// TrackID extracts Metadata["mpris:trackid"]. The second return value is false
// when the notification carries no metadata or the metadata has no track id.
func (p PropertiesChanged) TrackID() (TrackID, bool) {
	raw, ok := p.Changed[MetadataProperty]
	if !ok {
		return "", false
	}
	metadata, ok := raw.(map[string]any)
	if !ok {
		return "", false
	}
	id, ok := metadata[TrackIDKey].(string)
	if !ok {
		return "", false
	}
	return TrackID(id), true
}

// OwnershipKind tags an ownership transition of the player's well-known name
type OwnershipKind int

const (
	// OwnerGained means a process now owns the well-known name
	OwnerGained OwnershipKind = iota
	// OwnerLost means no process owns the well-known name
	OwnerLost
)

func (k OwnershipKind) String() string {
	switch k {
	case OwnerGained:
		return "gained"
	case OwnerLost:
		return "lost"
	default:
		return fmt.Sprintf("OwnershipKind(%d)", int(k))
	}
}

// OwnershipEvent is emitted once per ownership transition
type OwnershipEvent struct {
	Kind OwnershipKind
	// Owner is the unique name of the new owner, empty when lost
	Owner string
}

// OwnerLossPolicy decides what the supervisor does with the next ownership loss
type OwnerLossPolicy int

const (
	// ExitOnLoss ends supervision on an ownership loss
	ExitOnLoss OwnerLossPolicy = iota
	// IgnoreNextLoss swallows exactly one ownership loss, the one caused by our own restart
	IgnoreNextLoss
)

func (p OwnerLossPolicy) String() string {
	switch p {
	case ExitOnLoss:
		return "exit-on-loss"
	case IgnoreNextLoss:
		return "ignore-next-loss"
	default:
		return fmt.Sprintf("OwnerLossPolicy(%d)", int(p))
	}
}

// ExitState is the tri-state answer to "has the player process exited?"
type ExitState int

const (
	ProcessRunning ExitState = iota
	ProcessExited
	// ProcessUnknown is reported when the state cannot be determined
	ProcessUnknown
)

func (s ExitState) String() string {
	switch s {
	case ProcessRunning:
		return "running"
	case ProcessExited:
		return "exited"
	default:
		return "unknown"
	}
}
