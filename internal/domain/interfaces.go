package domain

import (
	"context"
	"time"
)

// Remote defines the interface for talking to the supervised player over the bus.
// Implementations should handle D-Bus/MPRIS communication
//
//go:generate mockgen -destination=mocks/remote_mock.go -package=mocks github.com/genricoloni/adskip/internal/domain Remote,Prober
type Remote interface {
	// Call invokes interface.method on the player object with no arguments.
	// Fails with a *CallError whose Kind tells unreachable from remote failures.
	Call(ctx context.Context, iface, method string) error

	// SubscribeProperties returns an ordered stream of property change
	// notifications for the player object. The channel is closed when the
	// connection goes away or ctx is cancelled; it cannot be resubscribed.
	SubscribeProperties(ctx context.Context) (<-chan PropertiesChanged, error)

	// SubscribeOwnership returns an ordered stream of ownership transitions
	// of the player's well-known name. Closed under the same conditions.
	SubscribeOwnership(ctx context.Context) (<-chan OwnershipEvent, error)
}

// Prober waits for a freshly spawned player to answer on the bus
type Prober interface {
	// WaitReady repeats a no-op call until it succeeds or timeout elapses,
	// in which case it returns a *ReadyTimeoutError
	WaitReady(ctx context.Context, timeout time.Duration) error
}

// Launcher spawns player processes
type Launcher interface {
	// Spawn starts the player with its presentation hint. The returned
	// process is owned by the caller.
	Spawn(ctx context.Context) (Process, error)
}

// Process is a handle on a live player process
type Process interface {
	// Pid returns the OS process id
	Pid() int

	// KillAndWait terminates the process and blocks until it has exited
	KillAndWait() error

	// HasExited reports whether the process is gone without blocking
	HasExited() ExitState
}

// Config defines the interface for application configuration
type Config interface {
	// GetPlayerBinary returns the executable spawned for the player
	GetPlayerBinary() string

	// GetPlayerArgs returns the arguments passed to the player
	GetPlayerArgs() []string

	// GetServiceName returns the well-known bus name of the player
	GetServiceName() string

	// GetObjectPath returns the MPRIS object path of the player
	GetObjectPath() string

	// GetKillGrace returns how long to wait after SIGTERM before SIGKILL
	GetKillGrace() time.Duration

	// GetStartupTimeout returns the readiness bound for the first start
	GetStartupTimeout() time.Duration

	// GetRestartTimeout returns the readiness bound after a restart
	GetRestartTimeout() time.Duration

	// GetProbeInterval returns the delay between readiness probes
	GetProbeInterval() time.Duration

	// GetLenientCommands reports whether Play/Next failures after a
	// successful respawn are swallowed instead of being fatal
	GetLenientCommands() bool

	// GetClassifierMode returns the ad classifier to use
	GetClassifierMode() string
}
