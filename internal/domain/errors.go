package domain

import (
	"fmt"
	"time"
)

// CallErrorKind classifies a failed remote call
type CallErrorKind int

const (
	// CallUnreachable means the service is not owned or the bus could not deliver the call
	CallUnreachable CallErrorKind = iota
	// CallRemote means the service received the call and replied with an error
	CallRemote
)

func (k CallErrorKind) String() string {
	if k == CallRemote {
		return "remote"
	}
	return "unreachable"
}

// CallError is returned by Remote.Call
type CallError struct {
	Interface string
	Method    string
	Kind      CallErrorKind
	Err       error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("call %s.%s: %s: %v", e.Interface, e.Method, e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// ReadyTimeoutError is returned when the player does not answer the readiness
// probe within the configured bound
type ReadyTimeoutError struct {
	Timeout time.Duration
}

func (e *ReadyTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for player to become ready after %s", e.Timeout)
}
