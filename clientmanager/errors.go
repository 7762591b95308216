package clientmanager

import "errors"

var (
	// ErrInitializationTimeout is returned when a session creation reaches
	// neither a credential challenge nor readiness within the configured
	// timeout. The tenant is left Failed and can be acquired again.
	ErrInitializationTimeout = errors.New("session initialization timed out")

	// ErrAuthenticationFailure is returned when the messaging network
	// rejects the tenant's credentials. Retry by acquiring again.
	ErrAuthenticationFailure = errors.New("authentication failure")

	// ErrSessionDisconnected is returned to acquirers whose pending
	// creation ended in a disconnect before becoming usable.
	ErrSessionDisconnected = errors.New("session disconnected")

	// ErrSessionReleased is returned to acquirers whose pending creation
	// was torn down by a concurrent release.
	ErrSessionReleased = errors.New("session released")
)
