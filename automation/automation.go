// Package automation defines the narrow contract the core uses to drive one
// live messaging-network session per tenant. The mechanics behind a Handle
// (wire protocol, browser automation) are deliberately opaque: the core only
// consumes the event stream and tears the session down.
package automation

import (
	"context"
	"time"
)

// EventKind identifies a lifecycle or message event emitted by a Handle.
type EventKind int

const (
	// KindCredentialChallenge carries a raw challenge the user must scan.
	KindCredentialChallenge EventKind = iota + 1
	// KindAuthenticated carries the session blob to persist for reuse.
	KindAuthenticated
	// KindReady signals the session is connected and delivering messages.
	KindReady
	// KindAuthFailure signals credential verification failed.
	KindAuthFailure
	// KindDisconnected signals remote logout or network loss.
	KindDisconnected
	// KindMessage carries one inbound message.
	KindMessage
)

// Event is one item on a Handle's event stream. Only the fields relevant to
// the Kind are populated.
type Event struct {
	Kind        EventKind
	Challenge   string          // KindCredentialChallenge
	SessionBlob []byte          // KindAuthenticated
	Reason      string          // KindAuthFailure, KindDisconnected
	Message     *InboundMessage // KindMessage
}

// InboundMessage is a message received on a tenant's session. Media is nil
// for plain text messages.
type InboundMessage struct {
	SenderID   string
	Body       string
	Media      *Media
	ReceivedAt time.Time
}

// Media is the downloaded payload of a media message.
type Media struct {
	MimeType string
	Data     []byte
}

// Handle represents one live session. Events are delivered sequentially for
// the tenant that owns the handle; the channel is closed when the session
// ends or the handle is destroyed.
type Handle interface {
	// Events returns the handle's event stream.
	Events() <-chan Event

	// CurrentState reports the driver's own view of the connection,
	// for diagnostics only.
	CurrentState() string

	// Destroy tears the underlying session down and closes the event
	// stream. Safe to call more than once.
	Destroy() error
}

// Factory creates a Handle for a tenant. sessionBlob is the previously
// persisted credential, or nil for a fresh authentication.
type Factory interface {
	NewHandle(ctx context.Context, tenantID string, sessionBlob []byte) (Handle, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context, tenantID string, sessionBlob []byte) (Handle, error)

func (f FactoryFunc) NewHandle(ctx context.Context, tenantID string, sessionBlob []byte) (Handle, error) {
	return f(ctx, tenantID, sessionBlob)
}
