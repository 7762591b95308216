package clientmanager

import (
	"github.com/jrsteele09/go-message-triage/automation"
)

// State is the lifecycle state of a tenant's session.
type State string

const (
	StateInitializing State = "initializing"
	StateAwaitingScan State = "awaiting_scan"
	StateReady        State = "ready"
	StateDisconnected State = "disconnected"
	StateFailed       State = "failed"
)

// Status is the caller-visible view of a tenant's session. QRPayload is only
// populated while the session is awaiting a credential scan.
type Status struct {
	State     State  `json:"state"`
	QRPayload string `json:"qr,omitempty"`
}

// TenantSession is the manager's in-memory record of one tenant's session.
// At most one exists per tenant; all fields are guarded by the manager lock.
type TenantSession struct {
	tenantID  string
	state     State
	qrPayload string
	handle    automation.Handle
}

// live reports whether the session can be handed to an acquirer as-is.
// Disconnected and Failed sessions are tombstones a new acquire replaces.
func (ts *TenantSession) live() bool {
	switch ts.state {
	case StateInitializing, StateAwaitingScan, StateReady:
		return true
	}
	return false
}

func (ts *TenantSession) statusLocked() Status {
	status := Status{State: ts.state}
	if ts.state == StateAwaitingScan {
		status.QRPayload = ts.qrPayload
	}
	return status
}
