// Package devdriver is a self-contained automation.Factory used for local
// development and demos. It speaks to no real messaging network: a fresh
// tenant is shown a credential challenge and becomes ready after a short
// simulated scan delay, a tenant with a persisted session blob reconnects
// straight to ready.
package devdriver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-message-triage/automation"
)

const defaultScanDelay = 3 * time.Second

var _ automation.Factory = (*Factory)(nil)

type Factory struct {
	// ScanDelay is how long the driver pretends the user takes to scan.
	ScanDelay time.Duration
}

func New() *Factory {
	return &Factory{ScanDelay: defaultScanDelay}
}

func (f *Factory) NewHandle(ctx context.Context, tenantID string, sessionBlob []byte) (automation.Handle, error) {
	h := &handle{
		events: make(chan automation.Event, 8),
		state:  "OPENING",
	}

	delay := f.ScanDelay
	if delay <= 0 {
		delay = defaultScanDelay
	}

	go h.run(tenantID, sessionBlob, delay)
	return h, nil
}

type handle struct {
	events    chan automation.Event
	state     string
	destroyed bool
	lock      sync.Mutex
}

func (h *handle) run(tenantID string, sessionBlob []byte, scanDelay time.Duration) {
	if len(sessionBlob) == 0 {
		challenge := fmt.Sprintf("dev-challenge:%s:%s", tenantID, uuid.New().String())
		if !h.send(automation.Event{Kind: automation.KindCredentialChallenge, Challenge: challenge}) {
			return
		}
		time.Sleep(scanDelay)
		sessionBlob = []byte(fmt.Sprintf(`{"driver":"dev","tenant":%q,"device":%q}`, tenantID, uuid.New().String()))
	}

	if !h.send(automation.Event{Kind: automation.KindAuthenticated, SessionBlob: sessionBlob}) {
		return
	}
	h.setState("CONNECTED")
	h.send(automation.Event{Kind: automation.KindReady})
}

// send delivers an event unless the handle was destroyed; it reports whether
// delivery happened.
func (h *handle) send(ev automation.Event) bool {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.destroyed {
		return false
	}
	select {
	case h.events <- ev:
		return true
	default:
		return false
	}
}

func (h *handle) setState(state string) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.state = state
}

func (h *handle) Events() <-chan automation.Event {
	return h.events
}

func (h *handle) CurrentState() string {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.state
}

func (h *handle) Destroy() error {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.destroyed {
		return nil
	}
	h.destroyed = true
	h.state = "DESTROYED"
	close(h.events)
	return nil
}
