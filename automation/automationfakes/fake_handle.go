package automationfakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-message-triage/automation"
)

var _ automation.Handle = (*FakeHandle)(nil)

// FakeHandle is a scriptable automation.Handle for tests. Tests push events
// with Emit and close the stream with Finish or Destroy.
type FakeHandle struct {
	TenantID    string
	SessionBlob []byte

	events    chan automation.Event
	state     string
	destroyed bool
	lock      sync.Mutex
}

func NewFakeHandle(tenantID string) *FakeHandle {
	return &FakeHandle{
		TenantID: tenantID,
		events:   make(chan automation.Event, 16),
		state:    "OPENING",
	}
}

func (h *FakeHandle) Events() <-chan automation.Event {
	return h.events
}

func (h *FakeHandle) CurrentState() string {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.state
}

func (h *FakeHandle) SetState(state string) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.state = state
}

func (h *FakeHandle) Destroy() error {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.destroyed {
		return nil
	}
	h.destroyed = true
	close(h.events)
	return nil
}

// Destroyed reports whether Destroy has been called.
func (h *FakeHandle) Destroyed() bool {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.destroyed
}

// Emit delivers one event to the consumer. Panics if the handle was already
// destroyed, which is a test authoring error.
func (h *FakeHandle) Emit(ev automation.Event) {
	h.events <- ev
}

// EmitChallenge, EmitAuthenticated, EmitReady, EmitAuthFailure,
// EmitDisconnected and EmitMessage are shorthands for common scripts.

func (h *FakeHandle) EmitChallenge(challenge string) {
	h.Emit(automation.Event{Kind: automation.KindCredentialChallenge, Challenge: challenge})
}

func (h *FakeHandle) EmitAuthenticated(blob []byte) {
	h.Emit(automation.Event{Kind: automation.KindAuthenticated, SessionBlob: blob})
}

func (h *FakeHandle) EmitReady() {
	h.SetState("CONNECTED")
	h.Emit(automation.Event{Kind: automation.KindReady})
}

func (h *FakeHandle) EmitAuthFailure(reason string) {
	h.Emit(automation.Event{Kind: automation.KindAuthFailure, Reason: reason})
}

func (h *FakeHandle) EmitDisconnected(reason string) {
	h.Emit(automation.Event{Kind: automation.KindDisconnected, Reason: reason})
}

func (h *FakeHandle) EmitMessage(msg automation.InboundMessage) {
	h.Emit(automation.Event{Kind: automation.KindMessage, Message: &msg})
}

var _ automation.Factory = (*FakeFactory)(nil)

// FakeFactory records every NewHandle call and hands out pre-registered or
// freshly created FakeHandles.
type FakeFactory struct {
	lock    sync.Mutex
	handles map[string]*FakeHandle
	calls   []string
	err     error
}

func NewFakeFactory() *FakeFactory {
	return &FakeFactory{handles: make(map[string]*FakeHandle)}
}

// FailWith makes subsequent NewHandle calls return err.
func (f *FakeFactory) FailWith(err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.err = err
}

// Register installs the handle NewHandle will return for tenantID.
func (f *FakeFactory) Register(tenantID string, handle *FakeHandle) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.handles[tenantID] = handle
}

func (f *FakeFactory) NewHandle(_ context.Context, tenantID string, sessionBlob []byte) (automation.Handle, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls = append(f.calls, tenantID)
	if f.err != nil {
		return nil, f.err
	}
	handle, ok := f.handles[tenantID]
	if !ok {
		handle = NewFakeHandle(tenantID)
		f.handles[tenantID] = handle
	}
	handle.SessionBlob = sessionBlob
	return handle, nil
}

// Calls returns the tenant IDs NewHandle was called with, in order.
func (f *FakeFactory) Calls() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.calls...)
}

// Handle returns the handle registered or created for tenantID.
func (f *FakeFactory) Handle(tenantID string) *FakeHandle {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.handles[tenantID]
}
