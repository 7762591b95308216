// Package clientmanager owns the lifecycle of one messaging session per
// tenant: creation and reuse, the authentication state machine, and teardown.
// Tenants are fully independent of each other; the only shared state is the
// manager's tenant-keyed registry.
package clientmanager

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-message-triage/automation"
	"github.com/jrsteele09/go-message-triage/sessionstore"
)

const defaultInitTimeout = 2 * time.Minute

// MessageHandler is invoked once per inbound message on a Ready session,
// in delivery order for that tenant. Returned errors are logged and contained
// to the single message; they never tear the session down.
type MessageHandler func(ctx context.Context, tenantID string, msg automation.InboundMessage) error

// Manager mediates access to per-tenant automation sessions. All concurrent
// acquirers of the same tenant share one creation; the underlying session
// setup is expensive and stateful, so duplicate setups would race the same
// authentication identity.
type Manager struct {
	factory     automation.Factory
	store       sessionstore.Repo
	handler     MessageHandler
	encodeQR    func(challenge string) (string, error)
	initTimeout time.Duration
	logger      zerolog.Logger

	lock     sync.Mutex
	sessions map[string]*TenantSession
	pending  map[string]*pendingCreation
}

// pendingCreation is the shared future all concurrent acquirers of one
// tenant wait on. It settles exactly once, on the first of: credential
// challenge, readiness, failure, timeout, or release.
type pendingCreation struct {
	done   chan struct{}
	once   sync.Once
	status Status
	err    error
}

func newPendingCreation() *pendingCreation {
	return &pendingCreation{done: make(chan struct{})}
}

func (p *pendingCreation) settle(status Status, err error) {
	p.once.Do(func() {
		p.status = status
		p.err = err
		close(p.done)
	})
}

// ManagerOption modifies a Manager at construction time.
type ManagerOption func(*Manager)

// WithInitTimeout bounds how long a creation may stay pending before it is
// treated as failed.
func WithInitTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.initTimeout = timeout
	}
}

// WithLogger sets the manager's logger.
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithQREncoder replaces the scannable-credential encoder (primarily for
// testing).
func WithQREncoder(encode func(challenge string) (string, error)) ManagerOption {
	return func(m *Manager) {
		m.encodeQR = encode
	}
}

// New creates a Manager with required dependencies. Optional configuration
// can be provided via options.
func New(factory automation.Factory, store sessionstore.Repo, handler MessageHandler, options ...ManagerOption) (*Manager, error) {
	if factory == nil {
		return nil, errors.New("[clientmanager.New] factory is required")
	}
	if store == nil {
		return nil, errors.New("[clientmanager.New] session store is required")
	}
	if handler == nil {
		return nil, errors.New("[clientmanager.New] message handler is required")
	}

	m := &Manager{
		factory:     factory,
		store:       store,
		handler:     handler,
		encodeQR:    encodeQRDataURL,
		initTimeout: defaultInitTimeout,
		logger:      zerolog.Nop(),
		sessions:    make(map[string]*TenantSession),
		pending:     make(map[string]*pendingCreation),
	}

	for _, opt := range options {
		opt(m)
	}

	return m, nil
}

// Acquire returns the tenant's session status, creating a session when none
// is live. Concurrent calls for the same tenant join the same in-flight
// creation and all observe its outcome. The call resolves on the first of:
// credential challenge available, session ready, or failure.
func (m *Manager) Acquire(ctx context.Context, tenantID string) (Status, error) {
	m.lock.Lock()

	if ts, ok := m.sessions[tenantID]; ok && ts.live() {
		status := ts.statusLocked()
		m.lock.Unlock()
		return status, nil
	}

	if p, ok := m.pending[tenantID]; ok {
		m.lock.Unlock()
		return m.await(ctx, p)
	}

	ts := &TenantSession{tenantID: tenantID, state: StateInitializing}
	p := newPendingCreation()
	m.sessions[tenantID] = ts
	m.pending[tenantID] = p
	m.lock.Unlock()

	go m.initialize(tenantID, ts, p)

	return m.await(ctx, p)
}

// Status is a pure read of the tenant's current session. It never blocks and
// never triggers a creation. Tenants without an in-memory session read as
// Disconnected.
func (m *Manager) Status(tenantID string) Status {
	m.lock.Lock()
	defer m.lock.Unlock()

	ts, ok := m.sessions[tenantID]
	if !ok {
		return Status{State: StateDisconnected}
	}
	return ts.statusLocked()
}

// Release tears down the tenant's session handle, deletes the persisted
// session blob and drops the in-memory record, making the tenant eligible
// for a fresh Acquire. Releasing a tenant with no session is a no-op.
func (m *Manager) Release(ctx context.Context, tenantID string) error {
	m.lock.Lock()
	ts := m.sessions[tenantID]
	delete(m.sessions, tenantID)
	var handle automation.Handle
	if ts != nil {
		handle = ts.handle
		ts.handle = nil
	}
	m.settlePendingLocked(tenantID, Status{State: StateDisconnected}, ErrSessionReleased)
	m.lock.Unlock()

	if handle != nil {
		if err := handle.Destroy(); err != nil {
			m.logger.Warn().Err(err).Str("tenant", tenantID).Msg("destroying session handle")
		}
	}

	if err := m.store.Delete(ctx, tenantID); err != nil {
		return errors.Wrap(err, "[Manager.Release] deleting persisted session")
	}
	return nil
}

func (m *Manager) await(ctx context.Context, p *pendingCreation) (Status, error) {
	select {
	case <-p.done:
		return p.status, p.err
	case <-ctx.Done():
		return Status{State: StateInitializing}, ctx.Err()
	}
}

// initialize runs once per creation, off the caller's goroutine. It builds
// the handle with the tenant's persisted credential (if any) and then
// becomes the single consumer of the handle's event stream. The whole
// creation, handle construction included, is bounded by the init timeout.
func (m *Manager) initialize(tenantID string, ts *TenantSession, p *pendingCreation) {
	ctx, cancel := context.WithTimeout(context.Background(), m.initTimeout)
	defer cancel()
	deadline, _ := ctx.Deadline()

	blob, err := m.store.Fetch(ctx, tenantID)
	if err != nil {
		// A missing blob only costs a re-authentication.
		m.logger.Warn().Err(err).Str("tenant", tenantID).Msg("fetching persisted session")
		blob = nil
	}

	handle, err := m.newHandle(ctx, tenantID, blob)
	if err != nil {
		m.lock.Lock()
		if m.sessions[tenantID] == ts {
			ts.state = StateFailed
		}
		if errors.Is(err, ErrInitializationTimeout) {
			m.settlePendingLocked(tenantID, Status{State: StateFailed}, ErrInitializationTimeout)
			m.lock.Unlock()
			m.logger.Warn().Str("tenant", tenantID).Dur("timeout", m.initTimeout).Msg("session handle creation timed out")
			return
		}
		m.settlePendingLocked(tenantID, Status{State: StateFailed}, errors.Wrap(err, "[Manager.initialize] creating session handle"))
		m.lock.Unlock()
		return
	}

	m.lock.Lock()
	if m.sessions[tenantID] != ts {
		// Released while the handle was being created.
		m.lock.Unlock()
		_ = handle.Destroy()
		return
	}
	ts.handle = handle
	m.lock.Unlock()

	m.consumeEvents(tenantID, ts, handle, deadline)
}

// newHandle calls the factory, bounded by ctx. The factory may be
// network-bound and cannot be interrupted from here; on timeout it keeps
// running in the background and whatever it eventually returns is destroyed.
func (m *Manager) newHandle(ctx context.Context, tenantID string, blob []byte) (automation.Handle, error) {
	type result struct {
		handle automation.Handle
		err    error
	}

	results := make(chan result, 1)
	go func() {
		handle, err := m.factory.NewHandle(ctx, tenantID, blob)
		results <- result{handle: handle, err: err}
	}()

	select {
	case res := <-results:
		return res.handle, res.err
	case <-ctx.Done():
		go func() {
			if res := <-results; res.handle != nil {
				_ = res.handle.Destroy()
			}
		}()
		return nil, ErrInitializationTimeout
	}
}

// consumeEvents is the per-tenant single-consumer loop. Processing events in
// one goroutine keeps lifecycle transitions and message handling race-free
// and in delivery order for the tenant. The deadline is the remainder of the
// creation timeout started in initialize.
func (m *Manager) consumeEvents(tenantID string, ts *TenantSession, handle automation.Handle, deadline time.Time) {
	timeout := time.NewTimer(time.Until(deadline))
	defer timeout.Stop()

	events := handle.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				m.handleStreamClosed(tenantID, ts)
				return
			}
			if terminal := m.handleEvent(tenantID, ts, handle, ev); terminal {
				return
			}
		case <-timeout.C:
			if terminal := m.handleInitTimeout(tenantID, ts, handle); terminal {
				return
			}
		}
	}
}

// handleEvent applies one event to the state machine. It reports whether the
// event ended the session (and with it, this consumer).
func (m *Manager) handleEvent(tenantID string, ts *TenantSession, handle automation.Handle, ev automation.Event) bool {
	switch ev.Kind {
	case automation.KindCredentialChallenge:
		qr, err := m.encodeQR(ev.Challenge)
		if err != nil {
			m.logger.Error().Err(err).Str("tenant", tenantID).Msg("encoding credential challenge")
			qr = ev.Challenge
		}
		m.lock.Lock()
		if m.sessions[tenantID] != ts {
			m.lock.Unlock()
			return true
		}
		ts.state = StateAwaitingScan
		ts.qrPayload = qr
		m.settlePendingLocked(tenantID, ts.statusLocked(), nil)
		m.lock.Unlock()
		return false

	case automation.KindAuthenticated:
		m.lock.Lock()
		if m.sessions[tenantID] != ts {
			m.lock.Unlock()
			return true
		}
		ts.qrPayload = ""
		m.lock.Unlock()

		// Best-effort: a lost blob only costs a future re-scan, never
		// current availability.
		if err := m.store.Save(context.Background(), tenantID, ev.SessionBlob); err != nil {
			m.logger.Error().Err(err).Str("tenant", tenantID).Msg("persisting session blob")
		}
		return false

	case automation.KindReady:
		m.lock.Lock()
		if m.sessions[tenantID] != ts {
			m.lock.Unlock()
			return true
		}
		ts.state = StateReady
		ts.qrPayload = ""
		m.settlePendingLocked(tenantID, ts.statusLocked(), nil)
		m.lock.Unlock()
		m.logger.Info().Str("tenant", tenantID).Msg("session ready")
		return false

	case automation.KindAuthFailure:
		m.lock.Lock()
		if m.sessions[tenantID] != ts {
			m.lock.Unlock()
			return true
		}
		ts.state = StateFailed
		ts.qrPayload = ""
		ts.handle = nil
		m.settlePendingLocked(tenantID, Status{State: StateFailed},
			errors.Wrapf(ErrAuthenticationFailure, "[Manager] %s", ev.Reason))
		m.lock.Unlock()

		m.logger.Warn().Str("tenant", tenantID).Str("reason", ev.Reason).Msg("authentication failed")
		_ = handle.Destroy()
		return true

	case automation.KindDisconnected:
		m.disconnect(tenantID, ts, handle, ev.Reason)
		return true

	case automation.KindMessage:
		if ev.Message == nil {
			return false
		}
		m.lock.Lock()
		ready := m.sessions[tenantID] == ts && ts.state == StateReady
		m.lock.Unlock()
		if !ready {
			// Messages are only wired to the pipeline on Ready sessions.
			return false
		}
		m.invokeHandler(tenantID, *ev.Message)
		return false
	}

	m.logger.Warn().Str("tenant", tenantID).Int("kind", int(ev.Kind)).Msg("unknown session event")
	return false
}

func (m *Manager) handleStreamClosed(tenantID string, ts *TenantSession) {
	m.lock.Lock()
	stale := m.sessions[tenantID] != ts
	m.lock.Unlock()
	if stale {
		return
	}
	m.disconnect(tenantID, ts, nil, "event stream closed")
}

// disconnect applies the Disconnected transition: drop the in-memory
// session and the persisted blob so a later Acquire starts clean rather than
// resuming a half-valid session.
func (m *Manager) disconnect(tenantID string, ts *TenantSession, handle automation.Handle, reason string) {
	m.lock.Lock()
	if m.sessions[tenantID] != ts {
		m.lock.Unlock()
		return
	}
	ts.state = StateDisconnected
	ts.qrPayload = ""
	ts.handle = nil
	m.settlePendingLocked(tenantID, Status{State: StateDisconnected},
		errors.Wrapf(ErrSessionDisconnected, "[Manager] %s", reason))
	m.lock.Unlock()

	m.logger.Info().Str("tenant", tenantID).Str("reason", reason).Msg("session disconnected")

	if handle != nil {
		_ = handle.Destroy()
	}
	if err := m.store.Delete(context.Background(), tenantID); err != nil {
		m.logger.Error().Err(err).Str("tenant", tenantID).Msg("deleting persisted session")
	}
}

// handleInitTimeout fires when the creation never settled in time. A timer
// tick after settlement is ignored.
func (m *Manager) handleInitTimeout(tenantID string, ts *TenantSession, handle automation.Handle) bool {
	m.lock.Lock()
	if _, stillPending := m.pending[tenantID]; !stillPending {
		m.lock.Unlock()
		return false
	}
	if m.sessions[tenantID] == ts {
		ts.state = StateFailed
		ts.qrPayload = ""
		ts.handle = nil
	}
	m.settlePendingLocked(tenantID, Status{State: StateFailed}, ErrInitializationTimeout)
	m.lock.Unlock()

	m.logger.Warn().Str("tenant", tenantID).Dur("timeout", m.initTimeout).Msg("session initialization timed out")
	_ = handle.Destroy()
	return true
}

// settlePendingLocked resolves and removes the tenant's pending creation.
// Callers hold the manager lock; the delete makes removal happen exactly
// once per settlement.
func (m *Manager) settlePendingLocked(tenantID string, status Status, err error) {
	p, ok := m.pending[tenantID]
	if !ok {
		return
	}
	delete(m.pending, tenantID)
	p.settle(status, err)
}

// invokeHandler isolates one message as its own unit of work: errors and
// panics are logged and never propagate to the event loop.
func (m *Manager) invokeHandler(tenantID string, msg automation.InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Str("tenant", tenantID).Interface("panic", r).Msg("message handler panicked")
		}
	}()

	if err := m.handler(context.Background(), tenantID, msg); err != nil {
		m.logger.Error().Err(err).Str("tenant", tenantID).Msg("handling inbound message")
	}
}
