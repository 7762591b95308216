package clientmanager_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-message-triage/automation"
	"github.com/jrsteele09/go-message-triage/automation/automationfakes"
	"github.com/jrsteele09/go-message-triage/clientmanager"
	"github.com/jrsteele09/go-message-triage/sessionstore/repofakes"
)

const testTenantID = "tenant-1"

// testFixture holds the manager and its fake dependencies.
type testFixture struct {
	factory *automationfakes.FakeFactory
	store   *repofakes.FakeSessionStore
	manager *clientmanager.Manager

	lock    sync.Mutex
	handled []automation.InboundMessage
}

func setupTestFixture(t *testing.T, options ...clientmanager.ManagerOption) *testFixture {
	t.Helper()

	f := &testFixture{
		factory: automationfakes.NewFakeFactory(),
		store:   repofakes.NewFakeSessionStore(),
	}

	handler := func(_ context.Context, _ string, msg automation.InboundMessage) error {
		f.lock.Lock()
		defer f.lock.Unlock()
		f.handled = append(f.handled, msg)
		return nil
	}

	options = append([]clientmanager.ManagerOption{
		clientmanager.WithQREncoder(func(challenge string) (string, error) { return "qr:" + challenge, nil }),
		clientmanager.WithInitTimeout(2 * time.Second),
	}, options...)

	manager, err := clientmanager.New(f.factory, f.store, handler, options...)
	require.NoError(t, err)
	f.manager = manager

	return f
}

func (f *testFixture) handledMessages() []automation.InboundMessage {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]automation.InboundMessage(nil), f.handled...)
}

// registerHandle installs a fresh fake handle for the tenant and returns it.
func (f *testFixture) registerHandle(tenantID string) *automationfakes.FakeHandle {
	handle := automationfakes.NewFakeHandle(tenantID)
	f.factory.Register(tenantID, handle)
	return handle
}

func TestNewRequiresDependencies(t *testing.T) {
	handler := func(context.Context, string, automation.InboundMessage) error { return nil }

	_, err := clientmanager.New(nil, repofakes.NewFakeSessionStore(), handler)
	require.Error(t, err)

	_, err = clientmanager.New(automationfakes.NewFakeFactory(), nil, handler)
	require.Error(t, err)

	_, err = clientmanager.New(automationfakes.NewFakeFactory(), repofakes.NewFakeSessionStore(), nil)
	require.Error(t, err)
}

func TestAcquireResolvesOnCredentialChallenge(t *testing.T) {
	f := setupTestFixture(t)
	handle := f.registerHandle(testTenantID)
	handle.EmitChallenge("abc")

	status, err := f.manager.Acquire(context.Background(), testTenantID)
	require.NoError(t, err)
	require.Equal(t, clientmanager.StateAwaitingScan, status.State)
	require.Equal(t, "qr:abc", status.QRPayload)

	require.Equal(t, []string{testTenantID}, f.factory.Calls())
}

func TestAcquireResolvesOnReady(t *testing.T) {
	f := setupTestFixture(t)
	handle := f.registerHandle(testTenantID)
	handle.EmitAuthenticated([]byte("session-blob"))
	handle.EmitReady()

	status, err := f.manager.Acquire(context.Background(), testTenantID)
	require.NoError(t, err)
	require.Equal(t, clientmanager.StateReady, status.State)
	require.Empty(t, status.QRPayload)

	blob, err := f.store.Fetch(context.Background(), testTenantID)
	require.NoError(t, err)
	require.Equal(t, []byte("session-blob"), blob)
}

func TestConcurrentAcquiresShareOneCreation(t *testing.T) {
	f := setupTestFixture(t)
	handle := f.registerHandle(testTenantID)
	handle.EmitChallenge("abc")

	const acquirers = 16
	statuses := make(chan clientmanager.Status, acquirers)
	var wg sync.WaitGroup
	for i := 0; i < acquirers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, err := f.manager.Acquire(context.Background(), testTenantID)
			require.NoError(t, err)
			statuses <- status
		}()
	}
	wg.Wait()
	close(statuses)

	for status := range statuses {
		require.Equal(t, clientmanager.StateAwaitingScan, status.State)
		require.Equal(t, "qr:abc", status.QRPayload)
	}
	require.Equal(t, []string{testTenantID}, f.factory.Calls())
}

func TestAcquireReturnsLiveSessionWithoutNewCreation(t *testing.T) {
	f := setupTestFixture(t)
	handle := f.registerHandle(testTenantID)
	handle.EmitReady()

	_, err := f.manager.Acquire(context.Background(), testTenantID)
	require.NoError(t, err)

	status, err := f.manager.Acquire(context.Background(), testTenantID)
	require.NoError(t, err)
	require.Equal(t, clientmanager.StateReady, status.State)
	require.Equal(t, []string{testTenantID}, f.factory.Calls())
}

func TestAcquirePassesPersistedBlobToFactory(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Save(context.Background(), testTenantID, []byte("restored")))

	handle := f.registerHandle(testTenantID)
	handle.EmitReady()

	_, err := f.manager.Acquire(context.Background(), testTenantID)
	require.NoError(t, err)
	require.Equal(t, []byte("restored"), handle.SessionBlob)
}

func TestAcquireFactoryFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.factory.FailWith(errors.New("browser crashed"))

	_, err := f.manager.Acquire(context.Background(), testTenantID)
	require.Error(t, err)
	require.Equal(t, clientmanager.StateFailed, f.manager.Status(testTenantID).State)
}

func TestAcquireAuthenticationFailure(t *testing.T) {
	f := setupTestFixture(t)
	handle := f.registerHandle(testTenantID)
	handle.EmitAuthFailure("credentials rejected")

	_, err := f.manager.Acquire(context.Background(), testTenantID)
	require.ErrorIs(t, err, clientmanager.ErrAuthenticationFailure)
	require.Equal(t, clientmanager.StateFailed, f.manager.Status(testTenantID).State)
	require.Eventually(t, handle.Destroyed, time.Second, 10*time.Millisecond)

	// A failed tenant can be acquired again from scratch.
	retry := f.registerHandle(testTenantID)
	retry.EmitChallenge("second-chance")

	status, err := f.manager.Acquire(context.Background(), testTenantID)
	require.NoError(t, err)
	require.Equal(t, clientmanager.StateAwaitingScan, status.State)
	require.Equal(t, []string{testTenantID, testTenantID}, f.factory.Calls())
}

func TestAcquireInitializationTimeout(t *testing.T) {
	f := setupTestFixture(t, clientmanager.WithInitTimeout(30*time.Millisecond))
	handle := f.registerHandle(testTenantID)

	_, err := f.manager.Acquire(context.Background(), testTenantID)
	require.ErrorIs(t, err, clientmanager.ErrInitializationTimeout)
	require.Equal(t, clientmanager.StateFailed, f.manager.Status(testTenantID).State)
	require.Eventually(t, handle.Destroyed, time.Second, 10*time.Millisecond)
}

func TestAcquireTimesOutWhenFactoryHangs(t *testing.T) {
	release := make(chan struct{})
	handle := automationfakes.NewFakeHandle(testTenantID)
	factory := automation.FactoryFunc(func(_ context.Context, _ string, _ []byte) (automation.Handle, error) {
		<-release
		return handle, nil
	})

	handler := func(context.Context, string, automation.InboundMessage) error { return nil }
	manager, err := clientmanager.New(factory, repofakes.NewFakeSessionStore(), handler,
		clientmanager.WithInitTimeout(30*time.Millisecond))
	require.NoError(t, err)

	_, err = manager.Acquire(context.Background(), testTenantID)
	require.ErrorIs(t, err, clientmanager.ErrInitializationTimeout)
	require.Equal(t, clientmanager.StateFailed, manager.Status(testTenantID).State)

	// The handle the stuck factory eventually produces is destroyed.
	close(release)
	require.Eventually(t, handle.Destroyed, time.Second, 10*time.Millisecond)
}

func TestAcquireContextCancelled(t *testing.T) {
	f := setupTestFixture(t)
	f.registerHandle(testTenantID)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := f.manager.Acquire(ctx, testTenantID)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDisconnectClearsSessionAndBlob(t *testing.T) {
	f := setupTestFixture(t)
	handle := f.registerHandle(testTenantID)
	handle.EmitAuthenticated([]byte("session-blob"))
	handle.EmitReady()

	_, err := f.manager.Acquire(context.Background(), testTenantID)
	require.NoError(t, err)

	handle.EmitDisconnected("logout")
	require.Eventually(t, func() bool {
		return f.manager.Status(testTenantID).State == clientmanager.StateDisconnected
	}, time.Second, 10*time.Millisecond)
	require.Eventually(t, handle.Destroyed, time.Second, 10*time.Millisecond)

	blob, err := f.store.Fetch(context.Background(), testTenantID)
	require.NoError(t, err)
	require.Nil(t, blob)

	// The next acquire starts a fresh creation.
	fresh := f.registerHandle(testTenantID)
	fresh.EmitChallenge("again")
	status, err := f.manager.Acquire(context.Background(), testTenantID)
	require.NoError(t, err)
	require.Equal(t, clientmanager.StateAwaitingScan, status.State)
}

func TestStatusNeverCreatesSessions(t *testing.T) {
	f := setupTestFixture(t)

	status := f.manager.Status("unknown-tenant")
	require.Equal(t, clientmanager.StateDisconnected, status.State)
	require.Empty(t, f.factory.Calls())
}

func TestStatusOmitsQROutsideAwaitingScan(t *testing.T) {
	f := setupTestFixture(t)
	handle := f.registerHandle(testTenantID)
	handle.EmitChallenge("abc")

	_, err := f.manager.Acquire(context.Background(), testTenantID)
	require.NoError(t, err)
	require.Equal(t, "qr:abc", f.manager.Status(testTenantID).QRPayload)

	handle.EmitReady()
	require.Eventually(t, func() bool {
		return f.manager.Status(testTenantID).State == clientmanager.StateReady
	}, time.Second, 10*time.Millisecond)
	require.Empty(t, f.manager.Status(testTenantID).QRPayload)
}

func TestReleaseDestroysHandleAndDeletesBlob(t *testing.T) {
	f := setupTestFixture(t)
	handle := f.registerHandle(testTenantID)
	handle.EmitAuthenticated([]byte("session-blob"))
	handle.EmitReady()

	_, err := f.manager.Acquire(context.Background(), testTenantID)
	require.NoError(t, err)

	require.NoError(t, f.manager.Release(context.Background(), testTenantID))
	require.Equal(t, clientmanager.StateDisconnected, f.manager.Status(testTenantID).State)
	require.True(t, handle.Destroyed())

	exists, err := f.store.Exists(context.Background(), testTenantID)
	require.NoError(t, err)
	require.False(t, exists)

	// Releasing again is a no-op.
	require.NoError(t, f.manager.Release(context.Background(), testTenantID))
}

func TestReleaseSettlesPendingAcquirers(t *testing.T) {
	f := setupTestFixture(t)
	f.registerHandle(testTenantID) // emits nothing, creation stays pending

	acquireErr := make(chan error, 1)
	go func() {
		_, err := f.manager.Acquire(context.Background(), testTenantID)
		acquireErr <- err
	}()

	require.Eventually(t, func() bool {
		return len(f.factory.Calls()) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, f.manager.Release(context.Background(), testTenantID))

	select {
	case err := <-acquireErr:
		require.ErrorIs(t, err, clientmanager.ErrSessionReleased)
	case <-time.After(time.Second):
		t.Fatal("pending acquire never settled")
	}
}

func TestMessagesOnlyReachHandlerWhenReady(t *testing.T) {
	f := setupTestFixture(t)
	handle := f.registerHandle(testTenantID)

	early := automation.InboundMessage{SenderID: "early", Body: "too soon"}
	handle.EmitChallenge("abc")
	handle.EmitMessage(early)

	_, err := f.manager.Acquire(context.Background(), testTenantID)
	require.NoError(t, err)

	handle.EmitReady()
	handle.EmitMessage(automation.InboundMessage{SenderID: "sender", Body: "hello"})

	require.Eventually(t, func() bool {
		return len(f.handledMessages()) == 1
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, "sender", f.handledMessages()[0].SenderID)
}

func TestMessagesDeliveredInOrder(t *testing.T) {
	f := setupTestFixture(t)
	handle := f.registerHandle(testTenantID)
	handle.EmitReady()

	_, err := f.manager.Acquire(context.Background(), testTenantID)
	require.NoError(t, err)

	f.lock.Lock()
	f.handled = nil
	f.lock.Unlock()

	handle.EmitMessage(automation.InboundMessage{SenderID: "a", Body: "first"})
	handle.EmitMessage(automation.InboundMessage{SenderID: "b", Body: "second"})

	require.Eventually(t, func() bool {
		return len(f.handledMessages()) == 2
	}, time.Second, 10*time.Millisecond)
	handled := f.handledMessages()
	require.Equal(t, "a", handled[0].SenderID)
	require.Equal(t, "b", handled[1].SenderID)
	require.Equal(t, clientmanager.StateReady, f.manager.Status(testTenantID).State)
}
