package repofakes

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-message-triage/sessionstore"
)

var _ sessionstore.Repo = (*FakeSessionStore)(nil)

type FakeSessionStore struct {
	sessions map[string]*sessionstore.PersistedSession
	lock     sync.RWMutex

	// SaveErr and DeleteErr make the corresponding operations fail, for
	// exercising best-effort persistence paths.
	SaveErr   error
	DeleteErr error
}

func NewFakeSessionStore() *FakeSessionStore {
	return &FakeSessionStore{sessions: make(map[string]*sessionstore.PersistedSession)}
}

func (s *FakeSessionStore) Save(_ context.Context, tenantID string, blob []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.sessions[tenantID] = &sessionstore.PersistedSession{
		TenantID:    tenantID,
		SessionBlob: append([]byte(nil), blob...),
		UpdatedAt:   time.Now(),
	}
	return nil
}

func (s *FakeSessionStore) Fetch(_ context.Context, tenantID string) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	session, ok := s.sessions[tenantID]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), session.SessionBlob...), nil
}

func (s *FakeSessionStore) Exists(_ context.Context, tenantID string) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	_, ok := s.sessions[tenantID]
	return ok, nil
}

func (s *FakeSessionStore) Delete(_ context.Context, tenantID string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	delete(s.sessions, tenantID)
	return nil
}
