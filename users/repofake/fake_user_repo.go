package repofake

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-message-triage/users"
)

var ErrNotFound = errors.New("user not found")

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	byID    map[string]*users.User
	byEmail map[string]*users.User
	lock    sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		byID:    make(map[string]*users.User),
		byEmail: make(map[string]*users.User),
	}
}

func (r *FakeUserRepo) Create(_ context.Context, user *users.User) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, exists := r.byEmail[user.Email]; exists {
		return errors.New("email already registered")
	}
	cloned := *user
	r.byID[user.ID] = &cloned
	r.byEmail[user.Email] = &cloned
	return nil
}

func (r *FakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	user, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cloned := *user
	return &cloned, nil
}

func (r *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cloned := *user
	return &cloned, nil
}
