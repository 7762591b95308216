package repofakes

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-message-triage/messages"
)

var _ messages.Repo = (*FakeMessageRepo)(nil)

type FakeMessageRepo struct {
	records map[string]*messages.Message
	lock    sync.RWMutex

	// CreateErr, UpdateErr and DeleteErr make the corresponding operations
	// fail.
	CreateErr error
	UpdateErr error
	DeleteErr error
}

func NewFakeMessageRepo() *FakeMessageRepo {
	return &FakeMessageRepo{records: make(map[string]*messages.Message)}
}

func (r *FakeMessageRepo) Create(_ context.Context, msg *messages.Message) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	cloned := *msg
	r.records[msg.ID] = &cloned
	return nil
}

func (r *FakeMessageRepo) Get(_ context.Context, id string) (*messages.Message, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	msg, ok := r.records[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cloned := *msg
	return &cloned, nil
}

func (r *FakeMessageRepo) UpdateAnalysis(_ context.Context, id string, analysis messages.Analysis) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	msg, ok := r.records[id]
	if !ok {
		return errors.New("not found")
	}
	msg.Analysis = &analysis
	return nil
}

func (r *FakeMessageRepo) Delete(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.DeleteErr != nil {
		return r.DeleteErr
	}
	delete(r.records, id)
	return nil
}

func (r *FakeMessageRepo) List(_ context.Context, filter messages.Filter) ([]*messages.Message, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	matched := make([]*messages.Message, 0)
	for _, msg := range r.records {
		if !matches(msg, filter) {
			continue
		}
		cloned := *msg
		matched = append(matched, &cloned)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Date.After(matched[j].Date) })
	return matched, nil
}

func matches(msg *messages.Message, filter messages.Filter) bool {
	if filter.TenantID != "" && msg.TenantID != filter.TenantID {
		return false
	}
	if filter.Kind != "" && msg.Kind != filter.Kind {
		return false
	}
	if filter.MimeContains != "" && !strings.Contains(strings.ToLower(msg.MimeType), strings.ToLower(filter.MimeContains)) {
		return false
	}
	if !filter.Since.IsZero() && msg.Date.Before(filter.Since) {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		var summary string
		if msg.Analysis != nil {
			summary = msg.Analysis.Summary
		}
		haystack := strings.ToLower(msg.Body + " " + summary + " " + msg.FileName)
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	if filter.Unanalyzed && msg.Analysis.Analyzed() {
		return false
	}
	if filter.Relevant != nil {
		if !msg.Analysis.Analyzed() || *msg.Analysis.IsRelevant != *filter.Relevant {
			return false
		}
	}
	return true
}
