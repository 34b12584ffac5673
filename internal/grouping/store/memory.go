package store

import (
	"context"
	"sync"

	"aroundtable/internal/grouping/models"
	id "aroundtable/pkg/domain"
	"aroundtable/pkg/platform/sentinel"
	"aroundtable/pkg/requestcontext"
)

// InMemoryStore keeps drafts in a map. Expired drafts are dropped lazily on
// access.
type InMemoryStore struct {
	mu     sync.Mutex
	drafts map[id.DraftID]*models.Draft
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{drafts: make(map[id.DraftID]*models.Draft)}
}

func (s *InMemoryStore) Create(_ context.Context, draft *models.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drafts[draft.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.drafts[draft.ID] = clone(draft)
	return nil
}

func (s *InMemoryStore) Find(ctx context.Context, draftID id.DraftID) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.live(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return clone(d), nil
}

// Execute applies mutate to the stored draft. The draft is only replaced when
// mutate succeeds.
func (s *InMemoryStore) Execute(ctx context.Context, draftID id.DraftID, mutate func(*models.Draft) error) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.live(ctx, draftID)
	if err != nil {
		return nil, err
	}
	working := clone(d)
	if err := mutate(working); err != nil {
		return nil, err
	}
	s.drafts[draftID] = working
	return clone(working), nil
}

func (s *InMemoryStore) Delete(_ context.Context, draftID id.DraftID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drafts[draftID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.drafts, draftID)
	return nil
}

// live must be called with mu held.
func (s *InMemoryStore) live(ctx context.Context, draftID id.DraftID) (*models.Draft, error) {
	d, ok := s.drafts[draftID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if d.IsExpired(requestcontext.Now(ctx)) {
		delete(s.drafts, draftID)
		return nil, sentinel.ErrExpired
	}
	return d, nil
}

func clone(d *models.Draft) *models.Draft {
	c := *d
	c.Groups = d.Groups.Clone()
	return &c
}
