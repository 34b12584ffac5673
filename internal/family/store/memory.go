package store

import (
	"context"
	"sync"

	"aroundtable/internal/family/models"
	id "aroundtable/pkg/domain"
	"aroundtable/pkg/platform/sentinel"
)

// InMemoryStore keeps the roster in process memory, in insertion order.
type InMemoryStore struct {
	mu       sync.RWMutex
	families map[id.FamilyID]*models.Family
	order    []id.FamilyID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{families: make(map[id.FamilyID]*models.Family)}
}

// Create inserts family unless another family already uses its name key.
func (s *InMemoryStore) Create(_ context.Context, family *models.Family) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keyTakenLocked(family.NameKey, family.ID) {
		return sentinel.ErrAlreadyUsed
	}
	if _, exists := s.families[family.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	c := *family
	s.families[family.ID] = &c
	s.order = append(s.order, family.ID)
	return nil
}

// Update replaces the stored name of an existing family.
func (s *InMemoryStore) Update(_ context.Context, family *models.Family) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.families[family.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if s.keyTakenLocked(family.NameKey, family.ID) {
		return sentinel.ErrAlreadyUsed
	}
	c := *family
	s.families[family.ID] = &c
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, familyID id.FamilyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.families[familyID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.families, familyID)
	for i, existing := range s.order {
		if existing == familyID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, familyID id.FamilyID) (*models.Family, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.families[familyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *f
	return &c, nil
}

// List returns families in the order they were added.
func (s *InMemoryStore) List(_ context.Context) ([]*models.Family, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Family, 0, len(s.order))
	for _, familyID := range s.order {
		c := *s.families[familyID]
		out = append(out, &c)
	}
	return out, nil
}

func (s *InMemoryStore) keyTakenLocked(key string, self id.FamilyID) bool {
	for _, f := range s.families {
		if f.NameKey == key && f.ID != self {
			return true
		}
	}
	return false
}
