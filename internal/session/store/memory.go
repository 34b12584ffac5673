package store

import (
	"context"
	"sync"

	"aroundtable/internal/session/models"
	id "aroundtable/pkg/domain"
	"aroundtable/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions in save order.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions []*models.Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Save(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.sessions {
		if existing.ID == session.ID {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.sessions = append(s.sessions, clone(session))
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, existing := range s.sessions {
		if existing.ID == sessionID {
			return clone(existing), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// Latest returns the most recently saved session.
func (s *InMemoryStore) Latest(_ context.Context) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.sessions) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.sessions[len(s.sessions)-1]), nil
}

// List returns every session, oldest first.
func (s *InMemoryStore) List(_ context.Context) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Session, len(s.sessions))
	for i, existing := range s.sessions {
		out[i] = clone(existing)
	}
	return out, nil
}

func clone(s *models.Session) *models.Session {
	return &models.Session{ID: s.ID, CreatedAt: s.CreatedAt, Groups: s.Groups.Clone()}
}
