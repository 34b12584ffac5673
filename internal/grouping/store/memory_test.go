package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aroundtable/internal/grouping/models"
	"aroundtable/internal/pairing"
	id "aroundtable/pkg/domain"
	"aroundtable/pkg/platform/sentinel"
	"aroundtable/pkg/requestcontext"
)

var baseTime = time.Date(2025, 3, 2, 18, 0, 0, 0, time.UTC)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = requestcontext.WithTime(context.Background(), baseTime)
}

func newDraft() *models.Draft {
	return &models.Draft{
		ID:        id.NewDraftID(),
		GroupSize: 2,
		Groups:    pairing.Groups{{id.NewFamilyID(), id.NewFamilyID()}, {id.NewFamilyID(), id.NewFamilyID()}},
		CreatedAt: baseTime,
		ExpiresAt: baseTime.Add(time.Hour),
	}
}

func (s *InMemoryStoreSuite) TestCreateAndFind() {
	d := newDraft()
	s.Require().NoError(s.store.Create(s.ctx, d))
	s.ErrorIs(s.store.Create(s.ctx, d), sentinel.ErrAlreadyUsed)

	found, err := s.store.Find(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(d.Groups, found.Groups)

	_, err = s.store.Find(s.ctx, id.NewDraftID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestExpiry() {
	d := newDraft()
	s.Require().NoError(s.store.Create(s.ctx, d))

	later := requestcontext.WithTime(context.Background(), baseTime.Add(2*time.Hour))
	_, err := s.store.Find(later, d.ID)
	s.ErrorIs(err, sentinel.ErrExpired)

	_, err = s.store.Find(s.ctx, d.ID)
	s.ErrorIs(err, sentinel.ErrNotFound, "expired drafts are dropped")
}

func (s *InMemoryStoreSuite) TestExecute() {
	d := newDraft()
	s.Require().NoError(s.store.Create(s.ctx, d))

	s.Run("applies a successful mutation", func() {
		updated, err := s.store.Execute(s.ctx, d.ID, func(draft *models.Draft) error {
			draft.AddGroup()
			return nil
		})
		s.Require().NoError(err)
		s.Len(updated.Groups, 3)

		found, err := s.store.Find(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Len(found.Groups, 3)
	})

	s.Run("discards a failed mutation", func() {
		boom := errors.New("boom")
		_, err := s.store.Execute(s.ctx, d.ID, func(draft *models.Draft) error {
			draft.Groups = nil
			return boom
		})
		s.ErrorIs(err, boom)

		found, err := s.store.Find(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Len(found.Groups, 3)
	})
}

func (s *InMemoryStoreSuite) TestDelete() {
	d := newDraft()
	s.Require().NoError(s.store.Create(s.ctx, d))
	s.Require().NoError(s.store.Delete(s.ctx, d.ID))
	s.ErrorIs(s.store.Delete(s.ctx, d.ID), sentinel.ErrNotFound)
}
