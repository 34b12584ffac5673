package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aroundtable/internal/events"
	"aroundtable/internal/family/store"
	id "aroundtable/pkg/domain"
	dErrors "aroundtable/pkg/domain-errors"
	"aroundtable/pkg/requestcontext"
)

type capturePublisher struct {
	err    error
	events []events.Event
}

func (c *capturePublisher) Publish(_ context.Context, e events.Event) error {
	c.events = append(c.events, e)
	return c.err
}

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	now       time.Time
	publisher *capturePublisher
	service   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2025, 2, 9, 17, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.publisher = &capturePublisher{}
	s.service = New(store.NewInMemoryStore(),
		WithPublisher(s.publisher),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *ServiceSuite) TestAdd() {
	s.Run("stores a normalized name with request time", func() {
		f, err := s.service.Add(s.ctx, "  The  Ross family ")
		s.Require().NoError(err)
		s.Equal("The Ross family", f.Name)
		s.Equal(s.now, f.CreatedAt)
		s.False(f.ID.IsNil())
	})

	s.Run("duplicate ignoring case and spacing is a conflict", func() {
		_, err := s.service.Add(s.ctx, "the ROSS   family")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("empty name is a validation error", func() {
		_, err := s.service.Add(s.ctx, "   ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("emits family.added", func() {
		s.Require().NotEmpty(s.publisher.events)
		e := s.publisher.events[0]
		s.Equal(events.FamilyAdded, e.Type)
		s.Equal(s.now, e.OccurredAt)
		s.Equal("The Ross family", e.Data["name"])
	})
}

func (s *ServiceSuite) TestAdd_PublishFailureDoesNotFailTheChange() {
	s.publisher.err = errors.New("broker down")

	f, err := s.service.Add(s.ctx, "Abara")
	s.Require().NoError(err)

	roster, err := s.service.Roster(s.ctx)
	s.Require().NoError(err)
	s.Equal([]id.FamilyID{f.ID}, roster)
}

func (s *ServiceSuite) TestRename() {
	ross, err := s.service.Add(s.ctx, "Ross")
	s.Require().NoError(err)
	_, err = s.service.Add(s.ctx, "Chen")
	s.Require().NoError(err)

	s.Run("renames", func() {
		f, err := s.service.Rename(s.ctx, ross.ID, "Ross-Abara")
		s.Require().NoError(err)
		s.Equal("Ross-Abara", f.Name)

		names, err := s.service.Names(s.ctx)
		s.Require().NoError(err)
		s.Equal("Ross-Abara", names[ross.ID])
	})

	s.Run("to an existing name is a conflict", func() {
		_, err := s.service.Rename(s.ctx, ross.ID, "chen")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown family", func() {
		_, err := s.service.Rename(s.ctx, id.NewFamilyID(), "Anything")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("too long", func() {
		long := make([]byte, 129)
		for i := range long {
			long[i] = 'x'
		}
		_, err := s.service.Rename(s.ctx, ross.ID, string(long))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestRemove() {
	a, err := s.service.Add(s.ctx, "A")
	s.Require().NoError(err)
	b, err := s.service.Add(s.ctx, "B")
	s.Require().NoError(err)

	s.Require().NoError(s.service.Remove(s.ctx, a.ID))

	roster, err := s.service.Roster(s.ctx)
	s.Require().NoError(err)
	s.Equal([]id.FamilyID{b.ID}, roster)

	err = s.service.Remove(s.ctx, a.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	last := s.publisher.events[len(s.publisher.events)-1]
	s.Equal(events.FamilyRemoved, last.Type)
	s.Equal(a.ID.String(), last.AggregateID)
}
