package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"aroundtable/internal/events"
	"aroundtable/internal/grouping/metrics"
	"aroundtable/internal/grouping/models"
	"aroundtable/internal/grouping/service/mocks"
	"aroundtable/internal/grouping/store"
	"aroundtable/internal/pairing"
	sessionmodels "aroundtable/internal/session/models"
	id "aroundtable/pkg/domain"
	dErrors "aroundtable/pkg/domain-errors"
	"aroundtable/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Roster,Sessions,EventPublisher

// zeroSource makes the engine seed every group with the first pool member.
type zeroSource struct{}

func (zeroSource) Int63() int64 { return 0 }
func (zeroSource) Seed(int64)   {}

var now = time.Date(2025, 3, 2, 18, 0, 0, 0, time.UTC)

type GroupingServiceSuite struct {
	suite.Suite
	ctx       context.Context
	roster    *mocks.MockRoster
	sessions  *mocks.MockSessions
	publisher *mocks.MockEventPublisher
	store     *store.InMemoryStore
	metrics   *metrics.Metrics
	service   *Service

	a, b, c, d id.FamilyID
	names      map[id.FamilyID]string
}

func TestGroupingServiceSuite(t *testing.T) {
	suite.Run(t, new(GroupingServiceSuite))
}

func (s *GroupingServiceSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.roster = mocks.NewMockRoster(ctrl)
	s.sessions = mocks.NewMockSessions(ctrl)
	s.publisher = mocks.NewMockEventPublisher(ctrl)
	s.store = store.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.ctx = requestcontext.WithTime(context.Background(), now)

	s.service = New(s.store, s.roster, s.sessions,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithPublisher(s.publisher),
		WithMetrics(s.metrics),
		WithDraftTTL(time.Hour),
		WithEngineOptions(pairing.WithRand(rand.New(zeroSource{}))),
	)

	s.a, s.b, s.c, s.d = id.NewFamilyID(), id.NewFamilyID(), id.NewFamilyID(), id.NewFamilyID()
	s.names = map[id.FamilyID]string{s.a: "A", s.b: "B", s.c: "C", s.d: "D"}
}

// expectLoad stubs one roster and history load.
func (s *GroupingServiceSuite) expectLoad(history ...pairing.Record) {
	s.roster.EXPECT().Roster(gomock.Any()).Return([]id.FamilyID{s.a, s.b, s.c, s.d}, nil)
	s.roster.EXPECT().Names(gomock.Any()).Return(s.names, nil)
	s.sessions.EXPECT().History(gomock.Any()).Return(history, nil)
}

func (s *GroupingServiceSuite) generate(req models.GenerateRequest) *models.DraftView {
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)
	view, err := s.service.Generate(s.ctx, req)
	s.Require().NoError(err)
	return view
}

func (s *GroupingServiceSuite) TestGenerate_SeparatesLastWeeksPairs() {
	s.expectLoad(pairing.Record{Groups: pairing.Groups{{s.a, s.b}, {s.c, s.d}}})

	view := s.generate(models.GenerateRequest{GroupSize: 2})

	s.Equal(pairing.Groups{{s.a, s.c}, {s.b, s.d}}, view.Draft.Groups)
	s.Equal(0, view.RepeatScore)
	s.Equal(now.Add(time.Hour), view.Draft.ExpiresAt)
	s.Equal("C", view.Names[s.c])
}

func (s *GroupingServiceSuite) TestGenerate_DefaultGroupSize() {
	s.expectLoad()

	view := s.generate(models.GenerateRequest{})

	s.Equal(3, view.Draft.GroupSize)
	s.Equal([]int{4}, view.Draft.Groups.Sizes(), "four families never leave someone alone")
}

func (s *GroupingServiceSuite) TestGenerate_AttendanceKeepsRosterOrder() {
	s.expectLoad()

	view := s.generate(models.GenerateRequest{GroupSize: 2, Attending: []id.FamilyID{s.d, s.a}})

	s.Equal(pairing.Groups{{s.a, s.d}}, view.Draft.Groups)
}

func (s *GroupingServiceSuite) TestGenerate_Validation() {
	s.Run("group size below two is rejected before loading", func() {
		_, err := s.service.Generate(s.ctx, models.GenerateRequest{GroupSize: 1})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	cases := []struct {
		name      string
		attending func() []id.FamilyID
	}{
		{"duplicate attendee", func() []id.FamilyID { return []id.FamilyID{s.a, s.a, s.b} }},
		{"unknown attendee", func() []id.FamilyID { return []id.FamilyID{s.a, id.NewFamilyID()} }},
		{"single attendee", func() []id.FamilyID { return []id.FamilyID{s.a} }},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.expectLoad()
			_, err := s.service.Generate(s.ctx, models.GenerateRequest{GroupSize: 2, Attending: tc.attending()})
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func (s *GroupingServiceSuite) TestGenerate_RosterTooSmall() {
	s.roster.EXPECT().Roster(gomock.Any()).Return([]id.FamilyID{s.a}, nil)
	s.roster.EXPECT().Names(gomock.Any()).Return(s.names, nil)
	s.sessions.EXPECT().History(gomock.Any()).Return(nil, nil)

	_, err := s.service.Generate(s.ctx, models.GenerateRequest{GroupSize: 2})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *GroupingServiceSuite) TestGenerate_LoadFailure() {
	s.roster.EXPECT().Roster(gomock.Any()).Return(nil, errors.New("db down"))
	s.roster.EXPECT().Names(gomock.Any()).Return(s.names, nil).AnyTimes()
	s.sessions.EXPECT().History(gomock.Any()).Return(nil, nil).AnyTimes()

	_, err := s.service.Generate(s.ctx, models.GenerateRequest{GroupSize: 2})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *GroupingServiceSuite) TestGenerate_PublishesAndRecordsMetrics() {
	s.expectLoad()
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e events.Event) error {
			s.Equal(events.DraftGenerated, e.Type)
			s.Equal([]int{2, 2}, e.Data["sizes"])
			return errors.New("broker unavailable")
		})

	_, err := s.service.Generate(s.ctx, models.GenerateRequest{GroupSize: 2})
	s.Require().NoError(err, "publish failures do not fail generation")
	s.Equal(1.0, promtest.ToFloat64(s.metrics.DraftOutcome.WithLabelValues("generated")))
}

func (s *GroupingServiceSuite) TestMoveAndAddGroup() {
	s.expectLoad()
	draft := s.generate(models.GenerateRequest{GroupSize: 2}).Draft

	s.expectLoad()
	view, err := s.service.AddGroup(s.ctx, draft.ID)
	s.Require().NoError(err)
	s.Len(view.Draft.Groups, 3)

	s.expectLoad()
	view, err = s.service.Move(s.ctx, draft.ID, models.MoveRequest{FamilyID: s.d, ToGroup: 2, Index: 0})
	s.Require().NoError(err)
	s.Equal(pairing.Groups{{s.a, s.b}, {s.c}, {s.d}}, view.Draft.Groups)

	s.Run("unknown family is a validation error", func() {
		_, err := s.service.Move(s.ctx, draft.ID, models.MoveRequest{FamilyID: id.NewFamilyID(), ToGroup: 0})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown draft is not found", func() {
		_, err := s.service.Move(s.ctx, id.NewDraftID(), models.MoveRequest{FamilyID: s.a})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *GroupingServiceSuite) TestGet_ScoresAgainstHistory() {
	s.expectLoad()
	draft := s.generate(models.GenerateRequest{GroupSize: 2}).Draft

	s.expectLoad(pairing.Record{Groups: pairing.Groups{{s.a, s.b}}}, pairing.Record{Groups: pairing.Groups{{s.a, s.b}}})
	view, err := s.service.Get(s.ctx, draft.ID)
	s.Require().NoError(err)
	s.Equal(2, view.RepeatScore)
}

func (s *GroupingServiceSuite) TestGet_Expired() {
	s.expectLoad()
	draft := s.generate(models.GenerateRequest{GroupSize: 2}).Draft

	later := requestcontext.WithTime(context.Background(), now.Add(2*time.Hour))
	_, err := s.service.Get(later, draft.ID)
	s.Require().Error(err)
	s.ErrorIs(err, dErrors.New(dErrors.CodeNotFound, "grouping has expired"))
}

func (s *GroupingServiceSuite) TestSave() {
	s.expectLoad()
	draft := s.generate(models.GenerateRequest{GroupSize: 2}).Draft

	s.expectLoad()
	_, err := s.service.AddGroup(s.ctx, draft.ID)
	s.Require().NoError(err)

	saved := &sessionmodels.Session{ID: id.NewSessionID(), CreatedAt: now, Groups: draft.Groups}
	s.sessions.EXPECT().Save(gomock.Any(), draft.Groups).Return(saved, nil)

	session, err := s.service.Save(s.ctx, draft.ID)
	s.Require().NoError(err)
	s.Equal(saved.ID, session.ID)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.DraftOutcome.WithLabelValues("saved")))

	_, err = s.service.Save(s.ctx, draft.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "a draft is saved once")
}

func (s *GroupingServiceSuite) TestSave_FailureKeepsDraft() {
	s.expectLoad()
	draft := s.generate(models.GenerateRequest{GroupSize: 2}).Draft

	rejected := dErrors.New(dErrors.CodeValidation, "session references a family that is not on the roster")
	s.sessions.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil, rejected)

	_, err := s.service.Save(s.ctx, draft.ID)
	s.ErrorIs(err, rejected)

	_, err = s.store.Find(s.ctx, draft.ID)
	s.NoError(err)
}

// conflictingStore fails every edit the way a lost optimistic lock does.
type conflictingStore struct {
	*store.InMemoryStore
}

var errLostRace = errors.New("lost race")

func (conflictingStore) Execute(context.Context, id.DraftID, func(*models.Draft) error) (*models.Draft, error) {
	return nil, errLostRace
}

func (s *GroupingServiceSuite) TestConcurrentEditMapsToConflict() {
	svc := New(conflictingStore{store.NewInMemoryStore()}, s.roster, s.sessions,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithConflictDetector(func(err error) bool { return errors.Is(err, errLostRace) }),
	)

	_, err := svc.AddGroup(s.ctx, id.NewDraftID())
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}
