package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"aroundtable/internal/events"
	"aroundtable/internal/grouping/metrics"
	"aroundtable/internal/grouping/models"
	"aroundtable/internal/pairing"
	sessionmodels "aroundtable/internal/session/models"
	id "aroundtable/pkg/domain"
	dErrors "aroundtable/pkg/domain-errors"
	"aroundtable/pkg/platform/sentinel"
	"aroundtable/pkg/requestcontext"
)

const (
	defaultGroupSize = 3
	defaultDraftTTL  = 24 * time.Hour
	minGroupSize     = 2
	minAttending     = 2
)

type Store interface {
	Create(ctx context.Context, draft *models.Draft) error
	Find(ctx context.Context, draftID id.DraftID) (*models.Draft, error)
	Execute(ctx context.Context, draftID id.DraftID, mutate func(*models.Draft) error) (*models.Draft, error)
	Delete(ctx context.Context, draftID id.DraftID) error
}

// Roster provides the current families.
type Roster interface {
	Roster(ctx context.Context) ([]id.FamilyID, error)
	Names(ctx context.Context) (map[id.FamilyID]string, error)
}

// Sessions provides saved history and accepts finished groupings.
type Sessions interface {
	History(ctx context.Context) ([]pairing.Record, error)
	Save(ctx context.Context, groups pairing.Groups) (*sessionmodels.Session, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service generates drafts with the pairing engine and manages them until
// they are saved as sessions.
type Service struct {
	store            Store
	roster           Roster
	sessions         Sessions
	publisher        EventPublisher
	logger           *slog.Logger
	metrics          *metrics.Metrics
	tracer           trace.Tracer
	defaultGroupSize int
	draftTTL         time.Duration
	engineOpts       []pairing.Option
	isConflict       func(error) bool
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithDefaultGroupSize sets the size used when a request omits one.
func WithDefaultGroupSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.defaultGroupSize = size
		}
	}
}

// WithDraftTTL sets how long an unsaved draft stays editable.
func WithDraftTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.draftTTL = ttl
		}
	}
}

// WithEngineOptions passes options to every pairing.Partition call.
func WithEngineOptions(opts ...pairing.Option) Option {
	return func(s *Service) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithConflictDetector tells the service which store errors mean a
// concurrent edit lost the race.
func WithConflictDetector(fn func(error) bool) Option {
	return func(s *Service) {
		s.isConflict = fn
	}
}

// New constructs a Service.
func New(store Store, roster Roster, sessions Sessions, opts ...Option) *Service {
	s := &Service{
		store:            store,
		roster:           roster,
		sessions:         sessions,
		publisher:        events.Nop{},
		logger:           slog.Default(),
		tracer:           otel.Tracer("aroundtable/grouping"),
		defaultGroupSize: defaultGroupSize,
		draftTTL:         defaultDraftTTL,
		isConflict:       func(error) bool { return false },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// snapshot is everything generation and scoring read.
type snapshot struct {
	roster  []id.FamilyID
	names   map[id.FamilyID]string
	history []pairing.Record
}

func (s *Service) load(ctx context.Context) (*snapshot, error) {
	g, ctx := errgroup.WithContext(ctx)
	snap := &snapshot{}

	g.Go(func() error {
		roster, err := s.roster.Roster(ctx)
		snap.roster = roster
		return err
	})
	g.Go(func() error {
		names, err := s.roster.Names(ctx)
		snap.names = names
		return err
	})
	g.Go(func() error {
		history, err := s.sessions.History(ctx)
		snap.history = history
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Generate runs the pairing engine over the attending families and stores
// the result as a draft.
func (s *Service) Generate(ctx context.Context, req models.GenerateRequest) (*models.DraftView, error) {
	start := time.Now()

	size := req.GroupSize
	if size == 0 {
		size = s.defaultGroupSize
	}
	if size < minGroupSize {
		return nil, dErrors.New(dErrors.CodeValidation, "group size must be at least 2")
	}

	ctx, span := s.tracer.Start(ctx, "grouping.Generate",
		trace.WithAttributes(attribute.Int("group_size", size)),
	)
	defer span.End()

	snap, err := s.load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load roster and history")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load roster and history")
	}

	attending, err := selectAttending(snap.roster, req.Attending)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("attending", len(attending)),
		attribute.Int("history_sessions", len(snap.history)),
	)

	freq, err := pairing.BuildFrequency(attending, snap.history)
	if err != nil {
		return nil, engineError(err)
	}
	groups, err := pairing.Partition(attending, size, freq, s.engineOpts...)
	if err != nil {
		return nil, engineError(err)
	}
	score := pairing.RepeatScore(groups, freq)
	span.SetAttributes(
		attribute.Int("groups", len(groups)),
		attribute.Int("repeat_score", score),
	)

	now := requestcontext.Now(ctx)
	draft := &models.Draft{
		ID:        id.NewDraftID(),
		GroupSize: size,
		Groups:    groups,
		CreatedAt: now,
		ExpiresAt: now.Add(s.draftTTL),
	}
	if err := s.store.Create(ctx, draft); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to store draft")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store grouping")
	}

	s.metrics.ObserveGenerate(time.Since(start), score)
	s.logger.InfoContext(ctx, "grouping generated",
		"draft_id", draft.ID.String(),
		"group_size", size,
		"attending", len(attending),
		"groups", len(groups),
		"repeat_score", score,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.publish(ctx, draft, score)

	return &models.DraftView{Draft: draft, Names: snap.names, RepeatScore: score}, nil
}

// selectAttending filters the roster to the attending ids, keeping roster
// order. An empty selection means everyone.
func selectAttending(roster []id.FamilyID, attending []id.FamilyID) ([]id.FamilyID, error) {
	if len(attending) == 0 {
		if len(roster) < minAttending {
			return nil, dErrors.New(dErrors.CodeValidation, "at least two families must attend")
		}
		return roster, nil
	}

	wanted := make(map[id.FamilyID]struct{}, len(attending))
	for _, familyID := range attending {
		if _, dup := wanted[familyID]; dup {
			return nil, dErrors.New(dErrors.CodeValidation, "attendance lists a family more than once")
		}
		wanted[familyID] = struct{}{}
	}

	out := make([]id.FamilyID, 0, len(attending))
	for _, familyID := range roster {
		if _, ok := wanted[familyID]; ok {
			out = append(out, familyID)
		}
	}
	if len(out) != len(wanted) {
		return nil, dErrors.New(dErrors.CodeValidation, "attendance lists a family that is not on the roster")
	}
	if len(out) < minAttending {
		return nil, dErrors.New(dErrors.CodeValidation, "at least two families must attend")
	}
	return out, nil
}

// Get returns a draft scored against the current history.
func (s *Service) Get(ctx context.Context, draftID id.DraftID) (*models.DraftView, error) {
	draft, err := s.store.Find(ctx, draftID)
	if err != nil {
		return nil, s.lookupError(err)
	}
	return s.view(ctx, draft)
}

// Move relocates one family inside a draft.
func (s *Service) Move(ctx context.Context, draftID id.DraftID, req models.MoveRequest) (*models.DraftView, error) {
	draft, err := s.store.Execute(ctx, draftID, func(d *models.Draft) error {
		return d.Move(req.FamilyID, req.ToGroup, req.Index)
	})
	if err != nil {
		return nil, s.lookupError(err)
	}
	return s.view(ctx, draft)
}

// AddGroup appends an empty group to a draft.
func (s *Service) AddGroup(ctx context.Context, draftID id.DraftID) (*models.DraftView, error) {
	draft, err := s.store.Execute(ctx, draftID, func(d *models.Draft) error {
		d.AddGroup()
		return nil
	})
	if err != nil {
		return nil, s.lookupError(err)
	}
	return s.view(ctx, draft)
}

// Save records the draft as a session. The draft is claimed first, so two
// concurrent saves of one draft produce one session; it is restored if the
// session cannot be written.
func (s *Service) Save(ctx context.Context, draftID id.DraftID) (*sessionmodels.Session, error) {
	draft, err := s.store.Find(ctx, draftID)
	if err != nil {
		return nil, s.lookupError(err)
	}
	if err := s.store.Delete(ctx, draftID); err != nil {
		return nil, s.lookupError(err)
	}

	session, err := s.sessions.Save(ctx, draft.NonEmpty())
	if err != nil {
		if restoreErr := s.store.Create(ctx, draft); restoreErr != nil {
			s.logger.ErrorContext(ctx, "failed to restore draft after save failure",
				"draft_id", draftID.String(),
				"error", restoreErr,
			)
		}
		return nil, err
	}

	s.metrics.IncrementSaved()
	s.logger.InfoContext(ctx, "grouping saved",
		"draft_id", draftID.String(),
		"session_id", session.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return session, nil
}

func (s *Service) view(ctx context.Context, draft *models.Draft) (*models.DraftView, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load roster and history")
	}
	freq, err := pairing.BuildFrequency(draft.Groups.Members(), snap.history)
	if err != nil {
		return nil, engineError(err)
	}
	return &models.DraftView{
		Draft:       draft,
		Names:       snap.names,
		RepeatScore: pairing.RepeatScore(draft.Groups, freq),
	}, nil
}

func (s *Service) lookupError(err error) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		if de.Code == dErrors.CodeInvariantViolation {
			return dErrors.New(dErrors.CodeValidation, de.Message)
		}
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "grouping not found")
	case errors.Is(err, sentinel.ErrExpired):
		return dErrors.New(dErrors.CodeNotFound, "grouping has expired")
	case s.isConflict(err):
		return dErrors.New(dErrors.CodeConflict, "grouping was changed by another request")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update grouping")
	}
}

func engineError(err error) error {
	if errors.Is(err, pairing.ErrInvalidGroupSize) || errors.Is(err, pairing.ErrDuplicateParticipant) {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error())
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "grouping failed")
}

func (s *Service) publish(ctx context.Context, draft *models.Draft, score int) {
	err := s.publisher.Publish(ctx, events.Event{
		Type:        events.DraftGenerated,
		AggregateID: draft.ID.String(),
		OccurredAt:  draft.CreatedAt,
		RequestID:   requestcontext.RequestID(ctx),
		Data: map[string]any{
			"group_size":   draft.GroupSize,
			"sizes":        draft.Groups.Sizes(),
			"repeat_score": score,
		},
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish grouping event",
			"draft_id", draft.ID.String(),
			"error", err,
		)
	}
}
