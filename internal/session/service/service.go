package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"aroundtable/internal/events"
	"aroundtable/internal/pairing"
	"aroundtable/internal/session/models"
	id "aroundtable/pkg/domain"
	dErrors "aroundtable/pkg/domain-errors"
	"aroundtable/pkg/platform/sentinel"
	"aroundtable/pkg/requestcontext"
)

type Store interface {
	Save(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Latest(ctx context.Context) (*models.Session, error)
	List(ctx context.Context) ([]*models.Session, error)
}

// Roster resolves current family names. Ids missing from the result have been
// removed.
type Roster interface {
	Names(ctx context.Context) (map[id.FamilyID]string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service records saved groupings and serves the history the engine needs.
type Service struct {
	store     Store
	roster    Roster
	publisher EventPublisher
	logger    *slog.Logger
	location  *time.Location
}

type Option func(s *Service)

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

// WithLocation sets the time zone used for exports.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// New constructs a Service.
func New(store Store, roster Roster, opts ...Option) *Service {
	s := &Service{
		store:     store,
		roster:    roster,
		publisher: events.Nop{},
		logger:    slog.Default(),
		location:  time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save appends a session. Empty groups are dropped; every family must be on
// the current roster and appear once.
func (s *Service) Save(ctx context.Context, groups pairing.Groups) (*models.Session, error) {
	cleaned := make(pairing.Groups, 0, len(groups))
	for _, group := range groups {
		if len(group) > 0 {
			cleaned = append(cleaned, append(pairing.Group{}, group...))
		}
	}
	if len(cleaned) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "a session needs at least one non-empty group")
	}

	names, err := s.roster.Names(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load roster")
	}
	seen := make(map[id.FamilyID]struct{})
	for _, familyID := range cleaned.Members() {
		if _, dup := seen[familyID]; dup {
			return nil, dErrors.New(dErrors.CodeValidation, "a family can only be in one group")
		}
		seen[familyID] = struct{}{}
		if _, ok := names[familyID]; !ok {
			return nil, dErrors.New(dErrors.CodeValidation, "session references a family that is not on the roster")
		}
	}

	session := &models.Session{
		ID:        id.NewSessionID(),
		CreatedAt: requestcontext.Now(ctx),
		Groups:    cleaned,
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save session")
	}

	s.logger.InfoContext(ctx, "session saved",
		"session_id", session.ID.String(),
		"groups", len(session.Groups),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.publish(ctx, session)
	return session, nil
}

// History returns every saved session as engine input, oldest first.
func (s *Service) History(ctx context.Context) ([]pairing.Record, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session history")
	}
	out := make([]pairing.Record, len(sessions))
	for i, session := range sessions {
		out[i] = session.Record()
	}
	return out, nil
}

// List returns sessions newest first with names resolved.
func (s *Service) List(ctx context.Context) ([]*models.View, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
	}
	names, err := s.roster.Names(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load roster")
	}
	out := make([]*models.View, 0, len(sessions))
	for i := len(sessions) - 1; i >= 0; i-- {
		out = append(out, models.NewView(sessions[i], names))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, sessionID id.SessionID) (*models.View, error) {
	session, err := s.store.FindByID(ctx, sessionID)
	if err != nil {
		return nil, lookupError(err)
	}
	return s.view(ctx, session)
}

// Latest returns the most recently saved session.
func (s *Service) Latest(ctx context.Context) (*models.View, error) {
	session, err := s.store.Latest(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no sessions saved yet")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load latest session")
	}
	return s.view(ctx, session)
}

// Export renders a session as printable text using current names.
func (s *Service) Export(ctx context.Context, sessionID id.SessionID) (models.Export, error) {
	view, err := s.Get(ctx, sessionID)
	if err != nil {
		return models.Export{}, err
	}
	return view.Render(s.location), nil
}

func (s *Service) view(ctx context.Context, session *models.Session) (*models.View, error) {
	names, err := s.roster.Names(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load roster")
	}
	return models.NewView(session, names), nil
}

func lookupError(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "session not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
}

func (s *Service) publish(ctx context.Context, session *models.Session) {
	err := s.publisher.Publish(ctx, events.Event{
		Type:        events.SessionSaved,
		AggregateID: session.ID.String(),
		OccurredAt:  session.CreatedAt,
		RequestID:   requestcontext.RequestID(ctx),
		Data: map[string]any{
			"groups":  len(session.Groups),
			"members": len(session.Groups.Members()),
		},
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish session event",
			"session_id", session.ID.String(),
			"error", err,
		)
	}
}
