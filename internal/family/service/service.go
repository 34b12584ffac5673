package service

import (
	"context"
	"errors"
	"log/slog"

	"aroundtable/internal/events"
	"aroundtable/internal/family/models"
	id "aroundtable/pkg/domain"
	dErrors "aroundtable/pkg/domain-errors"
	"aroundtable/pkg/platform/sentinel"
	"aroundtable/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, family *models.Family) error
	Update(ctx context.Context, family *models.Family) error
	Delete(ctx context.Context, familyID id.FamilyID) error
	FindByID(ctx context.Context, familyID id.FamilyID) (*models.Family, error)
	List(ctx context.Context) ([]*models.Family, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service manages the roster. Names are unique ignoring case and spacing.
type Service struct {
	store     Store
	publisher EventPublisher
	logger    *slog.Logger
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

// New constructs a Service.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		publisher: events.Nop{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add creates a family. The name is trimmed and internal whitespace collapsed.
func (s *Service) Add(ctx context.Context, name string) (*models.Family, error) {
	f, err := models.NewFamily(id.NewFamilyID(), name, requestcontext.Now(ctx))
	if err != nil {
		return nil, toValidation(err)
	}

	if err := s.store.Create(ctx, f); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "a family with this name already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add family")
	}

	s.logger.InfoContext(ctx, "family added",
		"family_id", f.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.publish(ctx, events.FamilyAdded, f.ID, map[string]any{"name": f.Name})
	return f, nil
}

// Rename changes a family's display name. Past sessions reference the id and
// pick up the new name automatically.
func (s *Service) Rename(ctx context.Context, familyID id.FamilyID, name string) (*models.Family, error) {
	f, err := s.store.FindByID(ctx, familyID)
	if err != nil {
		return nil, s.lookupError(err)
	}

	if err := f.Rename(name, requestcontext.Now(ctx)); err != nil {
		return nil, toValidation(err)
	}

	if err := s.store.Update(ctx, f); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, dErrors.New(dErrors.CodeConflict, "a family with this name already exists")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "family not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to rename family")
	}

	s.publish(ctx, events.FamilyRenamed, f.ID, map[string]any{"name": f.Name})
	return f, nil
}

// Remove deletes a family from the roster. Saved sessions keep their
// references; history lookups skip ids that are no longer on the roster.
func (s *Service) Remove(ctx context.Context, familyID id.FamilyID) error {
	if err := s.store.Delete(ctx, familyID); err != nil {
		return s.lookupError(err)
	}

	s.logger.InfoContext(ctx, "family removed",
		"family_id", familyID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.publish(ctx, events.FamilyRemoved, familyID, nil)
	return nil
}

// List returns the roster in the order families were added.
func (s *Service) List(ctx context.Context) ([]*models.Family, error) {
	families, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list families")
	}
	return families, nil
}

// Roster returns the current family ids in roster order.
func (s *Service) Roster(ctx context.Context) ([]id.FamilyID, error) {
	families, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]id.FamilyID, len(families))
	for i, f := range families {
		out[i] = f.ID
	}
	return out, nil
}

// Names maps every current family id to its display name.
func (s *Service) Names(ctx context.Context) (map[id.FamilyID]string, error) {
	families, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[id.FamilyID]string, len(families))
	for _, f := range families {
		out[f.ID] = f.Name
	}
	return out, nil
}

func (s *Service) lookupError(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "family not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load family")
}

// toValidation converts invariant violations to validation errors for the API.
func toValidation(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) && de.Code == dErrors.CodeInvariantViolation {
		return dErrors.New(dErrors.CodeValidation, de.Message)
	}
	return err
}

func (s *Service) publish(ctx context.Context, eventType events.Type, familyID id.FamilyID, data map[string]any) {
	err := s.publisher.Publish(ctx, events.Event{
		Type:        eventType,
		AggregateID: familyID.String(),
		OccurredAt:  requestcontext.Now(ctx),
		RequestID:   requestcontext.RequestID(ctx),
		Data:        data,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish family event",
			"event_type", string(eventType),
			"family_id", familyID.String(),
			"error", err,
		)
	}
}
