// Package events publishes domain events about the roster and saved sessions.
//
// Events are notifications, not a source of truth: a failed publish is logged
// and never rolls back the change that caused it.
package events

import (
	"context"
	"time"
)

// Type names a domain event.
type Type string

const (
	FamilyAdded    Type = "family.added"
	FamilyRenamed  Type = "family.renamed"
	FamilyRemoved  Type = "family.removed"
	SessionSaved   Type = "session.saved"
	DraftGenerated Type = "grouping.generated"
)

// Event is one domain fact. AggregateID is the partition key.
type Event struct {
	Type        Type           `json:"type"`
	AggregateID string         `json:"aggregate_id"`
	OccurredAt  time.Time      `json:"occurred_at"`
	RequestID   string         `json:"request_id,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// Publisher delivers events to whoever listens.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
