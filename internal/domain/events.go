package domain

import (
	"context"
	"time"
)

// Event types emitted after a successful mutation.
const (
	EventActivityCreated = "activity.created"
	EventActivityUpdated = "activity.updated"
	EventActivityDeleted = "activity.deleted"
	EventCategoryCreated = "category.created"
)

// Event describes a committed change to the document.
type Event struct {
	Type       string    `json:"event_type"`
	ActivityID int       `json:"activity_id,omitempty"`
	Category   string    `json:"category,omitempty"`
	Activity   *Activity `json:"activity,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher delivers change events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) error { return nil }
