// Package events announces reconciled records to downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	geomodels "github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/models"
)

// RecordEvent is published after a record was created or updated.
type RecordEvent struct {
	EventID     uuid.UUID              `json:"event_id"`
	Action      models.Action          `json:"action"`
	RecordID    uuid.UUID              `json:"record_id"`
	Type        string                 `json:"type"`
	Date        time.Time              `json:"date"`
	Coordinates *geomodels.Coordinates `json:"coordinates,omitempty"`
	Actor       string                 `json:"actor,omitempty"`
	RequestID   string                 `json:"request_id,omitempty"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

// Publisher delivers record events. Publish blocks until the event is
// acknowledged or ctx ends.
type Publisher interface {
	Publish(ctx context.Context, event RecordEvent) error
	Close()
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, RecordEvent) error { return nil }

func (NopPublisher) Close() {}
