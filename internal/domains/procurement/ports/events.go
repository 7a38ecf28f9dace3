package ports

import (
	"context"
	"time"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/domain"
)

// StatusChange describes one persisted workflow transition.
type StatusChange struct {
	OrderID     int64
	ExternalRef string
	From        domain.Status
	To          domain.Status
	Reason      string
	OccurredAt  time.Time
}

// EventPublisher announces status changes to the rest of the system.
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, change StatusChange) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishStatusChanged(context.Context, StatusChange) error { return nil }
