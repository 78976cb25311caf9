package shipping

import (
	"context"

	"github.com/google/uuid"
)

// ShipmentRepository persists shipment aggregates.
type ShipmentRepository interface {
	Save(ctx context.Context, shipment *Shipment) error
	FindByID(ctx context.Context, id uuid.UUID) (*Shipment, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]*Shipment, error)
	FindByTrackingNumber(ctx context.Context, trackingNumber string) (*Shipment, error)

	// FindActive returns shipments in non-terminal states, oldest
	// first, capped at limit.
	FindActive(ctx context.Context, limit int) ([]*Shipment, error)

	CountByStatus(ctx context.Context) (map[ShipmentStatus]int64, error)
	CountByCarrier(ctx context.Context) (map[string]int64, error)
}

// WebhookEventRepository persists the inbound webhook log.
type WebhookEventRepository interface {
	Save(ctx context.Context, event *WebhookEvent) error
	FindByID(ctx context.Context, id uuid.UUID) (*WebhookEvent, error)

	// FindRetryable returns failed events still under the retry
	// ceiling, oldest first, capped at limit.
	FindRetryable(ctx context.Context, maxRetries, limit int) ([]*WebhookEvent, error)
}
