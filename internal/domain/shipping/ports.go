package shipping

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// NotificationPort delivers customer-facing shipment notices. Failures
// are logged by callers and never fail the triggering operation.
type NotificationPort interface {
	NotifyShipped(ctx context.Context, orderID uuid.UUID, trackingNumber string) error
	NotifyDelivered(ctx context.Context, orderID uuid.UUID, trackingNumber string) error
	NotifyException(ctx context.Context, orderID uuid.UUID, trackingNumber, reason string) error
}

// AlertPort raises operational alerts for shipments that need human
// attention, separate from customer notices.
type AlertPort interface {
	AlertException(ctx context.Context, shipmentID, orderID uuid.UUID, trackingNumber, reason string) error
}

// OrderPort lets the shipping engine report fulfillment milestones back
// to order management.
type OrderPort interface {
	// MarkOrderComplete is called when every shipment on the order has
	// been delivered.
	MarkOrderComplete(ctx context.Context, orderID uuid.UUID) error
}

// FollowUpKind names a deferred post-delivery workflow.
type FollowUpKind string

const (
	FollowUpReviewRequest FollowUpKind = "review_request"
	FollowUpWarrantyStart FollowUpKind = "warranty_start"
)

// FollowUpScheduler queues deferred workflows triggered by delivery.
type FollowUpScheduler interface {
	Schedule(ctx context.Context, orderID uuid.UUID, kind FollowUpKind, runAt time.Time) error
}

// LabelStore archives carrier label documents and returns a durable
// location for them.
type LabelStore interface {
	Store(ctx context.Context, shipmentID uuid.UUID, labelURL string) (string, error)
}
