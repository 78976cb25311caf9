package shipping

import (
	"time"

	"github.com/retailops/fulfillment/internal/domain/shared"
)

// WebhookEventType classifies an inbound carrier notification.
type WebhookEventType string

const (
	WebhookEventShipped   WebhookEventType = "shipped"
	WebhookEventDelivered WebhookEventType = "delivered"
	WebhookEventException WebhookEventType = "exception"
	WebhookEventUnknown   WebhookEventType = "unknown"
)

// NormalizeWebhookEventType maps raw carrier event names onto the
// types the engine understands. Unrecognized names become unknown
// rather than an error, since carriers add event names without notice.
func NormalizeWebhookEventType(raw string) WebhookEventType {
	switch raw {
	case "shipped", "in_transit", "picked_up":
		return WebhookEventShipped
	case "delivered":
		return WebhookEventDelivered
	case "exception", "alert", "delivery_failed":
		return WebhookEventException
	default:
		return WebhookEventUnknown
	}
}

// ProcessingStatus tracks the handling state of a logged webhook.
type ProcessingStatus string

const (
	ProcessingStatusPending   ProcessingStatus = "pending"
	ProcessingStatusProcessed ProcessingStatus = "processed"
	ProcessingStatusFailed    ProcessingStatus = "failed"
)

// WebhookEvent is the durable log entry for one inbound carrier
// notification. Every delivery is logged before processing so nothing
// is lost when handling fails.
type WebhookEvent struct {
	shared.BaseEntity

	Carrier        string
	EventType      WebhookEventType
	RawEventType   string
	TrackingNumber string
	Payload        string

	OccurredAt *time.Time

	Status       ProcessingStatus
	RetryCount   int
	ErrorMessage string
	ProcessedAt  *time.Time
}

// NewWebhookEvent logs a fresh carrier notification as pending.
func NewWebhookEvent(carrier, rawEventType, trackingNumber, payload string, occurredAt *time.Time) *WebhookEvent {
	return &WebhookEvent{
		BaseEntity:     shared.NewBaseEntity(),
		Carrier:        carrier,
		EventType:      NormalizeWebhookEventType(rawEventType),
		RawEventType:   rawEventType,
		TrackingNumber: trackingNumber,
		Payload:        payload,
		OccurredAt:     occurredAt,
		Status:         ProcessingStatusPending,
	}
}

// MarkProcessed records successful handling.
func (e *WebhookEvent) MarkProcessed() {
	now := time.Now()
	e.Status = ProcessingStatusProcessed
	e.ProcessedAt = &now
	e.ErrorMessage = ""
	e.Touch()
}

// MarkFailed records a handling failure.
func (e *WebhookEvent) MarkFailed(err error) {
	e.Status = ProcessingStatusFailed
	if err != nil {
		e.ErrorMessage = err.Error()
	}
	e.Touch()
}

// CountRetry records one sweep re-dispatch. The counter moves whether
// or not the attempt succeeds.
func (e *WebhookEvent) CountRetry() {
	e.RetryCount++
	e.Touch()
}

// CanRetry reports whether the event is eligible for another attempt
func (e *WebhookEvent) CanRetry(maxRetries int) bool {
	return e.Status == ProcessingStatusFailed && e.RetryCount < maxRetries
}
