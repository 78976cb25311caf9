package shipping

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/retailops/fulfillment/internal/domain/shipping"
)

// BackoffFunc returns how long a failed webhook must wait before the
// given retry attempt. A nil BackoffFunc disables the wait and retries
// run as soon as the sweep picks them up.
type BackoffFunc func(attempt int) time.Duration

// ExponentialBackoff doubles the base delay per attempt.
func ExponentialBackoff(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
		}
		return d
	}
}

// WebhookService ingests carrier webhooks. Every delivery is logged
// before processing; failed events are retried by the sweep up to the
// retry ceiling.
type WebhookService struct {
	eventRepo  shipping.WebhookEventRepository
	shipments  *ShipmentService
	maxRetries int
	backoff    BackoffFunc
	logger     *zap.Logger
}

// WebhookServiceConfig contains configuration for WebhookService
type WebhookServiceConfig struct {
	EventRepo  shipping.WebhookEventRepository
	Shipments  *ShipmentService
	MaxRetries int
	Backoff    BackoffFunc
	Logger     *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &WebhookService{
		eventRepo:  cfg.EventRepo,
		shipments:  cfg.Shipments,
		maxRetries: maxRetries,
		backoff:    cfg.Backoff,
		logger:     cfg.Logger,
	}
}

// Ingest logs and processes one inbound carrier webhook. The event is
// persisted as pending before any processing, so a handling failure
// never loses the delivery. Processing failures are recorded on the
// log entry and reported in the result rather than returned as errors.
func (s *WebhookService) Ingest(ctx context.Context, req WebhookRequest) (*WebhookResult, error) {
	event := shipping.NewWebhookEvent(req.Carrier, req.EventType, req.TrackingNumber, req.RawPayload, req.OccurredAt)
	if err := s.eventRepo.Save(ctx, event); err != nil {
		return nil, err
	}

	s.logger.Info("Carrier webhook received",
		zap.String("event_id", event.GetID().String()),
		zap.String("carrier", req.Carrier),
		zap.String("event_type", req.EventType),
		zap.String("tracking_number", req.TrackingNumber))

	result := &WebhookResult{
		EventID:   event.GetID().String(),
		EventType: string(event.EventType),
	}

	if event.EventType == shipping.WebhookEventUnknown {
		event.MarkProcessed()
		result.Processed = true
		result.Message = "event type not handled"
		if err := s.eventRepo.Save(ctx, event); err != nil {
			return nil, err
		}
		return result, nil
	}

	if msg, err := s.process(ctx, event, req.Description); err != nil {
		result.Message = err.Error()
	} else {
		result.Processed = true
		result.Message = msg
	}
	if err := s.eventRepo.Save(ctx, event); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *WebhookService) process(ctx context.Context, event *shipping.WebhookEvent, description string) (string, error) {
	err := s.shipments.ApplyCarrierEvent(ctx, event.TrackingNumber, event.EventType, event.OccurredAt, description)
	if errors.Is(err, shipping.ErrShipmentNotFound) {
		// No shipment owns this tracking number, so there is nothing to
		// update and nothing a retry could fix.
		s.logger.Warn("Webhook for unknown tracking number",
			zap.String("event_id", event.GetID().String()),
			zap.String("tracking_number", event.TrackingNumber))
		event.MarkProcessed()
		return "no shipment for tracking number", nil
	}
	if err != nil {
		event.MarkFailed(err)
		s.logger.Warn("Webhook processing failed",
			zap.String("event_id", event.GetID().String()),
			zap.String("tracking_number", event.TrackingNumber),
			zap.Int("retry_count", event.RetryCount),
			zap.Error(err))
		return "", err
	}
	event.MarkProcessed()
	return "", nil
}

// ProcessRetryable reprocesses failed webhook events still under the
// retry ceiling, honoring the backoff window when one is configured.
// It returns how many events were successfully processed.
func (s *WebhookService) ProcessRetryable(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	events, err := s.eventRepo.FindRetryable(ctx, s.maxRetries, limit)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, event := range events {
		if s.backoff != nil {
			notBefore := event.GetUpdatedAt().Add(s.backoff(event.RetryCount))
			if time.Now().Before(notBefore) {
				continue
			}
		}
		event.CountRetry()
		if _, err := s.process(ctx, event, ""); err == nil {
			processed++
		}
		if err := s.eventRepo.Save(ctx, event); err != nil {
			return processed, err
		}
	}
	return processed, nil
}
