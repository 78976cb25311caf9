// Package notification provides adapters for the shipping engine's
// outbound ports: customer notices, order-management callbacks, and
// post-delivery follow-up scheduling.
package notification

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retailops/fulfillment/internal/domain/shipping"
)

// LogNotifier records shipment notices in the structured log. It stands
// in for an email or SMS provider in environments without one.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that writes notices to the log.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyShipped(_ context.Context, orderID uuid.UUID, trackingNumber string) error {
	n.logger.Info("shipment shipped notice",
		zap.String("order_id", orderID.String()),
		zap.String("tracking_number", trackingNumber),
	)
	return nil
}

func (n *LogNotifier) NotifyDelivered(_ context.Context, orderID uuid.UUID, trackingNumber string) error {
	n.logger.Info("shipment delivered notice",
		zap.String("order_id", orderID.String()),
		zap.String("tracking_number", trackingNumber),
	)
	return nil
}

func (n *LogNotifier) NotifyException(_ context.Context, orderID uuid.UUID, trackingNumber, reason string) error {
	n.logger.Warn("shipment exception notice",
		zap.String("order_id", orderID.String()),
		zap.String("tracking_number", trackingNumber),
		zap.String("reason", reason),
	)
	return nil
}

var _ shipping.NotificationPort = (*LogNotifier)(nil)
