package notification

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retailops/fulfillment/internal/domain/shipping"
)

// LogAlerter surfaces shipment exceptions to operations through the
// structured log. It stands in for a paging or ticketing integration.
type LogAlerter struct {
	logger *zap.Logger
}

// NewLogAlerter creates an alerter that writes alerts to the log.
func NewLogAlerter(logger *zap.Logger) *LogAlerter {
	return &LogAlerter{logger: logger}
}

func (a *LogAlerter) AlertException(_ context.Context, shipmentID, orderID uuid.UUID, trackingNumber, reason string) error {
	a.logger.Error("shipment exception alert",
		zap.String("shipment_id", shipmentID.String()),
		zap.String("order_id", orderID.String()),
		zap.String("tracking_number", trackingNumber),
		zap.String("reason", reason),
	)
	return nil
}

var _ shipping.AlertPort = (*LogAlerter)(nil)
