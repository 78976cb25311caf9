package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/retailops/fulfillment/internal/domain/shipping"
)

const notificationChannel = "fulfillment:notifications"

// notice is the wire form published for downstream notification workers.
type notice struct {
	Type           string    `json:"type"`
	OrderID        string    `json:"order_id"`
	TrackingNumber string    `json:"tracking_number"`
	Reason         string    `json:"reason,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// RedisNotifier publishes shipment notices to a Redis channel where a
// separate delivery worker picks them up. Publish failures are returned
// to the caller, which logs and continues.
type RedisNotifier struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisNotifier creates a notifier backed by the given Redis client.
func NewRedisNotifier(client *redis.Client, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, logger: logger}
}

func (n *RedisNotifier) NotifyShipped(ctx context.Context, orderID uuid.UUID, trackingNumber string) error {
	return n.publish(ctx, notice{
		Type:           "shipment.shipped",
		OrderID:        orderID.String(),
		TrackingNumber: trackingNumber,
		OccurredAt:     time.Now().UTC(),
	})
}

func (n *RedisNotifier) NotifyDelivered(ctx context.Context, orderID uuid.UUID, trackingNumber string) error {
	return n.publish(ctx, notice{
		Type:           "shipment.delivered",
		OrderID:        orderID.String(),
		TrackingNumber: trackingNumber,
		OccurredAt:     time.Now().UTC(),
	})
}

func (n *RedisNotifier) NotifyException(ctx context.Context, orderID uuid.UUID, trackingNumber, reason string) error {
	return n.publish(ctx, notice{
		Type:           "shipment.exception",
		OrderID:        orderID.String(),
		TrackingNumber: trackingNumber,
		Reason:         reason,
		OccurredAt:     time.Now().UTC(),
	})
}

func (n *RedisNotifier) publish(ctx context.Context, msg notice) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if err := n.client.Publish(ctx, notificationChannel, payload).Err(); err != nil {
		return err
	}

	n.logger.Debug("notice published",
		zap.String("type", msg.Type),
		zap.String("order_id", msg.OrderID),
	)
	return nil
}

var _ shipping.NotificationPort = (*RedisNotifier)(nil)
