package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/retailops/fulfillment/internal/domain/shared"
	"github.com/retailops/fulfillment/internal/domain/shipping"
)

// WebhookEventRepositoryImpl implements shipping.WebhookEventRepository using GORM
type WebhookEventRepositoryImpl struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new WebhookEventRepositoryImpl
func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepositoryImpl {
	return &WebhookEventRepositoryImpl{db: db}
}

// Save inserts or updates a webhook log entry
func (r *WebhookEventRepositoryImpl) Save(ctx context.Context, event *shipping.WebhookEvent) error {
	model := toWebhookEventModel(event)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to save webhook event: %w", err)
	}
	return nil
}

// FindByID retrieves a webhook log entry
func (r *WebhookEventRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*shipping.WebhookEvent, error) {
	var model WebhookEventModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find webhook event: %w", err)
	}
	return toWebhookEventDomain(&model), nil
}

// FindRetryable retrieves failed events still under the retry ceiling,
// oldest first
func (r *WebhookEventRepositoryImpl) FindRetryable(ctx context.Context, maxRetries, limit int) ([]*shipping.WebhookEvent, error) {
	var models []WebhookEventModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND retry_count < ?", string(shipping.ProcessingStatusFailed), maxRetries).
		Order("updated_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find retryable webhook events: %w", err)
	}

	events := make([]*shipping.WebhookEvent, 0, len(models))
	for i := range models {
		events = append(events, toWebhookEventDomain(&models[i]))
	}
	return events, nil
}

var _ shipping.WebhookEventRepository = (*WebhookEventRepositoryImpl)(nil)
