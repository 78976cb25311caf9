package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retailops/fulfillment/internal/domain/shared"
	"github.com/retailops/fulfillment/internal/domain/shipping"
)

// ShipmentRepositoryImpl implements shipping.ShipmentRepository using GORM
type ShipmentRepositoryImpl struct {
	db *gorm.DB
}

// NewShipmentRepository creates a new ShipmentRepositoryImpl
func NewShipmentRepository(db *gorm.DB) *ShipmentRepositoryImpl {
	return &ShipmentRepositoryImpl{db: db}
}

// Save inserts or updates a shipment. Updates are guarded by the
// aggregate version: a row changed since this aggregate was loaded
// fails with ErrConcurrencyConflict instead of overwriting it.
func (r *ShipmentRepositoryImpl) Save(ctx context.Context, shipment *shipping.Shipment) error {
	model := toShipmentModel(shipment)
	current := model.Version
	model.Version = current + 1

	res := r.db.WithContext(ctx).
		Model(&ShipmentModel{}).
		Where("id = ? AND version = ?", model.ID, current).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if res.Error != nil {
		return fmt.Errorf("failed to save shipment: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		shipment.IncrementVersion()
		return nil
	}

	// No row matched: first save, or the row moved to another version.
	model.Version = current
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		var count int64
		r.db.WithContext(ctx).Model(&ShipmentModel{}).Where("id = ?", model.ID).Count(&count)
		if count > 0 {
			return shared.ErrConcurrencyConflict
		}
		return fmt.Errorf("failed to save shipment: %w", err)
	}
	return nil
}

// FindByID retrieves a shipment by ID
func (r *ShipmentRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*shipping.Shipment, error) {
	var model ShipmentModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shipping.ErrShipmentNotFound
		}
		return nil, fmt.Errorf("failed to find shipment: %w", err)
	}
	return toShipmentDomain(&model), nil
}

// FindByOrderID retrieves all shipments booked for an order
func (r *ShipmentRepositoryImpl) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]*shipping.Shipment, error) {
	var models []ShipmentModel
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find shipments by order: %w", err)
	}
	return toShipmentDomainSlice(models), nil
}

// FindByTrackingNumber retrieves the shipment owning a tracking number
func (r *ShipmentRepositoryImpl) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*shipping.Shipment, error) {
	var model ShipmentModel
	err := r.db.WithContext(ctx).First(&model, "tracking_number = ?", trackingNumber).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shipping.ErrShipmentNotFound
		}
		return nil, fmt.Errorf("failed to find shipment by tracking number: %w", err)
	}
	return toShipmentDomain(&model), nil
}

// FindActive retrieves non-terminal shipments, oldest first
func (r *ShipmentRepositoryImpl) FindActive(ctx context.Context, limit int) ([]*shipping.Shipment, error) {
	var models []ShipmentModel
	err := r.db.WithContext(ctx).
		Where("status NOT IN ?", []string{
			shipping.ShipmentStatusDelivered.String(),
			shipping.ShipmentStatusFailed.String(),
		}).
		Order("updated_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find active shipments: %w", err)
	}
	return toShipmentDomainSlice(models), nil
}

// CountByStatus returns shipment counts grouped by status
func (r *ShipmentRepositoryImpl) CountByStatus(ctx context.Context) (map[shipping.ShipmentStatus]int64, error) {
	rows, err := r.countGrouped(ctx, "status")
	if err != nil {
		return nil, err
	}
	counts := make(map[shipping.ShipmentStatus]int64, len(rows))
	for key, n := range rows {
		counts[shipping.ShipmentStatus(key)] = n
	}
	return counts, nil
}

// CountByCarrier returns shipment counts grouped by carrier
func (r *ShipmentRepositoryImpl) CountByCarrier(ctx context.Context) (map[string]int64, error) {
	return r.countGrouped(ctx, "carrier")
}

func (r *ShipmentRepositoryImpl) countGrouped(ctx context.Context, column string) (map[string]int64, error) {
	type row struct {
		Key   string
		Count int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&ShipmentModel{}).
		Select(column+" AS key, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count shipments by %s: %w", column, err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Key] = r.Count
	}
	return counts, nil
}

func toShipmentDomainSlice(models []ShipmentModel) []*shipping.Shipment {
	shipments := make([]*shipping.Shipment, 0, len(models))
	for i := range models {
		shipments = append(shipments, toShipmentDomain(&models[i]))
	}
	return shipments
}

var _ shipping.ShipmentRepository = (*ShipmentRepositoryImpl)(nil)
