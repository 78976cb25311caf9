package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/fulfillment/internal/domain/shared"
	"github.com/retailops/fulfillment/internal/domain/shared/valueobject"
	"github.com/retailops/fulfillment/internal/domain/shipping"
)

func testDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewTestDatabase()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func persistedShipment(t *testing.T, tracking string) *shipping.Shipment {
	t.Helper()
	s := shipping.NewShipment(uuid.New(), "main-1", shipping.GroupTypeMain,
		valueobject.MustNewAddress("W", "1 Dock Rd", "Oakland", "CA", "94607", "US"),
		valueobject.MustNewAddress("C", "9 Elm St", "Denver", "CO", "80202", "US"))
	if tracking != "" {
		cost, err := valueobject.NewMoneyUSDFromFloat(24.80)
		require.NoError(t, err)
		require.NoError(t, s.AttachLabel("shiplane", "ground", tracking, "https://labels.example/1.pdf", "ref-1", cost, nil))
	}
	s.ClearDomainEvents()
	return s
}

func TestShipmentRepository(t *testing.T) {
	db := testDB(t)
	repo := NewShipmentRepository(db.DB)
	ctx := context.Background()

	t.Run("save and find round trip", func(t *testing.T) {
		s := persistedShipment(t, "TRK-RT")
		require.NoError(t, repo.Save(ctx, s))

		found, err := repo.FindByID(ctx, s.GetID())
		require.NoError(t, err)
		assert.Equal(t, s.OrderID, found.OrderID)
		assert.Equal(t, shipping.ShipmentStatusLabelCreated, found.Status)
		assert.Equal(t, "TRK-RT", found.TrackingNumber)
		assert.Zero(t, found.Cost.Cmp(s.Cost))
		assert.Equal(t, "Denver", found.Destination.City)
	})

	t.Run("save is an upsert", func(t *testing.T) {
		s := persistedShipment(t, "TRK-UP")
		require.NoError(t, repo.Save(ctx, s))

		require.NoError(t, s.MarkShipped(time.Now()))
		require.NoError(t, repo.Save(ctx, s))

		found, err := repo.FindByID(ctx, s.GetID())
		require.NoError(t, err)
		assert.Equal(t, shipping.ShipmentStatusShipped, found.Status)
		require.NotNil(t, found.ShippedAt)
	})

	t.Run("stale aggregate cannot overwrite a newer row", func(t *testing.T) {
		s := persistedShipment(t, "TRK-VER")
		require.NoError(t, repo.Save(ctx, s))

		// Two actors load the same row
		first, err := repo.FindByID(ctx, s.GetID())
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, s.GetID())
		require.NoError(t, err)

		require.NoError(t, first.MarkShipped(time.Now()))
		require.NoError(t, repo.Save(ctx, first))

		require.NoError(t, second.MarkShipped(time.Now()))
		err = repo.Save(ctx, second)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		found, err := repo.FindByID(ctx, s.GetID())
		require.NoError(t, err)
		assert.Equal(t, first.GetVersion(), found.GetVersion())
	})

	t.Run("save bumps the aggregate version", func(t *testing.T) {
		s := persistedShipment(t, "TRK-BUMP")
		require.NoError(t, repo.Save(ctx, s))
		v := s.GetVersion()

		require.NoError(t, s.MarkShipped(time.Now()))
		require.NoError(t, repo.Save(ctx, s))
		assert.Equal(t, v+1, s.GetVersion())

		found, err := repo.FindByID(ctx, s.GetID())
		require.NoError(t, err)
		assert.Equal(t, s.GetVersion(), found.GetVersion())
	})

	t.Run("find by tracking number", func(t *testing.T) {
		s := persistedShipment(t, "TRK-FIND")
		require.NoError(t, repo.Save(ctx, s))

		found, err := repo.FindByTrackingNumber(ctx, "TRK-FIND")
		require.NoError(t, err)
		assert.Equal(t, s.GetID(), found.GetID())
	})

	t.Run("missing shipment maps to typed error", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shipping.ErrShipmentNotFound)

		_, err = repo.FindByTrackingNumber(ctx, "TRK-NOPE")
		assert.ErrorIs(t, err, shipping.ErrShipmentNotFound)
	})

	t.Run("find by order groups siblings", func(t *testing.T) {
		orderID := uuid.New()
		first := persistedShipment(t, "TRK-A")
		first.OrderID = orderID
		second := persistedShipment(t, "TRK-B")
		second.OrderID = orderID
		require.NoError(t, repo.Save(ctx, first))
		require.NoError(t, repo.Save(ctx, second))

		found, err := repo.FindByOrderID(ctx, orderID)
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("active excludes terminal states", func(t *testing.T) {
		delivered := persistedShipment(t, "TRK-DONE")
		require.NoError(t, delivered.MarkShipped(time.Now()))
		require.NoError(t, delivered.MarkDelivered(time.Now()))
		require.NoError(t, repo.Save(ctx, delivered))

		active, err := repo.FindActive(ctx, 100)
		require.NoError(t, err)
		for _, s := range active {
			assert.True(t, s.IsActive(), s.TrackingNumber)
		}
	})

	t.Run("counts by status and carrier", func(t *testing.T) {
		byStatus, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, byStatus)

		byCarrier, err := repo.CountByCarrier(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, byCarrier["shiplane"], int64(1))
	})
}

func TestWebhookEventRepository(t *testing.T) {
	db := testDB(t)
	repo := NewWebhookEventRepository(db.DB)
	ctx := context.Background()

	t.Run("save and reload", func(t *testing.T) {
		event := shipping.NewWebhookEvent("shiplane", "delivered", "TRK1", `{"x":1}`, nil)
		require.NoError(t, repo.Save(ctx, event))

		found, err := repo.FindByID(ctx, event.GetID())
		require.NoError(t, err)
		assert.Equal(t, shipping.WebhookEventDelivered, found.EventType)
		assert.Equal(t, shipping.ProcessingStatusPending, found.Status)
		assert.Equal(t, `{"x":1}`, found.Payload)
	})

	t.Run("retryable honors ceiling and status", func(t *testing.T) {
		failed := shipping.NewWebhookEvent("shiplane", "shipped", "TRK2", "{}", nil)
		failed.MarkFailed(assert.AnError)
		require.NoError(t, repo.Save(ctx, failed))

		exhausted := shipping.NewWebhookEvent("shiplane", "shipped", "TRK3", "{}", nil)
		exhausted.MarkFailed(assert.AnError)
		exhausted.CountRetry()
		exhausted.CountRetry()
		exhausted.CountRetry()
		require.NoError(t, repo.Save(ctx, exhausted))

		events, err := repo.FindRetryable(ctx, 3, 10)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, failed.GetID(), events[0].GetID())
	})

	t.Run("processed events are not retryable", func(t *testing.T) {
		event := shipping.NewWebhookEvent("shiplane", "delivered", "TRK4", "{}", nil)
		event.MarkProcessed()
		require.NoError(t, repo.Save(ctx, event))

		events, err := repo.FindRetryable(ctx, 3, 10)
		require.NoError(t, err)
		for _, e := range events {
			assert.NotEqual(t, event.GetID(), e.GetID())
		}
	})
}
