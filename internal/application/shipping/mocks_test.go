package shipping

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/retailops/fulfillment/internal/domain/shipping"
)

type mockShipmentRepo struct {
	mock.Mock
}

func (m *mockShipmentRepo) Save(ctx context.Context, shipment *shipping.Shipment) error {
	args := m.Called(ctx, shipment)
	return args.Error(0)
}

func (m *mockShipmentRepo) FindByID(ctx context.Context, id uuid.UUID) (*shipping.Shipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Shipment), args.Error(1)
}

func (m *mockShipmentRepo) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]*shipping.Shipment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*shipping.Shipment), args.Error(1)
}

func (m *mockShipmentRepo) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*shipping.Shipment, error) {
	args := m.Called(ctx, trackingNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Shipment), args.Error(1)
}

func (m *mockShipmentRepo) FindActive(ctx context.Context, limit int) ([]*shipping.Shipment, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*shipping.Shipment), args.Error(1)
}

func (m *mockShipmentRepo) CountByStatus(ctx context.Context) (map[shipping.ShipmentStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[shipping.ShipmentStatus]int64), args.Error(1)
}

func (m *mockShipmentRepo) CountByCarrier(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

type mockWebhookEventRepo struct {
	mock.Mock
}

func (m *mockWebhookEventRepo) Save(ctx context.Context, event *shipping.WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockWebhookEventRepo) FindByID(ctx context.Context, id uuid.UUID) (*shipping.WebhookEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.WebhookEvent), args.Error(1)
}

func (m *mockWebhookEventRepo) FindRetryable(ctx context.Context, maxRetries, limit int) ([]*shipping.WebhookEvent, error) {
	args := m.Called(ctx, maxRetries, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*shipping.WebhookEvent), args.Error(1)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Name() string {
	return "shiplane"
}

func (m *mockGateway) GetRates(ctx context.Context, req shipping.RateQuoteRequest) ([]shipping.RateOption, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shipping.RateOption), args.Error(1)
}

func (m *mockGateway) GetFreightRates(ctx context.Context, req shipping.FreightQuoteRequest) ([]shipping.RateOption, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shipping.RateOption), args.Error(1)
}

func (m *mockGateway) BookShipment(ctx context.Context, req shipping.BookShipmentRequest) (*shipping.BookShipmentResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.BookShipmentResult), args.Error(1)
}

func (m *mockGateway) GetTracking(ctx context.Context, trackingNumber string) (*shipping.TrackingInfo, error) {
	args := m.Called(ctx, trackingNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.TrackingInfo), args.Error(1)
}

func (m *mockGateway) VoidShipment(ctx context.Context, carrierRef string) error {
	args := m.Called(ctx, carrierRef)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyShipped(ctx context.Context, orderID uuid.UUID, trackingNumber string) error {
	args := m.Called(ctx, orderID, trackingNumber)
	return args.Error(0)
}

func (m *mockNotifier) NotifyDelivered(ctx context.Context, orderID uuid.UUID, trackingNumber string) error {
	args := m.Called(ctx, orderID, trackingNumber)
	return args.Error(0)
}

func (m *mockNotifier) NotifyException(ctx context.Context, orderID uuid.UUID, trackingNumber, reason string) error {
	args := m.Called(ctx, orderID, trackingNumber, reason)
	return args.Error(0)
}

type mockAlerter struct {
	mock.Mock
}

func (m *mockAlerter) AlertException(ctx context.Context, shipmentID, orderID uuid.UUID, trackingNumber, reason string) error {
	args := m.Called(ctx, shipmentID, orderID, trackingNumber, reason)
	return args.Error(0)
}

type mockOrderPort struct {
	mock.Mock
}

func (m *mockOrderPort) MarkOrderComplete(ctx context.Context, orderID uuid.UUID) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

type mockFollowUps struct {
	mock.Mock
}

func (m *mockFollowUps) Schedule(ctx context.Context, orderID uuid.UUID, kind shipping.FollowUpKind, runAt time.Time) error {
	args := m.Called(ctx, orderID, kind, runAt)
	return args.Error(0)
}

type mockLabelStore struct {
	mock.Mock
}

func (m *mockLabelStore) Store(ctx context.Context, shipmentID uuid.UUID, labelURL string) (string, error) {
	args := m.Called(ctx, shipmentID, labelURL)
	return args.String(0), args.Error(1)
}

// fakeRateCache is a minimal in-memory cache for quote tests.
type fakeRateCache struct {
	mu      sync.Mutex
	entries map[string][]shipping.RateOption
	hits    int
	sets    int
}

func newFakeRateCache() *fakeRateCache {
	return &fakeRateCache{entries: make(map[string][]shipping.RateOption)}
}

func (c *fakeRateCache) Get(_ context.Context, key string) ([]shipping.RateOption, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	opts, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return opts, ok
}

func (c *fakeRateCache) Set(_ context.Context, key string, opts []shipping.RateOption, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = opts
	c.sets++
}
