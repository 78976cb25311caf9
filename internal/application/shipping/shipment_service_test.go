package shipping

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/retailops/fulfillment/internal/domain/shared"
	"github.com/retailops/fulfillment/internal/domain/shared/valueobject"
	"github.com/retailops/fulfillment/internal/domain/shipping"
)

type shipmentServiceFixture struct {
	repo      *mockShipmentRepo
	gateway   *mockGateway
	notifier  *mockNotifier
	alerts    *mockAlerter
	orders    *mockOrderPort
	followUps *mockFollowUps
	labels    *mockLabelStore
	svc       *ShipmentService
}

func newShipmentServiceFixture() *shipmentServiceFixture {
	f := &shipmentServiceFixture{
		repo:      &mockShipmentRepo{},
		gateway:   &mockGateway{},
		notifier:  &mockNotifier{},
		alerts:    &mockAlerter{},
		orders:    &mockOrderPort{},
		followUps: &mockFollowUps{},
		labels:    &mockLabelStore{},
	}
	rates := NewRateService(RateServiceConfig{
		Gateway:       f.gateway,
		Rules:         shipping.DefaultRateRules(),
		GroupingRules: shipping.DefaultGroupingRules(),
		Logger:        zap.NewNop(),
	})
	f.svc = NewShipmentService(ShipmentServiceConfig{
		ShipmentRepo:  f.repo,
		Gateway:       f.gateway,
		Rates:         rates,
		Labels:        f.labels,
		Notifier:      f.notifier,
		Alerts:        f.alerts,
		Orders:        f.orders,
		FollowUps:     f.followUps,
		GroupingRules: shipping.DefaultGroupingRules(),
		Logger:        zap.NewNop(),
	})
	return f
}

func bookingResult(t *testing.T, tracking string, costUSD float64) *shipping.BookShipmentResult {
	cost, err := valueobject.NewMoneyUSDFromFloat(costUSD)
	require.NoError(t, err)
	return &shipping.BookShipmentResult{
		TrackingNumber: tracking,
		LabelURL:       "https://carrier.example/labels/" + tracking + ".pdf",
		CarrierRef:     "ref-" + tracking,
		Cost:           cost,
	}
}

func labeledShipment(t *testing.T, tracking string) *shipping.Shipment {
	t.Helper()
	s := shipping.NewShipment(uuid.New(), "main-1", shipping.GroupTypeMain,
		valueobject.MustNewAddress("W", "1 Dock Rd", "Oakland", "CA", "94607", "US"),
		valueobject.MustNewAddress("C", "9 Elm St", "Denver", "CO", "80202", "US"))
	cost, _ := valueobject.NewMoneyUSDFromFloat(20)
	require.NoError(t, s.AttachLabel("shiplane", "ground", tracking, "", "ref-"+tracking, cost, nil))
	s.ClearDomainEvents()
	return s
}

func shippedShipment(t *testing.T, tracking string) *shipping.Shipment {
	t.Helper()
	s := shipping.NewShipment(uuid.New(), "main-1", shipping.GroupTypeMain,
		valueobject.MustNewAddress("W", "1 Dock Rd", "Oakland", "CA", "94607", "US"),
		valueobject.MustNewAddress("C", "9 Elm St", "Denver", "CO", "80202", "US"))
	cost, _ := valueobject.NewMoneyUSDFromFloat(20)
	require.NoError(t, s.AttachLabel("shiplane", "ground", tracking, "", "ref-"+tracking, cost, nil))
	require.NoError(t, s.MarkShipped(time.Now().Add(-24*time.Hour)))
	s.ClearDomainEvents()
	return s
}

func TestCreateShipments(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()

	t.Run("books one shipment per group", func(t *testing.T) {
		f := newShipmentServiceFixture()
		f.gateway.On("GetRates", mock.Anything, mock.Anything).
			Return([]shipping.RateOption{carrierOpt(t, "r1", 15, 4)}, nil)
		f.gateway.On("GetFreightRates", mock.Anything, mock.Anything).
			Return([]shipping.RateOption{carrierOpt(t, "f1", 380, 7)}, nil)
		f.gateway.On("BookShipment", mock.Anything, mock.Anything).
			Return(bookingResult(t, "TRK1", 15), nil).Once()
		f.gateway.On("BookShipment", mock.Anything, mock.Anything).
			Return(bookingResult(t, "TRK2", 380), nil).Once()
		f.labels.On("Store", mock.Anything, mock.Anything, mock.Anything).
			Return("s3://labels/archived.pdf", nil)
		f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)

		resp, err := f.svc.CreateShipments(ctx, CreateShipmentsRequest{
			OrderID:     orderID.String(),
			Origin:      originReq("94607"),
			Destination: testAddrReq("80202"),
			Items: []ItemRequest{
				parcelItemReq("LAMP-1", 1, 80),
				freightItemReq("SOFA-1", 900),
			},
		})

		require.NoError(t, err)
		require.Len(t, resp.Shipments, 2)
		assert.Empty(t, resp.Errors)
		assert.Equal(t, "LABEL_CREATED", resp.Shipments[0].Status)
		assert.Equal(t, "TRK1", resp.Shipments[0].TrackingNumber)
		assert.Equal(t, "s3://labels/archived.pdf", resp.Shipments[0].LabelURL)
		f.repo.AssertNumberOfCalls(t, "Save", 2)
	})

	t.Run("high value shipments get signature and insurance", func(t *testing.T) {
		f := newShipmentServiceFixture()
		f.gateway.On("GetRates", mock.Anything, mock.Anything).
			Return([]shipping.RateOption{carrierOpt(t, "r1", 15, 4)}, nil)
		f.gateway.On("BookShipment", mock.Anything, mock.MatchedBy(func(req shipping.BookShipmentRequest) bool {
			return req.SignatureRequired && !req.InsuredValue.IsZero()
		})).Return(bookingResult(t, "TRK1", 15), nil)
		f.labels.On("Store", mock.Anything, mock.Anything, mock.Anything).
			Return("s3://labels/archived.pdf", nil)
		f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)

		resp, err := f.svc.CreateShipments(ctx, CreateShipmentsRequest{
			OrderID:     orderID.String(),
			Origin:      originReq("94607"),
			Destination: testAddrReq("80202"),
			Items:       []ItemRequest{parcelItemReq("TV-1", 1, 899)},
		})

		require.NoError(t, err)
		require.Len(t, resp.Shipments, 1)
		assert.True(t, resp.Shipments[0].SignatureRequired)
		assert.Equal(t, 899.0, resp.Shipments[0].InsuredValueUSD)
		f.gateway.AssertExpectations(t)
	})

	t.Run("a five hundred dollar item books without extras", func(t *testing.T) {
		f := newShipmentServiceFixture()
		f.gateway.On("GetRates", mock.Anything, mock.Anything).
			Return([]shipping.RateOption{carrierOpt(t, "r1", 15, 4)}, nil)
		f.gateway.On("BookShipment", mock.Anything, mock.MatchedBy(func(req shipping.BookShipmentRequest) bool {
			return !req.SignatureRequired && req.InsuredValue.IsZero()
		})).Return(bookingResult(t, "TRK1", 15), nil)
		f.labels.On("Store", mock.Anything, mock.Anything, mock.Anything).
			Return("s3://labels/archived.pdf", nil)
		f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)

		resp, err := f.svc.CreateShipments(ctx, CreateShipmentsRequest{
			OrderID:     orderID.String(),
			Origin:      originReq("94607"),
			Destination: testAddrReq("80202"),
			Items:       []ItemRequest{parcelItemReq("TV-1", 1, 500)},
		})

		require.NoError(t, err)
		require.Len(t, resp.Shipments, 1)
		assert.False(t, resp.Shipments[0].SignatureRequired)
		assert.Equal(t, 0.0, resp.Shipments[0].InsuredValueUSD)
		f.gateway.AssertExpectations(t)
	})

	t.Run("a cart of cheap items over the threshold needs no signature", func(t *testing.T) {
		f := newShipmentServiceFixture()
		f.gateway.On("GetRates", mock.Anything, mock.Anything).
			Return([]shipping.RateOption{carrierOpt(t, "r1", 15, 4)}, nil)
		f.gateway.On("BookShipment", mock.Anything, mock.MatchedBy(func(req shipping.BookShipmentRequest) bool {
			return !req.SignatureRequired && !req.InsuredValue.IsZero()
		})).Return(bookingResult(t, "TRK1", 15), nil)
		f.labels.On("Store", mock.Anything, mock.Anything, mock.Anything).
			Return("s3://labels/archived.pdf", nil)
		f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)

		resp, err := f.svc.CreateShipments(ctx, CreateShipmentsRequest{
			OrderID:     orderID.String(),
			Origin:      originReq("94607"),
			Destination: testAddrReq("80202"),
			Items:       []ItemRequest{parcelItemReq("MUG-1", 4, 200)},
		})

		require.NoError(t, err)
		require.Len(t, resp.Shipments, 1)
		assert.False(t, resp.Shipments[0].SignatureRequired)
		assert.Equal(t, 800.0, resp.Shipments[0].InsuredValueUSD)
		f.gateway.AssertExpectations(t)
	})

	t.Run("white-glove selection books with assembly metadata", func(t *testing.T) {
		f := newShipmentServiceFixture()
		f.gateway.On("GetRates", mock.Anything, mock.Anything).
			Return([]shipping.RateOption{carrierOpt(t, "r1", 15, 4)}, nil)
		f.gateway.On("BookShipment", mock.Anything, mock.MatchedBy(func(req shipping.BookShipmentRequest) bool {
			return req.WhiteGlove && req.AssemblyRequired && req.SignatureRequired &&
				req.Service == "white_glove" && !req.IsGift
		})).Return(bookingResult(t, "TRK1", 250), nil)
		f.labels.On("Store", mock.Anything, mock.Anything, mock.Anything).
			Return("s3://labels/archived.pdf", nil)
		f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)

		desk := parcelItemReq("DESK-1", 1, 300)
		desk.RequiresAssembly = true
		resp, err := f.svc.CreateShipments(ctx, CreateShipmentsRequest{
			OrderID:     orderID.String(),
			Origin:      originReq("94607"),
			Destination: testAddrReq("80202"),
			Items:       []ItemRequest{desk},
			Selections:  map[string]string{"main-1": "wg-main-1"},
		})

		require.NoError(t, err)
		require.Len(t, resp.Shipments, 1)
		assert.Equal(t, "white_glove", resp.Shipments[0].Service)
		assert.True(t, resp.Shipments[0].SignatureRequired)
		f.gateway.AssertExpectations(t)
	})

	t.Run("gift groups book with gift metadata", func(t *testing.T) {
		f := newShipmentServiceFixture()
		f.gateway.On("GetRates", mock.Anything, mock.Anything).
			Return([]shipping.RateOption{carrierOpt(t, "r1", 15, 4)}, nil)
		f.gateway.On("BookShipment", mock.Anything, mock.MatchedBy(func(req shipping.BookShipmentRequest) bool {
			return req.IsGift && !req.WhiteGlove
		})).Return(bookingResult(t, "TRK1", 15), nil)
		f.labels.On("Store", mock.Anything, mock.Anything, mock.Anything).
			Return("s3://labels/archived.pdf", nil)
		f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)

		gift := parcelItemReq("GIFT-1", 1, 40)
		gift.IsGift = true
		resp, err := f.svc.CreateShipments(ctx, CreateShipmentsRequest{
			OrderID:     orderID.String(),
			Origin:      originReq("94607"),
			Destination: testAddrReq("80202"),
			Items:       []ItemRequest{gift},
		})

		require.NoError(t, err)
		require.Len(t, resp.Shipments, 1)
		assert.Equal(t, "gift", resp.Shipments[0].GroupType)
		f.gateway.AssertExpectations(t)
	})

	t.Run("carrier booking failure lands in the error list", func(t *testing.T) {
		f := newShipmentServiceFixture()
		f.gateway.On("GetRates", mock.Anything, mock.Anything).
			Return([]shipping.RateOption{carrierOpt(t, "r1", 15, 4)}, nil)
		f.gateway.On("BookShipment", mock.Anything, mock.Anything).
			Return(nil, shipping.NewCarrierHTTPError(422, "invalid address"))

		resp, err := f.svc.CreateShipments(ctx, CreateShipmentsRequest{
			OrderID:     orderID.String(),
			Origin:      originReq("94607"),
			Destination: testAddrReq("80202"),
			Items:       []ItemRequest{parcelItemReq("LAMP-1", 1, 80)},
		})

		require.NoError(t, err)
		assert.Empty(t, resp.Shipments)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "main-1", resp.Errors[0].GroupID)
		assert.Equal(t, "SHIPMENT_CREATION_FAILED", resp.Errors[0].Code)
	})

	t.Run("one failed group keeps the other bookings", func(t *testing.T) {
		f := newShipmentServiceFixture()
		f.gateway.On("GetRates", mock.Anything, mock.Anything).
			Return([]shipping.RateOption{carrierOpt(t, "r1", 15, 4)}, nil)
		f.gateway.On("GetFreightRates", mock.Anything, mock.Anything).
			Return([]shipping.RateOption{carrierOpt(t, "f1", 380, 7)}, nil)
		f.gateway.On("BookShipment", mock.Anything, mock.Anything).
			Return(bookingResult(t, "TRK1", 15), nil).Once()
		f.gateway.On("BookShipment", mock.Anything, mock.Anything).
			Return(nil, shipping.NewCarrierHTTPError(503, "carrier down")).Once()
		f.labels.On("Store", mock.Anything, mock.Anything, mock.Anything).
			Return("s3://labels/archived.pdf", nil)
		f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)

		resp, err := f.svc.CreateShipments(ctx, CreateShipmentsRequest{
			OrderID:     orderID.String(),
			Origin:      originReq("94607"),
			Destination: testAddrReq("80202"),
			Items: []ItemRequest{
				parcelItemReq("LAMP-1", 1, 80),
				freightItemReq("SOFA-1", 900),
			},
		})

		require.NoError(t, err)
		require.Len(t, resp.Shipments, 1)
		assert.Equal(t, "TRK1", resp.Shipments[0].TrackingNumber)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "SHIPMENT_CREATION_FAILED", resp.Errors[0].Code)
	})

	t.Run("label archive failure keeps the carrier URL", func(t *testing.T) {
		f := newShipmentServiceFixture()
		f.gateway.On("GetRates", mock.Anything, mock.Anything).
			Return([]shipping.RateOption{carrierOpt(t, "r1", 15, 4)}, nil)
		f.gateway.On("BookShipment", mock.Anything, mock.Anything).
			Return(bookingResult(t, "TRK1", 15), nil)
		f.labels.On("Store", mock.Anything, mock.Anything, mock.Anything).
			Return("", errors.New("bucket unavailable"))
		f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)

		resp, err := f.svc.CreateShipments(ctx, CreateShipmentsRequest{
			OrderID:     orderID.String(),
			Origin:      originReq("94607"),
			Destination: testAddrReq("80202"),
			Items:       []ItemRequest{parcelItemReq("LAMP-1", 1, 80)},
		})

		require.NoError(t, err)
		require.Len(t, resp.Shipments, 1)
		assert.Contains(t, resp.Shipments[0].LabelURL, "carrier.example")
	})

	t.Run("invalid order id is rejected", func(t *testing.T) {
		f := newShipmentServiceFixture()
		_, err := f.svc.CreateShipments(ctx, CreateShipmentsRequest{
			OrderID:     "not-a-uuid",
			Origin:      originReq("94607"),
			Destination: testAddrReq("80202"),
			Items:       []ItemRequest{parcelItemReq("LAMP-1", 1, 80)},
		})
		assert.Error(t, err)
	})
}

func TestRefreshTracking(t *testing.T) {
	ctx := context.Background()

	t.Run("delivered update notifies and completes the order", func(t *testing.T) {
		f := newShipmentServiceFixture()
		s := shippedShipment(t, "TRK1")
		deliveredAt := time.Now()

		f.repo.On("FindByID", mock.Anything, s.GetID()).Return(s, nil)
		f.gateway.On("GetTracking", mock.Anything, "TRK1").Return(&shipping.TrackingInfo{
			TrackingNumber: "TRK1",
			Status:         "delivered",
			DeliveredAt:    &deliveredAt,
		}, nil)
		f.repo.On("Save", mock.Anything, s).Return(nil)
		f.notifier.On("NotifyDelivered", mock.Anything, s.OrderID, "TRK1").Return(nil)
		f.repo.On("FindByOrderID", mock.Anything, s.OrderID).Return([]*shipping.Shipment{s}, nil)
		f.orders.On("MarkOrderComplete", mock.Anything, s.OrderID).Return(nil)
		f.followUps.On("Schedule", mock.Anything, s.OrderID, shipping.FollowUpWarrantyStart, mock.Anything).Return(nil)
		f.followUps.On("Schedule", mock.Anything, s.OrderID, shipping.FollowUpReviewRequest, mock.Anything).Return(nil)

		resp, err := f.svc.RefreshTracking(ctx, s.GetID())
		require.NoError(t, err)
		assert.Equal(t, "DELIVERED", resp.Status)
		f.orders.AssertExpectations(t)
		f.followUps.AssertExpectations(t)
	})

	t.Run("unknown carrier status leaves the shipment unchanged", func(t *testing.T) {
		f := newShipmentServiceFixture()
		s := shippedShipment(t, "TRK1")

		f.repo.On("FindByID", mock.Anything, s.GetID()).Return(s, nil)
		f.gateway.On("GetTracking", mock.Anything, "TRK1").Return(&shipping.TrackingInfo{
			TrackingNumber: "TRK1",
			Status:         "customs_hold_maybe",
		}, nil)

		resp, err := f.svc.RefreshTracking(ctx, s.GetID())
		require.NoError(t, err)
		assert.Equal(t, "SHIPPED", resp.Status)
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("exception update records the reason and pages operations", func(t *testing.T) {
		f := newShipmentServiceFixture()
		s := shippedShipment(t, "TRK1")

		f.repo.On("FindByID", mock.Anything, s.GetID()).Return(s, nil)
		f.gateway.On("GetTracking", mock.Anything, "TRK1").Return(&shipping.TrackingInfo{
			TrackingNumber: "TRK1",
			Status:         "exception",
			Events: []shipping.TrackingEvent{
				{Status: "exception", Description: "recipient unavailable"},
			},
		}, nil)
		f.repo.On("Save", mock.Anything, s).Return(nil)
		f.notifier.On("NotifyException", mock.Anything, s.OrderID, "TRK1", "recipient unavailable").Return(nil)
		f.alerts.On("AlertException", mock.Anything, s.GetID(), s.OrderID, "TRK1", "recipient unavailable").Return(nil)

		resp, err := f.svc.RefreshTracking(ctx, s.GetID())
		require.NoError(t, err)
		assert.Equal(t, "EXCEPTION", resp.Status)
		assert.Equal(t, "recipient unavailable", resp.ExceptionReason)
		f.notifier.AssertExpectations(t)
		f.alerts.AssertExpectations(t)
	})

	t.Run("alert delivery failure does not fail the update", func(t *testing.T) {
		f := newShipmentServiceFixture()
		s := shippedShipment(t, "TRK1")

		f.repo.On("FindByID", mock.Anything, s.GetID()).Return(s, nil)
		f.gateway.On("GetTracking", mock.Anything, "TRK1").Return(&shipping.TrackingInfo{
			TrackingNumber: "TRK1",
			Status:         "exception",
		}, nil)
		f.repo.On("Save", mock.Anything, s).Return(nil)
		f.notifier.On("NotifyException", mock.Anything, s.OrderID, "TRK1", mock.Anything).Return(nil)
		f.alerts.On("AlertException", mock.Anything, s.GetID(), s.OrderID, "TRK1", mock.Anything).
			Return(errors.New("pager down"))

		resp, err := f.svc.RefreshTracking(ctx, s.GetID())
		require.NoError(t, err)
		assert.Equal(t, "EXCEPTION", resp.Status)
	})

	t.Run("carrier failure maps to tracking update error", func(t *testing.T) {
		f := newShipmentServiceFixture()
		s := shippedShipment(t, "TRK1")

		f.repo.On("FindByID", mock.Anything, s.GetID()).Return(s, nil)
		f.gateway.On("GetTracking", mock.Anything, "TRK1").
			Return(nil, shipping.NewCarrierNetworkError(errors.New("timeout")))

		_, err := f.svc.RefreshTracking(ctx, s.GetID())
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "TRACKING_UPDATE_FAILED", de.Code)
	})

	t.Run("terminal shipments are not polled", func(t *testing.T) {
		f := newShipmentServiceFixture()
		s := shippedShipment(t, "TRK1")
		require.NoError(t, s.MarkDelivered(time.Now()))

		f.repo.On("FindByID", mock.Anything, s.GetID()).Return(s, nil)

		resp, err := f.svc.RefreshTracking(ctx, s.GetID())
		require.NoError(t, err)
		assert.Equal(t, "DELIVERED", resp.Status)
		f.gateway.AssertNotCalled(t, "GetTracking", mock.Anything, mock.Anything)
	})
}

func TestApplyCarrierEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("shipped event completes the order once every shipment is en route", func(t *testing.T) {
		f := newShipmentServiceFixture()
		s := labeledShipment(t, "TRK1")
		sibling := shippedShipment(t, "TRK2")
		sibling.OrderID = s.OrderID

		f.repo.On("FindByTrackingNumber", mock.Anything, "TRK1").Return(s, nil)
		f.repo.On("FindByID", mock.Anything, s.GetID()).Return(s, nil)
		f.repo.On("Save", mock.Anything, s).Return(nil)
		f.notifier.On("NotifyShipped", mock.Anything, s.OrderID, "TRK1").Return(nil)
		f.repo.On("FindByOrderID", mock.Anything, s.OrderID).Return([]*shipping.Shipment{s, sibling}, nil)
		f.orders.On("MarkOrderComplete", mock.Anything, s.OrderID).Return(nil)

		err := f.svc.ApplyCarrierEvent(ctx, "TRK1", shipping.WebhookEventShipped, nil, "picked up")
		require.NoError(t, err)
		assert.Equal(t, shipping.ShipmentStatusShipped, s.Status)
		f.orders.AssertExpectations(t)
		f.followUps.AssertNotCalled(t, "Schedule", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("order stays open while a sibling has not shipped", func(t *testing.T) {
		f := newShipmentServiceFixture()
		s := labeledShipment(t, "TRK1")
		sibling := labeledShipment(t, "TRK2")
		sibling.OrderID = s.OrderID

		f.repo.On("FindByTrackingNumber", mock.Anything, "TRK1").Return(s, nil)
		f.repo.On("FindByID", mock.Anything, s.GetID()).Return(s, nil)
		f.repo.On("Save", mock.Anything, s).Return(nil)
		f.notifier.On("NotifyShipped", mock.Anything, s.OrderID, "TRK1").Return(nil)
		f.repo.On("FindByOrderID", mock.Anything, s.OrderID).Return([]*shipping.Shipment{s, sibling}, nil)

		err := f.svc.ApplyCarrierEvent(ctx, "TRK1", shipping.WebhookEventShipped, nil, "picked up")
		require.NoError(t, err)
		f.orders.AssertNotCalled(t, "MarkOrderComplete", mock.Anything, mock.Anything)
	})

	t.Run("unknown event type is ignored", func(t *testing.T) {
		f := newShipmentServiceFixture()
		s := shippedShipment(t, "TRK1")

		f.repo.On("FindByTrackingNumber", mock.Anything, "TRK1").Return(s, nil)
		f.repo.On("FindByID", mock.Anything, s.GetID()).Return(s, nil)

		err := f.svc.ApplyCarrierEvent(ctx, "TRK1", shipping.WebhookEventUnknown, nil, "")
		require.NoError(t, err)
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestCancelShipment(t *testing.T) {
	ctx := context.Background()

	t.Run("voids at the carrier before pickup", func(t *testing.T) {
		f := newShipmentServiceFixture()
		s := shipping.NewShipment(uuid.New(), "main-1", shipping.GroupTypeMain,
			valueobject.MustNewAddress("W", "1 Dock Rd", "Oakland", "CA", "94607", "US"),
			valueobject.MustNewAddress("C", "9 Elm St", "Denver", "CO", "80202", "US"))
		cost, _ := valueobject.NewMoneyUSDFromFloat(20)
		require.NoError(t, s.AttachLabel("shiplane", "ground", "TRK1", "", "ref-TRK1", cost, nil))

		f.repo.On("FindByID", mock.Anything, s.GetID()).Return(s, nil)
		f.gateway.On("VoidShipment", mock.Anything, "ref-TRK1").Return(nil)
		f.repo.On("Save", mock.Anything, s).Return(nil)

		resp, err := f.svc.CancelShipment(ctx, s.GetID(), "customer request")
		require.NoError(t, err)
		assert.Equal(t, "FAILED", resp.Status)
		assert.Equal(t, "customer request", resp.FailureReason)
	})

	t.Run("shipped shipments cannot be cancelled", func(t *testing.T) {
		f := newShipmentServiceFixture()
		s := shippedShipment(t, "TRK1")
		f.repo.On("FindByID", mock.Anything, s.GetID()).Return(s, nil)

		_, err := f.svc.CancelShipment(ctx, s.GetID(), "too late")
		assert.ErrorIs(t, err, shipping.ErrShipmentCannotCancel)
		f.gateway.AssertNotCalled(t, "VoidShipment", mock.Anything, mock.Anything)
	})

	t.Run("carrier void failure maps to cancellation error", func(t *testing.T) {
		f := newShipmentServiceFixture()
		s := shipping.NewShipment(uuid.New(), "main-1", shipping.GroupTypeMain,
			valueobject.MustNewAddress("W", "1 Dock Rd", "Oakland", "CA", "94607", "US"),
			valueobject.MustNewAddress("C", "9 Elm St", "Denver", "CO", "80202", "US"))
		cost, _ := valueobject.NewMoneyUSDFromFloat(20)
		require.NoError(t, s.AttachLabel("shiplane", "ground", "TRK1", "", "ref-TRK1", cost, nil))

		f.repo.On("FindByID", mock.Anything, s.GetID()).Return(s, nil)
		f.gateway.On("VoidShipment", mock.Anything, "ref-TRK1").
			Return(shipping.NewCarrierHTTPError(409, "already manifested"))

		_, err := f.svc.CancelShipment(ctx, s.GetID(), "customer request")
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "CANCELLATION_FAILED", de.Code)
	})
}

func TestRefreshAllActive(t *testing.T) {
	ctx := context.Background()
	f := newShipmentServiceFixture()

	ok := shippedShipment(t, "TRK-OK")
	broken := shippedShipment(t, "TRK-BROKEN")

	f.repo.On("FindActive", mock.Anything, 100).Return([]*shipping.Shipment{ok, broken}, nil)
	f.repo.On("FindByID", mock.Anything, ok.GetID()).Return(ok, nil)
	f.repo.On("FindByID", mock.Anything, broken.GetID()).Return(broken, nil)
	f.gateway.On("GetTracking", mock.Anything, "TRK-OK").Return(&shipping.TrackingInfo{
		TrackingNumber: "TRK-OK",
		Status:         "delivered",
	}, nil)
	f.gateway.On("GetTracking", mock.Anything, "TRK-BROKEN").
		Return(nil, shipping.NewCarrierNetworkError(errors.New("timeout")))
	f.repo.On("Save", mock.Anything, ok).Return(nil)
	f.notifier.On("NotifyDelivered", mock.Anything, ok.OrderID, "TRK-OK").Return(nil)
	f.repo.On("FindByOrderID", mock.Anything, ok.OrderID).Return([]*shipping.Shipment{ok}, nil)
	f.orders.On("MarkOrderComplete", mock.Anything, ok.OrderID).Return(nil)
	f.followUps.On("Schedule", mock.Anything, ok.OrderID, mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.RefreshAllActive(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Checked)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Failed)
}

func TestGetStats(t *testing.T) {
	f := newShipmentServiceFixture()
	f.repo.On("CountByStatus", mock.Anything).Return(map[shipping.ShipmentStatus]int64{
		shipping.ShipmentStatusShipped:   3,
		shipping.ShipmentStatusDelivered: 12,
	}, nil)
	f.repo.On("CountByCarrier", mock.Anything).Return(map[string]int64{"shiplane": 15}, nil)

	stats, err := f.svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.ByStatus["SHIPPED"])
	assert.Equal(t, int64(15), stats.ByCarrier["shiplane"])
}
