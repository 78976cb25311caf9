package shipping

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retailops/fulfillment/internal/domain/shared"
	"github.com/retailops/fulfillment/internal/domain/shared/valueobject"
	"github.com/retailops/fulfillment/internal/domain/shipping"
)

// ShipmentService books shipments and drives their lifecycle from
// carrier signals. Status updates for one shipment are serialized
// through a per-shipment lock so webhook and polling paths never race.
type ShipmentService struct {
	shipmentRepo shipping.ShipmentRepository
	gateway      shipping.CarrierGateway
	rates        *RateService
	labels       shipping.LabelStore
	notifier     shipping.NotificationPort
	alerts       shipping.AlertPort
	orders       shipping.OrderPort
	followUps    shipping.FollowUpScheduler
	publisher    shared.EventPublisher
	grouping     shipping.GroupingRules
	origin       valueobject.Address
	locks        *keyedMutex
	logger       *zap.Logger
}

// ShipmentServiceConfig contains configuration for ShipmentService
type ShipmentServiceConfig struct {
	ShipmentRepo  shipping.ShipmentRepository
	Gateway       shipping.CarrierGateway
	Rates         *RateService
	Labels        shipping.LabelStore
	Notifier      shipping.NotificationPort
	Alerts        shipping.AlertPort
	Orders        shipping.OrderPort
	FollowUps     shipping.FollowUpScheduler
	Publisher     shared.EventPublisher
	GroupingRules shipping.GroupingRules
	DefaultOrigin valueobject.Address
	Logger        *zap.Logger
}

// NewShipmentService creates a new ShipmentService
func NewShipmentService(cfg ShipmentServiceConfig) *ShipmentService {
	return &ShipmentService{
		shipmentRepo: cfg.ShipmentRepo,
		gateway:      cfg.Gateway,
		rates:        cfg.Rates,
		labels:       cfg.Labels,
		notifier:     cfg.Notifier,
		alerts:       cfg.Alerts,
		orders:       cfg.Orders,
		followUps:    cfg.FollowUps,
		publisher:    cfg.Publisher,
		grouping:     cfg.GroupingRules,
		origin:       cfg.DefaultOrigin,
		locks:        newKeyedMutex(),
		logger:       cfg.Logger,
	}
}

// CreateShipments groups the cart and books one shipment per group.
// Every group is attempted; a failed group lands in the result's error
// list while shipments booked for the other groups are kept.
func (s *ShipmentService) CreateShipments(ctx context.Context, req CreateShipmentsRequest) (*CreateShipmentsResponse, error) {
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithDetails(map[string]any{"order_id": req.OrderID})
	}
	origin, err := resolveOrigin(req.Origin, s.origin)
	if err != nil {
		return nil, err
	}
	dest, err := req.Destination.ToAddress()
	if err != nil {
		return nil, err
	}
	items, err := ToLineItems(req.Items)
	if err != nil {
		return nil, err
	}

	groups := shipping.GroupItems(items, s.grouping)
	orderValue := shipping.ItemsTotalValue(items)

	resp := &CreateShipmentsResponse{Shipments: make([]ShipmentResponse, 0, len(groups))}
	for _, group := range groups {
		selection := req.Selections[group.ID]
		shipment, err := s.bookGroup(ctx, orderID, origin, dest, group, orderValue, selection)
		if err != nil {
			resp.Errors = append(resp.Errors, toGroupBookingError(group.ID, err))
			continue
		}
		resp.Shipments = append(resp.Shipments, ToShipmentResponse(shipment))
	}
	return resp, nil
}

func toGroupBookingError(groupID string, err error) GroupBookingError {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return GroupBookingError{GroupID: groupID, Code: domainErr.Code, Message: domainErr.Message}
	}
	return GroupBookingError{GroupID: groupID, Code: shipping.ErrShipmentCreationFailed.Code, Message: err.Error()}
}

// CreateSingleShipment books one shipment for the given items without
// cart grouping.
func (s *ShipmentService) CreateSingleShipment(ctx context.Context, req CreateSingleShipmentRequest) (*ShipmentResponse, error) {
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithDetails(map[string]any{"order_id": req.OrderID})
	}
	origin, err := resolveOrigin(req.Origin, s.origin)
	if err != nil {
		return nil, err
	}
	dest, err := req.Destination.ToAddress()
	if err != nil {
		return nil, err
	}
	items, err := ToLineItems(req.Items)
	if err != nil {
		return nil, err
	}

	group := shipping.ShipmentGroup{
		ID:    "main-1",
		Type:  shipping.GroupTypeMain,
		Items: items,
		Boxes: shipping.DerivePackages(items),
	}
	shipment, err := s.bookGroup(ctx, orderID, origin, dest, group, group.TotalValue(), req.RateID)
	if err != nil {
		return nil, err
	}
	resp := ToShipmentResponse(shipment)
	return &resp, nil
}

func (s *ShipmentService) bookGroup(ctx context.Context, orderID uuid.UUID, origin, dest valueobject.Address, group shipping.ShipmentGroup, orderValue valueobject.Money, selection string) (*shipping.Shipment, error) {
	group.RateOptions = s.rates.QuoteGroup(ctx, origin, dest, group, orderValue)
	group.SelectedRateID = selection
	rate, ok := group.SelectedRate()
	if !ok {
		return nil, shipping.ErrNoRateSelected.WithDetails(map[string]any{"group_id": group.ID})
	}

	shipment := shipping.NewShipment(orderID, group.ID, group.Type, origin, dest)
	shipment.SignatureRequired = rate.SignatureRequired || shipping.RequiresSignature(group.Items)
	shipment.InsuredValue = shipping.InsuredValueFor(group.TotalValue())

	boxes := group.Boxes
	if len(boxes) == 0 {
		boxes = shipping.DerivePackages(group.Items)
	}

	result, err := s.gateway.BookShipment(ctx, shipping.BookShipmentRequest{
		RateID:            rate.ID,
		Carrier:           rate.Carrier,
		Service:           rate.Service,
		Origin:            origin,
		Destination:       dest,
		Boxes:             boxes,
		InsuredValue:      shipment.InsuredValue,
		SignatureRequired: shipment.SignatureRequired,
		IsGift:            group.Type == shipping.GroupTypeGift,
		WhiteGlove:        rate.AssemblyIncluded,
		AssemblyRequired:  group.RequiresAssembly(),
		Reference:         orderID.String() + "/" + group.ID,
	})
	if err != nil {
		s.logger.Error("Carrier booking failed",
			zap.String("order_id", orderID.String()),
			zap.String("group_id", group.ID),
			zap.Error(err))
		return nil, shipping.ErrShipmentCreationFailed.WithDetails(map[string]any{
			"group_id": group.ID,
			"cause":    err.Error(),
		})
	}

	if err := shipment.AttachLabel(rate.Carrier, rate.Service, result.TrackingNumber, result.LabelURL, result.CarrierRef, result.Cost, result.EstimatedDelivery); err != nil {
		return nil, err
	}

	if s.labels != nil && result.LabelURL != "" {
		if archived, err := s.labels.Store(ctx, shipment.GetID(), result.LabelURL); err != nil {
			s.logger.Warn("Label archive failed, keeping carrier URL",
				zap.String("shipment_id", shipment.GetID().String()),
				zap.Error(err))
		} else {
			shipment.LabelURL = archived
		}
	}

	if err := s.shipmentRepo.Save(ctx, shipment); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, shipment)

	s.logger.Info("Shipment booked",
		zap.String("shipment_id", shipment.GetID().String()),
		zap.String("order_id", orderID.String()),
		zap.String("group_id", group.ID),
		zap.String("carrier", rate.Carrier),
		zap.String("tracking_number", result.TrackingNumber))
	return shipment, nil
}

// GetShipment retrieves a shipment by ID
func (s *ShipmentService) GetShipment(ctx context.Context, id uuid.UUID) (*ShipmentResponse, error) {
	shipment, err := s.shipmentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToShipmentResponse(shipment)
	return &resp, nil
}

// GetShipmentsByOrder retrieves all shipments booked for an order
func (s *ShipmentService) GetShipmentsByOrder(ctx context.Context, orderID uuid.UUID) ([]ShipmentResponse, error) {
	shipments, err := s.shipmentRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToShipmentResponses(shipments), nil
}

// RefreshTracking polls the carrier for the current status of one
// shipment and applies any lifecycle change.
func (s *ShipmentService) RefreshTracking(ctx context.Context, id uuid.UUID) (*ShipmentResponse, error) {
	unlock := s.locks.Lock(id.String())
	defer unlock()

	shipment, err := s.shipmentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !shipment.IsActive() || shipment.TrackingNumber == "" {
		resp := ToShipmentResponse(shipment)
		return &resp, nil
	}

	info, err := s.gateway.GetTracking(ctx, shipment.TrackingNumber)
	if err != nil {
		s.logger.Error("Tracking refresh failed",
			zap.String("shipment_id", id.String()),
			zap.String("tracking_number", shipment.TrackingNumber),
			zap.Error(err))
		return nil, shipping.ErrTrackingUpdateFailed.WithDetails(map[string]any{"cause": err.Error()})
	}

	status, known := shipping.MapCarrierStatus(info.Status)
	if !known {
		s.logger.Warn("Unknown carrier status, leaving shipment unchanged",
			zap.String("shipment_id", id.String()),
			zap.String("carrier_status", info.Status))
		resp := ToShipmentResponse(shipment)
		return &resp, nil
	}

	at := time.Now()
	if status == shipping.ShipmentStatusDelivered && info.DeliveredAt != nil {
		at = *info.DeliveredAt
	}
	reason := ""
	if len(info.Events) > 0 {
		reason = info.Events[len(info.Events)-1].Description
	}
	if info.EstimatedDelivery != nil {
		shipment.EstimatedDelivery = info.EstimatedDelivery
	}

	if _, err := s.applyStatus(ctx, shipment, status, at, reason); err != nil {
		return nil, err
	}
	resp := ToShipmentResponse(shipment)
	return &resp, nil
}

// ApplyCarrierEvent applies a normalized webhook event to the shipment
// owning the tracking number. Unknown event types are ignored.
func (s *ShipmentService) ApplyCarrierEvent(ctx context.Context, trackingNumber string, eventType shipping.WebhookEventType, occurredAt *time.Time, description string) error {
	shipment, err := s.shipmentRepo.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(shipment.GetID().String())
	defer unlock()

	// Reload under the lock so a concurrent update is not overwritten
	shipment, err = s.shipmentRepo.FindByID(ctx, shipment.GetID())
	if err != nil {
		return err
	}

	var status shipping.ShipmentStatus
	switch eventType {
	case shipping.WebhookEventShipped:
		status = shipping.ShipmentStatusShipped
	case shipping.WebhookEventDelivered:
		status = shipping.ShipmentStatusDelivered
	case shipping.WebhookEventException:
		status = shipping.ShipmentStatusException
	default:
		s.logger.Warn("Ignoring unknown carrier event type",
			zap.String("tracking_number", trackingNumber))
		return nil
	}

	at := time.Now()
	if occurredAt != nil {
		at = *occurredAt
	}
	_, err = s.applyStatus(ctx, shipment, status, at, description)
	return err
}

// applyStatus transitions the shipment, persists it, and runs the
// notification and order-completion side effects. Side effect failures
// are logged but never fail the update.
func (s *ShipmentService) applyStatus(ctx context.Context, shipment *shipping.Shipment, status shipping.ShipmentStatus, at time.Time, reason string) (bool, error) {
	before := shipment.Status

	var err error
	switch status {
	case shipping.ShipmentStatusShipped:
		err = shipment.MarkShipped(at)
	case shipping.ShipmentStatusDelivered:
		err = shipment.MarkDelivered(at)
	case shipping.ShipmentStatusException:
		err = shipment.RaiseException(reason)
	default:
		return false, shared.ErrInvalidState
	}
	if err != nil {
		return false, err
	}

	changed := shipment.Status != before
	if err := s.shipmentRepo.Save(ctx, shipment); err != nil {
		return false, err
	}
	s.publishEvents(ctx, shipment)

	if changed {
		s.notify(ctx, shipment)
		switch shipment.Status {
		case shipping.ShipmentStatusShipped:
			s.tryCompleteOrder(ctx, shipment)
		case shipping.ShipmentStatusDelivered:
			s.tryCompleteOrder(ctx, shipment)
			s.scheduleFollowUps(ctx, shipment)
		case shipping.ShipmentStatusException:
			s.alertException(ctx, shipment)
		}
	}
	return changed, nil
}

func (s *ShipmentService) notify(ctx context.Context, shipment *shipping.Shipment) {
	if s.notifier == nil {
		return
	}
	var err error
	switch shipment.Status {
	case shipping.ShipmentStatusShipped:
		err = s.notifier.NotifyShipped(ctx, shipment.OrderID, shipment.TrackingNumber)
	case shipping.ShipmentStatusDelivered:
		err = s.notifier.NotifyDelivered(ctx, shipment.OrderID, shipment.TrackingNumber)
	case shipping.ShipmentStatusException:
		err = s.notifier.NotifyException(ctx, shipment.OrderID, shipment.TrackingNumber, shipment.ExceptionReason)
	}
	if err != nil {
		s.logger.Warn("Customer notification failed",
			zap.String("shipment_id", shipment.GetID().String()),
			zap.Error(err))
	}
}

// alertException pages operations about a shipment stuck in exception.
// Alert delivery failures are logged, not propagated.
func (s *ShipmentService) alertException(ctx context.Context, shipment *shipping.Shipment) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.AlertException(ctx, shipment.GetID(), shipment.OrderID, shipment.TrackingNumber, shipment.ExceptionReason); err != nil {
		s.logger.Warn("Exception alert failed",
			zap.String("shipment_id", shipment.GetID().String()),
			zap.Error(err))
	}
}

// tryCompleteOrder marks the parent order complete once every shipment
// has left the origin. Failed shipments do not hold the order open.
func (s *ShipmentService) tryCompleteOrder(ctx context.Context, shipment *shipping.Shipment) {
	if s.orders == nil {
		return
	}
	siblings, err := s.shipmentRepo.FindByOrderID(ctx, shipment.OrderID)
	if err != nil {
		s.logger.Warn("Order completion check failed",
			zap.String("order_id", shipment.OrderID.String()),
			zap.Error(err))
		return
	}
	for _, sib := range siblings {
		switch sib.Status {
		case shipping.ShipmentStatusShipped, shipping.ShipmentStatusDelivered,
			shipping.ShipmentStatusException, shipping.ShipmentStatusFailed:
		default:
			return
		}
	}

	if err := s.orders.MarkOrderComplete(ctx, shipment.OrderID); err != nil {
		s.logger.Warn("Failed to mark order complete",
			zap.String("order_id", shipment.OrderID.String()),
			zap.Error(err))
	}
}

// scheduleFollowUps queues the post-delivery workflows for a delivered
// shipment.
func (s *ShipmentService) scheduleFollowUps(ctx context.Context, shipment *shipping.Shipment) {
	if s.followUps == nil {
		return
	}
	now := time.Now()
	if err := s.followUps.Schedule(ctx, shipment.OrderID, shipping.FollowUpWarrantyStart, now); err != nil {
		s.logger.Warn("Failed to schedule warranty start",
			zap.String("order_id", shipment.OrderID.String()),
			zap.Error(err))
	}
	if err := s.followUps.Schedule(ctx, shipment.OrderID, shipping.FollowUpReviewRequest, now.Add(7*24*time.Hour)); err != nil {
		s.logger.Warn("Failed to schedule review request",
			zap.String("order_id", shipment.OrderID.String()),
			zap.Error(err))
	}
}

// CancelShipment voids a shipment that has not yet left the origin.
func (s *ShipmentService) CancelShipment(ctx context.Context, id uuid.UUID, reason string) (*ShipmentResponse, error) {
	unlock := s.locks.Lock(id.String())
	defer unlock()

	shipment, err := s.shipmentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if shipment.Status != shipping.ShipmentStatusPending && shipment.Status != shipping.ShipmentStatusLabelCreated {
		return nil, shipping.ErrShipmentCannotCancel
	}

	if shipment.CarrierRef != "" {
		if err := s.gateway.VoidShipment(ctx, shipment.CarrierRef); err != nil {
			s.logger.Error("Carrier void failed",
				zap.String("shipment_id", id.String()),
				zap.Error(err))
			return nil, shipping.ErrCancellationFailed.WithDetails(map[string]any{"cause": err.Error()})
		}
	}

	if err := shipment.Cancel(reason); err != nil {
		return nil, err
	}
	if err := s.shipmentRepo.Save(ctx, shipment); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, shipment)

	resp := ToShipmentResponse(shipment)
	return &resp, nil
}

// RefreshAllActive polls the carrier for every non-terminal shipment.
// Individual failures are counted, not propagated, so one bad tracking
// number cannot stall the sweep.
func (s *ShipmentService) RefreshAllActive(ctx context.Context, limit int) (*RefreshAllResult, error) {
	if limit <= 0 {
		limit = 100
	}
	active, err := s.shipmentRepo.FindActive(ctx, limit)
	if err != nil {
		return nil, err
	}

	result := &RefreshAllResult{}
	for _, shipment := range active {
		result.Checked++
		before := shipment.Status
		refreshed, err := s.RefreshTracking(ctx, shipment.GetID())
		if err != nil {
			result.Failed++
			continue
		}
		if refreshed.Status != before.String() {
			result.Updated++
		}
	}
	return result, nil
}

// GetStats returns shipment counts by status and carrier
func (s *ShipmentService) GetStats(ctx context.Context) (*StatsResponse, error) {
	byStatus, err := s.shipmentRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byCarrier, err := s.shipmentRepo.CountByCarrier(ctx)
	if err != nil {
		return nil, err
	}

	stats := &StatsResponse{
		ByStatus:  make(map[string]int64, len(byStatus)),
		ByCarrier: byCarrier,
	}
	for status, n := range byStatus {
		stats.ByStatus[status.String()] = n
	}
	return stats, nil
}

func (s *ShipmentService) publishEvents(ctx context.Context, shipment *shipping.Shipment) {
	events := shipment.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("Domain event publish failed",
				zap.String("shipment_id", shipment.GetID().String()),
				zap.Error(err))
		}
	}
	shipment.ClearDomainEvents()
}
