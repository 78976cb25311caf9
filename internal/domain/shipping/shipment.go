package shipping

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailops/fulfillment/internal/domain/shared"
	"github.com/retailops/fulfillment/internal/domain/shared/valueobject"
)

// ShipmentStatus is the lifecycle state of a shipment.
type ShipmentStatus string

const (
	ShipmentStatusPending      ShipmentStatus = "PENDING"
	ShipmentStatusLabelCreated ShipmentStatus = "LABEL_CREATED"
	ShipmentStatusShipped      ShipmentStatus = "SHIPPED"
	ShipmentStatusDelivered    ShipmentStatus = "DELIVERED"
	ShipmentStatusException    ShipmentStatus = "EXCEPTION"
	ShipmentStatusFailed       ShipmentStatus = "FAILED"
)

func (s ShipmentStatus) String() string {
	return string(s)
}

func (s ShipmentStatus) IsValid() bool {
	switch s {
	case ShipmentStatusPending, ShipmentStatusLabelCreated, ShipmentStatusShipped,
		ShipmentStatusDelivered, ShipmentStatusException, ShipmentStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status accepts no further transitions
func (s ShipmentStatus) IsTerminal() bool {
	return s == ShipmentStatusDelivered || s == ShipmentStatusFailed
}

// CanTransitionTo reports whether the lifecycle permits moving to next.
func (s ShipmentStatus) CanTransitionTo(next ShipmentStatus) bool {
	allowed := map[ShipmentStatus][]ShipmentStatus{
		ShipmentStatusPending:      {ShipmentStatusLabelCreated, ShipmentStatusFailed},
		ShipmentStatusLabelCreated: {ShipmentStatusShipped, ShipmentStatusFailed},
		ShipmentStatusShipped:      {ShipmentStatusDelivered, ShipmentStatusException, ShipmentStatusFailed},
		ShipmentStatusException:    {ShipmentStatusDelivered},
		ShipmentStatusDelivered:    {},
		ShipmentStatusFailed:       {},
	}
	for _, t := range allowed[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Shipment is the aggregate root for one booked shipment group.
type Shipment struct {
	shared.BaseAggregateRoot

	OrderID   uuid.UUID
	GroupID   string
	GroupType GroupType

	Carrier        string
	Service        string
	TrackingNumber string
	LabelURL       string
	CarrierRef     string

	Status ShipmentStatus

	Cost              valueobject.Money
	InsuredValue      valueobject.Money
	SignatureRequired bool

	Origin      valueobject.Address
	Destination valueobject.Address

	EstimatedDelivery *time.Time
	ShippedAt         *time.Time
	DeliveredAt       *time.Time

	ExceptionReason string
	FailureReason   string
}

// NewShipment creates a shipment in PENDING, before any carrier call.
func NewShipment(orderID uuid.UUID, groupID string, groupType GroupType, origin, dest valueobject.Address) *Shipment {
	s := &Shipment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           orderID,
		GroupID:           groupID,
		GroupType:         groupType,
		Status:            ShipmentStatusPending,
		Cost:              valueobject.ZeroUSD(),
		InsuredValue:      valueobject.ZeroUSD(),
		Origin:            origin,
		Destination:       dest,
	}
	return s
}

// AttachLabel records a successful carrier booking and moves the
// shipment to LABEL_CREATED.
func (s *Shipment) AttachLabel(carrier, service, trackingNumber, labelURL, carrierRef string, cost valueobject.Money, estimatedDelivery *time.Time) error {
	if err := s.transitionTo(ShipmentStatusLabelCreated); err != nil {
		return err
	}
	s.Carrier = carrier
	s.Service = service
	s.TrackingNumber = trackingNumber
	s.LabelURL = labelURL
	s.CarrierRef = carrierRef
	s.Cost = cost
	s.EstimatedDelivery = estimatedDelivery
	s.Touch()
	s.AddDomainEvent(NewShipmentCreatedEvent(s))
	return nil
}

// MarkShipped records carrier pickup.
func (s *Shipment) MarkShipped(at time.Time) error {
	if s.Status == ShipmentStatusShipped {
		return nil
	}
	if err := s.transitionTo(ShipmentStatusShipped); err != nil {
		return err
	}
	s.ShippedAt = &at
	s.ExceptionReason = ""
	s.Touch()
	s.AddDomainEvent(NewShipmentShippedEvent(s))
	return nil
}

// MarkDelivered records final delivery. Delivery is accepted from both
// SHIPPED and EXCEPTION, since carriers often resolve an exception
// straight to delivered.
func (s *Shipment) MarkDelivered(at time.Time) error {
	if s.Status == ShipmentStatusDelivered {
		return nil
	}
	if err := s.transitionTo(ShipmentStatusDelivered); err != nil {
		return err
	}
	s.DeliveredAt = &at
	s.ExceptionReason = ""
	s.Touch()
	s.AddDomainEvent(NewShipmentDeliveredEvent(s))
	return nil
}

// RaiseException records a carrier exception with its reason.
func (s *Shipment) RaiseException(reason string) error {
	if s.Status == ShipmentStatusException {
		s.ExceptionReason = reason
		s.Touch()
		return nil
	}
	if err := s.transitionTo(ShipmentStatusException); err != nil {
		return err
	}
	s.ExceptionReason = reason
	s.Touch()
	s.AddDomainEvent(NewShipmentExceptionEvent(s, reason))
	return nil
}

// Cancel voids the shipment. Only shipments that have not left the
// origin can be cancelled.
func (s *Shipment) Cancel(reason string) error {
	if s.Status != ShipmentStatusPending && s.Status != ShipmentStatusLabelCreated {
		return ErrShipmentCannotCancel
	}
	if err := s.transitionTo(ShipmentStatusFailed); err != nil {
		return err
	}
	s.FailureReason = reason
	s.Touch()
	s.AddDomainEvent(NewShipmentCancelledEvent(s, reason))
	return nil
}

// RequiresSignature reports whether any single item's unit price
// mandates a delivery signature. The threshold is strict, a $500.00
// item ships without one.
func RequiresSignature(items []LineItem) bool {
	threshold, _ := valueobject.NewMoneyUSDFromFloat(SignatureValueThresholdUSD)
	for _, li := range items {
		if li.UnitPrice().Cmp(threshold) > 0 {
			return true
		}
	}
	return false
}

// InsuredValueFor returns the value to insure, which is the full
// declared value once it strictly exceeds the insurance threshold and
// zero at or below it.
func InsuredValueFor(value valueobject.Money) valueobject.Money {
	threshold, _ := valueobject.NewMoneyUSDFromFloat(InsuranceValueThresholdUSD)
	if value.Cmp(threshold) > 0 {
		return value
	}
	return valueobject.ZeroUSD()
}

// High-value handling thresholds in USD.
const (
	SignatureValueThresholdUSD = 500
	InsuranceValueThresholdUSD = 500
)

func (s *Shipment) transitionTo(next ShipmentStatus) error {
	if !s.Status.CanTransitionTo(next) {
		return shared.NewDomainError("INVALID_STATUS_TRANSITION",
			"cannot transition shipment from "+s.Status.String()+" to "+next.String())
	}
	s.Status = next
	return nil
}

// IsActive reports whether the shipment still needs tracking refreshes
func (s *Shipment) IsActive() bool {
	return !s.Status.IsTerminal()
}
