package shipping

import (
	"github.com/google/uuid"
	"github.com/retailops/fulfillment/internal/domain/shared"
)

// Domain event types raised by the shipment aggregate.
const (
	EventTypeShipmentCreated   = "shipping.shipment.created"
	EventTypeShipmentShipped   = "shipping.shipment.shipped"
	EventTypeShipmentDelivered = "shipping.shipment.delivered"
	EventTypeShipmentException = "shipping.shipment.exception"
	EventTypeShipmentCancelled = "shipping.shipment.cancelled"
)

const aggregateTypeShipment = "Shipment"

// ShipmentCreatedEvent is raised when a carrier label is booked.
type ShipmentCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID `json:"order_id"`
	GroupID        string    `json:"group_id"`
	Carrier        string    `json:"carrier"`
	TrackingNumber string    `json:"tracking_number"`
}

func NewShipmentCreatedEvent(s *Shipment) *ShipmentCreatedEvent {
	return &ShipmentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentCreated, aggregateTypeShipment, s.GetID()),
		OrderID:         s.OrderID,
		GroupID:         s.GroupID,
		Carrier:         s.Carrier,
		TrackingNumber:  s.TrackingNumber,
	}
}

// ShipmentShippedEvent is raised on carrier pickup.
type ShipmentShippedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID `json:"order_id"`
	TrackingNumber string    `json:"tracking_number"`
}

func NewShipmentShippedEvent(s *Shipment) *ShipmentShippedEvent {
	return &ShipmentShippedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentShipped, aggregateTypeShipment, s.GetID()),
		OrderID:         s.OrderID,
		TrackingNumber:  s.TrackingNumber,
	}
}

// ShipmentDeliveredEvent is raised on final delivery.
type ShipmentDeliveredEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID `json:"order_id"`
	TrackingNumber string    `json:"tracking_number"`
}

func NewShipmentDeliveredEvent(s *Shipment) *ShipmentDeliveredEvent {
	return &ShipmentDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentDelivered, aggregateTypeShipment, s.GetID()),
		OrderID:         s.OrderID,
		TrackingNumber:  s.TrackingNumber,
	}
}

// ShipmentExceptionEvent is raised when the carrier reports a problem.
type ShipmentExceptionEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID `json:"order_id"`
	TrackingNumber string    `json:"tracking_number"`
	Reason         string    `json:"reason"`
}

func NewShipmentExceptionEvent(s *Shipment, reason string) *ShipmentExceptionEvent {
	return &ShipmentExceptionEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentException, aggregateTypeShipment, s.GetID()),
		OrderID:         s.OrderID,
		TrackingNumber:  s.TrackingNumber,
		Reason:          reason,
	}
}

// ShipmentCancelledEvent is raised when a shipment is voided.
type ShipmentCancelledEvent struct {
	shared.BaseDomainEvent
	OrderID uuid.UUID `json:"order_id"`
	Reason  string    `json:"reason"`
}

func NewShipmentCancelledEvent(s *Shipment, reason string) *ShipmentCancelledEvent {
	return &ShipmentCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentCancelled, aggregateTypeShipment, s.GetID()),
		OrderID:         s.OrderID,
		Reason:          reason,
	}
}
