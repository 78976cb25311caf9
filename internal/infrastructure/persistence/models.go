package persistence

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailops/fulfillment/internal/domain/shared"
	"github.com/retailops/fulfillment/internal/domain/shared/valueobject"
	"github.com/retailops/fulfillment/internal/domain/shipping"
)

// ShipmentModel is the persistence model for shipment aggregates.
// Money is split into amount columns so SQL can aggregate costs;
// addresses are stored as JSON documents.
type ShipmentModel struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID uuid.UUID `gorm:"type:uuid;index;not null"`

	GroupID   string `gorm:"size:32;not null"`
	GroupType string `gorm:"size:16;not null"`

	Carrier        string `gorm:"size:64"`
	Service        string `gorm:"size:64"`
	TrackingNumber string `gorm:"size:64;index"`
	LabelURL       string `gorm:"size:512"`
	CarrierRef     string `gorm:"size:128"`

	Status string `gorm:"size:24;index;not null"`

	CostAmount      decimal.Decimal `gorm:"type:decimal(12,2)"`
	CostCurrency    string          `gorm:"size:3"`
	InsuredAmount   decimal.Decimal `gorm:"type:decimal(12,2)"`
	InsuredCurrency string          `gorm:"size:3"`

	SignatureRequired bool

	Origin      valueobject.Address `gorm:"type:json"`
	Destination valueobject.Address `gorm:"type:json"`

	EstimatedDelivery *time.Time
	ShippedAt         *time.Time
	DeliveredAt       *time.Time

	ExceptionReason string `gorm:"size:512"`
	FailureReason   string `gorm:"size:512"`

	Version   int `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the table name
func (ShipmentModel) TableName() string {
	return "shipments"
}

func toShipmentModel(s *shipping.Shipment) *ShipmentModel {
	return &ShipmentModel{
		ID:                s.GetID(),
		OrderID:           s.OrderID,
		GroupID:           s.GroupID,
		GroupType:         s.GroupType.String(),
		Carrier:           s.Carrier,
		Service:           s.Service,
		TrackingNumber:    s.TrackingNumber,
		LabelURL:          s.LabelURL,
		CarrierRef:        s.CarrierRef,
		Status:            s.Status.String(),
		CostAmount:        s.Cost.Amount(),
		CostCurrency:      string(s.Cost.Currency()),
		InsuredAmount:     s.InsuredValue.Amount(),
		InsuredCurrency:   string(s.InsuredValue.Currency()),
		SignatureRequired: s.SignatureRequired,
		Origin:            s.Origin,
		Destination:       s.Destination,
		EstimatedDelivery: s.EstimatedDelivery,
		ShippedAt:         s.ShippedAt,
		DeliveredAt:       s.DeliveredAt,
		ExceptionReason:   s.ExceptionReason,
		FailureReason:     s.FailureReason,
		Version:           s.GetVersion(),
		CreatedAt:         s.GetCreatedAt(),
		UpdatedAt:         s.GetUpdatedAt(),
	}
}

func toShipmentDomain(m *ShipmentModel) *shipping.Shipment {
	s := &shipping.Shipment{
		OrderID:           m.OrderID,
		GroupID:           m.GroupID,
		GroupType:         shipping.GroupType(m.GroupType),
		Carrier:           m.Carrier,
		Service:           m.Service,
		TrackingNumber:    m.TrackingNumber,
		LabelURL:          m.LabelURL,
		CarrierRef:        m.CarrierRef,
		Status:            shipping.ShipmentStatus(m.Status),
		Cost:              moneyFromColumns(m.CostAmount, m.CostCurrency),
		InsuredValue:      moneyFromColumns(m.InsuredAmount, m.InsuredCurrency),
		SignatureRequired: m.SignatureRequired,
		Origin:            m.Origin,
		Destination:       m.Destination,
		EstimatedDelivery: m.EstimatedDelivery,
		ShippedAt:         m.ShippedAt,
		DeliveredAt:       m.DeliveredAt,
		ExceptionReason:   m.ExceptionReason,
		FailureReason:     m.FailureReason,
	}
	s.BaseAggregateRoot = shared.BaseAggregateRoot{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Version: m.Version,
	}
	return s
}

func moneyFromColumns(amount decimal.Decimal, currency string) valueobject.Money {
	if currency == "" {
		return valueobject.NewMoneyUSD(amount)
	}
	m, err := valueobject.NewMoney(amount, valueobject.Currency(currency))
	if err != nil {
		return valueobject.NewMoneyUSD(amount)
	}
	return m
}

// WebhookEventModel is the persistence model for the inbound webhook log.
type WebhookEventModel struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Carrier        string `gorm:"size:64"`
	EventType      string `gorm:"size:32;not null"`
	RawEventType   string `gorm:"size:64"`
	TrackingNumber string `gorm:"size:64;index"`
	Payload        string `gorm:"type:text"`

	OccurredAt *time.Time

	Status       string `gorm:"size:16;index;not null"`
	RetryCount   int    `gorm:"not null;default:0"`
	ErrorMessage string `gorm:"size:1024"`
	ProcessedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the table name
func (WebhookEventModel) TableName() string {
	return "webhook_events"
}

func toWebhookEventModel(e *shipping.WebhookEvent) *WebhookEventModel {
	return &WebhookEventModel{
		ID:             e.GetID(),
		Carrier:        e.Carrier,
		EventType:      string(e.EventType),
		RawEventType:   e.RawEventType,
		TrackingNumber: e.TrackingNumber,
		Payload:        e.Payload,
		OccurredAt:     e.OccurredAt,
		Status:         string(e.Status),
		RetryCount:     e.RetryCount,
		ErrorMessage:   e.ErrorMessage,
		ProcessedAt:    e.ProcessedAt,
		CreatedAt:      e.GetCreatedAt(),
		UpdatedAt:      e.GetUpdatedAt(),
	}
}

func toWebhookEventDomain(m *WebhookEventModel) *shipping.WebhookEvent {
	return &shipping.WebhookEvent{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Carrier:        m.Carrier,
		EventType:      shipping.WebhookEventType(m.EventType),
		RawEventType:   m.RawEventType,
		TrackingNumber: m.TrackingNumber,
		Payload:        m.Payload,
		OccurredAt:     m.OccurredAt,
		Status:         shipping.ProcessingStatus(m.Status),
		RetryCount:     m.RetryCount,
		ErrorMessage:   m.ErrorMessage,
		ProcessedAt:    m.ProcessedAt,
	}
}
