package shipping

import (
	"time"

	"github.com/google/uuid"

	"github.com/retailops/fulfillment/internal/domain/shared"
	"github.com/retailops/fulfillment/internal/domain/shared/valueobject"
	"github.com/retailops/fulfillment/internal/domain/shipping"
)

// AddressRequest is an address as submitted by API clients.
type AddressRequest struct {
	Name       string `json:"name" binding:"required"`
	Company    string `json:"company"`
	Street1    string `json:"street1" binding:"required"`
	Street2    string `json:"street2"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code" binding:"required"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

// ToAddress converts the request into the address value object
func (r AddressRequest) ToAddress() (valueobject.Address, error) {
	return valueobject.NewAddress(r.Name, r.Street1, r.City, r.State, r.PostalCode, r.Country,
		valueobject.WithCompany(r.Company),
		valueobject.WithStreet2(r.Street2),
		valueobject.WithPhone(r.Phone),
	)
}

// BoxRequest is a declared shipping carton.
type BoxRequest struct {
	LengthIn float64 `json:"length_in" binding:"required,gt=0"`
	WidthIn  float64 `json:"width_in" binding:"required,gt=0"`
	HeightIn float64 `json:"height_in" binding:"required,gt=0"`
	WeightLb float64 `json:"weight_lb" binding:"required,gt=0"`
}

// ItemRequest is one cart line submitted for quoting or booking.
type ItemRequest struct {
	ProductID    string       `json:"product_id"`
	SKU          string       `json:"sku" binding:"required"`
	Name         string       `json:"name"`
	Quantity     int          `json:"quantity" binding:"required,gt=0"`
	WeightLb     float64      `json:"weight_lb" binding:"gte=0"`
	LengthIn     float64      `json:"length_in" binding:"gte=0"`
	WidthIn      float64      `json:"width_in" binding:"gte=0"`
	HeightIn     float64      `json:"height_in" binding:"gte=0"`
	PriceUSD     float64      `json:"price_usd" binding:"gte=0"`
	IsGift       bool         `json:"is_gift"`
	WhiteGlove   bool         `json:"white_glove"`
	FreightClass string       `json:"freight_class"`
	Boxes        []BoxRequest `json:"boxes"`

	GiftEligible       bool `json:"gift_eligible"`
	WhiteGloveEligible bool `json:"white_glove_eligible"`
	RequiresAssembly   bool `json:"requires_assembly"`
}

// ToLineItem converts the request into a domain line item
func (r ItemRequest) ToLineItem() (shipping.LineItem, error) {
	price, err := valueobject.NewMoneyUSDFromFloat(r.PriceUSD)
	if err != nil {
		return shipping.LineItem{}, err
	}

	productID := uuid.Nil
	if r.ProductID != "" {
		if parsed, err := uuid.Parse(r.ProductID); err == nil {
			productID = parsed
		}
	}

	boxes := make([]shipping.PackageBox, 0, len(r.Boxes))
	for _, b := range r.Boxes {
		boxes = append(boxes, shipping.PackageBox{
			LengthIn: b.LengthIn,
			WidthIn:  b.WidthIn,
			HeightIn: b.HeightIn,
			WeightLb: b.WeightLb,
		})
	}

	return shipping.LineItem{
		Product: shipping.Product{
			ID:           productID,
			SKU:          r.SKU,
			Name:         r.Name,
			WeightLb:     r.WeightLb,
			LengthIn:     r.LengthIn,
			WidthIn:      r.WidthIn,
			HeightIn:     r.HeightIn,
			Price:        price,
			FreightClass: r.FreightClass,
			Boxes:        boxes,

			GiftEligible:       r.GiftEligible,
			WhiteGloveEligible: r.WhiteGloveEligible,
			RequiresAssembly:   r.RequiresAssembly,
		},
		Quantity:           r.Quantity,
		WhiteGloveSelected: r.WhiteGlove,
		IsGift:             r.IsGift,
	}, nil
}

// resolveOrigin returns the request origin, or the configured warehouse
// address when the request leaves it out.
func resolveOrigin(req *AddressRequest, fallback valueobject.Address) (valueobject.Address, error) {
	if req != nil {
		return req.ToAddress()
	}
	if fallback.IsEmpty() {
		return valueobject.Address{}, shared.ErrInvalidInput.WithDetails(map[string]any{
			"origin": "missing and no warehouse origin configured",
		})
	}
	return fallback, nil
}

// ToLineItems converts a batch of item requests
func ToLineItems(reqs []ItemRequest) ([]shipping.LineItem, error) {
	items := make([]shipping.LineItem, 0, len(reqs))
	for _, r := range reqs {
		li, err := r.ToLineItem()
		if err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, nil
}

// CalculateRatesRequest asks for quotes across a whole cart. A nil
// Origin falls back to the configured warehouse address. Selections
// maps group IDs to preferred rate option IDs for the cart totals;
// unselected groups total on their cheapest option.
type CalculateRatesRequest struct {
	Origin      *AddressRequest   `json:"origin"`
	Destination AddressRequest    `json:"destination" binding:"required"`
	Items       []ItemRequest     `json:"items" binding:"required,min=1,dive"`
	Selections  map[string]string `json:"selections"`
}

// RateOptionResponse is one quotable service in API form.
type RateOptionResponse struct {
	ID                string  `json:"id"`
	Carrier           string  `json:"carrier"`
	Service           string  `json:"service"`
	CostUSD           float64 `json:"cost_usd"`
	EstimatedDays     int     `json:"estimated_days"`
	SignatureRequired bool    `json:"signature_required"`
	AssemblyIncluded  bool    `json:"assembly_included"`
	Estimated         bool    `json:"estimated"`

	Restrictions []string `json:"restrictions,omitempty"`
}

// ToRateOptionResponse converts a domain rate option
func ToRateOptionResponse(opt shipping.RateOption) RateOptionResponse {
	cost, _ := opt.Cost.Amount().Float64()
	return RateOptionResponse{
		ID:                opt.ID,
		Carrier:           opt.Carrier,
		Service:           opt.Service,
		CostUSD:           cost,
		EstimatedDays:     opt.EstimatedDays,
		SignatureRequired: opt.SignatureRequired,
		AssemblyIncluded:  opt.AssemblyIncluded,
		Estimated:         opt.Estimated,
		Restrictions:      opt.Restrictions,
	}
}

// GroupQuoteResponse is the quoted view of one shipment group.
type GroupQuoteResponse struct {
	GroupID        string               `json:"group_id"`
	Type           string               `json:"type"`
	ItemCount      int                  `json:"item_count"`
	WeightLb       float64              `json:"weight_lb"`
	ValueUSD       float64              `json:"value_usd"`
	FreightClass   string               `json:"freight_class,omitempty"`
	RateOptions    []RateOptionResponse `json:"rate_options"`
	SelectedRateID string               `json:"selected_rate_id,omitempty"`
}

// DeliveryRangeResponse is the delivery window across the selected
// rates, in days from booking.
type DeliveryRangeResponse struct {
	MinDays int `json:"min_days"`
	MaxDays int `json:"max_days"`
}

// CalculateRatesResponse is the quote for a whole cart. TotalCostUSD
// and DeliveryRange are computed over each group's selected rate,
// defaulting to the cheapest.
type CalculateRatesResponse struct {
	Groups        []GroupQuoteResponse   `json:"groups"`
	OrderValueUSD float64                `json:"order_value_usd"`
	TotalCostUSD  float64                `json:"total_cost_usd"`
	DeliveryRange *DeliveryRangeResponse `json:"delivery_range,omitempty"`
}

// CreateShipmentsRequest books shipments for a grouped cart. Selections
// maps group IDs to chosen rate option IDs; unselected groups book the
// cheapest option.
type CreateShipmentsRequest struct {
	OrderID     string            `json:"order_id" binding:"required,uuid"`
	Origin      *AddressRequest   `json:"origin"`
	Destination AddressRequest    `json:"destination" binding:"required"`
	Items       []ItemRequest     `json:"items" binding:"required,min=1,dive"`
	Selections  map[string]string `json:"selections"`
}

// GroupBookingError reports a group whose shipment could not be booked.
type GroupBookingError struct {
	GroupID string `json:"group_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateShipmentsResponse is the aggregate booking result. Groups that
// booked successfully appear in Shipments even when other groups failed.
type CreateShipmentsResponse struct {
	Shipments []ShipmentResponse  `json:"shipments"`
	Errors    []GroupBookingError `json:"errors,omitempty"`
}

// CreateSingleShipmentRequest books one shipment for an explicit set of
// items without cart grouping.
type CreateSingleShipmentRequest struct {
	OrderID     string          `json:"order_id" binding:"required,uuid"`
	Origin      *AddressRequest `json:"origin"`
	Destination AddressRequest  `json:"destination" binding:"required"`
	Items       []ItemRequest   `json:"items" binding:"required,min=1,dive"`
	RateID      string          `json:"rate_id"`
}

// ShipmentResponse is the API view of a shipment.
type ShipmentResponse struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	GroupID   string `json:"group_id"`
	GroupType string `json:"group_type"`

	Carrier        string `json:"carrier"`
	Service        string `json:"service"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	LabelURL       string `json:"label_url,omitempty"`

	Status string `json:"status"`

	CostUSD           float64 `json:"cost_usd"`
	InsuredValueUSD   float64 `json:"insured_value_usd"`
	SignatureRequired bool    `json:"signature_required"`

	Destination valueobject.Address `json:"destination"`

	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	ShippedAt         *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`

	ExceptionReason string `json:"exception_reason,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToShipmentResponse converts a shipment aggregate
func ToShipmentResponse(s *shipping.Shipment) ShipmentResponse {
	cost, _ := s.Cost.Amount().Float64()
	insured, _ := s.InsuredValue.Amount().Float64()
	return ShipmentResponse{
		ID:                s.GetID().String(),
		OrderID:           s.OrderID.String(),
		GroupID:           s.GroupID,
		GroupType:         s.GroupType.String(),
		Carrier:           s.Carrier,
		Service:           s.Service,
		TrackingNumber:    s.TrackingNumber,
		LabelURL:          s.LabelURL,
		Status:            s.Status.String(),
		CostUSD:           cost,
		InsuredValueUSD:   insured,
		SignatureRequired: s.SignatureRequired,
		Destination:       s.Destination,
		EstimatedDelivery: s.EstimatedDelivery,
		ShippedAt:         s.ShippedAt,
		DeliveredAt:       s.DeliveredAt,
		ExceptionReason:   s.ExceptionReason,
		FailureReason:     s.FailureReason,
		CreatedAt:         s.GetCreatedAt(),
		UpdatedAt:         s.GetUpdatedAt(),
	}
}

// ToShipmentResponses converts a batch of shipments
func ToShipmentResponses(shipments []*shipping.Shipment) []ShipmentResponse {
	out := make([]ShipmentResponse, 0, len(shipments))
	for _, s := range shipments {
		out = append(out, ToShipmentResponse(s))
	}
	return out
}

// WebhookRequest is an inbound carrier notification.
type WebhookRequest struct {
	Carrier        string     `json:"carrier"`
	EventType      string     `json:"event_type" binding:"required"`
	TrackingNumber string     `json:"tracking_number" binding:"required"`
	OccurredAt     *time.Time `json:"occurred_at"`
	Description    string     `json:"description"`

	// RawPayload is the original request body, stored verbatim in the
	// webhook log.
	RawPayload string `json:"-"`
}

// WebhookResult reports how an inbound webhook was handled.
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// RefreshAllResult summarizes a bulk tracking refresh.
type RefreshAllResult struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// StatsResponse is the operational shipment overview.
type StatsResponse struct {
	ByStatus  map[string]int64 `json:"by_status"`
	ByCarrier map[string]int64 `json:"by_carrier"`
}
