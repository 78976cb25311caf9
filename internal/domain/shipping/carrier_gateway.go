package shipping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/retailops/fulfillment/internal/domain/shared/valueobject"
)

// CarrierError is a failure returned by a carrier gateway. Code is a
// stable machine-readable identifier: NETWORK_ERROR for transport
// failures and HTTP_<status> for carrier rejections.
type CarrierError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CarrierError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CarrierError) Unwrap() error {
	return e.Cause
}

// NewCarrierNetworkError wraps a transport-level failure.
func NewCarrierNetworkError(cause error) *CarrierError {
	return &CarrierError{Code: "NETWORK_ERROR", Message: "carrier unreachable", Cause: cause}
}

// NewCarrierHTTPError wraps a carrier rejection with its HTTP status.
func NewCarrierHTTPError(status int, message string) *CarrierError {
	return &CarrierError{Code: fmt.Sprintf("HTTP_%d", status), Message: message}
}

// AsCarrierError extracts a CarrierError from an error chain.
func AsCarrierError(err error) (*CarrierError, bool) {
	var ce *CarrierError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// RateQuoteRequest asks a carrier for parcel rates.
type RateQuoteRequest struct {
	Origin      valueobject.Address
	Destination valueobject.Address
	Boxes       []PackageBox
}

// FreightQuoteRequest asks a carrier for LTL freight rates.
type FreightQuoteRequest struct {
	Origin       valueobject.Address
	Destination  valueobject.Address
	WeightLb     float64
	FreightClass string
	WhiteGlove   bool
}

// BookShipmentRequest books a selected rate with the carrier.
type BookShipmentRequest struct {
	RateID      string
	Carrier     string
	Service     string
	Origin      valueobject.Address
	Destination valueobject.Address
	Boxes       []PackageBox

	InsuredValue      valueobject.Money
	SignatureRequired bool

	IsGift           bool
	WhiteGlove       bool
	AssemblyRequired bool

	Reference string
}

// BookShipmentResult is a successful carrier booking.
type BookShipmentResult struct {
	TrackingNumber    string
	LabelURL          string
	CarrierRef        string
	Cost              valueobject.Money
	EstimatedDelivery *time.Time
}

// TrackingEvent is one scan in a carrier tracking history.
type TrackingEvent struct {
	Status      string
	Description string
	Location    string
	OccurredAt  time.Time
}

// TrackingInfo is the carrier's current view of a shipment.
type TrackingInfo struct {
	TrackingNumber    string
	Status            string
	EstimatedDelivery *time.Time
	DeliveredAt       *time.Time
	Events            []TrackingEvent
}

// CarrierGateway is the outbound port to a shipping carrier. All
// methods return CarrierError for carrier-side failures.
type CarrierGateway interface {
	// Name identifies the carrier for logging and shipment records
	Name() string

	GetRates(ctx context.Context, req RateQuoteRequest) ([]RateOption, error)
	GetFreightRates(ctx context.Context, req FreightQuoteRequest) ([]RateOption, error)
	BookShipment(ctx context.Context, req BookShipmentRequest) (*BookShipmentResult, error)
	GetTracking(ctx context.Context, trackingNumber string) (*TrackingInfo, error)
	VoidShipment(ctx context.Context, carrierRef string) error
}

// MapCarrierStatus translates a carrier tracking status onto the
// shipment lifecycle. Unrecognized statuses return ok=false and the
// shipment is left untouched.
func MapCarrierStatus(raw string) (ShipmentStatus, bool) {
	switch raw {
	case "in_transit", "shipped", "picked_up":
		return ShipmentStatusShipped, true
	case "delivered":
		return ShipmentStatusDelivered, true
	case "exception", "alert", "delivery_failed":
		return ShipmentStatusException, true
	default:
		return "", false
	}
}
