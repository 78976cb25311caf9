package shipping

import "github.com/retailops/fulfillment/internal/domain/shared"

// Typed errors surfaced by shipping operations. Codes are stable and
// map onto API error responses.
var (
	ErrShipmentNotFound = shared.NewDomainError("SHIPMENT_NOT_FOUND",
		"shipment not found")
	ErrShipmentCannotCancel = shared.NewDomainError("SHIPMENT_CANNOT_CANCEL",
		"shipment has already left the origin and cannot be cancelled")
	ErrShipmentCreationFailed = shared.NewDomainError("SHIPMENT_CREATION_FAILED",
		"carrier refused to create the shipment")
	ErrTrackingUpdateFailed = shared.NewDomainError("TRACKING_UPDATE_FAILED",
		"carrier tracking refresh failed")
	ErrCancellationFailed = shared.NewDomainError("CANCELLATION_FAILED",
		"carrier refused to void the shipment")
	ErrNoRateSelected = shared.NewDomainError("NO_RATE_SELECTED",
		"no rate option available for the shipment group")
)
