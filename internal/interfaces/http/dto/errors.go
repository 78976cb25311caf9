package dto

import "net/http"

// General error codes
const (
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeNotFound   = "NOT_FOUND"
)

// Webhook error codes
const (
	// ErrCodeWebhookSignature is used when the carrier signature check fails
	ErrCodeWebhookSignature = "WEBHOOK_SIGNATURE_INVALID"
)

// ErrorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Carrier-side failures map to 502 so callers can tell an upstream
// outage apart from a bad request.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,

	"NOT_FOUND":            http.StatusNotFound,
	"ALREADY_EXISTS":       http.StatusConflict,
	"INVALID_INPUT":        http.StatusBadRequest,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"INVALID_STATE":        http.StatusUnprocessableEntity,

	"SHIPMENT_NOT_FOUND":        http.StatusNotFound,
	"SHIPMENT_CANNOT_CANCEL":    http.StatusUnprocessableEntity,
	"NO_RATE_SELECTED":          http.StatusUnprocessableEntity,
	"INVALID_STATUS_TRANSITION": http.StatusUnprocessableEntity,

	"SHIPMENT_CREATION_FAILED": http.StatusBadGateway,
	"TRACKING_UPDATE_FAILED":   http.StatusBadGateway,
	"CANCELLATION_FAILED":      http.StatusBadGateway,

	ErrCodeWebhookSignature: http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
