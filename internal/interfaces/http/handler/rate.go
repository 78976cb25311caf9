package handler

import (
	"github.com/gin-gonic/gin"

	appshipping "github.com/retailops/fulfillment/internal/application/shipping"
)

// RateHandler handles rate quoting endpoints
type RateHandler struct {
	BaseHandler
	rateService *appshipping.RateService
}

// NewRateHandler creates a new RateHandler
func NewRateHandler(rateService *appshipping.RateService) *RateHandler {
	return &RateHandler{rateService: rateService}
}

// Calculate quotes shipping rates for a cart. Items are split into
// shipment groups and each group gets its own rate options.
func (h *RateHandler) Calculate(c *gin.Context) {
	var req appshipping.CalculateRatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.rateService.CalculateRates(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, resp)
}
