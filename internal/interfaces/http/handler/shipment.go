package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appshipping "github.com/retailops/fulfillment/internal/application/shipping"
	"github.com/retailops/fulfillment/internal/interfaces/http/dto"
)

// ShipmentHandler handles shipment lifecycle endpoints
type ShipmentHandler struct {
	BaseHandler
	shipmentService *appshipping.ShipmentService
}

// NewShipmentHandler creates a new ShipmentHandler
func NewShipmentHandler(shipmentService *appshipping.ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{shipmentService: shipmentService}
}

// Create books shipments for a grouped cart, one per shipment group.
func (h *ShipmentHandler) Create(c *gin.Context) {
	var req appshipping.CreateShipmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.shipmentService.CreateShipments(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	// Partial bookings come back 200 so the caller inspects the error
	// list instead of treating the whole cart as created.
	if len(result.Errors) > 0 {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

// CreateSingle books one shipment without cart grouping.
func (h *ShipmentHandler) CreateSingle(c *gin.Context) {
	var req appshipping.CreateSingleShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	shipment, err := h.shipmentService.CreateSingleShipment(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, shipment)
}

// Get returns a shipment by ID.
func (h *ShipmentHandler) Get(c *gin.Context) {
	id, ok := h.shipmentID(c)
	if !ok {
		return
	}

	shipment, err := h.shipmentService.GetShipment(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, shipment)
}

// ListByOrder returns all shipments booked for an order.
func (h *ShipmentHandler) ListByOrder(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}
	orderID := uuid.MustParse(req.ID)

	shipments, err := h.shipmentService.GetShipmentsByOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, shipments)
}

// Refresh polls the carrier for the shipment's current tracking state.
func (h *ShipmentHandler) Refresh(c *gin.Context) {
	id, ok := h.shipmentID(c)
	if !ok {
		return
	}

	shipment, err := h.shipmentService.RefreshTracking(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, shipment)
}

// CancelRequest carries an optional cancellation reason.
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// Cancel voids the shipment with the carrier and marks it failed.
func (h *ShipmentHandler) Cancel(c *gin.Context) {
	id, ok := h.shipmentID(c)
	if !ok {
		return
	}

	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.BadRequest(c, err.Error())
		return
	}

	shipment, err := h.shipmentService.CancelShipment(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, shipment)
}

// RefreshAllRequest bounds a bulk tracking refresh.
type RefreshAllRequest struct {
	Limit int `json:"limit" binding:"gte=0,lte=1000"`
}

// RefreshAll polls the carrier for every active shipment.
func (h *ShipmentHandler) RefreshAll(c *gin.Context) {
	var req RefreshAllRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.shipmentService.RefreshAllActive(c.Request.Context(), req.Limit)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Stats returns shipment counts by status and carrier.
func (h *ShipmentHandler) Stats(c *gin.Context) {
	stats, err := h.shipmentService.GetStats(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, stats)
}

func (h *ShipmentHandler) shipmentID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid shipment ID")
		return uuid.Nil, false
	}
	return uuid.MustParse(req.ID), true
}
