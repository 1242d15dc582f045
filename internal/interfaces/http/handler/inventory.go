package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	inventoryapp "github.com/shopcore/backend/internal/application/inventory"
	"github.com/shopcore/backend/internal/domain/inventory"
	"github.com/shopcore/backend/internal/interfaces/http/dto"
)

// InventoryHandler handles stock administration API endpoints
type InventoryHandler struct {
	BaseHandler
	stock *inventoryapp.Service
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(stock *inventoryapp.Service) *InventoryHandler {
	return &InventoryHandler{stock: stock}
}

// RegisterRoutes registers inventory routes on the API group
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	inv := rg.Group("/inventory")
	{
		inv.POST("/adjustments", h.Adjust)
		inv.GET("/variants/:variant_id/availability", h.Availability)
		inv.GET("/variants/:variant_id/ledger", h.History)
		inv.GET("/reservations/:order_id", h.ActiveReservations)
	}
}

// AdjustStockRequest appends a direct ledger correction
type AdjustStockRequest struct {
	VariantID   string  `json:"variant_id" binding:"required,uuid"`
	Delta       int64   `json:"delta" binding:"required"`
	Reason      string  `json:"reason" binding:"omitempty,oneof=receipt adjustment"`
	ReferenceID *string `json:"reference_id" binding:"omitempty,max=64"`
}

// AvailabilityResponse represents a variant's stock position
type AvailabilityResponse struct {
	VariantID string `json:"variant_id"`
	OnHand    int64  `json:"on_hand"`
	Reserved  int64  `json:"reserved"`
	Available int64  `json:"available"`
}

// LedgerEntryResponse represents one stock ledger entry
type LedgerEntryResponse struct {
	ID            string    `json:"id"`
	VariantID     string    `json:"variant_id"`
	QuantityDelta int64     `json:"quantity_delta"`
	Reason        string    `json:"reason"`
	ReferenceID   *string   `json:"reference_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// LedgerPageResponse is a page of ledger entries with a continuation token
type LedgerPageResponse struct {
	Entries   []LedgerEntryResponse `json:"entries"`
	NextToken string                `json:"next_token,omitempty"`
}

// ReservationResponse represents an active stock hold
type ReservationResponse struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	VariantID string    `json:"variant_id"`
	Quantity  int64     `json:"quantity"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Adjust handles POST /inventory/adjustments
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, 400, dto.ErrCodeInvalidJSON, err.Error())
		return
	}
	variantID, err := uuid.Parse(req.VariantID)
	if err != nil {
		h.BadRequest(c, "Invalid variant ID: "+req.VariantID)
		return
	}

	err = h.stock.Adjust(c.Request.Context(), variantID, req.Delta, inventory.LedgerReason(req.Reason), req.ReferenceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	availability, err := h.stock.Availability(c.Request.Context(), variantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toAvailabilityResponse(availability))
}

// Availability handles GET /inventory/variants/:variant_id/availability
func (h *InventoryHandler) Availability(c *gin.Context) {
	variantID, ok := h.parseVariantID(c)
	if !ok {
		return
	}
	availability, err := h.stock.Availability(c.Request.Context(), variantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toAvailabilityResponse(availability))
}

// History handles GET /inventory/variants/:variant_id/ledger
func (h *InventoryHandler) History(c *gin.Context) {
	variantID, ok := h.parseVariantID(c)
	if !ok {
		return
	}

	limit, ok := parseLimit(c)
	if !ok {
		h.BadRequest(c, "Invalid limit: "+c.Query("limit"))
		return
	}

	entries, next, err := h.stock.History(c.Request.Context(), variantID, c.Query("token"), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page := LedgerPageResponse{
		Entries:   make([]LedgerEntryResponse, 0, len(entries)),
		NextToken: next,
	}
	for _, e := range entries {
		page.Entries = append(page.Entries, LedgerEntryResponse{
			ID:            e.ID.String(),
			VariantID:     e.VariantID.String(),
			QuantityDelta: e.QuantityDelta,
			Reason:        string(e.Reason),
			ReferenceID:   e.ReferenceID,
			CreatedAt:     e.CreatedAt,
		})
	}
	h.Success(c, page)
}

// ActiveReservations handles GET /inventory/reservations/:order_id
func (h *InventoryHandler) ActiveReservations(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID: "+c.Param("order_id"))
		return
	}

	reservations, err := h.stock.ActiveReservations(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]ReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		items = append(items, ReservationResponse{
			ID:        r.ID.String(),
			OrderID:   r.OrderID.String(),
			VariantID: r.VariantID.String(),
			Quantity:  r.Quantity,
			Status:    string(r.Status),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	h.Success(c, items)
}

func (h *InventoryHandler) parseVariantID(c *gin.Context) (uuid.UUID, bool) {
	variantID, err := uuid.Parse(c.Param("variant_id"))
	if err != nil {
		h.BadRequest(c, "Invalid variant ID: "+c.Param("variant_id"))
		return uuid.Nil, false
	}
	return variantID, true
}

func toAvailabilityResponse(a inventory.Availability) AvailabilityResponse {
	return AvailabilityResponse{
		VariantID: a.VariantID.String(),
		OnHand:    a.OnHand,
		Reserved:  a.Reserved,
		Available: a.Available,
	}
}
