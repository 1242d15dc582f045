package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	orderapp "github.com/shopcore/backend/internal/application/order"
	"github.com/shopcore/backend/internal/domain/order"
	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopcore/backend/internal/interfaces/http/dto"
)

// OrderHandler handles order lifecycle API endpoints
type OrderHandler struct {
	BaseHandler
	orders *orderapp.Service
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders *orderapp.Service) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// RegisterRoutes registers order routes on the API group
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.POST("", h.Create)
		orders.GET("", h.List)
		orders.GET("/number/:order_number", h.GetByOrderNumber)
		orders.GET("/:id", h.GetByID)
		orders.POST("/:id/confirm", h.Confirm)
		orders.POST("/:id/pay", h.Pay)
		orders.POST("/:id/ship", h.Ship)
		orders.POST("/:id/deliver", h.Deliver)
		orders.POST("/:id/cancel", h.Cancel)
		orders.POST("/:id/refund", h.Refund)
	}
}

// CreateOrderRequest represents a request to create a new order
type CreateOrderRequest struct {
	OrderNumber string                 `json:"order_number" binding:"required,min=1,max=64"`
	Lines       []CreateOrderLineInput `json:"lines" binding:"required,min=1,dive"`
}

// CreateOrderLineInput represents one line in the create order request
type CreateOrderLineInput struct {
	SKU       string `json:"sku" binding:"required,min=1,max=64"`
	VariantID string `json:"variant_id" binding:"required,uuid"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
	UnitPrice string `json:"unit_price" binding:"required"`
}

// PayOrderRequest records a captured payment
type PayOrderRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Reference string `json:"reference" binding:"max=128"`
}

// ShipOrderRequest ships order lines. Omitting lines ships everything open.
type ShipOrderRequest struct {
	Lines       []ShipOrderLineInput `json:"lines" binding:"omitempty,dive"`
	ShipmentRef string               `json:"shipment_ref" binding:"max=128"`
}

// ShipOrderLineInput represents one shipped position
type ShipOrderLineInput struct {
	VariantID string `json:"variant_id" binding:"required,uuid"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
}

// CancelOrderRequest cancels an order
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=255"`
}

// RefundOrderRequest records a refund
type RefundOrderRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Reference string `json:"reference" binding:"max=128"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID             string              `json:"id"`
	OrderNumber    string              `json:"order_number"`
	Status         string              `json:"status"`
	Lines          []OrderLineResponse `json:"lines"`
	Total          string              `json:"total"`
	CapturedAmount string              `json:"captured_amount"`
	RefundedAmount string              `json:"refunded_amount"`
	CancelReason   string              `json:"cancel_reason,omitempty"`
	ConfirmedAt    *time.Time          `json:"confirmed_at,omitempty"`
	PaidAt         *time.Time          `json:"paid_at,omitempty"`
	ShippedAt      *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt    *time.Time          `json:"cancelled_at,omitempty"`
	RefundedAt     *time.Time          `json:"refunded_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Version        int                 `json:"version"`
}

// OrderLineResponse represents an order line in API responses
type OrderLineResponse struct {
	ID               string `json:"id"`
	SKU              string `json:"sku"`
	VariantID        string `json:"variant_id"`
	Quantity         int64  `json:"quantity"`
	UnitPrice        string `json:"unit_price"`
	ShippedQuantity  int64  `json:"shipped_quantity"`
	RefundedQuantity int64  `json:"refunded_quantity"`
}

// Create handles POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, 400, dto.ErrCodeInvalidJSON, err.Error())
		return
	}

	cmd := orderapp.CreateOrderCommand{OrderNumber: req.OrderNumber}
	for _, line := range req.Lines {
		variantID, err := uuid.Parse(line.VariantID)
		if err != nil {
			h.BadRequest(c, "Invalid variant ID: "+line.VariantID)
			return
		}
		price, err := decimal.NewFromString(line.UnitPrice)
		if err != nil {
			h.BadRequest(c, "Invalid unit price: "+line.UnitPrice)
			return
		}
		cmd.Lines = append(cmd.Lines, orderapp.CreateOrderLine{
			SKU:       line.SKU,
			VariantID: variantID,
			Quantity:  line.Quantity,
			UnitPrice: price,
		})
	}

	o, err := h.orders.CreateOrder(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toOrderResponse(o))
}

// GetByID handles GET /orders/:id
func (h *OrderHandler) GetByID(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}
	o, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(o))
}

// GetByOrderNumber handles GET /orders/number/:order_number
func (h *OrderHandler) GetByOrderNumber(c *gin.Context) {
	o, err := h.orders.GetOrderByNumber(c.Request.Context(), c.Param("order_number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(o))
}

// List handles GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	filter := shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		Filters:  make(map[string]interface{}),
	}
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}

	page, err := h.orders.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]OrderResponse, 0, len(page.Items))
	for _, o := range page.Items {
		items = append(items, toOrderResponse(o))
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize)
}

// Confirm handles POST /orders/:id/confirm
func (h *OrderHandler) Confirm(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}
	o, err := h.orders.Confirm(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(o))
}

// Pay handles POST /orders/:id/pay
func (h *OrderHandler) Pay(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}
	var req PayOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, 400, dto.ErrCodeInvalidJSON, err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.BadRequest(c, "Invalid amount: "+req.Amount)
		return
	}

	o, err := h.orders.Pay(c.Request.Context(), orderapp.PayCommand{
		OrderID:   orderID,
		Amount:    amount,
		Reference: req.Reference,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(o))
}

// Ship handles POST /orders/:id/ship
func (h *OrderHandler) Ship(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}
	// An empty body ships everything still open
	var req ShipOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.Error(c, 400, dto.ErrCodeInvalidJSON, err.Error())
			return
		}
	}

	cmd := orderapp.ShipCommand{OrderID: orderID, ShipmentRef: req.ShipmentRef}
	for _, line := range req.Lines {
		variantID, err := uuid.Parse(line.VariantID)
		if err != nil {
			h.BadRequest(c, "Invalid variant ID: "+line.VariantID)
			return
		}
		cmd.Lines = append(cmd.Lines, orderapp.ShipLine{
			VariantID: variantID,
			Quantity:  line.Quantity,
		})
	}

	o, err := h.orders.Ship(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(o))
}

// Deliver handles POST /orders/:id/deliver
func (h *OrderHandler) Deliver(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}
	o, err := h.orders.Deliver(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(o))
}

// Cancel handles POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}
	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, 400, dto.ErrCodeInvalidJSON, err.Error())
		return
	}

	o, err := h.orders.Cancel(c.Request.Context(), orderapp.CancelCommand{
		OrderID: orderID,
		Reason:  req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(o))
}

// Refund handles POST /orders/:id/refund
func (h *OrderHandler) Refund(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}
	var req RefundOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, 400, dto.ErrCodeInvalidJSON, err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.BadRequest(c, "Invalid amount: "+req.Amount)
		return
	}

	o, err := h.orders.Refund(c.Request.Context(), orderapp.RefundCommand{
		OrderID:   orderID,
		Amount:    amount,
		Reference: req.Reference,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(o))
}

func (h *OrderHandler) parseOrderID(c *gin.Context) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID: "+c.Param("id"))
		return uuid.Nil, false
	}
	return orderID, true
}

func toOrderResponse(o *order.Order) OrderResponse {
	lines := make([]OrderLineResponse, 0, len(o.Lines))
	for _, line := range o.Lines {
		lines = append(lines, OrderLineResponse{
			ID:               line.ID.String(),
			SKU:              line.SKU,
			VariantID:        line.VariantID.String(),
			Quantity:         line.Quantity,
			UnitPrice:        line.UnitPrice.String(),
			ShippedQuantity:  line.ShippedQuantity,
			RefundedQuantity: line.RefundedQuantity,
		})
	}
	return OrderResponse{
		ID:             o.ID.String(),
		OrderNumber:    o.OrderNumber,
		Status:         string(o.Status),
		Lines:          lines,
		Total:          o.Total().String(),
		CapturedAmount: o.CapturedAmount().String(),
		RefundedAmount: o.RefundedAmount().String(),
		CancelReason:   o.CancelReason,
		ConfirmedAt:    o.ConfirmedAt,
		PaidAt:         o.PaidAt,
		ShippedAt:      o.ShippedAt,
		DeliveredAt:    o.DeliveredAt,
		CancelledAt:    o.CancelledAt,
		RefundedAt:     o.RefundedAt,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
		Version:        o.Version,
	}
}
