package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditapp "github.com/shopcore/backend/internal/application/audit"
)

// AuditHandler serves the stock movement audit trail
type AuditHandler struct {
	BaseHandler
	audit *auditapp.Service
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(audit *auditapp.Service) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// RegisterRoutes registers audit routes on the API group
func (h *AuditHandler) RegisterRoutes(rg *gin.RouterGroup) {
	audit := rg.Group("/audit")
	{
		audit.GET("/stock/:variant_id", h.ListEntries)
	}
}

// AuditEntryResponse is one ledger entry with its running balance
type AuditEntryResponse struct {
	ID            string    `json:"id"`
	VariantID     string    `json:"variant_id"`
	QuantityDelta int64     `json:"quantity_delta"`
	Reason        string    `json:"reason"`
	ReferenceID   *string   `json:"reference_id,omitempty"`
	BalanceAfter  int64     `json:"balance_after"`
	CreatedAt     time.Time `json:"created_at"`
}

// AuditPageResponse is a page of audit entries with a continuation token
type AuditPageResponse struct {
	Entries   []AuditEntryResponse `json:"entries"`
	NextToken string               `json:"next_token,omitempty"`
}

// ListEntries handles GET /audit/stock/:variant_id
func (h *AuditHandler) ListEntries(c *gin.Context) {
	variantID, err := uuid.Parse(c.Param("variant_id"))
	if err != nil {
		h.BadRequest(c, "Invalid variant ID: "+c.Param("variant_id"))
		return
	}

	from, ok := parseTimeQuery(c, "from", time.Time{})
	if !ok {
		h.BadRequest(c, "Invalid from timestamp: "+c.Query("from"))
		return
	}
	to, ok := parseTimeQuery(c, "to", time.Now().UTC())
	if !ok {
		h.BadRequest(c, "Invalid to timestamp: "+c.Query("to"))
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		h.BadRequest(c, "Invalid limit: "+c.Query("limit"))
		return
	}

	entries, next, err := h.audit.ListEntries(c.Request.Context(), variantID, from, to, c.Query("token"), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page := AuditPageResponse{
		Entries:   make([]AuditEntryResponse, 0, len(entries)),
		NextToken: next,
	}
	for _, e := range entries {
		page.Entries = append(page.Entries, AuditEntryResponse{
			ID:            e.ID.String(),
			VariantID:     e.VariantID.String(),
			QuantityDelta: e.QuantityDelta,
			Reason:        string(e.Reason),
			ReferenceID:   e.ReferenceID,
			BalanceAfter:  e.BalanceAfter,
			CreatedAt:     e.CreatedAt,
		})
	}
	h.Success(c, page)
}
