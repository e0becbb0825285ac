package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/bill-reconciler/internal/api/dto"
	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
	"github.com/eshaffer321/bill-reconciler/internal/infrastructure/storage"
)

// BillsHandler handles bill and raw event reads.
type BillsHandler struct {
	*Base
}

// NewBillsHandler creates a new bills handler.
func NewBillsHandler(repo storage.Repository, base *Base) *BillsHandler {
	if base == nil {
		base = NewBase(repo, nil)
	}
	return &BillsHandler{Base: base}
}

// List handles GET /api/bills.
func (h *BillsHandler) List(c *gin.Context) {
	params := dto.DefaultBillListParams()
	params.Type = c.Query("type")
	params.State = c.Query("state")
	params.RootsOnly = ParseBoolParam(c, "roots_only", false)
	params.Limit = ParseIntParam(c, "limit", params.Limit)
	params.Offset = ParseIntParam(c, "offset", params.Offset)

	if params.Limit < 1 || params.Limit > 500 {
		params.Limit = 50
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	filters := storage.BillFilters{
		State:     bill.State(params.State),
		RootsOnly: params.RootsOnly,
		Limit:     params.Limit,
		Offset:    params.Offset,
	}
	if params.Type != "" {
		typ, err := bill.ParseType(params.Type)
		if err != nil {
			h.WriteError(c, http.StatusBadRequest, dto.ValidationError(err.Error()))
			return
		}
		filters.Type = typ
	}

	result, err := h.repo.ListBills(c.Request.Context(), filters)
	if err != nil {
		h.WriteServiceError(c, err)
		return
	}

	bills := result.Bills
	if bills == nil {
		bills = []*bill.Bill{}
	}
	h.WriteJSON(c, http.StatusOK, dto.BillListResponse{
		Bills:      bills,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get handles GET /api/bills/:id.
func (h *BillsHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	b, err := h.repo.GetBill(c.Request.Context(), id)
	if err != nil {
		h.WriteServiceError(c, err)
		return
	}

	children, err := h.repo.ListChildren(c.Request.Context(), id)
	if err != nil {
		h.WriteServiceError(c, err)
		return
	}
	if children == nil {
		children = []*bill.Bill{}
	}

	h.WriteJSON(c, http.StatusOK, dto.BillDetailResponse{Bill: b, Children: children})
}

// ListRawEvents handles GET /api/raw-events.
func (h *BillsHandler) ListRawEvents(c *gin.Context) {
	limit := ParseIntParam(c, "limit", 50)
	offset := ParseIntParam(c, "offset", 0)

	events, err := h.repo.ListRawEvents(c.Request.Context(), limit, offset)
	if err != nil {
		h.WriteServiceError(c, err)
		return
	}

	h.WriteJSON(c, http.StatusOK, dto.RawEventListResponse{Events: events, Count: len(events)})
}
