package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/bill-reconciler/internal/api/dto"
	"github.com/eshaffer321/bill-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/bill-reconciler/internal/infrastructure/storage"
)

// Analyzer runs payloads through the reconciliation pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, req reconcile.Request) (*reconcile.Result, error)
	Reanalyze(ctx context.Context, rawEventID int64) (*reconcile.Result, error)
}

// AnalyzeHandler handles ingestion requests.
type AnalyzeHandler struct {
	*Base
	analyzer Analyzer
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(repo storage.Repository, analyzer Analyzer, base *Base) *AnalyzeHandler {
	if base == nil {
		base = NewBase(repo, nil)
	}
	return &AnalyzeHandler{Base: base, analyzer: analyzer}
}

// Analyze handles POST /api/analyze.
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var req dto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.WriteError(c, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), reconcile.Request{
		App:         req.App,
		DataType:    req.Type,
		Data:        req.Data,
		ForceAI:     req.ForceAI,
		FromAppData: req.FromData,
	})
	if err != nil {
		h.WriteServiceError(c, err)
		return
	}

	h.WriteJSON(c, http.StatusOK, dto.AnalyzeResponse{Bill: result.Bill, Parent: result.Parent})
}

// Reanalyze handles POST /api/raw-events/:id/reanalyze.
func (h *AnalyzeHandler) Reanalyze(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	result, err := h.analyzer.Reanalyze(c.Request.Context(), id)
	if err != nil {
		h.WriteServiceError(c, err)
		return
	}

	h.WriteJSON(c, http.StatusOK, dto.AnalyzeResponse{Bill: result.Bill, Parent: result.Parent})
}
