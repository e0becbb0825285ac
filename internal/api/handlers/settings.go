package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/bill-reconciler/internal/api/dto"
)

// SettingsStore reads and writes runtime settings.
type SettingsStore interface {
	All() map[string]string
	Set(ctx context.Context, key, value string) error
}

// SettingsHandler handles runtime setting changes.
type SettingsHandler struct {
	*Base
	settings SettingsStore
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(settings SettingsStore, base *Base) *SettingsHandler {
	if base == nil {
		base = NewBase(nil, nil)
	}
	return &SettingsHandler{Base: base, settings: settings}
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(c *gin.Context) {
	h.WriteJSON(c, http.StatusOK, dto.SettingsResponse{Settings: h.settings.All()})
}

// Update handles PUT /api/settings. Keys are applied in sorted order and the
// first failure stops the update.
func (h *SettingsHandler) Update(c *gin.Context) {
	var req dto.SettingsUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.WriteError(c, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	keys := make([]string, 0, len(req))
	for k := range req {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := h.settings.Set(c.Request.Context(), k, req[k]); err != nil {
			h.WriteServiceError(c, err)
			return
		}
	}

	h.WriteJSON(c, http.StatusOK, dto.SettingsResponse{Settings: h.settings.All()})
}
