package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/bill-reconciler/internal/api/dto"
)

// SchemaReporter is implemented by stores that track migrations.
type SchemaReporter interface {
	SchemaVersion(ctx context.Context) (int64, error)
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	schema SchemaReporter
}

// NewHealthHandler creates a new health handler. schema may be nil.
func NewHealthHandler(schema SchemaReporter) *HealthHandler {
	return &HealthHandler{schema: schema}
}

// Get handles the health check request.
func (h *HealthHandler) Get(c *gin.Context) {
	var version int64
	if h.schema != nil {
		v, err := h.schema.SchemaVersion(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, dto.NewAPIError("unavailable", "database unreachable"))
			return
		}
		version = v
	}
	c.JSON(http.StatusOK, dto.NewHealthResponse(version))
}
