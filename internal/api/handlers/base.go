package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/bill-reconciler/internal/api/dto"
	"github.com/eshaffer321/bill-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/bill-reconciler/internal/infrastructure/settings"
	"github.com/eshaffer321/bill-reconciler/internal/infrastructure/storage"
)

// Base provides shared functionality for all handlers.
type Base struct {
	repo   storage.Repository
	logger *slog.Logger
}

// NewBase creates a new base handler with the given repository.
func NewBase(repo storage.Repository, logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	return &Base{repo: repo, logger: logger}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(c *gin.Context, status int, err dto.APIError) {
	c.AbortWithStatusJSON(status, err)
}

// WriteServiceError maps pipeline and storage errors to API errors.
// Anything unrecognized is logged and reported as internal.
func (b *Base) WriteServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, reconcile.ErrValidation), errors.Is(err, settings.ErrInvalidSetting):
		b.WriteError(c, http.StatusBadRequest, dto.ValidationError(err.Error()))
	case errors.Is(err, reconcile.ErrDuplicatePayload):
		b.WriteError(c, http.StatusConflict, dto.DuplicateError())
	case errors.Is(err, reconcile.ErrNoExtractionResult):
		b.WriteError(c, http.StatusNotFound, dto.NoResultError())
	case errors.Is(err, storage.ErrNotFound):
		b.WriteError(c, http.StatusNotFound, dto.NewAPIError(dto.ErrCodeNotFound, err.Error()))
	default:
		b.logger.Error("request failed", "path", c.FullPath(), "error", err)
		b.WriteError(c, http.StatusInternalServerError, dto.InternalError())
	}
}

// ParseIntParam parses an integer query parameter with a default value.
func ParseIntParam(c *gin.Context, name string, defaultVal int) int {
	val := c.Query(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParseBoolParam parses a boolean query parameter with a default value.
func ParseBoolParam(c *gin.Context, name string, defaultVal bool) bool {
	val := c.Query(name)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1"
}

// pathID parses the :id path parameter, writing a 400 when it is not a
// positive integer.
func (b *Base) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		b.WriteError(c, http.StatusBadRequest, dto.BadRequestError("invalid id"))
		return 0, false
	}
	return id, true
}
