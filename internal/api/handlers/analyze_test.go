package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/eshaffer321/bill-reconciler/internal/api/handlers"
	"github.com/eshaffer321/bill-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/bill-reconciler/internal/infrastructure/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAnalyzer struct {
	err error
}

func (s stubAnalyzer) Analyze(context.Context, reconcile.Request) (*reconcile.Result, error) {
	return nil, s.err
}

func (s stubAnalyzer) Reanalyze(context.Context, int64) (*reconcile.Result, error) {
	return nil, s.err
}

func TestAnalyzeHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", fmt.Errorf("%w: bad type", reconcile.ErrValidation), http.StatusBadRequest, "validation_error"},
		{"duplicate", reconcile.ErrDuplicatePayload, http.StatusConflict, "duplicate"},
		{"no result", reconcile.ErrNoExtractionResult, http.StatusNotFound, "no_result"},
		{"not found", fmt.Errorf("raw event 9: %w", storage.ErrNotFound), http.StatusNotFound, "not_found"},
		{"internal", errors.New("database is locked"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := handlers.NewAnalyzeHandler(storage.NewMockRepository(), stubAnalyzer{err: tt.err}, nil)
			router := gin.New()
			router.POST("/api/analyze", handler.Analyze)

			body := `{"app":"a","type":"NOTICE","data":"x"}`
			req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code":"`+tt.wantCode+`"`)
			assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
		})
	}
}

func TestAnalyzeHandler_InternalErrorHidesDetails(t *testing.T) {
	handler := handlers.NewAnalyzeHandler(nil, stubAnalyzer{err: errors.New("secret path /var/db")}, nil)
	router := gin.New()
	router.POST("/api/raw-events/:id/reanalyze", handler.Reanalyze)

	req := httptest.NewRequest(http.MethodPost, "/api/raw-events/3/reanalyze", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
}
