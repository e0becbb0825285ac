package dto

import (
	"time"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Schema    int64  `json:"schema_version,omitempty"`
}

// AnalyzeResponse is returned after a payload was reconciled.
type AnalyzeResponse struct {
	Bill   *bill.Bill `json:"bill"`
	Parent *bill.Bill `json:"parent,omitempty"`
}

// BillListResponse is returned when listing bills.
type BillListResponse struct {
	Bills      []*bill.Bill `json:"bills"`
	TotalCount int          `json:"total_count"`
	Limit      int          `json:"limit"`
	Offset     int          `json:"offset"`
}

// BillDetailResponse is a bill with the bills grouped under it.
type BillDetailResponse struct {
	Bill     *bill.Bill   `json:"bill"`
	Children []*bill.Bill `json:"children"`
}

// RawEventListResponse is returned when listing archived payloads.
type RawEventListResponse struct {
	Events []*bill.RawEvent `json:"events"`
	Count  int              `json:"count"`
}

// SettingsResponse holds the effective value of every setting.
type SettingsResponse struct {
	Settings map[string]string `json:"settings"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse(schema int64) HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Schema:    schema,
	}
}
