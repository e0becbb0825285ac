package storage

import (
	"context"
	"errors"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
)

// ErrNotFound is returned by point lookups that match nothing
var ErrNotFound = errors.New("not found")

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory)
// and makes testing with mocks straightforward.
type Repository interface {
	BillRepository
	RawEventRepository
	AssetRepository
	CategoryRepository
	SettingsRepository
	Close() error
}

// BillRepository handles bill records
type BillRepository interface {
	// InsertBill saves a new bill and sets its ID
	InsertBill(ctx context.Context, b *bill.Bill) error

	// UpdateBill overwrites every mutable column of an existing bill
	UpdateBill(ctx context.Context, b *bill.Bill) error

	// GetBill retrieves a bill by ID
	GetBill(ctx context.Context, id int64) (*bill.Bill, error)

	// FindCandidates returns root bills matching the query, oldest first
	FindCandidates(ctx context.Context, q bill.CandidateQuery) ([]*bill.Bill, error)

	// ListBills returns bills matching the filters with pagination
	ListBills(ctx context.Context, filters BillFilters) (*BillListResult, error)

	// ListChildren returns the bills grouped under parentID
	ListChildren(ctx context.Context, parentID int64) ([]*bill.Bill, error)
}

// BillFilters defines filters for listing bills
type BillFilters struct {
	Type      bill.Type  // Filter by type (empty = all)
	State     bill.State // Filter by state (empty = all)
	RootsOnly bool       // Exclude bills merged into a parent
	Limit     int        // Max results (0 = default 50)
	Offset    int        // Pagination offset
}

// BillListResult contains paginated bill results
type BillListResult struct {
	Bills      []*bill.Bill `json:"bills"`
	TotalCount int          `json:"total_count"`
	Limit      int          `json:"limit"`
	Offset     int          `json:"offset"`
}

// RawEventRepository handles the raw event archive
type RawEventRepository interface {
	InsertRawEvent(ctx context.Context, e *bill.RawEvent) error
	UpdateRawEvent(ctx context.Context, e *bill.RawEvent) error
	GetRawEvent(ctx context.Context, id int64) (*bill.RawEvent, error)
	ListRawEvents(ctx context.Context, limit, offset int) ([]*bill.RawEvent, error)
}

// AssetRepository handles assets and asset mappings
type AssetRepository interface {
	ListAssets(ctx context.Context) ([]bill.AssetRecord, error)
	SaveAsset(ctx context.Context, a *bill.AssetRecord) error
	DeleteAsset(ctx context.Context, id int64) error

	ListAssetMappings(ctx context.Context) ([]bill.AssetMapping, error)
	// InsertAssetMapping fails if a row with the same name exists
	InsertAssetMapping(ctx context.Context, m *bill.AssetMapping) error
	// SaveAssetMapping inserts or replaces by name
	SaveAssetMapping(ctx context.Context, m *bill.AssetMapping) error
	DeleteAssetMapping(ctx context.Context, id int64) error
}

// CategoryRepository handles the category tree and category mappings
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]bill.CategoryRecord, error)
	SaveCategory(ctx context.Context, c *bill.CategoryRecord) error

	ListCategoryMappings(ctx context.Context) ([]bill.CategoryMapping, error)
	SaveCategoryMapping(ctx context.Context, m *bill.CategoryMapping) error
	DeleteCategoryMapping(ctx context.Context, id int64) error
}

// SettingsRepository persists runtime setting overrides
type SettingsRepository interface {
	ListSettings(ctx context.Context) (map[string]string, error)
	SaveSetting(ctx context.Context, key, value string) error
}
