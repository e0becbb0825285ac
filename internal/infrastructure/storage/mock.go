package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	mu sync.Mutex

	bills            map[int64]*bill.Bill
	rawEvents        map[int64]*bill.RawEvent
	assets           []bill.AssetRecord
	assetMappings    []bill.AssetMapping
	categories       []bill.CategoryRecord
	categoryMappings []bill.CategoryMapping
	settings         map[string]string
	nextBillID       int64
	nextRawEventID   int64
	nextReferenceID  int64

	// Hooks for test assertions
	InsertBillCalled     int
	UpdateBillCalled     int
	FindCandidatesCalled int
	InsertRawEventCalled int
	LastInsertedBill     *bill.Bill
	LastCandidateQuery   *bill.CandidateQuery

	// Error injection for testing error paths
	InsertBillErr         error
	UpdateBillErr         error
	FindCandidatesErr     error
	InsertRawEventErr     error
	UpdateRawEventErr     error
	InsertAssetMappingErr error
	ListAssetsErr         error
	ListSettingsErr       error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		bills:           make(map[int64]*bill.Bill),
		rawEvents:       make(map[int64]*bill.RawEvent),
		settings:        make(map[string]string),
		nextBillID:      1,
		nextRawEventID:  1,
		nextReferenceID: 1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// InsertBill stores a copy of the bill and assigns its ID
func (m *MockRepository) InsertBill(_ context.Context, b *bill.Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InsertBillCalled++
	if m.InsertBillErr != nil {
		return m.InsertBillErr
	}
	b.ID = m.nextBillID
	m.nextBillID++
	// Deep copy to avoid test mutations
	m.bills[b.ID] = b.Clone()
	m.LastInsertedBill = b.Clone()
	return nil
}

// UpdateBill replaces the stored copy
func (m *MockRepository) UpdateBill(_ context.Context, b *bill.Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateBillCalled++
	if m.UpdateBillErr != nil {
		return m.UpdateBillErr
	}
	if _, ok := m.bills[b.ID]; !ok {
		return fmt.Errorf("bill %d: %w", b.ID, ErrNotFound)
	}
	m.bills[b.ID] = b.Clone()
	return nil
}

// GetBill returns a copy of a stored bill
func (m *MockRepository) GetBill(_ context.Context, id int64) (*bill.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bills[id]
	if !ok {
		return nil, fmt.Errorf("bill %d: %w", id, ErrNotFound)
	}
	return b.Clone(), nil
}

// FindCandidates applies the query to every stored bill, oldest first
func (m *MockRepository) FindCandidates(_ context.Context, q bill.CandidateQuery) ([]*bill.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FindCandidatesCalled++
	captured := q
	m.LastCandidateQuery = &captured
	if m.FindCandidatesErr != nil {
		return nil, m.FindCandidatesErr
	}

	result := make([]*bill.Bill, 0)
	for _, b := range m.sortedBills() {
		if q.Matches(b) {
			result = append(result, b.Clone())
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Time.Before(result[j].Time)
	})
	return result, nil
}

// ListBills filters stored bills, newest first
func (m *MockRepository) ListBills(_ context.Context, filters BillFilters) (*BillListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if filters.Limit <= 0 {
		filters.Limit = defaultListLimit
	}

	matched := make([]*bill.Bill, 0)
	all := m.sortedBills()
	for i := len(all) - 1; i >= 0; i-- {
		b := all[i]
		if filters.Type != "" && b.Type != filters.Type {
			continue
		}
		if filters.State != "" && b.State != filters.State {
			continue
		}
		if filters.RootsOnly && !b.IsRoot() {
			continue
		}
		matched = append(matched, b.Clone())
	}

	total := len(matched)
	start := filters.Offset
	if start > total {
		start = total
	}
	end := start + filters.Limit
	if end > total {
		end = total
	}

	return &BillListResult{
		Bills:      matched[start:end],
		TotalCount: total,
		Limit:      filters.Limit,
		Offset:     filters.Offset,
	}, nil
}

// ListChildren returns copies of the bills grouped under parentID
func (m *MockRepository) ListChildren(_ context.Context, parentID int64) ([]*bill.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*bill.Bill, 0)
	for _, b := range m.sortedBills() {
		if b.GroupID == parentID {
			result = append(result, b.Clone())
		}
	}
	return result, nil
}

// sortedBills returns stored bills by ID. Caller holds mu.
func (m *MockRepository) sortedBills() []*bill.Bill {
	out := make([]*bill.Bill, 0, len(m.bills))
	for _, b := range m.bills {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// InsertRawEvent stores a copy and assigns its ID
func (m *MockRepository) InsertRawEvent(_ context.Context, e *bill.RawEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InsertRawEventCalled++
	if m.InsertRawEventErr != nil {
		return m.InsertRawEventErr
	}
	e.ID = m.nextRawEventID
	m.nextRawEventID++
	copied := *e
	m.rawEvents[e.ID] = &copied
	return nil
}

// UpdateRawEvent replaces the stored copy
func (m *MockRepository) UpdateRawEvent(_ context.Context, e *bill.RawEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpdateRawEventErr != nil {
		return m.UpdateRawEventErr
	}
	if _, ok := m.rawEvents[e.ID]; !ok {
		return fmt.Errorf("raw event %d: %w", e.ID, ErrNotFound)
	}
	copied := *e
	m.rawEvents[e.ID] = &copied
	return nil
}

// GetRawEvent returns a copy of a stored raw event
func (m *MockRepository) GetRawEvent(_ context.Context, id int64) (*bill.RawEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.rawEvents[id]
	if !ok {
		return nil, fmt.Errorf("raw event %d: %w", id, ErrNotFound)
	}
	copied := *e
	return &copied, nil
}

// ListRawEvents returns raw events newest first
func (m *MockRepository) ListRawEvents(_ context.Context, limit, offset int) ([]*bill.RawEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = defaultListLimit
	}
	ids := make([]int64, 0, len(m.rawEvents))
	for id := range m.rawEvents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	result := make([]*bill.RawEvent, 0)
	for i := offset; i < len(ids) && len(result) < limit; i++ {
		copied := *m.rawEvents[ids[i]]
		result = append(result, &copied)
	}
	return result, nil
}

// ListAssets returns a copy of the stored assets
func (m *MockRepository) ListAssets(_ context.Context) ([]bill.AssetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListAssetsErr != nil {
		return nil, m.ListAssetsErr
	}
	return append([]bill.AssetRecord{}, m.assets...), nil
}

// SaveAsset inserts or renames an asset
func (m *MockRepository) SaveAsset(_ context.Context, a *bill.AssetRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.assets {
		if m.assets[i].ID == a.ID && a.ID != 0 {
			m.assets[i] = *a
			return nil
		}
	}
	a.ID = m.nextID()
	m.assets = append(m.assets, *a)
	return nil
}

// DeleteAsset removes an asset
func (m *MockRepository) DeleteAsset(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.assets {
		if m.assets[i].ID == id {
			m.assets = append(m.assets[:i], m.assets[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("assets %d: %w", id, ErrNotFound)
}

// ListAssetMappings returns a copy of the stored asset mappings
func (m *MockRepository) ListAssetMappings(_ context.Context) ([]bill.AssetMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bill.AssetMapping{}, m.assetMappings...), nil
}

// InsertAssetMapping fails when the name is already mapped
func (m *MockRepository) InsertAssetMapping(_ context.Context, am *bill.AssetMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertAssetMappingErr != nil {
		return m.InsertAssetMappingErr
	}
	for _, existing := range m.assetMappings {
		if existing.Name == am.Name {
			return fmt.Errorf("asset mapping %q already exists", am.Name)
		}
	}
	am.ID = m.nextID()
	m.assetMappings = append(m.assetMappings, *am)
	return nil
}

// SaveAssetMapping inserts or replaces by name
func (m *MockRepository) SaveAssetMapping(_ context.Context, am *bill.AssetMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.assetMappings {
		if m.assetMappings[i].Name == am.Name {
			am.ID = m.assetMappings[i].ID
			m.assetMappings[i] = *am
			return nil
		}
	}
	am.ID = m.nextID()
	m.assetMappings = append(m.assetMappings, *am)
	return nil
}

// DeleteAssetMapping removes an asset mapping
func (m *MockRepository) DeleteAssetMapping(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.assetMappings {
		if m.assetMappings[i].ID == id {
			m.assetMappings = append(m.assetMappings[:i], m.assetMappings[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("asset_mappings %d: %w", id, ErrNotFound)
}

// ListCategories returns a copy of the stored categories
func (m *MockRepository) ListCategories(_ context.Context) ([]bill.CategoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bill.CategoryRecord{}, m.categories...), nil
}

// SaveCategory inserts or updates a category
func (m *MockRepository) SaveCategory(_ context.Context, c *bill.CategoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.categories {
		if c.ID != 0 && m.categories[i].ID == c.ID {
			m.categories[i] = *c
			return nil
		}
	}
	c.ID = m.nextID()
	m.categories = append(m.categories, *c)
	return nil
}

// ListCategoryMappings returns a copy of the stored category mappings
func (m *MockRepository) ListCategoryMappings(_ context.Context) ([]bill.CategoryMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bill.CategoryMapping{}, m.categoryMappings...), nil
}

// SaveCategoryMapping inserts or replaces by name
func (m *MockRepository) SaveCategoryMapping(_ context.Context, cm *bill.CategoryMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.categoryMappings {
		if m.categoryMappings[i].Name == cm.Name {
			cm.ID = m.categoryMappings[i].ID
			m.categoryMappings[i] = *cm
			return nil
		}
	}
	cm.ID = m.nextID()
	m.categoryMappings = append(m.categoryMappings, *cm)
	return nil
}

// DeleteCategoryMapping removes a category mapping
func (m *MockRepository) DeleteCategoryMapping(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.categoryMappings {
		if m.categoryMappings[i].ID == id {
			m.categoryMappings = append(m.categoryMappings[:i], m.categoryMappings[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("category_mappings %d: %w", id, ErrNotFound)
}

// ListSettings returns a copy of the stored settings
func (m *MockRepository) ListSettings(_ context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListSettingsErr != nil {
		return nil, m.ListSettingsErr
	}
	out := make(map[string]string, len(m.settings))
	for k, v := range m.settings {
		out[k] = v
	}
	return out, nil
}

// SaveSetting stores a setting override
func (m *MockRepository) SaveSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

// BillCount returns the number of stored bills
func (m *MockRepository) BillCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bills)
}

// RawEventCount returns the number of stored raw events
func (m *MockRepository) RawEventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rawEvents)
}

// nextID hands out IDs for reference rows. Caller holds mu.
func (m *MockRepository) nextID() int64 {
	id := m.nextReferenceID
	m.nextReferenceID++
	return id
}
