package assets

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
)

// SnapshotLoader reads the reference data a resolver works against
type SnapshotLoader interface {
	ListAssets(ctx context.Context) ([]bill.AssetRecord, error)
	ListAssetMappings(ctx context.Context) ([]bill.AssetMapping, error)
}

// Snapshot is the reference data a resolver works against. It is loaded once
// and not refreshed: mappings inserted by other resolvers are invisible until a
// new snapshot is taken.
type Snapshot struct {
	Assets   []bill.AssetRecord
	Mappings []bill.AssetMapping

	names map[string]struct{}
	rows  map[string]int // mapping name -> index into Mappings
	mu    sync.Mutex     // guards rows/Mappings appends from placeholder inserts
}

var bankPattern = regexp.MustCompile(`(\p{Han}{2,10})银行`)

// ExtractBank returns the bank name in s ("招商" for "招商银行信用卡"), or ""
func ExtractBank(s string) string {
	m := bankPattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// NewSnapshot indexes the given records. Bank names are derived from asset
// names.
func NewSnapshot(assets []bill.AssetRecord, mappings []bill.AssetMapping) *Snapshot {
	s := &Snapshot{
		Assets:   make([]bill.AssetRecord, len(assets)),
		Mappings: append([]bill.AssetMapping(nil), mappings...),
		names:    make(map[string]struct{}, len(assets)),
		rows:     make(map[string]int, len(mappings)),
	}
	for i, a := range assets {
		if a.Bank == "" {
			a.Bank = ExtractBank(a.Name)
		}
		s.Assets[i] = a
		s.names[a.Name] = struct{}{}
	}
	for i, m := range s.Mappings {
		if _, ok := s.rows[m.Name]; !ok {
			s.rows[m.Name] = i
		}
	}
	return s
}

// LoadSnapshot reads a snapshot through loader
func LoadSnapshot(ctx context.Context, loader SnapshotLoader) (*Snapshot, error) {
	assets, err := loader.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}
	mappings, err := loader.ListAssetMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load asset mappings: %w", err)
	}
	return NewSnapshot(assets, mappings), nil
}

// Has reports whether name is a canonical asset. It satisfies
// merger.KnownAssets.
func (s *Snapshot) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}

// mapping returns the exact mapping row for name
func (s *Snapshot) mapping(name string) (bill.AssetMapping, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.rows[name]
	if !ok {
		return bill.AssetMapping{}, false
	}
	return s.Mappings[i], true
}

func (s *Snapshot) patterns() []bill.AssetMapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []bill.AssetMapping
	for _, m := range s.Mappings {
		if m.Regex {
			out = append(out, m)
		}
	}
	return out
}

// remember records a placeholder so it is not inserted twice
func (s *Snapshot) remember(m bill.AssetMapping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[m.Name]; ok {
		return
	}
	s.Mappings = append(s.Mappings, m)
	s.rows[m.Name] = len(s.Mappings) - 1
}
