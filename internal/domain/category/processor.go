// Package category rewrites free-text category names into the user's category
// tree.
//
// A name first goes through exact mapping replacement, then, when it names a
// child category, is expanded to "<parent> - <child>".
package category

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
)

// Separator joins parent and child category names
const Separator = " - "

// Loader reads the reference data the processor works against
type Loader interface {
	ListCategoryMappings(ctx context.Context) ([]bill.CategoryMapping, error)
	ListCategories(ctx context.Context) ([]bill.CategoryRecord, error)
}

// Snapshot is the category reference data, loaded once per processor
type Snapshot struct {
	Mappings   []bill.CategoryMapping
	Categories []bill.CategoryRecord

	byID map[int64]bill.CategoryRecord
}

// NewSnapshot indexes categories by id
func NewSnapshot(mappings []bill.CategoryMapping, categories []bill.CategoryRecord) *Snapshot {
	s := &Snapshot{
		Mappings:   mappings,
		Categories: categories,
		byID:       make(map[int64]bill.CategoryRecord, len(categories)),
	}
	for _, c := range categories {
		s.byID[c.ID] = c
	}
	return s
}

// Map returns the mapped name for an exact match with a non-blank target
func (s *Snapshot) Map(name string) (string, bool) {
	for _, m := range s.Mappings {
		if m.Name == name && m.MapName != "" {
			return m.MapName, true
		}
	}
	return "", false
}

// Find returns the category named name in the given tree and book
func (s *Snapshot) Find(name string, class bill.Type, book string) (bill.CategoryRecord, bool) {
	for _, c := range s.Categories {
		if c.Name == name && c.Type == class && c.BookName == book {
			return c, true
		}
	}
	return bill.CategoryRecord{}, false
}

// Parent returns the parent of c, if any
func (s *Snapshot) Parent(c bill.CategoryRecord) (bill.CategoryRecord, bool) {
	if c.ParentID == 0 {
		return bill.CategoryRecord{}, false
	}
	p, ok := s.byID[c.ParentID]
	return p, ok
}

// Processor resolves bill categories
type Processor struct {
	loader      Loader
	defaultBook func() string
	logger      *slog.Logger

	once     sync.Once
	snapshot *Snapshot
	loadErr  error
}

// NewProcessor creates a processor. defaultBook supplies the book used when a
// bill has none.
func NewProcessor(loader Loader, defaultBook func() string, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Processor{loader: loader, defaultBook: defaultBook, logger: logger}
}

// Snapshot returns the reference data, loading it on first use
func (p *Processor) Snapshot(ctx context.Context) (*Snapshot, error) {
	p.once.Do(func() {
		mappings, err := p.loader.ListCategoryMappings(ctx)
		if err != nil {
			p.loadErr = fmt.Errorf("failed to load category mappings: %w", err)
			return
		}
		categories, err := p.loader.ListCategories(ctx)
		if err != nil {
			p.loadErr = fmt.Errorf("failed to load categories: %w", err)
			return
		}
		p.snapshot = NewSnapshot(mappings, categories)
	})
	return p.snapshot, p.loadErr
}

// Process rewrites b.CategoryName in place. Lookup failures leave the name as
// it is.
func (p *Processor) Process(ctx context.Context, b *bill.Bill) {
	snap, err := p.Snapshot(ctx)
	if err != nil {
		p.logger.Warn("category snapshot unavailable", "error", err)
		return
	}
	original := b.CategoryName
	Resolve(snap, b, p.book(b))
	if original != b.CategoryName {
		p.logger.Debug("category resolved", "from", original, "to", b.CategoryName)
	}
}

func (p *Processor) book(b *bill.Bill) string {
	if b.BookName != "" {
		return b.BookName
	}
	if p.defaultBook != nil {
		return p.defaultBook()
	}
	return ""
}

// Resolve applies mapping and parent expansion against snap
func Resolve(snap *Snapshot, b *bill.Bill, book string) {
	if strings.TrimSpace(b.CategoryName) == "" {
		return
	}
	if mapped, ok := snap.Map(b.CategoryName); ok {
		b.CategoryName = mapped
	}

	if strings.Contains(b.CategoryName, Separator) || book == "" {
		return
	}
	child, ok := snap.Find(b.CategoryName, b.Type.CategoryClass(), book)
	if !ok {
		return
	}
	if parent, ok := snap.Parent(child); ok && parent.Name != "" {
		b.CategoryName = parent.Name + Separator + child.Name
	}
}

// IsOther reports whether name is the catch-all category
func IsOther(name string) bool {
	return name == "" || name == "其他" || name == "其它"
}
