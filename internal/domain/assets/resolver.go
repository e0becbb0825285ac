// Package assets maps free-text account names from raw events onto the
// canonical assets the user has configured.
//
// Resolution walks an ordered chain (exact asset, exact mapping, pattern
// mapping, AI suggestion, fuzzy match) against a snapshot loaded once per
// Resolver. Names that cannot be resolved leave a placeholder mapping behind so
// the user can fill it in later.
package assets

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
)

// Outcome discriminates Result
type Outcome int

const (
	Unresolved Outcome = iota
	Resolved
	Suggested
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Suggested:
		return "suggested"
	default:
		return "unresolved"
	}
}

// Result is the outcome of resolving one account name.
//
// Resolved carries the canonical Name. Suggested carries a replacement for both
// account slots of the bill; the caller must apply it. Unresolved carries
// nothing.
type Result struct {
	Outcome Outcome
	Name    string
	From    string
	To      string
}

// Settings are the toggles the resolver reads
type Settings interface {
	AssetManagementEnabled() bool
	AutoAssetMappingEnabled() bool
	AIAssetMappingEnabled() bool
}

// MappingWriter persists placeholder mappings
type MappingWriter interface {
	InsertAssetMapping(ctx context.Context, m *bill.AssetMapping) error
}

// Suggester asks an AI classifier for canonical names for both account slots.
// It receives the bill's current (to, from) pair and returns (to, from).
type Suggester interface {
	SuggestAssets(ctx context.Context, accountTo, accountFrom string) (suggestedTo, suggestedFrom string, err error)
}

// Store is what a Resolver needs from storage
type Store interface {
	SnapshotLoader
	MappingWriter
}

// DefaultGenericSuffixes are trailing markers of masked or truncated names
var DefaultGenericSuffixes = []string{"...", "…", "**"}

// Resolver resolves account names against a lazily loaded snapshot
type Resolver struct {
	store     Store
	settings  Settings
	suggester Suggester
	logger    *slog.Logger
	suffixes  []string

	once     sync.Once
	snapshot *Snapshot
	loadErr  error
}

// NewResolver creates a resolver. suggester may be nil.
func NewResolver(store Store, settings Settings, suggester Suggester, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		store:     store,
		settings:  settings,
		suggester: suggester,
		logger:    logger,
		suffixes:  DefaultGenericSuffixes,
	}
}

// Snapshot returns the reference data, loading it on first use
func (r *Resolver) Snapshot(ctx context.Context) (*Snapshot, error) {
	r.once.Do(func() {
		r.snapshot, r.loadErr = LoadSnapshot(ctx, r.store)
	})
	return r.snapshot, r.loadErr
}

// Resolve maps a single account name. secondary is true for the AccountTo slot;
// AI suggestions are only requested for the primary slot.
func (r *Resolver) Resolve(ctx context.Context, name string, b *bill.Bill, secondary bool) Result {
	if strings.TrimSpace(name) == "" || r.isGeneric(name) {
		return Result{Outcome: Unresolved}
	}

	snap, err := r.Snapshot(ctx)
	if err != nil {
		r.logger.Warn("asset snapshot unavailable", "error", err)
		return Result{Outcome: Unresolved}
	}

	if snap.Has(name) {
		return Result{Outcome: Resolved, Name: name}
	}

	row, hasRow := snap.mapping(name)
	if hasRow && row.MapName != "" {
		return Result{Outcome: Resolved, Name: row.MapName}
	}

	if mapped, ok := matchPattern(snap.patterns(), name); ok {
		return Result{Outcome: Resolved, Name: mapped}
	}

	if !hasRow && !b.GeneratedByAI() && r.settings.AutoAssetMappingEnabled() {
		r.insertPlaceholder(ctx, snap, name)
	}

	if !secondary && r.suggester != nil && r.settings.AIAssetMappingEnabled() {
		to, from, err := r.suggester.SuggestAssets(ctx, b.AccountTo, b.AccountFrom)
		if err != nil {
			r.logger.Debug("ai asset suggestion failed", "account", name, "error", err)
		} else {
			if strings.TrimSpace(to) == "" {
				to = b.AccountTo
			}
			if strings.TrimSpace(from) == "" {
				from = b.AccountFrom
			}
			return Result{Outcome: Suggested, From: from, To: to}
		}
	}

	if match, ok := FuzzyMatch(name, snap.Assets); ok {
		r.logger.Debug("fuzzy asset match", "account", name, "asset", match)
		return Result{Outcome: Resolved, Name: match}
	}

	return Result{Outcome: Unresolved}
}

// Apply resolves both account slots of b in place. It is a no-op when asset
// management is disabled.
func (r *Resolver) Apply(ctx context.Context, b *bill.Bill) {
	if !r.settings.AssetManagementEnabled() {
		return
	}

	if b.AccountFrom != "" && !b.Type.SkipsFromMapping() {
		original := b.AccountFrom
		r.apply(b, r.Resolve(ctx, b.AccountFrom, b, false), func(name string) { b.AccountFrom = name })
		r.logger.Debug("mapped source account", "from", original, "to", b.AccountFrom)
	}

	if b.AccountTo != "" && !b.Type.SkipsToMapping() {
		original := b.AccountTo
		r.apply(b, r.Resolve(ctx, b.AccountTo, b, true), func(name string) { b.AccountTo = name })
		r.logger.Debug("mapped target account", "from", original, "to", b.AccountTo)
	}
}

func (r *Resolver) apply(b *bill.Bill, res Result, set func(string)) {
	switch res.Outcome {
	case Resolved:
		set(res.Name)
	case Suggested:
		b.AccountFrom = res.From
		b.AccountTo = res.To
	}
}

func (r *Resolver) isGeneric(name string) bool {
	for _, suffix := range r.suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// insertPlaceholder records name with a blank target. Failures never block
// resolution.
func (r *Resolver) insertPlaceholder(ctx context.Context, snap *Snapshot, name string) {
	m := &bill.AssetMapping{Name: name}
	if err := r.store.InsertAssetMapping(ctx, m); err != nil {
		r.logger.Debug("placeholder mapping insert failed", "account", name, "error", err)
		return
	}
	snap.remember(*m)
}

func matchPattern(rows []bill.AssetMapping, name string) (string, bool) {
	for _, row := range rows {
		if row.MapName == "" {
			continue
		}
		re, err := regexp.Compile(row.Name)
		if err != nil {
			if strings.Contains(name, row.Name) {
				return row.MapName, true
			}
			continue
		}
		if re.MatchString(name) {
			return row.MapName, true
		}
	}
	return "", false
}
