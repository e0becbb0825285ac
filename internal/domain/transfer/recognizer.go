// Package transfer pairs an income and an expense of equal amount into a
// single transfer between two of the user's accounts.
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
	"github.com/eshaffer321/bill-reconciler/internal/domain/merger"
)

// Store is the storage the recognizer reads candidates from and writes merges to
type Store interface {
	FindCandidates(ctx context.Context, q bill.CandidateQuery) ([]*bill.Bill, error)
	UpdateBill(ctx context.Context, b *bill.Bill) error
}

// Settings are the toggles the recognizer reads
type Settings interface {
	AssetManagementEnabled() bool
	TransferRecognitionEnabled() bool
	TransferWindow() time.Duration
}

// Recognizer turns opposite-direction bill pairs into transfers
type Recognizer struct {
	store    Store
	settings Settings
	merger   *merger.Merger
	logger   *slog.Logger
}

// NewRecognizer creates a recognizer
func NewRecognizer(store Store, settings Settings, m *merger.Merger, logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if m == nil {
		m = merger.New(logger)
	}
	return &Recognizer{store: store, settings: settings, merger: m, logger: logger}
}

// candidateTypes lists what a bill of type t can pair with. ok is false for
// types that never take part in transfers. A nil slice means any type.
func candidateTypes(t bill.Type) (types []bill.Type, ok bool) {
	switch t {
	case bill.TypeIncome:
		return []bill.Type{bill.TypeExpend, bill.TypeTransfer}, true
	case bill.TypeExpend:
		return []bill.Type{bill.TypeIncome, bill.TypeTransfer}, true
	case bill.TypeTransfer:
		return nil, true
	default:
		return nil, false
	}
}

// Recognize looks for the other half of a transfer. On a hit the candidate
// becomes the Transfer parent of b, categories are cleared on both, and both
// are persisted parent first. It returns nil when nothing matched.
func (r *Recognizer) Recognize(ctx context.Context, b *bill.Bill, known merger.KnownAssets) (*bill.Bill, error) {
	types, ok := candidateTypes(b.Type)
	if !ok {
		r.logger.Debug("transfer recognition skipped for type", "bill_id", b.ID, "type", b.Type)
		return nil, nil
	}
	if !b.IsRoot() || !r.settings.AssetManagementEnabled() || !r.settings.TransferRecognitionEnabled() {
		return nil, nil
	}

	q := bill.Window(b.Amount, b.Time, r.settings.TransferWindow(), types...)
	candidates, err := r.store.FindCandidates(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfer candidates: %w", err)
	}

	var parent *bill.Bill
	for _, c := range candidates {
		if c.ID != b.ID {
			parent = c
			break
		}
	}
	if parent == nil {
		return nil, nil
	}

	r.logger.Debug("transfer pair found", "parent_id", parent.ID, "child_id", b.ID)

	// An income's only account is where the money landed
	normalizeIncome(b)
	normalizeIncome(parent)

	parent.Type = bill.TypeTransfer
	r.merger.MergeAccountInfo(b, parent, known)
	merger.MergeShopInfo(b, parent)

	b.GroupID = parent.ID
	b.CategoryName = ""
	parent.CategoryName = ""

	if err := r.store.UpdateBill(ctx, parent); err != nil {
		return nil, fmt.Errorf("failed to update transfer bill %d: %w", parent.ID, err)
	}
	if err := r.store.UpdateBill(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to update child bill %d: %w", b.ID, err)
	}

	r.logger.Info("recognized transfer", "parent_id", parent.ID, "child_id", b.ID,
		"from", parent.AccountFrom, "to", parent.AccountTo)
	return parent, nil
}

func normalizeIncome(b *bill.Bill) {
	if b.Type == bill.TypeIncome && b.AccountFrom != "" && b.AccountTo == "" {
		b.AccountTo = b.AccountFrom
		b.AccountFrom = ""
	}
}
