// Package dedup groups multiple reports of the same transaction under one
// parent bill.
//
// A payment often produces a wallet notification, a bank SMS and an app
// record. Each becomes its own bill; the detector links later ones to the
// first so the user books the money once.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
	"github.com/eshaffer321/bill-reconciler/internal/domain/merger"
)

// Store is the storage the detector reads candidates from and writes merges to
type Store interface {
	FindCandidates(ctx context.Context, q bill.CandidateQuery) ([]*bill.Bill, error)
	UpdateBill(ctx context.Context, b *bill.Bill) error
}

// Settings are the toggles the detector reads
type Settings interface {
	DedupEnabled() bool
	DedupWindow() time.Duration
}

// Detector finds and merges duplicate bills
type Detector struct {
	store    Store
	settings Settings
	merger   *merger.Merger
	logger   *slog.Logger
}

// NewDetector creates a detector
func NewDetector(store Store, settings Settings, m *merger.Merger, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if m == nil {
		m = merger.New(logger)
	}
	return &Detector{store: store, settings: settings, merger: m, logger: logger}
}

// IsDuplicate decides whether two bills of equal amount and type, close in
// time, describe the same transaction.
func IsDuplicate(a, b *bill.Bill) bool {
	if bill.SameTime(a.Time, b.Time) {
		return true
	}
	if a.GeneratedByAI() && b.GeneratedByAI() {
		return false
	}
	// Same channel twice is two real payments, e.g. repeated transfers to one payee
	if a.Channel != "" && a.Channel == b.Channel {
		return false
	}
	return true
}

// Detect looks for an earlier report of b. On a hit b becomes a child of the
// returned parent, the parent absorbs b's account and shop data, and both are
// persisted parent first. It returns nil when nothing matched.
func (d *Detector) Detect(ctx context.Context, b *bill.Bill, known merger.KnownAssets) (*bill.Bill, error) {
	if !d.settings.DedupEnabled() || !b.IsRoot() {
		return nil, nil
	}

	q := bill.Window(b.Amount, b.Time, d.settings.DedupWindow(), b.Type)
	candidates, err := d.store.FindCandidates(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate candidates: %w", err)
	}
	d.logger.Debug("dedup candidates", "bill_id", b.ID, "amount", b.Amount.String(), "count", len(candidates))

	var parent *bill.Bill
	for _, c := range candidates {
		if c.ID == b.ID {
			continue
		}
		if IsDuplicate(b, c) {
			parent = c
			break
		}
	}
	if parent == nil {
		return nil, nil
	}

	b.GroupID = parent.ID
	d.merger.MergeBillData(b, parent, known)

	if err := d.store.UpdateBill(ctx, parent); err != nil {
		return nil, fmt.Errorf("failed to update parent bill %d: %w", parent.ID, err)
	}
	if err := d.store.UpdateBill(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to update child bill %d: %w", b.ID, err)
	}

	d.logger.Info("merged duplicate bill", "parent_id", parent.ID, "child_id", b.ID)
	return parent, nil
}
