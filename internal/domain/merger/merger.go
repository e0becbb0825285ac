// Package merger combines the fields of two bills that describe the same money
// movement, and renders bill remarks from a template.
//
// Merging always writes into the target (the parent) and reads from the source
// (the child). Nothing here touches storage; callers persist the result.
package merger

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
)

// KnownAssets reports whether a name is a canonical asset
type KnownAssets interface {
	Has(name string) bool
}

// AssetSet is a KnownAssets backed by a set of names
type AssetSet map[string]struct{}

// NewAssetSet builds a set from asset records
func NewAssetSet(assets []bill.AssetRecord) AssetSet {
	set := make(AssetSet, len(assets))
	for _, a := range assets {
		set[a.Name] = struct{}{}
	}
	return set
}

// Has implements KnownAssets
func (s AssetSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Merger merges bill data. The zero value logs nowhere.
type Merger struct {
	logger *slog.Logger
}

// New creates a merger. A nil logger discards output.
func New(logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Merger{logger: logger}
}

func (m *Merger) log() *slog.Logger {
	if m == nil || m.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return m.logger
}

// SelectBetterAccount picks the more useful of two account names:
// a known asset beats an unknown one, then the longer (more specific) name
// wins, and on a tie the target is kept.
func (m *Merger) SelectBetterAccount(source, target string, known KnownAssets) string {
	if source == "" {
		return target
	}
	if target == "" {
		return source
	}

	sourceKnown := known != nil && known.Has(source)
	targetKnown := known != nil && known.Has(target)
	sourceLen := utf8.RuneCountInString(source)
	targetLen := utf8.RuneCountInString(target)

	var decision string
	switch {
	case sourceKnown && !targetKnown:
		decision = source
	case !sourceKnown && targetKnown:
		decision = target
	case sourceLen > targetLen:
		decision = source
	default:
		decision = target
	}

	m.log().Debug("account merge decision",
		"source", source, "source_known", sourceKnown,
		"target", target, "target_known", targetKnown,
		"chosen", decision)

	return decision
}

// MergeAccountInfo merges both account slots of source into target. For
// non-transfer pairs a lone AccountTo on the target is moved to AccountFrom.
func (m *Merger) MergeAccountInfo(source, target *bill.Bill, known KnownAssets) {
	isTransfer := source.Type == bill.TypeTransfer || target.Type == bill.TypeTransfer

	if source.AccountFrom != "" || target.AccountFrom != "" {
		target.AccountFrom = m.SelectBetterAccount(source.AccountFrom, target.AccountFrom, known)
	}
	if source.AccountTo != "" || target.AccountTo != "" {
		target.AccountTo = m.SelectBetterAccount(source.AccountTo, target.AccountTo, known)
	}

	if !isTransfer && target.AccountFrom == "" && target.AccountTo != "" {
		target.AccountFrom = target.AccountTo
		target.AccountTo = ""
	}
}

// MergeShopInfo unions shop name and shop item of source into target
func MergeShopInfo(source, target *bill.Bill) {
	target.ShopName = unionField(target.ShopName, source.ShopName)

	switch {
	case target.ShopItem == "" && source.ShopItem != "":
		target.ShopItem = source.ShopItem
	case target.ShopItem == "":
		target.ShopItem = target.ExtendData
	default:
		target.ShopItem = unionField(target.ShopItem, source.ShopItem)
	}
}

// MergeBillData merges accounts and shop info of source into target
func (m *Merger) MergeBillData(source, target *bill.Bill, known KnownAssets) {
	m.MergeAccountInfo(source, target, known)
	MergeShopInfo(source, target)
}

func unionField(target, source string) string {
	switch {
	case target == "":
		return source
	case source == "":
		return target
	case strings.Contains(target, source):
		return target
	default:
		return strings.TrimSpace(target + " " + source)
	}
}
