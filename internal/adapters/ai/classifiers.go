package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
)

// CategoryLister provides the category names offered to the model
type CategoryLister interface {
	ListCategories(ctx context.Context) ([]bill.CategoryRecord, error)
}

// AssetLister provides the asset names offered to the model
type AssetLister interface {
	ListAssets(ctx context.Context) ([]bill.AssetRecord, error)
}

const otherCategory = "其他"

var aiTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"20060102 150405",
	"2006-01-02",
}

// BillClassifier extracts a draft from raw text
type BillClassifier struct {
	provider   Provider
	categories CategoryLister
	logger     *slog.Logger
}

// NewBillClassifier creates a bill classifier
func NewBillClassifier(provider Provider, categories CategoryLister, logger *slog.Logger) *BillClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &BillClassifier{
		provider:   provider,
		categories: categories,
		logger:     logger.With("system", "ai"),
	}
}

// Provider returns the name recorded in rule names of AI drafts
func (c *BillClassifier) Provider() string {
	return c.provider.Name()
}

type billAnswer struct {
	AccountNameFrom string          `json:"accountNameFrom"`
	AccountNameTo   string          `json:"accountNameTo"`
	CateName        string          `json:"cateName"`
	Currency        string          `json:"currency"`
	Fee             decimal.Decimal `json:"fee"`
	Money           decimal.Decimal `json:"money"`
	ShopItem        string          `json:"shopItem"`
	ShopName        string          `json:"shopName"`
	Type            string          `json:"type"`
	TimeText        string          `json:"timeText"`
}

// Classify returns a draft, or nil when the model found no transaction
func (c *BillClassifier) Classify(ctx context.Context, app, data string, dataType bill.DataType) (*bill.Draft, error) {
	expend, income := c.categoryNames(ctx)

	user := fmt.Sprintf(`Input:
- Context:
  - Source App: %s
  - Data Type: %s
- Raw Data:
%s
- Category Data:
  - Expend: %s
  - Income: %s`, app, dataType, data, strings.Join(expend, ","), strings.Join(income, ","))

	answer, err := c.provider.Complete(ctx, billPrompt, user)
	if err != nil {
		return nil, fmt.Errorf("ai bill classification failed: %w", err)
	}
	c.logger.Debug("ai bill answer", "answer", answer)

	var parsed billAnswer
	if err := json.Unmarshal([]byte(CleanJSON(answer)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse ai bill answer: %w", err)
	}

	money := parsed.Money.Abs()
	if money.IsZero() {
		return nil, nil
	}
	typ, err := bill.ParseType(parsed.Type)
	if err != nil {
		return nil, fmt.Errorf("ai bill answer: %w", err)
	}

	return &bill.Draft{
		Type:         typ,
		Amount:       money,
		Fee:          parsed.Fee.Abs(),
		Currency:     parsed.Currency,
		Time:         parseAITime(parsed.TimeText),
		ShopName:     parsed.ShopName,
		ShopItem:     parsed.ShopItem,
		CategoryName: parsed.CateName,
		AccountFrom:  parsed.AccountNameFrom,
		AccountTo:    parsed.AccountNameTo,
		RuleName:     bill.AIRuleName(c.provider.Name()),
	}, nil
}

func (c *BillClassifier) categoryNames(ctx context.Context) (expend, income []string) {
	if c.categories == nil {
		return nil, nil
	}
	records, err := c.categories.ListCategories(ctx)
	if err != nil {
		c.logger.Debug("category list unavailable for ai prompt", "error", err)
		return nil, nil
	}
	return namesOfClass(records, bill.TypeExpend), namesOfClass(records, bill.TypeIncome)
}

func parseAITime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range aiTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func namesOfClass(records []bill.CategoryRecord, class bill.Type) []string {
	seen := make(map[string]struct{})
	names := make([]string, 0, len(records))
	for _, r := range records {
		if r.Type.CategoryClass() != class {
			continue
		}
		if _, dup := seen[r.Name]; dup {
			continue
		}
		seen[r.Name] = struct{}{}
		names = append(names, r.Name)
	}
	return names
}

// CategoryClassifier picks a category name for a bill
type CategoryClassifier struct {
	provider   Provider
	categories CategoryLister
	cache      Cache
	logger     *slog.Logger
}

// NewCategoryClassifier creates a category classifier. cache may be nil.
func NewCategoryClassifier(provider Provider, categories CategoryLister, cache Cache, logger *slog.Logger) *CategoryClassifier {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryClassifier{
		provider:   provider,
		categories: categories,
		cache:      cache,
		logger:     logger.With("system", "ai"),
	}
}

// Classify returns a category name from the bill's category tree, or 其他
func (c *CategoryClassifier) Classify(ctx context.Context, b *bill.Bill) (string, error) {
	class := b.Type.CategoryClass()
	key := cacheKey(string(class), b.ShopName, b.ShopItem)
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	records, err := c.categories.ListCategories(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list categories: %w", err)
	}
	names := namesOfClass(records, class)
	if len(names) == 0 {
		return otherCategory, nil
	}

	input, _ := json.Marshal(map[string]string{
		"ruleName": b.RuleName,
		"shopName": b.ShopName,
		"shopItem": b.ShopItem,
	})
	user := fmt.Sprintf("Input:\n%s\n\nCategory Data:\n%s", input, strings.Join(names, ","))

	answer, err := c.provider.Complete(ctx, categoryPrompt, user)
	if err != nil {
		return "", fmt.Errorf("ai category classification failed: %w", err)
	}

	chosen := strings.Trim(strings.TrimSpace(answer), `"'`)
	if !contains(names, chosen) {
		c.logger.Debug("ai category not in category data", "answer", chosen)
		chosen = otherCategory
	}
	c.cache.Set(key, chosen)
	return chosen, nil
}

// AssetClassifier suggests canonical asset names for a bill's accounts
type AssetClassifier struct {
	provider Provider
	assets   AssetLister
	logger   *slog.Logger
}

// NewAssetClassifier creates an asset classifier
func NewAssetClassifier(provider Provider, assets AssetLister, logger *slog.Logger) *AssetClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssetClassifier{
		provider: provider,
		assets:   assets,
		logger:   logger.With("system", "ai"),
	}
}

type assetAnswer struct {
	Asset1 string `json:"asset1"`
	Asset2 string `json:"asset2"`
}

// SuggestAssets maps (to, from) onto known asset names. A blank result means
// the model found no match for that slot.
func (c *AssetClassifier) SuggestAssets(ctx context.Context, accountTo, accountFrom string) (string, string, error) {
	records, err := c.assets.ListAssets(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to list assets: %w", err)
	}
	if len(records) == 0 {
		return "", "", nil
	}
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}

	input, _ := json.Marshal(assetAnswer{Asset1: accountTo, Asset2: accountFrom})
	user := fmt.Sprintf("Input:\n%s\n\nAsset Data:\n%s", input, strings.Join(names, ","))

	answer, err := c.provider.Complete(ctx, assetPrompt, user)
	if err != nil {
		return "", "", fmt.Errorf("ai asset mapping failed: %w", err)
	}

	var parsed assetAnswer
	if err := json.Unmarshal([]byte(CleanJSON(answer)), &parsed); err != nil {
		return "", "", fmt.Errorf("failed to parse ai asset answer: %w", err)
	}

	to, from := parsed.Asset1, parsed.Asset2
	if !contains(names, to) {
		to = ""
	}
	if !contains(names, from) {
		from = ""
	}
	return to, from, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
