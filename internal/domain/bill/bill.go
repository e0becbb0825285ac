// Package bill defines the canonical bill record and the enums shared by the
// reconciliation pipeline.
//
// A Bill is produced from one raw event (notification, SMS, OCR text, app data)
// and may later be grouped under a parent bill when the pipeline decides two
// reports describe the same money movement. Grouping is one level deep: a bill
// with a non-zero GroupID is never itself a parent.
package bill

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AIRuleSuffix marks drafts produced by an AI classifier. The rule name of such
// a draft is "<provider> 生成".
const AIRuleSuffix = " 生成"

// Bill is the canonical transaction record
type Bill struct {
	ID       int64           `json:"id"`
	Type     Type            `json:"type"`
	State    State           `json:"state"`
	Amount   decimal.Decimal `json:"amount"`
	Fee      decimal.Decimal `json:"fee"`
	Currency string          `json:"currency,omitempty"`

	// Time is the event time. It is set at creation and never changed.
	Time      time.Time `json:"time"`
	CreatedAt time.Time `json:"created_at"`

	ShopName     string `json:"shop_name,omitempty"`
	ShopItem     string `json:"shop_item,omitempty"`
	Remark       string `json:"remark,omitempty"`
	CategoryName string `json:"category_name,omitempty"`
	BookName     string `json:"book_name,omitempty"`
	Tags         string `json:"tags,omitempty"`
	ExtendData   string `json:"extend_data,omitempty"`

	AccountFrom string `json:"account_from,omitempty"`
	AccountTo   string `json:"account_to,omitempty"`
	App         string `json:"app,omitempty"`
	Channel     string `json:"channel,omitempty"`
	RuleName    string `json:"rule_name,omitempty"`

	// GroupID is the parent bill ID. Zero means the bill is a root.
	GroupID int64 `json:"group_id,omitempty"`
	Auto    bool  `json:"auto"`
}

// IsRoot reports whether the bill has no parent
func (b *Bill) IsRoot() bool {
	return b.GroupID == 0
}

// GeneratedByAI reports whether the bill was extracted by an AI classifier
func (b *Bill) GeneratedByAI() bool {
	return IsAIRuleName(b.RuleName)
}

// IsAIRuleName reports whether a rule name carries the AI marker
func IsAIRuleName(ruleName string) bool {
	return strings.HasSuffix(ruleName, AIRuleSuffix)
}

// AIProviderFromRule returns the provider portion of an AI rule name, or "" when
// the rule was not produced by AI.
func AIProviderFromRule(ruleName string) string {
	if !IsAIRuleName(ruleName) {
		return ""
	}
	return strings.TrimSuffix(ruleName, AIRuleSuffix)
}

// AIRuleName builds the rule name recorded for an AI-produced draft
func AIRuleName(provider string) string {
	return provider + AIRuleSuffix
}

// Clone returns a shallow copy of the bill
func (b *Bill) Clone() *Bill {
	copied := *b
	return &copied
}

// SameTime compares event times at millisecond precision, which is what
// storage keeps.
func SameTime(a, b time.Time) bool {
	return a.UnixMilli() == b.UnixMilli()
}
