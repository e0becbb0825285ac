package bill

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Type is the direction/kind of a bill
type Type string

const (
	TypeIncome              Type = "Income"
	TypeExpend              Type = "Expend"
	TypeTransfer            Type = "Transfer"
	TypeExpendReimbursement Type = "ExpendReimbursement"
	TypeIncomeReimbursement Type = "IncomeReimbursement"
	TypeExpendLending       Type = "ExpendLending"
	TypeExpendRepayment     Type = "ExpendRepayment"
	TypeIncomeLending       Type = "IncomeLending"
	TypeIncomeRepayment     Type = "IncomeRepayment"
	TypeIncomeRefund        Type = "IncomeRefund"
)

var allTypes = []Type{
	TypeIncome, TypeExpend, TypeTransfer,
	TypeExpendReimbursement, TypeIncomeReimbursement,
	TypeExpendLending, TypeExpendRepayment,
	TypeIncomeLending, TypeIncomeRepayment,
	TypeIncomeRefund,
}

// ParseType converts a type name or its display label to a Type
func ParseType(s string) (Type, error) {
	for _, t := range allTypes {
		if string(t) == s || typeLabels[t] == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown bill type %q", s)
}

// IsIncomeLike reports whether money flows into the user's accounts
func (t Type) IsIncomeLike() bool {
	switch t {
	case TypeIncome, TypeIncomeReimbursement, TypeIncomeLending, TypeIncomeRepayment, TypeIncomeRefund:
		return true
	}
	return false
}

// CategoryClass returns the category tree a bill of this type is filed under.
// Categories only exist for Income and Expend.
func (t Type) CategoryClass() Type {
	if t.IsIncomeLike() {
		return TypeIncome
	}
	return TypeExpend
}

// SkipsFromMapping reports whether the source account is not an owned asset
// for this type (money comes from a counterparty).
func (t Type) SkipsFromMapping() bool {
	return t == TypeIncomeLending || t == TypeIncomeRepayment
}

// SkipsToMapping reports whether the target account is not an owned asset for
// this type (money goes to a counterparty).
func (t Type) SkipsToMapping() bool {
	return t == TypeExpendLending || t == TypeExpendRepayment
}

// State is the edit state of a bill
type State string

const (
	StateWait2Edit State = "Wait2Edit"
	StateEdited    State = "Edited"
)

// DataType is the kind of raw payload submitted for analysis
type DataType string

const (
	DataTypeData   DataType = "DATA"
	DataTypeNotice DataType = "NOTICE"
	DataTypeOCR    DataType = "OCR"
)

// ParseDataType validates a raw data type
func ParseDataType(s string) (DataType, error) {
	switch DataType(s) {
	case DataTypeData, DataTypeNotice, DataTypeOCR:
		return DataType(s), nil
	}
	return "", fmt.Errorf("unknown data type %q", s)
}

// AssetRecord is a canonical account the user owns
type AssetRecord struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	// Bank is derived from Name when the snapshot is loaded
	Bank string `json:"bank,omitempty"`
}

// AssetMapping maps a raw account string to a canonical asset name.
// A blank MapName is a placeholder waiting for the user to fill it in.
type AssetMapping struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	MapName string `json:"map_name"`
	Regex   bool   `json:"regex"`
}

// CategoryMapping maps a raw category string to a canonical category name
type CategoryMapping struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	MapName string `json:"map_name"`
}

// CategoryRecord is a node of the category tree. ParentID is zero for
// top-level categories.
type CategoryRecord struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	BookName string `json:"book_name"`
	ParentID int64  `json:"parent_id,omitempty"`
}

// RawEvent is an archived raw submission
type RawEvent struct {
	ID       int64     `json:"id"`
	TraceID  string    `json:"trace_id"`
	App      string    `json:"app"`
	DataType DataType  `json:"data_type"`
	Data     string    `json:"data"`
	Time     time.Time `json:"time"`
	Match    bool      `json:"match"`
	Rule     string    `json:"rule,omitempty"`
}

// Draft is the structured result of rule or AI extraction
type Draft struct {
	Type         Type            `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Fee          decimal.Decimal `json:"fee"`
	Currency     string          `json:"currency,omitempty"`
	Time         time.Time       `json:"time"`
	ShopName     string          `json:"shop_name,omitempty"`
	ShopItem     string          `json:"shop_item,omitempty"`
	CategoryName string          `json:"category_name,omitempty"`
	AccountFrom  string          `json:"account_from,omitempty"`
	AccountTo    string          `json:"account_to,omitempty"`
	Channel      string          `json:"channel,omitempty"`
	RuleName     string          `json:"rule_name"`
	Auto         bool            `json:"auto"`
}

// ToBill builds an unsaved bill from the draft
func (d *Draft) ToBill(app string, now time.Time) *Bill {
	t := d.Time
	if t.IsZero() {
		t = now
	}
	currency := d.Currency
	if currency == "" {
		currency = "CNY"
	}
	return &Bill{
		Type:         d.Type,
		State:        StateWait2Edit,
		Amount:       d.Amount,
		Fee:          d.Fee,
		Currency:     currency,
		Time:         t,
		CreatedAt:    now,
		ShopName:     d.ShopName,
		ShopItem:     d.ShopItem,
		CategoryName: d.CategoryName,
		AccountFrom:  d.AccountFrom,
		AccountTo:    d.AccountTo,
		App:          app,
		Channel:      d.Channel,
		RuleName:     d.RuleName,
		Auto:         d.Auto,
	}
}

// CandidateQuery selects root bills with an exact amount inside a time window.
// An empty Types slice matches any type.
type CandidateQuery struct {
	Amount decimal.Decimal
	From   time.Time
	To     time.Time
	Types  []Type
}

// Matches applies the query to a single bill
func (q CandidateQuery) Matches(b *Bill) bool {
	if !b.IsRoot() || !b.Amount.Equal(q.Amount) {
		return false
	}
	ms := b.Time.UnixMilli()
	if ms < q.From.UnixMilli() || ms > q.To.UnixMilli() {
		return false
	}
	if len(q.Types) == 0 {
		return true
	}
	for _, t := range q.Types {
		if b.Type == t {
			return true
		}
	}
	return false
}

// Window builds a query centered on t
func Window(amount decimal.Decimal, t time.Time, half time.Duration, types ...Type) CandidateQuery {
	return CandidateQuery{
		Amount: amount,
		From:   t.Add(-half),
		To:     t.Add(half),
		Types:  types,
	}
}

var typeLabels = map[Type]string{
	TypeIncome:              "收入",
	TypeExpend:              "支出",
	TypeTransfer:            "转账",
	TypeExpendReimbursement: "报销",
	TypeIncomeReimbursement: "报销收款",
	TypeExpendLending:       "借出",
	TypeExpendRepayment:     "还款",
	TypeIncomeLending:       "借入",
	TypeIncomeRepayment:     "收款",
	TypeIncomeRefund:        "退款",
}

// Label returns the display name used in remarks
func (t Type) Label() string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return string(t)
}
