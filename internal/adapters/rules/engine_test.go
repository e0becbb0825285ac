package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
)

const testRules = `
rules:
  - name: 支付宝付款
    app: com.eg.android.AlipayGphone
    data_type: NOTICE
    pattern: '你向(?P<shop_name>.+?)付款(?P<money>[\d,.]+)元'
    type: Expend
    auto: true
    defaults:
      account_from: 支付宝余额
      channel: 支付宝
  - name: 银行短信
    data_type: NOTICE
    pattern: '您尾号(?P<account_from>\d{4})的账户于(?P<time>\d{4}-\d{2}-\d{2} \d{2}:\d{2})(?P<type>收入|支出)人民币(?P<money>[\d,.]+)元'
  - name: 关闭的规则
    pattern: '(?P<money>\d+)'
    type: Expend
    disabled: true
categories:
  - name: 咖啡
    type: Expend
    shop_name: '瑞幸|星巴克'
    book: 默认账本
    category: 咖啡
`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(nil)
	e.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local) }
	require.NoError(t, e.Load([]byte(testRules), ScopeSystem))
	return e
}

func TestEngine_Evaluate_FixedType(t *testing.T) {
	e := newTestEngine(t)

	draft, err := e.Evaluate(context.Background(), "com.eg.android.AlipayGphone", "你向瑞幸咖啡付款1,234.50元", bill.DataTypeNotice, ScopeSystem)

	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, bill.TypeExpend, draft.Type)
	assert.True(t, draft.Amount.Equal(decimal.RequireFromString("1234.5")))
	assert.Equal(t, "瑞幸咖啡", draft.ShopName)
	assert.Equal(t, "支付宝余额", draft.AccountFrom)
	assert.Equal(t, "支付宝", draft.Channel)
	assert.Equal(t, "支付宝付款", draft.RuleName)
	assert.True(t, draft.Auto)
	assert.True(t, draft.Time.IsZero(), "no time captured")
}

func TestEngine_Evaluate_CapturedTypeAndTime(t *testing.T) {
	e := newTestEngine(t)

	draft, err := e.Evaluate(context.Background(), "com.android.mms", "您尾号6789的账户于2024-04-30 08:15收入人民币88.00元", bill.DataTypeNotice, ScopeSystem)

	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, bill.TypeIncome, draft.Type)
	assert.Equal(t, "6789", draft.AccountFrom)
	assert.Equal(t, 2024, draft.Time.Year())
	assert.Equal(t, 15, draft.Time.Minute())
}

func TestEngine_Evaluate_NoMatch(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		app      string
		data     string
		dataType bill.DataType
		scope    Scope
	}{
		{"wrong app", "com.tencent.mm", "你向瑞幸咖啡付款12元", bill.DataTypeNotice, ScopeSystem},
		{"wrong data type", "com.eg.android.AlipayGphone", "你向瑞幸咖啡付款12元", bill.DataTypeOCR, ScopeSystem},
		{"disabled rule", "any", "123", bill.DataTypeData, ScopeSystem},
		{"empty scope", "com.eg.android.AlipayGphone", "你向瑞幸咖啡付款12元", bill.DataTypeNotice, ScopeUser},
		{"zero amount", "com.eg.android.AlipayGphone", "你向瑞幸咖啡付款0.00元", bill.DataTypeNotice, ScopeSystem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft, err := e.Evaluate(ctx, tt.app, tt.data, tt.dataType, tt.scope)
			require.NoError(t, err)
			assert.Nil(t, draft)
		})
	}
}

func TestEngine_Load_RejectsBadRules(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"invalid regex", "rules:\n  - name: x\n    type: Expend\n    pattern: '(?P<money>['\n"},
		{"no money", "rules:\n  - name: x\n    type: Expend\n    pattern: 'abc'\n"},
		{"no type", "rules:\n  - name: x\n    pattern: '(?P<money>\\d+)'\n"},
		{"unknown type", "rules:\n  - name: x\n    type: Gift\n    pattern: '(?P<money>\\d+)'\n"},
		{"no name", "rules:\n  - type: Expend\n    pattern: '(?P<money>\\d+)'\n"},
		{"bad yaml", "rules: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(nil)
			assert.Error(t, e.Load([]byte(tt.yaml), ScopeUser))
			assert.Zero(t, e.Len(ScopeUser))
		})
	}
}

func TestEngine_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRules), 0o600))

	e := NewEngine(nil)
	require.NoError(t, e.LoadFile(path, ScopeUser))
	assert.Equal(t, 2, e.Len(ScopeUser))

	assert.Error(t, e.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), ScopeUser))
}

func TestEngine_Categorize(t *testing.T) {
	e := newTestEngine(t)

	book, category, ok := e.Categorize(&bill.Bill{Type: bill.TypeExpend, ShopName: "星巴克"})
	assert.True(t, ok)
	assert.Equal(t, "默认账本", book)
	assert.Equal(t, "咖啡", category)

	_, _, ok = e.Categorize(&bill.Bill{Type: bill.TypeIncome, ShopName: "星巴克"})
	assert.False(t, ok, "type class must match")

	_, _, ok = e.Categorize(&bill.Bill{Type: bill.TypeExpend, ShopName: "便利店"})
	assert.False(t, ok)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"12.50", "12.5", false},
		{"¥1,000.00", "1000", false},
		{"-8.8", "8.8", false},
		{"+3元", "3", false},
		{"", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestEngine_ShippedSystemRules(t *testing.T) {
	e := NewEngine(nil)
	require.NoError(t, e.LoadFile(filepath.Join("..", "..", "..", "rules", "system.yaml"), ScopeSystem))
	assert.Positive(t, e.Len(ScopeSystem))

	tests := []struct {
		name     string
		app      string
		data     string
		dataType bill.DataType
		rule     string
		typ      bill.Type
		amount   string
	}{
		{"wechat pay", "com.tencent.mm", "微信支付: 你已向瑞幸咖啡付款18.50元", bill.DataTypeNotice, "微信支付", bill.TypeExpend, "18.5"},
		{"alipay", "com.eg.android.AlipayGphone", "你已成功向美团付款32.00元", bill.DataTypeNotice, "支付宝付款", bill.TypeExpend, "32"},
		{"alipay refund", "com.eg.android.AlipayGphone", "盒马退款12.30元已到账", bill.DataTypeNotice, "支付宝退款", bill.TypeIncomeRefund, "12.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := e.Evaluate(context.Background(), tt.app, tt.data, tt.dataType, ScopeSystem)
			require.NoError(t, err)
			require.NotNil(t, d)
			assert.Equal(t, tt.rule, d.RuleName)
			assert.Equal(t, tt.typ, d.Type)
			assert.True(t, decimal.RequireFromString(tt.amount).Equal(d.Amount))
		})
	}
}
