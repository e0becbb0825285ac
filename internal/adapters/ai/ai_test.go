package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
	"github.com/eshaffer321/bill-reconciler/internal/infrastructure/config"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string { return "gpt-test" }

func (m *mockProvider) Complete(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

type staticLists struct {
	categories []bill.CategoryRecord
	assets     []bill.AssetRecord
	err        error
}

func (s staticLists) ListCategories(context.Context) ([]bill.CategoryRecord, error) {
	return s.categories, s.err
}

func (s staticLists) ListAssets(context.Context) ([]bill.AssetRecord, error) {
	return s.assets, s.err
}

var testCategories = []bill.CategoryRecord{
	{Name: "餐饮", Type: bill.TypeExpend},
	{Name: "购物", Type: bill.TypeExpend},
	{Name: "工资", Type: bill.TypeIncome},
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Sure! {\"a\":1} hope this helps", `{"a":1}`},
		{"empty object", "{}", "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSON(tt.in))
		})
	}
}

func TestBillClassifier_Classify(t *testing.T) {
	provider := &mockProvider{}
	provider.On("Complete", mock.Anything, billPrompt, mock.MatchedBy(func(user string) bool {
		return containsAll(user, "com.tencent.mm", "NOTICE", "餐饮,购物", "工资")
	})).Return("```json\n"+`{"accountNameFrom":"零钱","accountNameTo":"","cateName":"餐饮","currency":"CNY","fee":0,"money":-25.5,"shopItem":"","shopName":"麦当劳","type":"Expend","timeText":"2024-05-01 12:30:00"}`+"\n```", nil)

	c := NewBillClassifier(provider, staticLists{categories: testCategories}, nil)
	draft, err := c.Classify(context.Background(), "com.tencent.mm", "微信支付 麦当劳 25.50", bill.DataTypeNotice)

	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.True(t, draft.Amount.Equal(decimal.RequireFromString("25.5")))
	assert.Equal(t, bill.TypeExpend, draft.Type)
	assert.Equal(t, "零钱", draft.AccountFrom)
	assert.Equal(t, "麦当劳", draft.ShopName)
	assert.Equal(t, "gpt-test 生成", draft.RuleName)
	assert.Equal(t, 12, draft.Time.Hour())
	provider.AssertExpectations(t)
}

func TestBillClassifier_NoTransaction(t *testing.T) {
	provider := &mockProvider{}
	provider.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("{}", nil)

	c := NewBillClassifier(provider, nil, nil)
	draft, err := c.Classify(context.Background(), "app", "验证码 1234", bill.DataTypeNotice)

	require.NoError(t, err)
	assert.Nil(t, draft)
}

func TestBillClassifier_ProviderError(t *testing.T) {
	provider := &mockProvider{}
	provider.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("quota"))

	c := NewBillClassifier(provider, nil, nil)
	_, err := c.Classify(context.Background(), "app", "x", bill.DataTypeOCR)
	assert.Error(t, err)
}

func TestCategoryClassifier_Classify(t *testing.T) {
	provider := &mockProvider{}
	provider.On("Complete", mock.Anything, categoryPrompt, mock.Anything).Return(" 餐饮 \n", nil).Once()

	c := NewCategoryClassifier(provider, staticLists{categories: testCategories}, nil, nil)
	b := &bill.Bill{Type: bill.TypeExpend, ShopName: "麦当劳", ShopItem: "汉堡"}

	got, err := c.Classify(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, "餐饮", got)

	// second call is served from cache
	got, err = c.Classify(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, "餐饮", got)
	provider.AssertNumberOfCalls(t, "Complete", 1)
}

func TestCategoryClassifier_UnknownAnswerFallsBackToOther(t *testing.T) {
	provider := &mockProvider{}
	provider.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("工资", nil)

	c := NewCategoryClassifier(provider, staticLists{categories: testCategories}, nil, nil)
	got, err := c.Classify(context.Background(), &bill.Bill{Type: bill.TypeExpend, ShopName: "x"})

	require.NoError(t, err)
	assert.Equal(t, "其他", got, "income category is not valid for an expense")
}

func TestAssetClassifier_SuggestAssets(t *testing.T) {
	provider := &mockProvider{}
	provider.On("Complete", mock.Anything, assetPrompt, mock.MatchedBy(func(user string) bool {
		return containsAll(user, `"asset1":"余额宝"`, `"asset2":"中国银行储蓄卡"`)
	})).Return(`{"asset1":"不存在","asset2":"中国银行"}`, nil)

	c := NewAssetClassifier(provider, staticLists{assets: []bill.AssetRecord{{Name: "中国银行"}, {Name: "支付宝"}}}, nil)
	to, from, err := c.SuggestAssets(context.Background(), "余额宝", "中国银行储蓄卡")

	require.NoError(t, err)
	assert.Empty(t, to, "names outside asset data are dropped")
	assert.Equal(t, "中国银行", from)
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var received ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(ChatCompletionResponse{
			Choices: []Choice{{Message: Message{Role: "assistant", Content: "餐饮"}}},
		})
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/"})
	got, err := p.Complete(context.Background(), "sys", "user")

	require.NoError(t, err)
	assert.Equal(t, "餐饮", got)
	assert.Equal(t, "gpt-4o-mini", received.Model)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, "system", received.Messages[0].Role)
}

func TestOpenAIProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests","code":"429"}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL})
	_, err := p.Complete(context.Background(), "sys", "user")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), config.AIConfig{})
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = NewProvider(context.Background(), config.AIConfig{Provider: "openai"})
	assert.Error(t, err, "api key required")

	p, err = NewProvider(context.Background(), config.AIConfig{Provider: "OpenAI", APIKey: "k", Model: "deepseek-chat"})
	require.NoError(t, err)
	assert.Equal(t, "deepseek-chat", p.Name())

	_, err = NewProvider(context.Background(), config.AIConfig{Provider: "claude"})
	assert.Error(t, err)
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
