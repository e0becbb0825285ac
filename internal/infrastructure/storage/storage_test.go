package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	tmpDB := createTempDB(t)
	t.Cleanup(func() { _ = os.Remove(tmpDB) })

	store, err := NewStorage(tmpDB)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleBill(amount string, at time.Time, typ bill.Type) *bill.Bill {
	return &bill.Bill{
		Type:        typ,
		State:       bill.StateWait2Edit,
		Amount:      decimal.RequireFromString(amount),
		Fee:         decimal.Zero,
		Currency:    "CNY",
		Time:        at,
		CreatedAt:   at,
		ShopName:    "瑞幸咖啡",
		AccountFrom: "招商银行储蓄卡(1234)",
		App:         "com.eg.android.AlipayGphone",
		RuleName:    "支付宝付款",
	}
}

func TestStorage_InsertAndGetBill(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	at := time.UnixMilli(1700000000123)

	// Arrange
	b := sampleBill("12.50", at, bill.TypeExpend)
	b.Tags = "咖啡"

	// Act
	require.NoError(t, store.InsertBill(ctx, b))
	got, err := store.GetBill(ctx, b.ID)

	// Assert
	require.NoError(t, err)
	assert.NotZero(t, b.ID)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, bill.SameTime(at, got.Time))
	assert.Equal(t, bill.TypeExpend, got.Type)
	assert.Equal(t, "瑞幸咖啡", got.ShopName)
	assert.Equal(t, "咖啡", got.Tags)
	assert.True(t, got.IsRoot())
}

func TestStorage_GetBill_NotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetBill(context.Background(), 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStorage_UpdateBill_GroupsChild(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	at := time.Now()

	parent := sampleBill("30", at, bill.TypeExpend)
	child := sampleBill("30", at.Add(time.Second), bill.TypeExpend)
	require.NoError(t, store.InsertBill(ctx, parent))
	require.NoError(t, store.InsertBill(ctx, child))

	child.GroupID = parent.ID
	require.NoError(t, store.UpdateBill(ctx, child))

	children, err := store.ListChildren(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, child.ID, children[0].ID)

	missing := sampleBill("1", at, bill.TypeExpend)
	missing.ID = 12345
	assert.True(t, errors.Is(store.UpdateBill(ctx, missing), ErrNotFound))
}

func TestStorage_FindCandidates(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	base := time.UnixMilli(1700000000000)

	inWindow := sampleBill("100.00", base.Add(-time.Minute), bill.TypeExpend)
	income := sampleBill("100", base.Add(30*time.Second), bill.TypeIncome)
	otherAmount := sampleBill("99.99", base, bill.TypeExpend)
	tooOld := sampleBill("100", base.Add(-10*time.Minute), bill.TypeExpend)
	grouped := sampleBill("100", base, bill.TypeExpend)
	for _, b := range []*bill.Bill{inWindow, income, otherAmount, tooOld, grouped} {
		require.NoError(t, store.InsertBill(ctx, b))
	}
	grouped.GroupID = inWindow.ID
	require.NoError(t, store.UpdateBill(ctx, grouped))

	t.Run("any type", func(t *testing.T) {
		got, err := store.FindCandidates(ctx, bill.Window(decimal.NewFromInt(100), base, 2*time.Minute))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, inWindow.ID, got[0].ID, "oldest first")
		assert.Equal(t, income.ID, got[1].ID)
	})

	t.Run("type filter", func(t *testing.T) {
		got, err := store.FindCandidates(ctx, bill.Window(decimal.NewFromInt(100), base, 2*time.Minute, bill.TypeIncome, bill.TypeTransfer))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, income.ID, got[0].ID)
	})

	t.Run("window edges are inclusive", func(t *testing.T) {
		got, err := store.FindCandidates(ctx, bill.CandidateQuery{
			Amount: decimal.NewFromInt(100),
			From:   base.Add(-time.Minute),
			To:     base.Add(-time.Minute),
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, inWindow.ID, got[0].ID)
	})
}

func TestStorage_ListBills(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		typ := bill.TypeExpend
		if i%2 == 0 {
			typ = bill.TypeIncome
		}
		require.NoError(t, store.InsertBill(ctx, sampleBill("10", base.Add(time.Duration(i)*time.Minute), typ)))
	}

	result, err := store.ListBills(ctx, BillFilters{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, result.TotalCount)
	require.Len(t, result.Bills, 2)
	assert.True(t, result.Bills[0].Time.After(result.Bills[1].Time), "newest first")

	result, err = store.ListBills(ctx, BillFilters{Type: bill.TypeIncome})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalCount)
	assert.Equal(t, defaultListLimit, result.Limit)
}

func TestStorage_RawEvents(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	e := &bill.RawEvent{
		TraceID:  "trace-1",
		App:      "com.tencent.mm",
		DataType: bill.DataTypeNotice,
		Data:     "微信支付 收款 ¥12.00",
		Time:     time.UnixMilli(1700000000000),
	}
	require.NoError(t, store.InsertRawEvent(ctx, e))
	require.NotZero(t, e.ID)

	e.Match = true
	e.Rule = "微信收款"
	require.NoError(t, store.UpdateRawEvent(ctx, e))

	got, err := store.GetRawEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, got.Match)
	assert.Equal(t, "微信收款", got.Rule)
	assert.Equal(t, bill.DataTypeNotice, got.DataType)

	events, err := store.ListRawEvents(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	_, err = store.GetRawEvent(ctx, 42)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStorage_AssetMappings(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.InsertAssetMapping(ctx, &bill.AssetMapping{Name: "招商银行(1234)"}))
	assert.Error(t, store.InsertAssetMapping(ctx, &bill.AssetMapping{Name: "招商银行(1234)"}), "name is unique")

	m := &bill.AssetMapping{Name: "招商银行(1234)", MapName: "招商银行储蓄卡"}
	require.NoError(t, store.SaveAssetMapping(ctx, m))
	assert.NotZero(t, m.ID)

	mappings, err := store.ListAssetMappings(ctx)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "招商银行储蓄卡", mappings[0].MapName)

	require.NoError(t, store.DeleteAssetMapping(ctx, m.ID))
	assert.True(t, errors.Is(store.DeleteAssetMapping(ctx, m.ID), ErrNotFound))
}

func TestStorage_AssetsAndCategories(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	asset := &bill.AssetRecord{Name: "支付宝余额"}
	require.NoError(t, store.SaveAsset(ctx, asset))
	assets, err := store.ListAssets(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "支付宝余额", assets[0].Name)

	parent := &bill.CategoryRecord{Name: "餐饮", Type: bill.TypeExpend, BookName: "默认账本"}
	require.NoError(t, store.SaveCategory(ctx, parent))
	child := &bill.CategoryRecord{Name: "咖啡", Type: bill.TypeExpend, BookName: "默认账本", ParentID: parent.ID}
	require.NoError(t, store.SaveCategory(ctx, child))

	categories, err := store.ListCategories(ctx)
	require.NoError(t, err)
	// two seeded catch-all categories plus ours
	require.Len(t, categories, 4)
	assert.Equal(t, parent.ID, categories[3].ParentID)

	cm := &bill.CategoryMapping{Name: "Coffee", MapName: "咖啡"}
	require.NoError(t, store.SaveCategoryMapping(ctx, cm))
	mappings, err := store.ListCategoryMappings(ctx)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	require.NoError(t, store.DeleteCategoryMapping(ctx, cm.ID))
}

func TestStorage_Settings(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSetting(ctx, "dedup-enabled", "true"))
	require.NoError(t, store.SaveSetting(ctx, "dedup-enabled", "false"))

	values, err := store.ListSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"dedup-enabled": "false"}, values)
}

func TestMockRepository_FindCandidatesMatchesStorage(t *testing.T) {
	repo := NewMockRepository()
	ctx := context.Background()
	base := time.Now()

	a := sampleBill("8.8", base, bill.TypeExpend)
	b := sampleBill("8.8", base.Add(-time.Minute), bill.TypeIncome)
	require.NoError(t, repo.InsertBill(ctx, a))
	require.NoError(t, repo.InsertBill(ctx, b))

	got, err := repo.FindCandidates(ctx, bill.Window(decimal.RequireFromString("8.80"), base, 2*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, b.ID, got[0].ID)
	assert.Equal(t, 1, repo.FindCandidatesCalled)

	repo.FindCandidatesErr = errors.New("boom")
	_, err = repo.FindCandidates(ctx, bill.CandidateQuery{})
	assert.Error(t, err)
}
