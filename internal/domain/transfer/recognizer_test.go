package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
	"github.com/eshaffer321/bill-reconciler/internal/domain/merger"
)

type memStore struct {
	bills   map[int64]*bill.Bill
	order   []int64
	updates []int64
}

func newMemStore(bills ...*bill.Bill) *memStore {
	s := &memStore{bills: map[int64]*bill.Bill{}}
	for _, b := range bills {
		s.bills[b.ID] = b.Clone()
		s.order = append(s.order, b.ID)
	}
	return s
}

func (s *memStore) FindCandidates(_ context.Context, q bill.CandidateQuery) ([]*bill.Bill, error) {
	var out []*bill.Bill
	for _, id := range s.order {
		if b := s.bills[id]; q.Matches(b) {
			out = append(out, b.Clone())
		}
	}
	return out, nil
}

func (s *memStore) UpdateBill(_ context.Context, b *bill.Bill) error {
	s.updates = append(s.updates, b.ID)
	s.bills[b.ID] = b.Clone()
	return nil
}

type settings struct {
	assets   bool
	transfer bool
	window   time.Duration
}

func (s settings) AssetManagementEnabled() bool     { return s.assets }
func (s settings) TransferRecognitionEnabled() bool { return s.transfer }
func (s settings) TransferWindow() time.Duration    { return s.window }

var (
	t0      = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	enabled = settings{assets: true, transfer: true, window: 120 * time.Second}
)

func TestRecognizer_IncomeThenExpend(t *testing.T) {
	// Arrange: A is an income seen on wechat, B an expense from the bank 30s later
	a := &bill.Bill{
		ID: 1, Type: bill.TypeIncome, Amount: decimal.NewFromInt(50), Time: t0,
		Channel: "wechat", AccountFrom: "微信零钱", CategoryName: "其他", ShopName: "微信",
	}
	b := &bill.Bill{
		ID: 2, Type: bill.TypeExpend, Amount: decimal.NewFromInt(50), Time: t0.Add(30 * time.Second),
		Channel: "bank", AccountFrom: "招商银行(6789)", CategoryName: "转账",
	}
	store := newMemStore(a, b)
	r := NewRecognizer(store, enabled, nil, nil)

	// Act
	parent, err := r.Recognize(context.Background(), b, merger.AssetSet{})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, int64(1), parent.ID)
	assert.Equal(t, bill.TypeTransfer, parent.Type)
	assert.Equal(t, "招商银行(6789)", parent.AccountFrom)
	assert.Equal(t, "微信零钱", parent.AccountTo, "income account moved to the destination slot")
	assert.Equal(t, "", parent.CategoryName)
	assert.Equal(t, "", b.CategoryName)
	assert.Equal(t, int64(1), b.GroupID)
	assert.Equal(t, []int64{1, 2}, store.updates)

	roots := 0
	for _, stored := range store.bills {
		if stored.IsRoot() {
			roots++
			assert.Equal(t, bill.TypeTransfer, stored.Type)
		}
	}
	assert.Equal(t, 1, roots, "exactly one transfer bill remains")
}

func TestRecognizer_ExpendThenIncome(t *testing.T) {
	expend := &bill.Bill{ID: 1, Type: bill.TypeExpend, Amount: decimal.NewFromInt(200), Time: t0, AccountFrom: "招商银行(6789)"}
	income := &bill.Bill{ID: 2, Type: bill.TypeIncome, Amount: decimal.NewFromInt(200), Time: t0.Add(time.Minute), AccountFrom: "支付宝余额"}
	store := newMemStore(expend, income)

	parent, err := NewRecognizer(store, enabled, nil, nil).Recognize(context.Background(), income, nil)

	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, "招商银行(6789)", parent.AccountFrom)
	assert.Equal(t, "支付宝余额", parent.AccountTo)
}

func TestRecognizer_CandidateTypes(t *testing.T) {
	tests := []struct {
		current   bill.Type
		candidate bill.Type
		match     bool
	}{
		{bill.TypeIncome, bill.TypeExpend, true},
		{bill.TypeIncome, bill.TypeTransfer, true},
		{bill.TypeIncome, bill.TypeIncome, false},
		{bill.TypeExpend, bill.TypeIncome, true},
		{bill.TypeExpend, bill.TypeExpend, false},
		{bill.TypeTransfer, bill.TypeExpend, true},
		{bill.TypeTransfer, bill.TypeIncomeRefund, true},
		{bill.TypeIncomeRefund, bill.TypeExpend, false},
		{bill.TypeExpendLending, bill.TypeIncome, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.current)+"/"+string(tt.candidate), func(t *testing.T) {
			other := &bill.Bill{ID: 1, Type: tt.candidate, Amount: decimal.NewFromInt(9), Time: t0}
			current := &bill.Bill{ID: 2, Type: tt.current, Amount: decimal.NewFromInt(9), Time: t0}
			store := newMemStore(other, current)

			parent, err := NewRecognizer(store, enabled, nil, nil).Recognize(context.Background(), current, nil)

			require.NoError(t, err)
			assert.Equal(t, tt.match, parent != nil)
		})
	}
}

func TestRecognizer_Guards(t *testing.T) {
	ctx := context.Background()
	pair := func() (*memStore, *bill.Bill) {
		a := &bill.Bill{ID: 1, Type: bill.TypeIncome, Amount: decimal.NewFromInt(50), Time: t0}
		b := &bill.Bill{ID: 2, Type: bill.TypeExpend, Amount: decimal.NewFromInt(50), Time: t0.Add(30 * time.Second)}
		return newMemStore(a, b), b
	}

	t.Run("asset management off", func(t *testing.T) {
		store, b := pair()
		got, err := NewRecognizer(store, settings{transfer: true, window: time.Minute}, nil, nil).Recognize(ctx, b, nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("recognition off", func(t *testing.T) {
		store, b := pair()
		got, err := NewRecognizer(store, settings{assets: true, window: time.Minute}, nil, nil).Recognize(ctx, b, nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("outside window", func(t *testing.T) {
		store, b := pair()
		got, err := NewRecognizer(store, settings{assets: true, transfer: true, window: 10 * time.Second}, nil, nil).Recognize(ctx, b, nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("amount differs", func(t *testing.T) {
		store, b := pair()
		b.Amount = decimal.RequireFromString("50.01")
		got, err := NewRecognizer(store, enabled, nil, nil).Recognize(ctx, b, nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
