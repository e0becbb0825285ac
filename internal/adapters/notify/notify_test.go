package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
)

func testBill() *bill.Bill {
	return &bill.Bill{
		ID:     7,
		Type:   bill.TypeExpend,
		State:  bill.StateEdited,
		Amount: decimal.RequireFromString("12.5"),
		Remark: "瑞幸咖啡",
		Time:   time.UnixMilli(1700000000000),
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	err := NewLogNotifier(logger).Notify(context.Background(), testBill(), &bill.Bill{ID: 3})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "bill reconciled")
	assert.Contains(t, buf.String(), "bill_id=7")
	assert.Contains(t, buf.String(), "parent_id=3")
	assert.Contains(t, buf.String(), "system=notify")
}

func TestWebhookNotifier_PostsPayload(t *testing.T) {
	var got Payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := NewWebhookNotifier(server.URL, time.Second).Notify(context.Background(), testBill(), nil)

	require.NoError(t, err)
	assert.Equal(t, "bill.reconciled", got.Event)
	require.NotNil(t, got.Bill)
	assert.Equal(t, int64(7), got.Bill.ID)
	assert.True(t, got.Bill.Amount.Equal(decimal.RequireFromString("12.5")))
	assert.Nil(t, got.Parent)
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewWebhookNotifier(server.URL, 0).Notify(context.Background(), testBill(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) Notify(context.Context, *bill.Bill, *bill.Bill) error {
	f.calls++
	return errors.New("down")
}

func TestMulti_TriesEveryNotifier(t *testing.T) {
	first, second := &failingNotifier{}, &failingNotifier{}

	err := Multi{first, second}.Notify(context.Background(), testBill(), nil)

	assert.Error(t, err)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}
