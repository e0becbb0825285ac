package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/bill-reconciler/internal/infrastructure/config"
)

type memStore struct {
	values  map[string]string
	saveErr error
}

func (m *memStore) ListSettings(context.Context) (map[string]string, error) {
	out := map[string]string{}
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) SaveSetting(_ context.Context, key, value string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.values[key] = value
	return nil
}

func TestProvider_Defaults(t *testing.T) {
	p := NewStatic(config.Defaults().Reconcile)

	assert.False(t, p.DedupEnabled())
	assert.Equal(t, 180*time.Second, p.DedupWindow())
	assert.False(t, p.TransferRecognitionEnabled())
	assert.Equal(t, 120*time.Second, p.TransferWindow())
	assert.False(t, p.AssetManagementEnabled())
	assert.False(t, p.AIBillRecognitionEnabled())
	assert.Equal(t, "【商户名称】【商品名称】", p.RemarkTemplate())
	assert.Equal(t, "默认账本", p.DefaultBookName())
}

func TestProvider_StoreOverridesConfig(t *testing.T) {
	store := &memStore{values: map[string]string{
		KeyDedupEnabled:       "true",
		KeyDedupWindowSeconds: "60",
		KeyDefaultBookName:    "家庭账本",
	}}
	p := New(store, Defaults(config.Defaults().Reconcile))

	require.NoError(t, p.Load(context.Background()))

	assert.True(t, p.DedupEnabled())
	assert.Equal(t, 60*time.Second, p.DedupWindow())
	assert.Equal(t, "家庭账本", p.DefaultBookName())
	assert.Equal(t, "true", p.All()[KeyDedupEnabled])
}

func TestProvider_UnparseableFallsBack(t *testing.T) {
	p := New(nil, map[string]string{KeyDedupEnabled: "maybe", KeyDedupWindowSeconds: "soon"})

	assert.False(t, p.DedupEnabled())
	assert.Equal(t, 180*time.Second, p.DedupWindow())
}

func TestProvider_Set(t *testing.T) {
	ctx := context.Background()
	store := &memStore{values: map[string]string{}}
	p := New(store, Defaults(config.Defaults().Reconcile))

	var changed []string
	p.OnChange(func(key, value string) { changed = append(changed, key+"="+value) })

	require.NoError(t, p.Set(ctx, KeyTransferEnabled, "true"))
	assert.True(t, p.TransferRecognitionEnabled())
	assert.Equal(t, "true", store.values[KeyTransferEnabled])
	assert.Equal(t, []string{"transfer-recognition-enabled=true"}, changed)

	assert.Error(t, p.Set(ctx, KeyTransferEnabled, "yes please"))
	assert.Error(t, p.Set(ctx, KeyDedupWindowSeconds, "-1"))
	assert.ErrorIs(t, p.Set(ctx, "no-such-key", "1"), ErrInvalidSetting)

	store.saveErr = errors.New("read-only")
	assert.Error(t, p.Set(ctx, KeyDebugMode, "true"))
	assert.False(t, p.DebugMode(), "failed save is not applied")
}
