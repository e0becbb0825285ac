// Package settings exposes the runtime toggles of the reconciliation pipeline
// as typed getters with explicit defaults.
//
// Defaults come from the config file. Values saved in the settings table
// override them and can be changed at runtime through Set.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/eshaffer321/bill-reconciler/internal/infrastructure/config"
)

// Recognized keys
const (
	KeyDedupEnabled          = "dedup-enabled"
	KeyDedupWindowSeconds    = "dedup-time-window-seconds"
	KeyTransferEnabled       = "transfer-recognition-enabled"
	KeyTransferWindowSeconds = "transfer-time-window-seconds"
	KeyAssetManagement       = "asset-management-enabled"
	KeyAutoAssetMapping      = "auto-asset-mapping-enabled"
	KeyAIBillRecognition     = "ai-bill-recognition-enabled"
	KeyAICategoryRecognition = "ai-category-recognition-enabled"
	KeyAIAssetMapping        = "ai-asset-mapping-enabled"
	KeyRemarkTemplate        = "remark-template"
	KeyDefaultBookName       = "default-book-name"
	KeyDebugMode             = "debug-mode"
)

// ErrInvalidSetting is returned by Set for unknown keys and malformed values
var ErrInvalidSetting = errors.New("invalid setting")

// Store persists overrides
type Store interface {
	ListSettings(ctx context.Context) (map[string]string, error)
	SaveSetting(ctx context.Context, key, value string) error
}

// Provider serves typed setting reads. It is safe for concurrent use.
type Provider struct {
	store    Store
	defaults map[string]string

	mu        sync.RWMutex
	overrides map[string]string
	onChange  []func(key, value string)
}

// Defaults converts the reconcile section of the config into setting values
func Defaults(cfg config.ReconcileConfig) map[string]string {
	return map[string]string{
		KeyDedupEnabled:          strconv.FormatBool(cfg.DedupEnabled),
		KeyDedupWindowSeconds:    strconv.Itoa(cfg.DedupWindowSeconds),
		KeyTransferEnabled:       strconv.FormatBool(cfg.TransferRecognition),
		KeyTransferWindowSeconds: strconv.Itoa(cfg.TransferWindowSeconds),
		KeyAssetManagement:       strconv.FormatBool(cfg.AssetManagement),
		KeyAutoAssetMapping:      strconv.FormatBool(cfg.AutoAssetMapping),
		KeyAIBillRecognition:     strconv.FormatBool(cfg.AIBillRecognition),
		KeyAICategoryRecognition: strconv.FormatBool(cfg.AICategoryRecognition),
		KeyAIAssetMapping:        strconv.FormatBool(cfg.AIAssetMapping),
		KeyRemarkTemplate:        cfg.RemarkTemplate,
		KeyDefaultBookName:       cfg.DefaultBookName,
		KeyDebugMode:             strconv.FormatBool(cfg.DebugMode),
	}
}

// NewStatic creates a provider with no backing store
func NewStatic(cfg config.ReconcileConfig) *Provider {
	return New(nil, Defaults(cfg))
}

// New creates a provider. store may be nil.
func New(store Store, defaults map[string]string) *Provider {
	return &Provider{
		store:     store,
		defaults:  defaults,
		overrides: map[string]string{},
	}
}

// Load reads overrides from the store, replacing any loaded earlier
func (p *Provider) Load(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	values, err := p.store.ListSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	p.mu.Lock()
	p.overrides = values
	p.mu.Unlock()
	return nil
}

// Set validates, persists and applies an override
func (p *Provider) Set(ctx context.Context, key, value string) error {
	if err := validate(key, value); err != nil {
		return err
	}
	if p.store != nil {
		if err := p.store.SaveSetting(ctx, key, value); err != nil {
			return fmt.Errorf("failed to save setting %s: %w", key, err)
		}
	}

	p.mu.Lock()
	p.overrides[key] = value
	listeners := append([]func(string, string){}, p.onChange...)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(key, value)
	}
	return nil
}

// OnChange registers fn to run after every successful Set
func (p *Provider) OnChange(fn func(key, value string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = append(p.onChange, fn)
}

// All returns the effective value of every known key
func (p *Provider) All() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]string, len(p.defaults))
	for k, v := range p.defaults {
		out[k] = v
	}
	for k, v := range p.overrides {
		if _, known := p.defaults[k]; known {
			out[k] = v
		}
	}
	return out
}

func (p *Provider) raw(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.overrides[key]; ok {
		return v, true
	}
	v, ok := p.defaults[key]
	return v, ok
}

// String returns the value of key, or fallback when unset
func (p *Provider) String(key, fallback string) string {
	if v, ok := p.raw(key); ok {
		return v
	}
	return fallback
}

// Bool returns the value of key, or fallback when unset or unparseable
func (p *Provider) Bool(key string, fallback bool) bool {
	v, ok := p.raw(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// Int returns the value of key, or fallback when unset or unparseable
func (p *Provider) Int(key string, fallback int) int {
	v, ok := p.raw(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (p *Provider) DedupEnabled() bool { return p.Bool(KeyDedupEnabled, false) }

func (p *Provider) DedupWindow() time.Duration {
	return time.Duration(p.Int(KeyDedupWindowSeconds, 180)) * time.Second
}

func (p *Provider) TransferRecognitionEnabled() bool { return p.Bool(KeyTransferEnabled, false) }

func (p *Provider) TransferWindow() time.Duration {
	return time.Duration(p.Int(KeyTransferWindowSeconds, 120)) * time.Second
}

func (p *Provider) AssetManagementEnabled() bool  { return p.Bool(KeyAssetManagement, false) }
func (p *Provider) AutoAssetMappingEnabled() bool { return p.Bool(KeyAutoAssetMapping, false) }
func (p *Provider) AIBillRecognitionEnabled() bool {
	return p.Bool(KeyAIBillRecognition, false)
}
func (p *Provider) AICategoryRecognitionEnabled() bool {
	return p.Bool(KeyAICategoryRecognition, false)
}
func (p *Provider) AIAssetMappingEnabled() bool { return p.Bool(KeyAIAssetMapping, false) }

func (p *Provider) RemarkTemplate() string {
	return p.String(KeyRemarkTemplate, "【商户名称】【商品名称】")
}

func (p *Provider) DefaultBookName() string {
	if v := p.String(KeyDefaultBookName, ""); v != "" {
		return v
	}
	return "默认账本"
}

func (p *Provider) DebugMode() bool { return p.Bool(KeyDebugMode, false) }

func validate(key, value string) error {
	switch key {
	case KeyDedupEnabled, KeyTransferEnabled, KeyAssetManagement, KeyAutoAssetMapping,
		KeyAIBillRecognition, KeyAICategoryRecognition, KeyAIAssetMapping, KeyDebugMode:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%w: %s expects a boolean, got %q", ErrInvalidSetting, key, value)
		}
	case KeyDedupWindowSeconds, KeyTransferWindowSeconds:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s expects a non-negative integer, got %q", ErrInvalidSetting, key, value)
		}
	case KeyRemarkTemplate, KeyDefaultBookName:
	default:
		return fmt.Errorf("%w: unknown key %q", ErrInvalidSetting, key)
	}
	return nil
}
