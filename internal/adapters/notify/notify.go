// Package notify tells the outside world about reconciled bills.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
)

// Notifier receives every reconciled bill and its parent, if any
type Notifier interface {
	Notify(ctx context.Context, b *bill.Bill, parent *bill.Bill) error
}

// LogNotifier writes a line per bill
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log notifier
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("system", "notify")}
}

// Notify logs the bill
func (n *LogNotifier) Notify(_ context.Context, b *bill.Bill, parent *bill.Bill) error {
	attrs := []any{
		"bill_id", b.ID,
		"type", b.Type,
		"amount", b.Amount.String(),
		"remark", b.Remark,
		"state", b.State,
	}
	if parent != nil {
		attrs = append(attrs, "parent_id", parent.ID)
	}
	n.logger.Info("bill reconciled", attrs...)
	return nil
}

// Payload is the webhook request body
type Payload struct {
	Event  string     `json:"event"`
	Bill   *bill.Bill `json:"bill"`
	Parent *bill.Bill `json:"parent,omitempty"`
	SentAt time.Time  `json:"sent_at"`
}

// WebhookNotifier posts each bill as JSON to a URL
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

// NewWebhookNotifier creates a webhook notifier
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Notify posts the payload and fails on any non-2xx status
func (n *WebhookNotifier) Notify(ctx context.Context, b *bill.Bill, parent *bill.Bill) error {
	body, err := json.Marshal(Payload{
		Event:  "bill.reconciled",
		Bill:   b,
		Parent: parent,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Multi fans a notification out to several notifiers and returns the first
// error after trying all of them
type Multi []Notifier

// Notify calls every notifier
func (m Multi) Notify(ctx context.Context, b *bill.Bill, parent *bill.Bill) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, b, parent); err != nil && first == nil {
			first = err
		}
	}
	return first
}
