// Package reconcile runs the per-event pipeline: gate, archive, extraction,
// asset resolution, persistence, grouping, categorization and notification.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/bill-reconciler/internal/adapters/notify"
	"github.com/eshaffer321/bill-reconciler/internal/adapters/rules"
	"github.com/eshaffer321/bill-reconciler/internal/domain/assets"
	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
	"github.com/eshaffer321/bill-reconciler/internal/domain/category"
	"github.com/eshaffer321/bill-reconciler/internal/domain/dedup"
	"github.com/eshaffer321/bill-reconciler/internal/domain/merger"
	"github.com/eshaffer321/bill-reconciler/internal/domain/transfer"
	"github.com/eshaffer321/bill-reconciler/internal/infrastructure/storage"
)

// Gate filters repeated payloads
type Gate interface {
	ShouldAccept(payload []byte) bool
}

// Extractor turns raw text into a draft using rules of one scope
type Extractor interface {
	Evaluate(ctx context.Context, app, data string, dataType bill.DataType, scope rules.Scope) (*bill.Draft, error)
}

// CategoryRules picks a book and category from shop data
type CategoryRules interface {
	Categorize(b *bill.Bill) (book, category string, ok bool)
}

// BillClassifier is the AI fallback for extraction
type BillClassifier interface {
	Classify(ctx context.Context, app, data string, dataType bill.DataType) (*bill.Draft, error)
}

// CategoryClassifier is the AI fallback for categorization
type CategoryClassifier interface {
	Classify(ctx context.Context, b *bill.Bill) (string, error)
}

// Settings are the toggles the pipeline reads
type Settings interface {
	dedup.Settings
	transfer.Settings
	assets.Settings
	AIBillRecognitionEnabled() bool
	AICategoryRecognitionEnabled() bool
	RemarkTemplate() string
	DefaultBookName() string
}

// Deps wires a Service. Store and Settings are required; every adapter may be
// left nil.
type Deps struct {
	Store         storage.Repository
	Settings      Settings
	Gate          Gate
	Rules         Extractor
	CategoryRules CategoryRules
	BillAI        BillClassifier
	CategoryAI    CategoryClassifier
	AssetAI       assets.Suggester
	Notifier      notify.Notifier
	AppName       merger.AppNamer
	Logger        *slog.Logger
	QueueSize     int
	Now           func() time.Time
}

// Request is one raw event submitted for analysis
type Request struct {
	App      string `json:"app"`
	DataType string `json:"type"`
	Data     string `json:"data"`

	// FromAppData marks a replay of archived data. It skips the gate and
	// the archive step.
	FromAppData bool `json:"from_app_data"`
	// ForceAI runs the AI classifier even when AI bill recognition is off
	ForceAI bool `json:"force_ai"`
	// Reanalyze categorizes the new bill itself rather than its parent
	Reanalyze bool `json:"reanalyze"`
}

// Result is the reconciled bill and, when it was grouped, its parent
type Result struct {
	Bill   *bill.Bill `json:"bill"`
	Parent *bill.Bill `json:"parent,omitempty"`
}

// Service coordinates the pipeline
type Service struct {
	store         storage.Repository
	settings      Settings
	gate          Gate
	rules         Extractor
	categoryRules CategoryRules
	billAI        BillClassifier
	categoryAI    CategoryClassifier
	assetAI       assets.Suggester
	notifier      notify.Notifier
	appName       merger.AppNamer
	logger        *slog.Logger
	now           func() time.Time

	detector   *dedup.Detector
	recognizer *transfer.Recognizer
	worker     *Worker

	notifyWG sync.WaitGroup
}

// NewService creates a service and starts its worker
func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}

	m := merger.New(logger.With("system", "merger"))
	s := &Service{
		store:         d.Store,
		settings:      d.Settings,
		gate:          d.Gate,
		rules:         d.Rules,
		categoryRules: d.CategoryRules,
		billAI:        d.BillAI,
		categoryAI:    d.CategoryAI,
		assetAI:       d.AssetAI,
		notifier:      d.Notifier,
		appName:       d.AppName,
		logger:        logger.With("system", "reconcile"),
		now:           now,
		detector:      dedup.NewDetector(d.Store, d.Settings, m, logger.With("system", "dedup")),
		recognizer:    transfer.NewRecognizer(d.Store, d.Settings, m, logger.With("system", "transfer")),
	}
	s.worker = NewWorker(d.QueueSize, logger)
	return s
}

// Close stops the worker, after which Analyze fails with ErrWorkerClosed, and
// then waits for pending notifications. Notifications are only started from
// worker tasks, so none can begin once the worker has exited.
func (s *Service) Close() {
	s.worker.Close()
	s.notifyWG.Wait()
}

// group runs the grouping passes. Transfer recognition wins over duplicate
// detection.
func (s *Service) group(ctx context.Context, b *bill.Bill, known merger.KnownAssets) (*bill.Bill, error) {
	parent, err := s.recognizer.Recognize(ctx, b, known)
	if err != nil {
		return nil, err
	}
	if parent != nil {
		return parent, nil
	}
	return s.detector.Detect(ctx, b, known)
}

// Analyze runs one raw event through the pipeline
func (s *Service) Analyze(ctx context.Context, req Request) (*Result, error) {
	return s.analyze(ctx, req, nil)
}

// Reanalyze replays an archived raw event. The new bill is categorized on its
// own and the archive row is updated in place.
func (s *Service) Reanalyze(ctx context.Context, rawEventID int64) (*Result, error) {
	event, err := s.store.GetRawEvent(ctx, rawEventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load raw event %d: %w", rawEventID, err)
	}
	return s.analyze(ctx, Request{
		App:         event.App,
		DataType:    string(event.DataType),
		Data:        event.Data,
		FromAppData: true,
		Reanalyze:   true,
	}, event)
}

func (s *Service) analyze(ctx context.Context, req Request, event *bill.RawEvent) (*Result, error) {
	dataType, err := bill.ParseDataType(req.DataType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if req.Data == "" {
		return nil, fmt.Errorf("%w: data is empty", ErrValidation)
	}

	if !req.FromAppData && s.gate != nil && !s.gate.ShouldAccept(gatePayload(req)) {
		s.logger.Debug("payload rejected by gate", "app", req.App)
		return nil, ErrDuplicatePayload
	}

	if event == nil && !req.FromAppData {
		event = &bill.RawEvent{
			TraceID:  uuid.NewString(),
			App:      req.App,
			DataType: dataType,
			Data:     req.Data,
			Time:     s.now(),
		}
		if err := s.store.InsertRawEvent(ctx, event); err != nil {
			return nil, fmt.Errorf("failed to archive raw event: %w", err)
		}
	}

	logger := s.logger.With("app", req.App)
	if event != nil {
		logger = logger.With("trace_id", event.TraceID)
	}

	draft := s.extract(ctx, logger, req, dataType)
	if draft == nil {
		logger.Info("no bill extracted", "data_type", dataType)
		return nil, ErrNoExtractionResult
	}

	b := draft.ToBill(req.App, s.now())

	resolver := assets.NewResolver(s.store, s.settings, s.assetAI, logger.With("system", "assets"))
	resolver.Apply(ctx, b)
	known := s.knownAssets(ctx, logger, resolver)

	b.Remark = merger.ExpandRemark(b, s.settings.RemarkTemplate(), s.appName)

	if err := s.store.InsertBill(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to save bill: %w", err)
	}
	logger = logger.With("bill_id", b.ID)

	// Grouping, categorization and every write of b and its parent run on the
	// worker so that two bills merging into one parent never interleave.
	var parent *bill.Bill
	err = s.worker.Submit(ctx, func(ctx context.Context) error {
		var err error
		parent, err = s.settle(ctx, logger, b, known, req.Reanalyze)
		if err != nil {
			return err
		}

		if event != nil {
			event.Match = true
			event.Rule = draft.RuleName
			if err := s.store.UpdateRawEvent(ctx, event); err != nil {
				logger.Warn("failed to update raw event", "raw_event_id", event.ID, "error", err)
			}
		}

		logger.Info("bill reconciled",
			"type", b.Type,
			"amount", b.Amount.String(),
			"rule", draft.RuleName,
			"grouped", parent != nil,
		)
		s.notify(ctx, logger, b, parent)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Bill: b, Parent: parent}, nil
}

// settle groups b, categorizes the bill that represents it and persists both
// b and its parent. It must run on the worker.
func (s *Service) settle(ctx context.Context, logger *slog.Logger, b *bill.Bill, known merger.KnownAssets, reanalyze bool) (*bill.Bill, error) {
	parent, err := s.group(ctx, b, known)
	if err != nil {
		return nil, fmt.Errorf("failed to group bill %d: %w", b.ID, err)
	}

	target := b
	if parent != nil && !reanalyze {
		target = parent
	}
	if target.Type != bill.TypeTransfer {
		s.categorize(ctx, logger, target)
	}
	if parent != nil && target == parent {
		parent.RuleName = MergedRuleName
		parent.Remark = merger.ExpandRemark(parent, s.settings.RemarkTemplate(), s.appName)
		if err := s.store.UpdateBill(ctx, parent); err != nil {
			return nil, fmt.Errorf("failed to update parent bill %d: %w", parent.ID, err)
		}
	}

	if parent != nil {
		b.State = bill.StateEdited
	} else {
		b.State = bill.StateWait2Edit
	}
	if err := s.store.UpdateBill(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to update bill %d: %w", b.ID, err)
	}
	return parent, nil
}

// extract tries system rules, then user rules, then AI. Adapter failures are
// logged and count as no result.
func (s *Service) extract(ctx context.Context, logger *slog.Logger, req Request, dataType bill.DataType) *bill.Draft {
	if s.rules != nil {
		for _, scope := range []rules.Scope{rules.ScopeSystem, rules.ScopeUser} {
			draft, err := s.rules.Evaluate(ctx, req.App, req.Data, dataType, scope)
			if err != nil {
				logger.Warn("rule evaluation failed", "scope", scope, "error", err)
				continue
			}
			if draft != nil {
				logger.Debug("rule matched", "scope", scope, "rule", draft.RuleName)
				return draft
			}
		}
	}

	if s.billAI == nil || !(req.ForceAI || s.settings.AIBillRecognitionEnabled()) {
		return nil
	}
	draft, err := s.billAI.Classify(ctx, req.App, req.Data, dataType)
	if err != nil {
		logger.Warn("ai bill recognition failed", "error", err)
		return nil
	}
	return draft
}

// categorize fills book and category on b. Category rules run first, the AI
// classifier only when the result is still the catch-all.
func (s *Service) categorize(ctx context.Context, logger *slog.Logger, b *bill.Bill) {
	if s.categoryRules != nil && category.IsOther(b.CategoryName) {
		if book, name, ok := s.categoryRules.Categorize(b); ok {
			b.CategoryName = name
			if book != "" {
				b.BookName = book
			}
		}
	}

	if s.categoryAI != nil && category.IsOther(b.CategoryName) && s.settings.AICategoryRecognitionEnabled() {
		name, err := s.categoryAI.Classify(ctx, b)
		if err != nil {
			logger.Warn("ai category recognition failed", "error", err)
		} else if name != "" {
			b.CategoryName = name
		}
	}

	if b.BookName == "" {
		b.BookName = s.settings.DefaultBookName()
	}
	if b.CategoryName == "" {
		b.CategoryName = "其他"
	}

	category.NewProcessor(s.store, s.settings.DefaultBookName, logger.With("system", "category")).Process(ctx, b)
}

func (s *Service) knownAssets(ctx context.Context, logger *slog.Logger, r *assets.Resolver) merger.KnownAssets {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		logger.Warn("asset snapshot unavailable", "error", err)
		return merger.NewAssetSet(nil)
	}
	return snap
}

func (s *Service) notify(ctx context.Context, logger *slog.Logger, b, parent *bill.Bill) {
	if s.notifier == nil {
		return
	}
	b = b.Clone()
	if parent != nil {
		parent = parent.Clone()
	}
	ctx = context.WithoutCancel(ctx)

	s.notifyWG.Add(1)
	go func() {
		defer s.notifyWG.Done()
		if err := s.notifier.Notify(ctx, b, parent); err != nil {
			logger.Warn("notification failed", "error", err)
		}
	}()
}

// gatePayload is the raw text alone, so the same message captured by two
// apps is admitted once
func gatePayload(req Request) []byte {
	return []byte(req.Data)
}

// IsClientError reports whether err was caused by the request rather than the
// service
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrDuplicatePayload) ||
		errors.Is(err, ErrNoExtractionResult)
}
