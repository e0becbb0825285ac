package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
)

// Storage provides SQLite database access for bills and their reference data.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// PRAGMA foreign_keys is per connection
	db.SetMaxOpenConns(1)

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	// Run all pending migrations
	if err := s.runMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

const billColumns = `id, type, state, amount, fee, currency, time_ms, created_at_ms,
	shop_name, shop_item, remark, category_name, book_name, tags, extend_data,
	account_from, account_to, app, channel, rule_name, group_id, auto`

// InsertBill saves a new bill and sets its ID
func (s *Storage) InsertBill(ctx context.Context, b *bill.Bill) error {
	query := `
	INSERT INTO bills
	(type, state, amount, fee, currency, time_ms, created_at_ms,
	 shop_name, shop_item, remark, category_name, book_name, tags, extend_data,
	 account_from, account_to, app, channel, rule_name, group_id, auto)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query, billArgs(b)...)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read bill id: %w", err)
	}
	b.ID = id
	return nil
}

// UpdateBill overwrites every mutable column of an existing bill
func (s *Storage) UpdateBill(ctx context.Context, b *bill.Bill) error {
	query := `
	UPDATE bills SET
		type = ?, state = ?, amount = ?, fee = ?, currency = ?, time_ms = ?, created_at_ms = ?,
		shop_name = ?, shop_item = ?, remark = ?, category_name = ?, book_name = ?, tags = ?,
		extend_data = ?, account_from = ?, account_to = ?, app = ?, channel = ?, rule_name = ?,
		group_id = ?, auto = ?
	WHERE id = ?
	`
	args := append(billArgs(b), b.ID)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update bill %d: %w", b.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bill %d: %w", b.ID, ErrNotFound)
	}
	return nil
}

// GetBill retrieves a bill by ID
func (s *Storage) GetBill(ctx context.Context, id int64) (*bill.Bill, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+billColumns+` FROM bills WHERE id = ?`, id)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bill %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill %d: %w", id, err)
	}
	return b, nil
}

// FindCandidates returns root bills with the exact amount inside the window,
// oldest first. Amounts are stored in canonical decimal form so equality on
// the text column is exact.
func (s *Storage) FindCandidates(ctx context.Context, q bill.CandidateQuery) ([]*bill.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills
	WHERE amount = ? AND time_ms >= ? AND time_ms <= ? AND group_id IS NULL`
	args := []interface{}{q.Amount.String(), q.From.UnixMilli(), q.To.UnixMilli()}

	if len(q.Types) > 0 {
		placeholders := make([]string, len(q.Types))
		for i, t := range q.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		query += ` AND type IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY time_ms ASC, id ASC`

	return s.queryBills(ctx, query, args...)
}

// ListBills returns bills matching the filters with pagination, newest first
func (s *Storage) ListBills(ctx context.Context, filters BillFilters) (*BillListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = defaultListLimit
	}

	where := " WHERE 1=1"
	var args []interface{}
	if filters.Type != "" {
		where += " AND type = ?"
		args = append(args, string(filters.Type))
	}
	if filters.State != "" {
		where += " AND state = ?"
		args = append(args, string(filters.State))
	}
	if filters.RootsOnly {
		where += " AND group_id IS NULL"
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bills"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count bills: %w", err)
	}

	query := `SELECT ` + billColumns + ` FROM bills` + where + ` ORDER BY time_ms DESC, id DESC LIMIT ? OFFSET ?`
	bills, err := s.queryBills(ctx, query, append(args, filters.Limit, filters.Offset)...)
	if err != nil {
		return nil, err
	}

	return &BillListResult{
		Bills:      bills,
		TotalCount: total,
		Limit:      filters.Limit,
		Offset:     filters.Offset,
	}, nil
}

// ListChildren returns the bills grouped under parentID
func (s *Storage) ListChildren(ctx context.Context, parentID int64) ([]*bill.Bill, error) {
	return s.queryBills(ctx, `SELECT `+billColumns+` FROM bills WHERE group_id = ? ORDER BY id ASC`, parentID)
}

func (s *Storage) queryBills(ctx context.Context, query string, args ...interface{}) ([]*bill.Bill, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer func() { _ = rows.Close() }()

	bills := make([]*bill.Bill, 0)
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

// InsertRawEvent archives a raw submission and sets its ID
func (s *Storage) InsertRawEvent(ctx context.Context, e *bill.RawEvent) error {
	res, err := s.db.ExecContext(ctx, `
	INSERT INTO raw_events (trace_id, app, data_type, data, time_ms, matched, rule)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.TraceID, e.App, string(e.DataType), e.Data, e.Time.UnixMilli(), e.Match, e.Rule)
	if err != nil {
		return fmt.Errorf("failed to insert raw event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read raw event id: %w", err)
	}
	e.ID = id
	return nil
}

// UpdateRawEvent records the match outcome of a raw event
func (s *Storage) UpdateRawEvent(ctx context.Context, e *bill.RawEvent) error {
	res, err := s.db.ExecContext(ctx, `
	UPDATE raw_events SET trace_id = ?, app = ?, data_type = ?, data = ?, time_ms = ?, matched = ?, rule = ?
	WHERE id = ?
	`, e.TraceID, e.App, string(e.DataType), e.Data, e.Time.UnixMilli(), e.Match, e.Rule, e.ID)
	if err != nil {
		return fmt.Errorf("failed to update raw event %d: %w", e.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("raw event %d: %w", e.ID, ErrNotFound)
	}
	return nil
}

// GetRawEvent retrieves a raw event by ID
func (s *Storage) GetRawEvent(ctx context.Context, id int64) (*bill.RawEvent, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT id, trace_id, app, data_type, data, time_ms, matched, rule FROM raw_events WHERE id = ?
	`, id)
	e, err := scanRawEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("raw event %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raw event %d: %w", id, err)
	}
	return e, nil
}

// ListRawEvents returns raw events newest first
func (s *Storage) ListRawEvents(ctx context.Context, limit, offset int) ([]*bill.RawEvent, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, trace_id, app, data_type, data, time_ms, matched, rule FROM raw_events
	ORDER BY id DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query raw events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := make([]*bill.RawEvent, 0)
	for rows.Next() {
		e, err := scanRawEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan raw event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
