package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
)

const defaultListLimit = 50

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// billArgs returns the insert/update arguments in column order (without id)
func billArgs(b *bill.Bill) []interface{} {
	var groupID sql.NullInt64
	if b.GroupID != 0 {
		groupID = sql.NullInt64{Int64: b.GroupID, Valid: true}
	}
	createdAt := b.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return []interface{}{
		string(b.Type),
		string(b.State),
		b.Amount.String(),
		b.Fee.String(),
		b.Currency,
		b.Time.UnixMilli(),
		createdAt.UnixMilli(),
		b.ShopName,
		b.ShopItem,
		b.Remark,
		b.CategoryName,
		b.BookName,
		b.Tags,
		b.ExtendData,
		b.AccountFrom,
		b.AccountTo,
		b.App,
		b.Channel,
		b.RuleName,
		groupID,
		b.Auto,
	}
}

func scanBill(row scanner) (*bill.Bill, error) {
	var (
		b                 bill.Bill
		typ, state        string
		amount, fee       string
		timeMs, createdMs int64
		groupID           sql.NullInt64
	)
	err := row.Scan(
		&b.ID, &typ, &state, &amount, &fee, &b.Currency, &timeMs, &createdMs,
		&b.ShopName, &b.ShopItem, &b.Remark, &b.CategoryName, &b.BookName, &b.Tags, &b.ExtendData,
		&b.AccountFrom, &b.AccountTo, &b.App, &b.Channel, &b.RuleName, &groupID, &b.Auto,
	)
	if err != nil {
		return nil, err
	}

	b.Type = bill.Type(typ)
	b.State = bill.State(state)
	if b.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("bill %d has invalid amount %q: %w", b.ID, amount, err)
	}
	if b.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("bill %d has invalid fee %q: %w", b.ID, fee, err)
	}
	b.Time = time.UnixMilli(timeMs)
	b.CreatedAt = time.UnixMilli(createdMs)
	if groupID.Valid {
		b.GroupID = groupID.Int64
	}
	return &b, nil
}

func scanRawEvent(row scanner) (*bill.RawEvent, error) {
	var (
		e        bill.RawEvent
		dataType string
		timeMs   int64
	)
	if err := row.Scan(&e.ID, &e.TraceID, &e.App, &dataType, &e.Data, &timeMs, &e.Match, &e.Rule); err != nil {
		return nil, err
	}
	e.DataType = bill.DataType(dataType)
	e.Time = time.UnixMilli(timeMs)
	return &e, nil
}
