package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upSeedDefaultCategories, downSeedDefaultCategories)
}

// DefaultBook is the book seeded on a fresh database
const DefaultBook = "默认账本"

// upSeedDefaultCategories gives a fresh database a catch-all category in each
// tree so categorization always has somewhere to land. Databases that already
// have categories are left alone.
func upSeedDefaultCategories(ctx context.Context, tx *sql.Tx) error {
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, billType := range []string{"Expend", "Income"} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO categories (name, type, book_name, parent_id)
			VALUES ('其他', ?, ?, NULL)
		`, billType, DefaultBook); err != nil {
			return err
		}
	}
	return nil
}

func downSeedDefaultCategories(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM categories WHERE name = '其他' AND book_name = ? AND parent_id IS NULL
	`, DefaultBook)
	return err
}
