package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
)

// ListAssets returns every asset ordered by name
func (s *Storage) ListAssets(ctx context.Context) ([]bill.AssetRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM assets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	assets := make([]bill.AssetRecord, 0)
	for rows.Next() {
		var a bill.AssetRecord
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// SaveAsset inserts or renames an asset
func (s *Storage) SaveAsset(ctx context.Context, a *bill.AssetRecord) error {
	if a.ID != 0 {
		_, err := s.db.ExecContext(ctx, `UPDATE assets SET name = ? WHERE id = ?`, a.Name, a.ID)
		if err != nil {
			return fmt.Errorf("failed to update asset %d: %w", a.ID, err)
		}
		return nil
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO assets (name) VALUES (?)`, a.Name)
	if err != nil {
		return fmt.Errorf("failed to insert asset: %w", err)
	}
	a.ID, err = res.LastInsertId()
	return err
}

// DeleteAsset removes an asset
func (s *Storage) DeleteAsset(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "assets", id)
}

// ListAssetMappings returns every asset mapping in insertion order
func (s *Storage) ListAssetMappings(ctx context.Context) ([]bill.AssetMapping, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, map_name, regex FROM asset_mappings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	mappings := make([]bill.AssetMapping, 0)
	for rows.Next() {
		var m bill.AssetMapping
		if err := rows.Scan(&m.ID, &m.Name, &m.MapName, &m.Regex); err != nil {
			return nil, fmt.Errorf("failed to scan asset mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// InsertAssetMapping adds a mapping and fails if the name is already mapped
func (s *Storage) InsertAssetMapping(ctx context.Context, m *bill.AssetMapping) error {
	res, err := s.db.ExecContext(ctx, `
	INSERT INTO asset_mappings (name, map_name, regex) VALUES (?, ?, ?)
	`, m.Name, m.MapName, m.Regex)
	if err != nil {
		return fmt.Errorf("failed to insert asset mapping %q: %w", m.Name, err)
	}
	m.ID, err = res.LastInsertId()
	return err
}

// SaveAssetMapping inserts or replaces the mapping keyed by name
func (s *Storage) SaveAssetMapping(ctx context.Context, m *bill.AssetMapping) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO asset_mappings (name, map_name, regex) VALUES (?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET map_name = excluded.map_name, regex = excluded.regex
	`, m.Name, m.MapName, m.Regex)
	if err != nil {
		return fmt.Errorf("failed to save asset mapping %q: %w", m.Name, err)
	}
	return s.db.QueryRowContext(ctx, `SELECT id FROM asset_mappings WHERE name = ?`, m.Name).Scan(&m.ID)
}

// DeleteAssetMapping removes an asset mapping
func (s *Storage) DeleteAssetMapping(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "asset_mappings", id)
}

// ListCategories returns the full category tree, parents before children
func (s *Storage) ListCategories(ctx context.Context) ([]bill.CategoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, name, type, book_name, parent_id FROM categories ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	categories := make([]bill.CategoryRecord, 0)
	for rows.Next() {
		var (
			c        bill.CategoryRecord
			typ      string
			parentID sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.Name, &typ, &c.BookName, &parentID); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.Type = bill.Type(typ)
		if parentID.Valid {
			c.ParentID = parentID.Int64
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// SaveCategory inserts a category or updates it when ID is set
func (s *Storage) SaveCategory(ctx context.Context, c *bill.CategoryRecord) error {
	var parentID sql.NullInt64
	if c.ParentID != 0 {
		parentID = sql.NullInt64{Int64: c.ParentID, Valid: true}
	}

	if c.ID != 0 {
		_, err := s.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, type = ?, book_name = ?, parent_id = ? WHERE id = ?
		`, c.Name, string(c.Type), c.BookName, parentID, c.ID)
		if err != nil {
			return fmt.Errorf("failed to update category %d: %w", c.ID, err)
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx, `
	INSERT INTO categories (name, type, book_name, parent_id) VALUES (?, ?, ?, ?)
	`, c.Name, string(c.Type), c.BookName, parentID)
	if err != nil {
		return fmt.Errorf("failed to insert category %q: %w", c.Name, err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

// ListCategoryMappings returns every category mapping
func (s *Storage) ListCategoryMappings(ctx context.Context) ([]bill.CategoryMapping, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, map_name FROM category_mappings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query category mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	mappings := make([]bill.CategoryMapping, 0)
	for rows.Next() {
		var m bill.CategoryMapping
		if err := rows.Scan(&m.ID, &m.Name, &m.MapName); err != nil {
			return nil, fmt.Errorf("failed to scan category mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// SaveCategoryMapping inserts or replaces the mapping keyed by name
func (s *Storage) SaveCategoryMapping(ctx context.Context, m *bill.CategoryMapping) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO category_mappings (name, map_name) VALUES (?, ?)
	ON CONFLICT(name) DO UPDATE SET map_name = excluded.map_name
	`, m.Name, m.MapName)
	if err != nil {
		return fmt.Errorf("failed to save category mapping %q: %w", m.Name, err)
	}
	return s.db.QueryRowContext(ctx, `SELECT id FROM category_mappings WHERE name = ?`, m.Name).Scan(&m.ID)
}

// DeleteCategoryMapping removes a category mapping
func (s *Storage) DeleteCategoryMapping(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "category_mappings", id)
}

// ListSettings returns every stored setting override
func (s *Storage) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		values[k] = v
	}
	return values, rows.Err()
}

// SaveSetting upserts a setting override
func (s *Storage) SaveSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO settings (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

// deleteByID is only called with fixed table names
func (s *Storage) deleteByID(ctx context.Context, table string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return nil
}
