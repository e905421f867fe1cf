package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/pantry/internal/model"
)

// GrocerySnapshotStore keeps the last successfully fetched inventory list so
// it can be shown again after a restart.
type GrocerySnapshotStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewGrocerySnapshotStore(db *sql.DB) *GrocerySnapshotStore {
	return &GrocerySnapshotStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.GroceryItem, error) {
	var item model.GroceryItem
	var shouldInclude int

	err := scanner.Scan(
		&item.ID, &item.Name, &item.Brand, &item.Type, &item.CurrentPrice,
		&item.CurrentSeller, &item.LowStockThreshold, &item.QuantityInStock,
		&shouldInclude, &item.BestPrice, &item.BestSeller, &item.StockStatus,
	)
	if err != nil {
		return nil, err
	}
	item.ShouldInclude = shouldInclude != 0
	return &item, nil
}

const itemCols = `id, name, brand, type, current_price, current_seller, low_stock_threshold, quantity_in_stock, should_include, best_price, best_seller, stock_status`

// SaveItems replaces the stored snapshot with items, keeping their order.
func (s *GrocerySnapshotStore) SaveItems(ctx context.Context, items []model.GroceryItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM grocery_snapshot_items`); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO grocery_snapshot_items (position, `+itemCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, item := range items {
		include := 0
		if item.ShouldInclude {
			include = 1
		}
		_, err := stmt.ExecContext(ctx,
			i, item.ID, item.Name, item.Brand, string(item.Type), item.CurrentPrice,
			string(item.CurrentSeller), item.LowStockThreshold, item.QuantityInStock,
			include, item.BestPrice, string(item.BestSeller), string(item.StockStatus),
		)
		if err != nil {
			return fmt.Errorf("insert snapshot item: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO grocery_snapshot_meta (id, saved_at, count) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET saved_at = excluded.saved_at, count = excluded.count`,
		s.now(), len(items),
	)
	if err != nil {
		return fmt.Errorf("update snapshot meta: %w", err)
	}

	return tx.Commit()
}

// LoadItems returns the stored snapshot, or an empty slice if none was saved.
func (s *GrocerySnapshotStore) LoadItems(ctx context.Context) ([]model.GroceryItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemCols+` FROM grocery_snapshot_items ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("list snapshot items: %w", err)
	}
	defer rows.Close()

	items := []model.GroceryItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// SavedAt returns when the snapshot was last written. ok is false if never.
func (s *GrocerySnapshotStore) SavedAt(ctx context.Context) (savedAt time.Time, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT saved_at FROM grocery_snapshot_meta WHERE id = 1`).Scan(&savedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get snapshot time: %w", err)
	}
	return savedAt, true, nil
}
