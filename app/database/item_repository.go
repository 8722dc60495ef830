package database

import (
	"fmt"

	"github.com/google/uuid"
)

var _ ItemRepository = (*ItemRepo)(nil)

// ItemRepo handles database operations for extracted items
type ItemRepo struct {
	db *DB
}

func NewItemRepository(db *DB) *ItemRepo {
	return &ItemRepo{db: db}
}

// ReplaceItems swaps the full item set of an establishment in one
// transaction. Delete-and-insert keyed by establishment makes the write
// idempotent: re-running a reconciliation produces the same end state.
func (r *ItemRepo) ReplaceItems(establishmentID string, items []ItemRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`DELETE FROM establishment_items WHERE establishment_id = ?`, establishmentID)
	if err != nil {
		return fmt.Errorf("failed to delete existing items: %w", err)
	}

	for _, item := range items {
		_, err = tx.Exec(`
			INSERT INTO establishment_items (
				id, establishment_id, kind, position, name, description,
				price_minor, currency, category, image_url, source_url,
				width, height, is_enhanced
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.New().String(), establishmentID, item.Kind, item.Position,
			item.Name, item.Description, item.PriceMinor, item.Currency,
			item.Category, item.ImageURL, item.SourceURL,
			item.Width, item.Height, item.IsEnhanced)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit item replacement: %w", err)
	}

	return nil
}

func (r *ItemRepo) GetItems(establishmentID string) ([]Item, error) {
	rows, err := r.db.Query(`
		SELECT id, establishment_id, kind, position, name, description,
		       price_minor, currency, category, image_url, source_url,
		       width, height, is_enhanced, created_at
		FROM establishment_items
		WHERE establishment_id = ?
		ORDER BY position
	`, establishmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		err := rows.Scan(&item.ID, &item.EstablishmentID, &item.Kind, &item.Position,
			&item.Name, &item.Description, &item.PriceMinor, &item.Currency,
			&item.Category, &item.ImageURL, &item.SourceURL,
			&item.Width, &item.Height, &item.IsEnhanced, &item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

func (r *ItemRepo) GetItemCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM establishment_items").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get item count: %w", err)
	}
	return count, nil
}
