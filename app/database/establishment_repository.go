package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var _ EstablishmentRepository = (*EstablishmentRepo)(nil)

// EstablishmentRepo handles database operations for establishments
type EstablishmentRepo struct {
	db *DB
}

func NewEstablishmentRepository(db *DB) *EstablishmentRepo {
	return &EstablishmentRepo{db: db}
}

// Upsert writes an establishment keyed on external id when present. The
// conflict policy merges field-wise: empty incoming fields never overwrite
// stored non-empty values. Records without an external id always insert
// under a fresh application key; merging same-named records is the
// duplicate detector's job, not the write path's. The whole operation is
// one transaction so a crash never leaves a half-updated row.
func (r *EstablishmentRepo) Upsert(record EstablishmentRecord) (string, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id string
	if record.ExternalID != "" {
		existing, err := getByExternalIDTx(tx, record.ExternalID)
		if err != nil {
			return "", err
		}
		if existing != nil {
			merged := mergeRecord(*existing, record)
			_, err = tx.Exec(`
				UPDATE establishments
				SET name = ?, address = ?, phone = ?, rating = ?, review_count = ?,
				    lat = ?, lng = ?, updated_at = CURRENT_TIMESTAMP
				WHERE id = ?
			`, merged.Name, merged.Address, merged.Phone, merged.Rating,
				merged.ReviewCount, merged.Lat, merged.Lng, existing.ID)
			if err != nil {
				return "", fmt.Errorf("failed to update establishment: %w", err)
			}
			id = existing.ID
		}
	}

	if id == "" {
		id = uuid.New().String()
		_, err = tx.Exec(`
			INSERT INTO establishments (id, external_id, name, address, phone, rating, review_count, lat, lng)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, record.ExternalID, record.Name, record.Address, record.Phone,
			record.Rating, record.ReviewCount, record.Lat, record.Lng)
		if err != nil {
			return "", fmt.Errorf("failed to insert establishment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit establishment upsert: %w", err)
	}

	return id, nil
}

// mergeRecord applies the field-wise conflict policy: incoming values win
// only when present.
func mergeRecord(existing Establishment, incoming EstablishmentRecord) EstablishmentRecord {
	merged := EstablishmentRecord{
		Name:        existing.Name,
		Address:     existing.Address,
		Phone:       existing.Phone,
		Rating:      existing.Rating,
		ReviewCount: existing.ReviewCount,
		Lat:         existing.Lat,
		Lng:         existing.Lng,
	}

	if incoming.Name != "" {
		merged.Name = incoming.Name
	}
	if incoming.Address != "" {
		merged.Address = incoming.Address
	}
	if incoming.Phone != "" {
		merged.Phone = incoming.Phone
	}
	if incoming.Rating != 0 {
		merged.Rating = incoming.Rating
	}
	if incoming.ReviewCount != 0 {
		merged.ReviewCount = incoming.ReviewCount
	}
	if incoming.Lat != nil {
		merged.Lat = incoming.Lat
	}
	if incoming.Lng != nil {
		merged.Lng = incoming.Lng
	}

	return merged
}

func (r *EstablishmentRepo) GetAll() ([]Establishment, error) {
	rows, err := r.db.Query(`
		SELECT id, external_id, name, address, phone, rating, review_count,
		       lat, lng, created_at, updated_at
		FROM establishments
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get establishments: %w", err)
	}
	defer rows.Close()

	var establishments []Establishment
	for rows.Next() {
		var e Establishment
		err := rows.Scan(&e.ID, &e.ExternalID, &e.Name, &e.Address, &e.Phone,
			&e.Rating, &e.ReviewCount, &e.Lat, &e.Lng, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan establishment row: %w", err)
		}
		establishments = append(establishments, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating establishment rows: %w", err)
	}

	return establishments, nil
}

func (r *EstablishmentRepo) GetByID(id string) (*Establishment, error) {
	return r.getOne(`WHERE id = ?`, id)
}

func (r *EstablishmentRepo) GetByExternalID(externalID string) (*Establishment, error) {
	if externalID == "" {
		return nil, nil
	}
	return r.getOne(`WHERE external_id = ?`, externalID)
}

func (r *EstablishmentRepo) getOne(where string, arg interface{}) (*Establishment, error) {
	var e Establishment
	err := r.db.QueryRow(`
		SELECT id, external_id, name, address, phone, rating, review_count,
		       lat, lng, created_at, updated_at
		FROM establishments `+where, arg).Scan(
		&e.ID, &e.ExternalID, &e.Name, &e.Address, &e.Phone,
		&e.Rating, &e.ReviewCount, &e.Lat, &e.Lng, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get establishment: %w", err)
	}
	return &e, nil
}

func getByExternalIDTx(tx *sql.Tx, externalID string) (*Establishment, error) {
	var e Establishment
	err := tx.QueryRow(`
		SELECT id, external_id, name, address, phone, rating, review_count,
		       lat, lng, created_at, updated_at
		FROM establishments WHERE external_id = ?
	`, externalID).Scan(&e.ID, &e.ExternalID, &e.Name, &e.Address, &e.Phone,
		&e.Rating, &e.ReviewCount, &e.Lat, &e.Lng, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get establishment by external id: %w", err)
	}
	return &e, nil
}

func (r *EstablishmentRepo) GetCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM establishments").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get establishment count: %w", err)
	}
	return count, nil
}

// Merge reassigns all items from the member establishments to the canonical
// one and deletes the members, in a single transaction. Member items are
// renumbered after the canonical record's existing items.
func (r *EstablishmentRepo) Merge(canonicalID string, memberIDs []string) error {
	if len(memberIDs) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var nextPosition int
	err = tx.QueryRow(`
		SELECT COALESCE(MAX(position) + 1, 0) FROM establishment_items
		WHERE establishment_id = ?
	`, canonicalID).Scan(&nextPosition)
	if err != nil {
		return fmt.Errorf("failed to get max item position: %w", err)
	}

	for _, memberID := range memberIDs {
		if memberID == canonicalID {
			continue
		}

		rows, err := tx.Query(`
			SELECT id FROM establishment_items
			WHERE establishment_id = ? ORDER BY position
		`, memberID)
		if err != nil {
			return fmt.Errorf("failed to get member items: %w", err)
		}

		var itemIDs []string
		for rows.Next() {
			var itemID string
			if err := rows.Scan(&itemID); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan member item row: %w", err)
			}
			itemIDs = append(itemIDs, itemID)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("error iterating member item rows: %w", err)
		}
		rows.Close()

		for _, itemID := range itemIDs {
			_, err = tx.Exec(`
				UPDATE establishment_items
				SET establishment_id = ?, position = ?
				WHERE id = ?
			`, canonicalID, nextPosition, itemID)
			if err != nil {
				return fmt.Errorf("failed to reassign item: %w", err)
			}
			nextPosition++
		}
	}

	placeholders := strings.Repeat("?,", len(memberIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		args = append(args, memberID)
	}

	_, err = tx.Exec(`DELETE FROM establishments WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to delete merged establishments: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit merge: %w", err)
	}

	return nil
}
