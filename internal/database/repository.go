package database

import (
	"context"
	"database/sql"
	"errors"
)

// Storage is the key/value view of one tab's session storage.
type Storage struct {
	db    *Database
	tabID string
}

func NewStorage(db *Database, tabID string) *Storage {
	return &Storage{db: db, tabID: tabID}
}

// GetItem returns the stored value and whether the key exists.
func (s *Storage) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.db.QueryRowContext(ctx, `
		SELECT value FROM session_storage
		WHERE tab_id = ? AND key = ?
	`, s.tabID, key).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Storage) SetItem(ctx context.Context, key, value string) error {
	_, err := s.db.db.ExecContext(ctx, `
		INSERT INTO session_storage (tab_id, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(tab_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, s.tabID, key, value)
	return err
}

// SetItems writes several keys in one transaction so readers never observe
// half of a session mutation.
func (s *Storage) SetItems(ctx context.Context, items map[string]string) error {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO session_storage (tab_id, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(tab_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for key, value := range items {
		if _, err := stmt.ExecContext(ctx, s.tabID, key, value); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Storage) RemoveItem(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := s.db.db.ExecContext(ctx,
			"DELETE FROM session_storage WHERE tab_id = ? AND key = ?", s.tabID, key); err != nil {
			return err
		}
	}
	return nil
}
