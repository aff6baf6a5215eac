package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"agenda/internal/models"

	"github.com/mattn/go-sqlite3"
)

func (db *DB) ListLocations(ctx context.Context) ([]models.Location, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, created_at FROM locations ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer rows.Close()

	locations := []models.Location{}
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

func (db *DB) GetLocation(ctx context.Context, id int64) (*models.Location, error) {
	var l models.Location
	err := db.QueryRowContext(ctx, `SELECT id, name, created_at FROM locations WHERE id = ?`, id).
		Scan(&l.ID, &l.Name, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLocationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return &l, nil
}

func (db *DB) CreateLocation(ctx context.Context, location *models.Location) error {
	now := time.Now()
	result, err := db.ExecContext(ctx, `INSERT INTO locations (name, created_at) VALUES (?, ?)`,
		strings.TrimSpace(location.Name), now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrLocationExists
		}
		return fmt.Errorf("failed to create location: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	location.ID = id
	location.CreatedAt = now
	return nil
}

func (db *DB) RenameLocation(ctx context.Context, id int64, name string) error {
	result, err := db.ExecContext(ctx, `UPDATE locations SET name = ? WHERE id = ?`, strings.TrimSpace(name), id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrLocationExists
		}
		return fmt.Errorf("failed to rename location: %w", err)
	}
	return expectAffected(result, ErrLocationNotFound)
}

func (db *DB) DeleteLocation(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM locations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
	}
	return expectAffected(result, ErrLocationNotFound)
}

// SeedLocations inserts names only when the table is still empty.
func (db *DB) SeedLocations(ctx context.Context, names []string) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM locations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count locations: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	inserted := 0
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO locations (name, created_at) VALUES (?, ?)`, name, now)
		if err != nil {
			return 0, fmt.Errorf("failed to seed location %q: %w", name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit seed: %w", err)
	}
	return inserted, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
