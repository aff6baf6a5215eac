package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agenda/internal/models"
)

const showColumns = `id, location, date, start_time, end_time, duration, fee, advance, status, notes, created_at, updated_at`

func (db *DB) CreateShow(ctx context.Context, show *models.Show) error {
	query := `INSERT INTO shows (
				location, date, start_time, end_time, duration, fee, advance, status, notes, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		show.Location,
		show.Date,
		show.StartTime,
		show.EndTime,
		show.Duration,
		show.Fee,
		show.Advance,
		string(show.Status),
		show.Notes,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create show: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	show.ID = id
	show.CreatedAt = now
	show.UpdatedAt = now
	return nil
}

// UpdateShow overwrites every editable field of an existing show.
func (db *DB) UpdateShow(ctx context.Context, show *models.Show) error {
	query := `UPDATE shows SET location = ?, date = ?, start_time = ?, end_time = ?, duration = ?,
	                 fee = ?, advance = ?, status = ?, notes = ?, updated_at = ?
              WHERE id = ?`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		show.Location,
		show.Date,
		show.StartTime,
		show.EndTime,
		show.Duration,
		show.Fee,
		show.Advance,
		string(show.Status),
		show.Notes,
		now,
		show.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update show: %w", err)
	}
	if err := expectAffected(result, ErrShowNotFound); err != nil {
		return err
	}
	show.UpdatedAt = now
	return nil
}

func (db *DB) DeleteShow(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM shows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete show: %w", err)
	}
	return expectAffected(result, ErrShowNotFound)
}

func (db *DB) GetShow(ctx context.Context, id int64) (*models.Show, error) {
	row := db.QueryRowContext(ctx, `SELECT `+showColumns+` FROM shows WHERE id = ?`, id)
	show, err := scanShow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get show: %w", err)
	}
	return show, nil
}

// ListShows returns every show ordered by date and start time.
func (db *DB) ListShows(ctx context.Context) ([]models.Show, error) {
	return db.queryShows(ctx, `SELECT `+showColumns+` FROM shows ORDER BY date, start_time, id`)
}

// ListShowsByDate returns the shows booked on a YYYY-MM-DD date.
func (db *DB) ListShowsByDate(ctx context.Context, date string) ([]models.Show, error) {
	return db.queryShows(ctx, `SELECT `+showColumns+` FROM shows WHERE date = ? ORDER BY start_time, id`, date)
}

// ListShowsBetween returns shows dated within [from, to], both YYYY-MM-DD.
func (db *DB) ListShowsBetween(ctx context.Context, from, to string) ([]models.Show, error) {
	return db.queryShows(ctx,
		`SELECT `+showColumns+` FROM shows WHERE date >= ? AND date <= ? ORDER BY date, start_time, id`, from, to)
}

func (db *DB) queryShows(ctx context.Context, query string, args ...interface{}) ([]models.Show, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shows: %w", err)
	}
	defer rows.Close()

	shows := []models.Show{}
	for rows.Next() {
		show, err := scanShow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan show: %w", err)
		}
		shows = append(shows, *show)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shows: %w", err)
	}
	return shows, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanShow(row rowScanner) (*models.Show, error) {
	var show models.Show
	var status string
	err := row.Scan(
		&show.ID, &show.Location, &show.Date, &show.StartTime, &show.EndTime, &show.Duration,
		&show.Fee, &show.Advance, &status, &show.Notes, &show.CreatedAt, &show.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	show.Status = models.ShowStatus(status)
	return &show, nil
}

func expectAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
