package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agenda/internal/models"
)

const userColumns = `id, cpf, name, year_of_birth, credential_hash, is_admin, is_blocked,
	sub_start, sub_end, sub_monthly_value, sub_payment_status, created_at, updated_at`

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (
				cpf, name, year_of_birth, credential_hash, is_admin, is_blocked,
				sub_start, sub_end, sub_monthly_value, sub_payment_status, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	start, end, value, payment := subscriptionArgs(user.Subscription)
	result, err := db.ExecContext(ctx, query,
		user.CPF,
		user.Name,
		user.YearOfBirth,
		user.CredentialHash,
		user.IsAdmin,
		user.IsBlocked,
		start, end, value, payment,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetUserByCPF looks up a regular user. The admin account lives apart and is
// only reachable through GetAdmin.
func (db *DB) GetUserByCPF(ctx context.Context, cpf string) (*models.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE cpf = ? AND is_admin = 0`, cpf))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetAdmin returns the single administrator account.
func (db *DB) GetAdmin(ctx context.Context) (*models.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE is_admin = 1 ORDER BY id LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return user, nil
}

// ListUsers returns regular (non-admin) users ordered by name.
func (db *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE is_admin = 0 ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func (db *DB) SetUserBlocked(ctx context.Context, cpf string, blocked bool) error {
	result, err := db.ExecContext(ctx, `UPDATE users SET is_blocked = ?, updated_at = ? WHERE cpf = ? AND is_admin = 0`,
		blocked, time.Now(), cpf)
	if err != nil {
		return fmt.Errorf("failed to update user block: %w", err)
	}
	return expectAffected(result, ErrUserNotFound)
}

// SetSubscription replaces the subscription and block flag atomically. A nil
// subscription clears it.
func (db *DB) SetSubscription(ctx context.Context, cpf string, sub *models.Subscription, blocked bool) error {
	start, end, value, payment := subscriptionArgs(sub)
	result, err := db.ExecContext(ctx,
		`UPDATE users SET sub_start = ?, sub_end = ?, sub_monthly_value = ?, sub_payment_status = ?,
		                  is_blocked = ?, updated_at = ?
		 WHERE cpf = ? AND is_admin = 0`,
		start, end, value, payment, blocked, time.Now(), cpf)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return expectAffected(result, ErrUserNotFound)
}

func (db *DB) DeleteUser(ctx context.Context, cpf string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM users WHERE cpf = ? AND is_admin = 0`, cpf)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return expectAffected(result, ErrUserNotFound)
}

func subscriptionArgs(sub *models.Subscription) (start, end sql.NullTime, value sql.NullFloat64, payment sql.NullString) {
	if sub == nil {
		return
	}
	start = sql.NullTime{Time: sub.StartDate, Valid: true}
	end = sql.NullTime{Time: sub.EndDate, Valid: true}
	value = sql.NullFloat64{Float64: sub.MonthlyValue, Valid: true}
	payment = sql.NullString{String: string(sub.PaymentStatus), Valid: true}
	return
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user    models.User
		start   sql.NullTime
		end     sql.NullTime
		value   sql.NullFloat64
		payment sql.NullString
	)
	err := row.Scan(
		&user.ID, &user.CPF, &user.Name, &user.YearOfBirth, &user.CredentialHash, &user.IsAdmin, &user.IsBlocked,
		&start, &end, &value, &payment, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if start.Valid && end.Valid {
		user.Subscription = &models.Subscription{
			StartDate:     start.Time,
			EndDate:       end.Time,
			MonthlyValue:  value.Float64,
			PaymentStatus: models.PaymentStatus(payment.String),
		}
	}
	return &user, nil
}
