package repo

import (
	"context"
	"database/sql"
	"fmt"

	"accmgr-telebot/internal/model"
)

// PhoneRepo defines the interface for phone-number record operations
type PhoneRepo interface {
	Insert(ctx context.Context, userID int64, phone string) (int64, error)
	ListByUser(ctx context.Context, userID int64) ([]model.PhoneNumber, error)
	UpdateStatus(ctx context.Context, id int64, status model.PhoneStatus, authenticated bool) error
}

type phoneRepo struct {
	db *sql.DB
}

// NewPhoneRepo creates a new PhoneRepo instance
func NewPhoneRepo(db *sql.DB) PhoneRepo {
	return &phoneRepo{db: db}
}

// Insert stores a new phone-number submission and returns its record id.
// Duplicate submissions of the same number each get their own row.
func (r *phoneRepo) Insert(ctx context.Context, userID int64, phone string) (int64, error) {
	query := `
		INSERT INTO phone_numbers (user_id, phone_number)
		VALUES ($1, $2)
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, userID, phone).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert phone number: %w", err)
	}
	return id, nil
}

// ListByUser returns the user's phone-number records, newest first.
func (r *phoneRepo) ListByUser(ctx context.Context, userID int64) ([]model.PhoneNumber, error) {
	query := `
		SELECT id, user_id, phone_number, is_authenticated, status, added_at, last_login
		FROM phone_numbers
		WHERE user_id = $1
		ORDER BY added_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query phone numbers: %w", err)
	}
	defer rows.Close()

	var numbers []model.PhoneNumber
	for rows.Next() {
		var n model.PhoneNumber
		var lastLogin sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Phone, &n.IsAuthenticated, &n.Status, &n.AddedAt, &lastLogin); err != nil {
			return nil, fmt.Errorf("failed to scan phone number: %w", err)
		}
		if lastLogin.Valid {
			t := lastLogin.Time
			n.LastLogin = &t
		}
		numbers = append(numbers, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate phone numbers: %w", err)
	}
	return numbers, nil
}

// UpdateStatus records a protocol outcome on the phone record and stamps
// the last login time.
func (r *phoneRepo) UpdateStatus(ctx context.Context, id int64, status model.PhoneStatus, authenticated bool) error {
	query := `
		UPDATE phone_numbers
		SET status = $2, is_authenticated = $3, last_login = now()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, status, authenticated); err != nil {
		return fmt.Errorf("failed to update phone status: %w", err)
	}
	return nil
}
