package repo

import (
	"context"
	"database/sql"
	"fmt"

	"accmgr-telebot/internal/model"
)

// UserRepo defines the interface for bot user repository operations
type UserRepo interface {
	Upsert(ctx context.Context, user model.User) error
	GetByID(ctx context.Context, id int64) (model.User, error)
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo instance
func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

// Upsert inserts the user or refreshes its display metadata. Called on
// every interaction, so it must be idempotent.
func (r *userRepo) Upsert(ctx context.Context, user model.User) error {
	query := `
		INSERT INTO bot_users (user_id, username, first_name, last_name, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    is_active = TRUE
	`
	if _, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.FirstName, user.LastName); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by its Telegram identifier
func (r *userRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	query := `
		SELECT user_id, username, first_name, last_name, is_active, created_at
		FROM bot_users
		WHERE user_id = $1
	`
	var user model.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.IsActive,
		&user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.User{}, fmt.Errorf("user not found: %w", err)
		}
		return model.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}
