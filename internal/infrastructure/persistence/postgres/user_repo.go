package postgres

import (
	"context"
	"fmt"

	"github.com/trailroom/trailroom-hub/internal/domain/shared"
	"github.com/trailroom/trailroom-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

// Create persists a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, display_name, total_points, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.conn.Exec(ctx, query,
		u.ID,
		u.DisplayName,
		u.TotalPoints,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("user", "Create", shared.ErrAlreadyExists, "user already exists")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID returns a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	query := `
		SELECT id, display_name, total_points, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var u user.User
	err := r.conn.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.DisplayName,
		&u.TotalPoints,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

// ListIDs returns every user ID.
func (r *UserRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.conn.Query(ctx, `SELECT id FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ApplyPointsDelta atomically adjusts the cached total by a signed delta.
// The table-level CHECK rejects a total that would go negative.
func (r *UserRepository) ApplyPointsDelta(ctx context.Context, userID string, delta int) error {
	tag, err := r.conn.Exec(ctx,
		`UPDATE users SET total_points = total_points + $1 WHERE id = $2`,
		delta, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to apply points delta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}

	return nil
}

// SetTotalPoints overwrites the cached total.
func (r *UserRepository) SetTotalPoints(ctx context.Context, userID string, total int) error {
	tag, err := r.conn.Exec(ctx,
		`UPDATE users SET total_points = $1 WHERE id = $2`,
		total, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set total points: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}

	return nil
}
