package postgres

import (
	"context"
	"fmt"

	"github.com/trailroom/trailroom-hub/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

// Get returns the view record for a (user, content) pair.
func (r *ProgressRepository) Get(ctx context.Context, userID, contentID string) (*progress.ViewRecord, error) {
	query := `
		SELECT user_id, content_id, completed, seconds_spent, viewed_at, updated_at
		FROM view_records
		WHERE user_id = $1 AND content_id = $2
	`

	var v progress.ViewRecord
	err := r.conn.QueryRow(ctx, query, userID, contentID).Scan(
		&v.UserID,
		&v.ContentID,
		&v.Completed,
		&v.SecondsSpent,
		&v.ViewedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, progress.ErrViewNotFound
		}
		return nil, fmt.Errorf("failed to get view record: %w", err)
	}

	return &v, nil
}

// Upsert inserts or updates the (user, content) view record. The primary key
// on the pair is what makes repeated views idempotent.
func (r *ProgressRepository) Upsert(ctx context.Context, v *progress.ViewRecord) error {
	query := `
		INSERT INTO view_records (user_id, content_id, completed, seconds_spent, viewed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, content_id) DO UPDATE SET
			completed = EXCLUDED.completed,
			seconds_spent = EXCLUDED.seconds_spent,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Exec(ctx, query,
		v.UserID,
		v.ContentID,
		v.Completed,
		v.SecondsSpent,
		v.ViewedAt,
		v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert view record: %w", err)
	}

	return nil
}

// CountCompletedInModule counts a user's completed items within one module.
func (r *ProgressRepository) CountCompletedInModule(ctx context.Context, userID, moduleID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM view_records v
		JOIN contents c ON c.id = v.content_id
		WHERE v.user_id = $1 AND c.module_id = $2 AND v.completed
	`

	var count int
	if err := r.conn.QueryRow(ctx, query, userID, moduleID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count completed in module: %w", err)
	}
	return count, nil
}

// CountCompletedInTrack counts a user's completed items across a track.
func (r *ProgressRepository) CountCompletedInTrack(ctx context.Context, userID, trackID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM view_records v
		JOIN contents c ON c.id = v.content_id
		JOIN modules m ON m.id = c.module_id
		WHERE v.user_id = $1 AND m.track_id = $2 AND v.completed
	`

	var count int
	if err := r.conn.QueryRow(ctx, query, userID, trackID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count completed in track: %w", err)
	}
	return count, nil
}
