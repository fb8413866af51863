package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trailroom/trailroom-hub/internal/domain/title"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// TITLE REPOSITORY IMPLEMENTATION
// Grant inserts use partial unique indexes plus DO NOTHING so the retroactive
// sweep can re-run against the same population without effect.
// ══════════════════════════════════════════════════════════════════════════════

// TitleRepository implements title.Repository for PostgreSQL.
type TitleRepository struct {
	conn *Connection
}

// NewTitleRepository creates a new TitleRepository.
func NewTitleRepository(conn *Connection) *TitleRepository {
	return &TitleRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Definitions
// ─────────────────────────────────────────────────────────────────────────────

// Create persists a new title definition.
func (r *TitleRepository) Create(ctx context.Context, t *title.Title) error {
	query := `
		INSERT INTO titles (id, name, description, scope, room_id, min_points, min_completed_missions, creator_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var roomID sql.NullString
	if t.RoomID != "" {
		roomID = sql.NullString{String: t.RoomID, Valid: true}
	}

	_, err := r.conn.Exec(ctx, query,
		t.ID,
		t.Name,
		t.Description,
		string(t.Scope),
		roomID,
		t.MinPoints,
		t.MinCompletedMissions,
		t.CreatorID,
		t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create title: %w", err)
	}

	return nil
}

// GetByID returns a title by ID.
func (r *TitleRepository) GetByID(ctx context.Context, id string) (*title.Title, error) {
	query := `
		SELECT id, name, description, scope, room_id, min_points, min_completed_missions, creator_id, created_at
		FROM titles
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanTitle(row)
}

// Delete removes a title definition. Grants cascade away with it.
func (r *TitleRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM titles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return title.ErrTitleNotFound
	}
	return nil
}

// ListGlobal returns every global title.
func (r *TitleRepository) ListGlobal(ctx context.Context) ([]*title.Title, error) {
	query := `
		SELECT id, name, description, scope, room_id, min_points, min_completed_missions, creator_id, created_at
		FROM titles
		WHERE scope = $1
		ORDER BY created_at ASC
	`

	return r.listTitles(ctx, query, string(title.ScopeGlobal))
}

// ListForRoom returns every room-scoped title of a room.
func (r *TitleRepository) ListForRoom(ctx context.Context, roomID string) ([]*title.Title, error) {
	query := `
		SELECT id, name, description, scope, room_id, min_points, min_completed_missions, creator_id, created_at
		FROM titles
		WHERE room_id = $1
		ORDER BY created_at ASC
	`

	return r.listTitles(ctx, query, roomID)
}

func (r *TitleRepository) listTitles(ctx context.Context, query string, args ...interface{}) ([]*title.Title, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}
	defer rows.Close()

	var titles []*title.Title
	for rows.Next() {
		t, err := r.scanTitle(rows)
		if err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}

	return titles, rows.Err()
}

func (r *TitleRepository) scanTitle(row pgx.Row) (*title.Title, error) {
	var t title.Title
	var scope string
	var roomID sql.NullString

	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&scope,
		&roomID,
		&t.MinPoints,
		&t.MinCompletedMissions,
		&t.CreatorID,
		&t.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, title.ErrTitleNotFound
		}
		return nil, fmt.Errorf("failed to scan title: %w", err)
	}

	t.Scope = title.Scope(scope)
	t.RoomID = roomID.String
	return &t, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Grants
// ─────────────────────────────────────────────────────────────────────────────

// SaveGrant persists a grant; a duplicate pair changes nothing and reports
// created=false.
func (r *TitleRepository) SaveGrant(ctx context.Context, g *title.Grant) (bool, error) {
	var userID, membershipID sql.NullString
	if g.UserID != "" {
		userID = sql.NullString{String: g.UserID, Valid: true}
	}
	if g.MembershipID != "" {
		membershipID = sql.NullString{String: g.MembershipID, Valid: true}
	}

	query := `
		INSERT INTO title_grants (title_id, user_id, membership_id, granted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`

	tag, err := r.conn.Exec(ctx, query, g.TitleID, userID, membershipID, g.GrantedAt)
	if err != nil {
		return false, fmt.Errorf("failed to save grant: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// HasGlobalGrant reports whether a user already holds a global title.
func (r *TitleRepository) HasGlobalGrant(ctx context.Context, titleID, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM title_grants WHERE title_id = $1 AND user_id = $2)`

	var exists bool
	if err := r.conn.QueryRow(ctx, query, titleID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check global grant: %w", err)
	}
	return exists, nil
}

// HasRoomGrant reports whether a membership already holds a room title.
func (r *TitleRepository) HasRoomGrant(ctx context.Context, titleID, membershipID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM title_grants WHERE title_id = $1 AND membership_id = $2)`

	var exists bool
	if err := r.conn.QueryRow(ctx, query, titleID, membershipID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check room grant: %w", err)
	}
	return exists, nil
}

// ListGrantsForUser returns all global grants of a user.
func (r *TitleRepository) ListGrantsForUser(ctx context.Context, userID string) ([]*title.Grant, error) {
	query := `
		SELECT title_id, user_id, membership_id, granted_at
		FROM title_grants
		WHERE user_id = $1
		ORDER BY granted_at ASC
	`

	return r.listGrants(ctx, query, userID)
}

// ListGrantsForMembership returns all room-scoped grants of a membership.
func (r *TitleRepository) ListGrantsForMembership(ctx context.Context, membershipID string) ([]*title.Grant, error) {
	query := `
		SELECT title_id, user_id, membership_id, granted_at
		FROM title_grants
		WHERE membership_id = $1
		ORDER BY granted_at ASC
	`

	return r.listGrants(ctx, query, membershipID)
}

func (r *TitleRepository) listGrants(ctx context.Context, query string, args ...interface{}) ([]*title.Grant, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	var grants []*title.Grant
	for rows.Next() {
		var g title.Grant
		var userID, membershipID sql.NullString

		if err := rows.Scan(&g.TitleID, &userID, &membershipID, &g.GrantedAt); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}

		g.UserID = userID.String
		g.MembershipID = membershipID.String
		grants = append(grants, &g)
	}

	return grants, rows.Err()
}

// CountGrantsInRoom returns how many memberships of a room hold a title.
func (r *TitleRepository) CountGrantsInRoom(ctx context.Context, titleID, roomID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM title_grants g
		JOIN memberships m ON m.id = g.membership_id
		WHERE g.title_id = $1 AND m.room_id = $2
	`

	var count int
	if err := r.conn.QueryRow(ctx, query, titleID, roomID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count room grants: %w", err)
	}
	return count, nil
}
