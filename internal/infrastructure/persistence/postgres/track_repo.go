package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trailroom/trailroom-hub/internal/domain/track"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRACK REPOSITORY IMPLEMENTATION
// Tracks, modules and content items. List queries return display order
// (order_index, then created_at) so callers never re-sort.
// ══════════════════════════════════════════════════════════════════════════════

// TrackRepository implements track.Repository for PostgreSQL.
type TrackRepository struct {
	conn *Connection
}

// NewTrackRepository creates a new TrackRepository.
func NewTrackRepository(conn *Connection) *TrackRepository {
	return &TrackRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Tracks
// ─────────────────────────────────────────────────────────────────────────────

// CreateTrack persists a new track.
func (r *TrackRepository) CreateTrack(ctx context.Context, t *track.Track) error {
	query := `
		INSERT INTO tracks (
			id, room_id, name, description, order_index,
			points_required, prerequisite_id, creator_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var prereq sql.NullString
	if t.PrerequisiteID != "" {
		prereq = sql.NullString{String: t.PrerequisiteID, Valid: true}
	}

	_, err := r.conn.Exec(ctx, query,
		t.ID,
		t.RoomID,
		t.Name,
		t.Description,
		t.OrderIndex,
		t.PointsRequired,
		prereq,
		t.CreatorID,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return track.ErrTrackNotFound
		}
		return fmt.Errorf("failed to create track: %w", err)
	}

	return nil
}

// GetTrack returns a track by ID.
func (r *TrackRepository) GetTrack(ctx context.Context, id string) (*track.Track, error) {
	query := `
		SELECT id, room_id, name, description, order_index,
			   points_required, prerequisite_id, creator_id, created_at, updated_at
		FROM tracks
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanTrack(row)
}

// ListTracks returns the tracks of a room in display order.
func (r *TrackRepository) ListTracks(ctx context.Context, roomID string) ([]*track.Track, error) {
	query := `
		SELECT id, room_id, name, description, order_index,
			   points_required, prerequisite_id, creator_id, created_at, updated_at
		FROM tracks
		WHERE room_id = $1
		ORDER BY order_index ASC, created_at ASC
	`

	rows, err := r.conn.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*track.Track
	for rows.Next() {
		t, err := r.scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}

	return tracks, rows.Err()
}

// CountRoomTracks returns the number of tracks in a room.
func (r *TrackRepository) CountRoomTracks(ctx context.Context, roomID string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM tracks WHERE room_id = $1`, roomID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return count, nil
}

func (r *TrackRepository) scanTrack(row pgx.Row) (*track.Track, error) {
	var t track.Track
	var prereq sql.NullString

	err := row.Scan(
		&t.ID,
		&t.RoomID,
		&t.Name,
		&t.Description,
		&t.OrderIndex,
		&t.PointsRequired,
		&prereq,
		&t.CreatorID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, track.ErrTrackNotFound
		}
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	t.PrerequisiteID = prereq.String
	return &t, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Modules
// ─────────────────────────────────────────────────────────────────────────────

// CreateModule persists a new module.
func (r *TrackRepository) CreateModule(ctx context.Context, m *track.Module) error {
	query := `
		INSERT INTO modules (id, track_id, title, description, order_index, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.conn.Exec(ctx, query,
		m.ID,
		m.TrackID,
		m.Title,
		m.Description,
		m.OrderIndex,
		m.CreatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return track.ErrTrackNotFound
		}
		return fmt.Errorf("failed to create module: %w", err)
	}

	return nil
}

// GetModule returns a module by ID.
func (r *TrackRepository) GetModule(ctx context.Context, id string) (*track.Module, error) {
	query := `
		SELECT id, track_id, title, description, order_index, created_at
		FROM modules
		WHERE id = $1
	`

	var m track.Module
	err := r.conn.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.TrackID, &m.Title, &m.Description, &m.OrderIndex, &m.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, track.ErrModuleNotFound
		}
		return nil, fmt.Errorf("failed to get module: %w", err)
	}

	return &m, nil
}

// ListModules returns the modules of a track in display order.
func (r *TrackRepository) ListModules(ctx context.Context, trackID string) ([]*track.Module, error) {
	query := `
		SELECT id, track_id, title, description, order_index, created_at
		FROM modules
		WHERE track_id = $1
		ORDER BY order_index ASC, created_at ASC
	`

	rows, err := r.conn.Query(ctx, query, trackID)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer rows.Close()

	var modules []*track.Module
	for rows.Next() {
		var m track.Module
		if err := rows.Scan(
			&m.ID, &m.TrackID, &m.Title, &m.Description, &m.OrderIndex, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		modules = append(modules, &m)
	}

	return modules, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Content items
// ─────────────────────────────────────────────────────────────────────────────

// CreateContent persists a new content item.
func (r *TrackRepository) CreateContent(ctx context.Context, c *track.ContentItem) error {
	query := `
		INSERT INTO contents (
			id, module_id, title, content_type, body,
			estimated_minutes, order_index, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.conn.Exec(ctx, query,
		c.ID,
		c.ModuleID,
		c.Title,
		string(c.Type),
		c.Body,
		c.EstimatedMinutes,
		c.OrderIndex,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return track.ErrModuleNotFound
		}
		return fmt.Errorf("failed to create content: %w", err)
	}

	return nil
}

// GetContent returns a content item by ID.
func (r *TrackRepository) GetContent(ctx context.Context, id string) (*track.ContentItem, error) {
	query := `
		SELECT id, module_id, title, content_type, body,
			   estimated_minutes, order_index, created_at, updated_at
		FROM contents
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanContent(row)
}

// ListContents returns the content items of a module in display order.
func (r *TrackRepository) ListContents(ctx context.Context, moduleID string) ([]*track.ContentItem, error) {
	query := `
		SELECT id, module_id, title, content_type, body,
			   estimated_minutes, order_index, created_at, updated_at
		FROM contents
		WHERE module_id = $1
		ORDER BY order_index ASC, created_at ASC
	`

	rows, err := r.conn.Query(ctx, query, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contents: %w", err)
	}
	defer rows.Close()

	var contents []*track.ContentItem
	for rows.Next() {
		c, err := r.scanContent(rows)
		if err != nil {
			return nil, err
		}
		contents = append(contents, c)
	}

	return contents, rows.Err()
}

// CountTrackContents returns the content item count across a track's modules.
func (r *TrackRepository) CountTrackContents(ctx context.Context, trackID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM contents c
		JOIN modules m ON m.id = c.module_id
		WHERE m.track_id = $1
	`

	var count int
	if err := r.conn.QueryRow(ctx, query, trackID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count track contents: %w", err)
	}
	return count, nil
}

func (r *TrackRepository) scanContent(row pgx.Row) (*track.ContentItem, error) {
	var c track.ContentItem
	var contentType string

	err := row.Scan(
		&c.ID,
		&c.ModuleID,
		&c.Title,
		&contentType,
		&c.Body,
		&c.EstimatedMinutes,
		&c.OrderIndex,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, track.ErrContentNotFound
		}
		return nil, fmt.Errorf("failed to scan content: %w", err)
	}

	c.Type = track.ContentType(contentType)
	return &c, nil
}
