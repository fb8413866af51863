package postgres

import (
	"context"
	"fmt"

	"github.com/trailroom/trailroom-hub/internal/domain/room"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROOM REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// RoomRepository implements room.Repository for PostgreSQL.
type RoomRepository struct {
	conn *Connection
}

// NewRoomRepository creates a new RoomRepository.
func NewRoomRepository(conn *Connection) *RoomRepository {
	return &RoomRepository{conn: conn}
}

// Create creates a new room.
func (r *RoomRepository) Create(ctx context.Context, rm *room.Room) error {
	query := `
		INSERT INTO rooms (id, name, description, code, creator_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn.Exec(ctx, query,
		rm.ID,
		rm.Name,
		rm.Description,
		string(rm.Code),
		rm.CreatorID,
		rm.CreatedAt,
		rm.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return room.ErrRoomAlreadyExists
		}
		return fmt.Errorf("failed to create room: %w", err)
	}

	return nil
}

// GetByID returns a room by ID.
func (r *RoomRepository) GetByID(ctx context.Context, id string) (*room.Room, error) {
	query := `
		SELECT id, name, description, code, creator_id, created_at, updated_at
		FROM rooms
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanRoom(row)
}

// GetByCode returns a room by its join code.
func (r *RoomRepository) GetByCode(ctx context.Context, code room.JoinCode) (*room.Room, error) {
	query := `
		SELECT id, name, description, code, creator_id, created_at, updated_at
		FROM rooms
		WHERE code = $1
	`

	row := r.conn.QueryRow(ctx, query, string(code))
	return r.scanRoom(row)
}

func (r *RoomRepository) scanRoom(row pgx.Row) (*room.Room, error) {
	var rm room.Room
	var code string

	err := row.Scan(
		&rm.ID,
		&rm.Name,
		&rm.Description,
		&code,
		&rm.CreatorID,
		&rm.CreatedAt,
		&rm.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, room.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to scan room: %w", err)
	}

	rm.Code = room.JoinCode(code)
	return &rm, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Memberships
// ─────────────────────────────────────────────────────────────────────────────

// AddMembership persists a membership.
func (r *RoomRepository) AddMembership(ctx context.Context, m *room.Membership) error {
	query := `
		INSERT INTO memberships (id, user_id, room_id, role, joined_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.conn.Exec(ctx, query,
		m.ID,
		m.UserID,
		m.RoomID,
		string(m.Role),
		m.JoinedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return room.ErrMembershipExists
		}
		return fmt.Errorf("failed to add membership: %w", err)
	}

	return nil
}

// GetMembership returns the membership for a (user, room) pair.
func (r *RoomRepository) GetMembership(ctx context.Context, userID, roomID string) (*room.Membership, error) {
	query := `
		SELECT id, user_id, room_id, role, joined_at
		FROM memberships
		WHERE user_id = $1 AND room_id = $2
	`

	row := r.conn.QueryRow(ctx, query, userID, roomID)
	return r.scanMembership(row)
}

// GetMembershipByID returns a membership by its own ID.
func (r *RoomRepository) GetMembershipByID(ctx context.Context, id string) (*room.Membership, error) {
	query := `
		SELECT id, user_id, room_id, role, joined_at
		FROM memberships
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanMembership(row)
}

// ListStudentMemberships returns all student memberships of a room.
func (r *RoomRepository) ListStudentMemberships(ctx context.Context, roomID string) ([]*room.Membership, error) {
	query := `
		SELECT id, user_id, room_id, role, joined_at
		FROM memberships
		WHERE room_id = $1 AND role = $2
		ORDER BY joined_at ASC
	`

	rows, err := r.conn.Query(ctx, query, roomID, string(room.RoleStudent))
	if err != nil {
		return nil, fmt.Errorf("failed to list student memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*room.Membership
	for rows.Next() {
		m, err := r.scanMembership(rows)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}

	return memberships, rows.Err()
}

// RoleOf returns the role a user holds in a room, RoleNone for non-members.
func (r *RoomRepository) RoleOf(ctx context.Context, userID, roomID string) (room.Role, error) {
	query := `SELECT role FROM memberships WHERE user_id = $1 AND room_id = $2`

	var role string
	err := r.conn.QueryRow(ctx, query, userID, roomID).Scan(&role)
	if err != nil {
		if IsNoRows(err) {
			return room.RoleNone, nil
		}
		return room.RoleNone, fmt.Errorf("failed to query role: %w", err)
	}

	return room.Role(role), nil
}

func (r *RoomRepository) scanMembership(row pgx.Row) (*room.Membership, error) {
	var m room.Membership
	var role string

	err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.RoomID,
		&role,
		&m.JoinedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, room.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to scan membership: %w", err)
	}

	m.Role = room.Role(role)
	return &m, nil
}
