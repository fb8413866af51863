package room

import "context"

// Repository defines persistence operations for rooms and memberships.
type Repository interface {
	// Create persists a new room. Fails with ErrRoomAlreadyExists when the
	// join code collides (join codes are unique).
	Create(ctx context.Context, r *Room) error

	// GetByID returns a room by ID.
	GetByID(ctx context.Context, id string) (*Room, error)

	// GetByCode returns a room by its join code.
	GetByCode(ctx context.Context, code JoinCode) (*Room, error)

	// AddMembership persists a membership. Fails with ErrMembershipExists
	// when the (user, room) pair already has one.
	AddMembership(ctx context.Context, m *Membership) error

	// GetMembership returns the membership for a (user, room) pair.
	GetMembership(ctx context.Context, userID, roomID string) (*Membership, error)

	// GetMembershipByID returns a membership by its own ID.
	GetMembershipByID(ctx context.Context, id string) (*Membership, error)

	// ListStudentMemberships returns all student memberships of a room,
	// ordered by join time ascending.
	ListStudentMemberships(ctx context.Context, roomID string) ([]*Membership, error)

	// RoleOf returns the role a user holds in a room, RoleNone if not a member.
	RoleOf(ctx context.Context, userID, roomID string) (Role, error)
}
