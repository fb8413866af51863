package title

import "context"

// Repository defines persistence for title definitions and grants.
//
// Grant rows are owned exclusively by the award engine. Saving a duplicate
// grant must be a silent no-op at the storage level (unique key + do-nothing)
// so the retroactive sweep stays idempotent under re-runs.
type Repository interface {
	// Create persists a new title definition.
	Create(ctx context.Context, t *Title) error

	// GetByID returns a title by ID.
	GetByID(ctx context.Context, id string) (*Title, error)

	// Delete removes a title definition. Existing grants survive.
	Delete(ctx context.Context, id string) error

	// ListGlobal returns every global title.
	ListGlobal(ctx context.Context) ([]*Title, error)

	// ListForRoom returns every room-scoped title of a room.
	ListForRoom(ctx context.Context, roomID string) ([]*Title, error)

	// SaveGrant persists a grant; inserting an existing (title, user) or
	// (title, membership) pair changes nothing and reports created=false.
	SaveGrant(ctx context.Context, g *Grant) (created bool, err error)

	// HasGlobalGrant reports whether a user already holds a global title.
	HasGlobalGrant(ctx context.Context, titleID, userID string) (bool, error)

	// HasRoomGrant reports whether a membership already holds a room title.
	HasRoomGrant(ctx context.Context, titleID, membershipID string) (bool, error)

	// ListGrantsForUser returns all global grants of a user.
	ListGrantsForUser(ctx context.Context, userID string) ([]*Grant, error)

	// ListGrantsForMembership returns all room-scoped grants of a membership.
	ListGrantsForMembership(ctx context.Context, membershipID string) ([]*Grant, error)

	// CountGrantsInRoom returns how many memberships of a room hold a title.
	CountGrantsInRoom(ctx context.Context, titleID, roomID string) (int, error)
}
