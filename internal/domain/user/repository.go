package user

import "context"

// Repository defines persistence for users and the cached point total.
type Repository interface {
	// Create persists a new user.
	Create(ctx context.Context, u *User) error

	// GetByID returns a user by ID.
	GetByID(ctx context.Context, id string) (*User, error)

	// ListIDs returns every user ID; the retroactive title sweep walks this.
	ListIDs(ctx context.Context) ([]string, error)

	// ApplyPointsDelta atomically adjusts the cached total of a user by a
	// signed delta. All writers go through the score ledger.
	ApplyPointsDelta(ctx context.Context, userID string, delta int) error

	// SetTotalPoints overwrites the cached total; used only by the
	// recompute-from-grades repair path.
	SetTotalPoints(ctx context.Context, userID string, total int) error
}
