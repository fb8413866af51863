// Package user contains the minimal user aggregate the engine needs: identity
// reference plus the materialized global point total. Authentication and
// profile data live with the external identity provider.
package user

import (
	"time"

	"github.com/trailroom/trailroom-hub/internal/domain/shared"
)

// Domain errors.
var (
	ErrUserNotFound = shared.NewDomainError("user", "Find", shared.ErrNotFound, "user not found")
)

// User carries the cached global point total. The invariant: TotalPoints
// equals the sum of currently stored points_awarded across all of the user's
// grades. Only the score ledger writes it, always by delta, and it can be
// rebuilt from grade rows when it drifts.
type User struct {
	ID          string
	DisplayName string

	// TotalPoints is a materialized aggregate over grade rows, not a
	// free-running counter.
	TotalPoints int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser creates a user record with zero points.
func NewUser(id, displayName string) (*User, error) {
	if id == "" {
		return nil, shared.NewDomainError("user", "Create", shared.ErrInvalidID, "user id is required")
	}
	now := time.Now().UTC()
	return &User{
		ID:          id,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ApplyPointsDelta adjusts the cached total by a signed delta. The total may
// not go negative; a delta that would push it below zero signals that the
// cache has drifted from the grade rows.
func (u *User) ApplyPointsDelta(delta int) error {
	next := u.TotalPoints + delta
	if next < 0 {
		return shared.NewDomainError("user", "ApplyPointsDelta", shared.ErrConsistency, "point total would go negative")
	}
	u.TotalPoints = next
	u.UpdatedAt = time.Now().UTC()
	return nil
}
