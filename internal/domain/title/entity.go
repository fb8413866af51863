// Package title contains achievement definitions and grants. Titles are
// immutable once created; grants are created only by the award engine and
// never revoked, even if a later re-grade drops the user below a threshold.
package title

import (
	"strings"
	"time"

	"github.com/trailroom/trailroom-hub/internal/domain/shared"
)

// Scope determines whether a title is evaluated against global totals or a
// single room's totals.
type Scope string

const (
	// ScopeGlobal titles are granted to users against their global points
	// and global completed-mission count.
	ScopeGlobal Scope = "global"
	// ScopeRoom titles are granted to memberships against room-scoped sums.
	ScopeRoom Scope = "room"
)

// IsValid checks the scope value.
func (s Scope) IsValid() bool {
	return s == ScopeGlobal || s == ScopeRoom
}

// Domain errors.
var (
	ErrTitleNotFound    = shared.NewDomainError("title", "Find", shared.ErrNotFound, "title not found")
	ErrInvalidTitleName = shared.NewDomainError("title", "Validate", shared.ErrInvalidInput, "title name must be 1-100 chars")
	ErrInvalidScope     = shared.NewDomainError("title", "Validate", shared.ErrInvalidInput, "title scope must be global or room")
	ErrNegativeMinimum  = shared.NewDomainError("title", "Validate", shared.ErrValueOutOfRange, "title thresholds must be non-negative")
	ErrRoomRequired     = shared.NewDomainError("title", "Validate", shared.ErrInvalidInput, "room-scoped title requires a room")
	ErrGrantExists      = shared.NewDomainError("title", "Grant", shared.ErrAlreadyExists, "title already granted")
)

// Title is an achievement definition. Both thresholds must be met (logical
// AND); a threshold of zero is always satisfied on that dimension.
type Title struct {
	ID          string
	Name        string
	Description string
	Scope       Scope

	// RoomID is set for room-scoped titles, empty for global ones.
	RoomID string

	// MinPoints is the minimum point total (global or room-scoped per Scope).
	MinPoints int

	// MinCompletedMissions is the minimum number of completed missions
	// (grades with points_awarded > 0).
	MinCompletedMissions int

	CreatorID string
	CreatedAt time.Time
}

// NewTitle validates and builds a title definition.
func NewTitle(id, name, description string, scope Scope, roomID string, minPoints, minCompletedMissions int, creatorID string) (*Title, error) {
	if id == "" {
		return nil, shared.NewDomainError("title", "Create", shared.ErrInvalidID, "title id is required")
	}
	name = strings.TrimSpace(name)
	if len(name) == 0 || len(name) > 100 {
		return nil, ErrInvalidTitleName
	}
	if !scope.IsValid() {
		return nil, ErrInvalidScope
	}
	if scope == ScopeRoom && roomID == "" {
		return nil, ErrRoomRequired
	}
	if scope == ScopeGlobal {
		roomID = ""
	}
	if minPoints < 0 || minCompletedMissions < 0 {
		return nil, ErrNegativeMinimum
	}
	return &Title{
		ID:                   id,
		Name:                 name,
		Description:          strings.TrimSpace(description),
		Scope:                scope,
		RoomID:               roomID,
		MinPoints:            minPoints,
		MinCompletedMissions: minCompletedMissions,
		CreatorID:            creatorID,
		CreatedAt:            time.Now().UTC(),
	}, nil
}

// QualifiedBy reports whether the given totals cross both thresholds.
func (t *Title) QualifiedBy(points, completedMissions int) bool {
	return points >= t.MinPoints && completedMissions >= t.MinCompletedMissions
}

// Grant records that a user (global scope) or a membership (room scope)
// earned a title. One-directional: there is no revocation path.
type Grant struct {
	TitleID string

	// UserID is set for global grants.
	UserID string

	// MembershipID is set for room-scoped grants.
	MembershipID string

	GrantedAt time.Time
}

// NewGlobalGrant creates a grant tying a title to a user.
func NewGlobalGrant(titleID, userID string) (*Grant, error) {
	if titleID == "" || userID == "" {
		return nil, shared.NewDomainError("title", "Grant", shared.ErrInvalidID, "title and user ids are required")
	}
	return &Grant{
		TitleID:   titleID,
		UserID:    userID,
		GrantedAt: time.Now().UTC(),
	}, nil
}

// NewRoomGrant creates a grant tying a title to a membership.
func NewRoomGrant(titleID, membershipID string) (*Grant, error) {
	if titleID == "" || membershipID == "" {
		return nil, shared.NewDomainError("title", "Grant", shared.ErrInvalidID, "title and membership ids are required")
	}
	return &Grant{
		TitleID:      titleID,
		MembershipID: membershipID,
		GrantedAt:    time.Now().UTC(),
	}, nil
}
