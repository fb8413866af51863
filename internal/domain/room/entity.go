// Package room contains the collaboration-space domain model: rooms joined by
// code, and role-scoped memberships. The core engine never mutates the
// structural shape of a room; it reads memberships to scope points and titles.
package room

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/trailroom/trailroom-hub/internal/domain/shared"
)

// Role defines what a member may do inside a room. The role is fixed for the
// lifetime of the membership.
type Role string

const (
	// RoleTeacher may publish tracks and missions and grade submissions.
	RoleTeacher Role = "teacher"
	// RoleStudent consumes content and submits missions.
	RoleStudent Role = "student"
	// RoleNone means the user is not a member of the room.
	RoleNone Role = "none"
)

// IsValid checks that the role is one a membership may carry.
func (r Role) IsValid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// CanGrade returns true if the role is allowed to grade missions.
func (r Role) CanGrade() bool {
	return r == RoleTeacher
}

// JoinCode is the unique, immutable code used to enter a room.
type JoinCode string

const (
	joinCodeLength   = 8
	joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewJoinCode generates a random 8-character uppercase alphanumeric code.
func NewJoinCode() (JoinCode, error) {
	buf := make([]byte, joinCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", shared.WrapError("room", "NewJoinCode", shared.ErrInvalidState, "entropy source failed", err)
	}
	var b strings.Builder
	b.Grow(joinCodeLength)
	for _, c := range buf {
		b.WriteByte(joinCodeAlphabet[int(c)%len(joinCodeAlphabet)])
	}
	return JoinCode(b.String()), nil
}

// IsValid checks the code shape.
func (c JoinCode) IsValid() bool {
	if len(c) != joinCodeLength {
		return false
	}
	for _, r := range c {
		if !strings.ContainsRune(joinCodeAlphabet, r) {
			return false
		}
	}
	return true
}

// String returns the code as a plain string.
func (c JoinCode) String() string { return string(c) }

// Room is a virtual classroom/workspace joined via a unique code.
type Room struct {
	ID          string
	Name        string
	Description string
	CreatorID   string
	Code        JoinCode
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Domain errors.
var (
	ErrRoomNotFound       = shared.NewDomainError("room", "Find", shared.ErrNotFound, "room not found")
	ErrRoomAlreadyExists  = shared.NewDomainError("room", "Create", shared.ErrAlreadyExists, "room already exists")
	ErrInvalidRoomName    = shared.NewDomainError("room", "Validate", shared.ErrInvalidInput, "room name must be 1-150 chars")
	ErrInvalidJoinCode    = shared.NewDomainError("room", "Validate", shared.ErrInvalidInput, "invalid join code")
	ErrMembershipNotFound = shared.NewDomainError("room", "FindMembership", shared.ErrNotFound, "membership not found")
	ErrMembershipExists   = shared.NewDomainError("room", "Join", shared.ErrAlreadyExists, "user is already a member of this room")
	ErrInvalidRole        = shared.NewDomainError("room", "Validate", shared.ErrInvalidInput, "role must be teacher or student")
)

// NewRoom creates a room with a freshly generated join code.
func NewRoom(id, name, description, creatorID string) (*Room, error) {
	if id == "" {
		return nil, shared.NewDomainError("room", "Create", shared.ErrInvalidID, "room id is required")
	}
	name = strings.TrimSpace(name)
	if len(name) == 0 || len(name) > 150 {
		return nil, ErrInvalidRoomName
	}
	if creatorID == "" {
		return nil, shared.NewDomainError("room", "Create", shared.ErrInvalidID, "creator id is required")
	}

	code, err := NewJoinCode()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Room{
		ID:          id,
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatorID:   creatorID,
		Code:        code,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Membership ties one user to one room with a fixed role. Room-scoped title
// grants hang off the membership, not the user.
type Membership struct {
	ID       string
	UserID   string
	RoomID   string
	Role     Role
	JoinedAt time.Time
}

// NewMembership creates a membership after validating the role.
func NewMembership(id, userID, roomID string, role Role) (*Membership, error) {
	if id == "" || userID == "" || roomID == "" {
		return nil, shared.NewDomainError("room", "Join", shared.ErrInvalidID, "membership, user and room ids are required")
	}
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	return &Membership{
		ID:       id,
		UserID:   userID,
		RoomID:   roomID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}, nil
}

// IsTeacher returns true for teacher memberships.
func (m *Membership) IsTeacher() bool { return m.Role == RoleTeacher }

// IsStudent returns true for student memberships.
func (m *Membership) IsStudent() bool { return m.Role == RoleStudent }
