// Package authz consolidates the role checks every command runs before
// touching state. All authorization in the engine reduces to the (user, room)
// membership role, so the checks live in one place instead of being scattered
// through the handlers.
package authz

import (
	"context"
	"fmt"

	"github.com/trailroom/trailroom-hub/internal/domain/room"
	"github.com/trailroom/trailroom-hub/internal/domain/shared"
)

// Policy answers role questions for a (user, room) pair.
type Policy struct {
	roomRepo room.Repository
}

// NewPolicy creates a new Policy.
func NewPolicy(roomRepo room.Repository) *Policy {
	return &Policy{roomRepo: roomRepo}
}

// RoleOf returns the role a user holds in a room, RoleNone for non-members.
func (p *Policy) RoleOf(ctx context.Context, userID, roomID string) (room.Role, error) {
	role, err := p.roomRepo.RoleOf(ctx, userID, roomID)
	if err != nil {
		return room.RoleNone, fmt.Errorf("authz: resolve role: %w", err)
	}
	return role, nil
}

// RequireMember fails with ErrForbidden unless the user belongs to the room.
func (p *Policy) RequireMember(ctx context.Context, userID, roomID string) (room.Role, error) {
	role, err := p.RoleOf(ctx, userID, roomID)
	if err != nil {
		return room.RoleNone, err
	}
	if role == room.RoleNone {
		return room.RoleNone, shared.NewDomainError("authz", "RequireMember", shared.ErrForbidden, "user is not a member of the room")
	}
	return role, nil
}

// RequireTeacher fails with ErrForbidden unless the user holds the teacher
// role in the room.
func (p *Policy) RequireTeacher(ctx context.Context, userID, roomID string) error {
	role, err := p.RoleOf(ctx, userID, roomID)
	if err != nil {
		return err
	}
	if !role.CanGrade() {
		return shared.NewDomainError("authz", "RequireTeacher", shared.ErrForbidden, "operation requires the teacher role")
	}
	return nil
}

// RequireStudent fails with ErrForbidden unless the user holds the student
// role in the room.
func (p *Policy) RequireStudent(ctx context.Context, userID, roomID string) (*room.Membership, error) {
	m, err := p.roomRepo.GetMembership(ctx, userID, roomID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewDomainError("authz", "RequireStudent", shared.ErrForbidden, "user is not a member of the room")
		}
		return nil, fmt.Errorf("authz: load membership: %w", err)
	}
	if !m.IsStudent() {
		return nil, shared.NewDomainError("authz", "RequireStudent", shared.ErrForbidden, "operation requires the student role")
	}
	return m, nil
}
