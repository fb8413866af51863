package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/trailroom/trailroom-hub/internal/domain/room"
	"github.com/trailroom/trailroom-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE ROOM / JOIN ROOM COMMANDS
// A room gets a random join code at creation and its creator becomes the
// first teacher membership. Students enter by code.
// ══════════════════════════════════════════════════════════════════════════════

// CreateRoomCommand contains the data to create a room.
type CreateRoomCommand struct {
	Name        string
	Description string
	CreatorID   string
}

// Validate validates the command.
func (c CreateRoomCommand) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("create_room: name is required")
	}
	if c.CreatorID == "" {
		return errors.New("create_room: creator_id is required")
	}
	return nil
}

// CreateRoomResult contains the created room and the creator's membership.
type CreateRoomResult struct {
	Room       *room.Room
	Membership *room.Membership
}

// CreateRoomHandler handles the CreateRoomCommand.
type CreateRoomHandler struct {
	roomRepo room.Repository
	tx       shared.TxManager

	// joinCodeRetries bounds regeneration attempts on a code collision.
	joinCodeRetries int
}

// NewCreateRoomHandler creates a new CreateRoomHandler.
func NewCreateRoomHandler(roomRepo room.Repository, tx shared.TxManager) *CreateRoomHandler {
	return &CreateRoomHandler{roomRepo: roomRepo, tx: tx, joinCodeRetries: 5}
}

// Handle executes the create room command.
func (h *CreateRoomHandler) Handle(ctx context.Context, cmd CreateRoomCommand) (*CreateRoomResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("room", "Create", shared.ErrValidation, "invalid command", err)
	}

	var result *CreateRoomResult
	err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
		r, err := h.createWithFreshCode(ctx, cmd)
		if err != nil {
			return err
		}

		m, err := room.NewMembership(uuid.NewString(), cmd.CreatorID, r.ID, room.RoleTeacher)
		if err != nil {
			return err
		}
		if err := h.roomRepo.AddMembership(ctx, m); err != nil {
			return fmt.Errorf("create_room: add creator membership: %w", err)
		}

		result = &CreateRoomResult{Room: r, Membership: m}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// createWithFreshCode retries room creation when the random join code
// collides with an existing one. Collisions are rare at 36^8 codes but the
// unique index makes them loud, so the handler absorbs a bounded number.
func (h *CreateRoomHandler) createWithFreshCode(ctx context.Context, cmd CreateRoomCommand) (*room.Room, error) {
	for attempt := 0; attempt < h.joinCodeRetries; attempt++ {
		r, err := room.NewRoom(uuid.NewString(), cmd.Name, cmd.Description, cmd.CreatorID)
		if err != nil {
			return nil, err
		}
		err = h.roomRepo.Create(ctx, r)
		if err == nil {
			return r, nil
		}
		if !shared.IsAlreadyExists(err) {
			return nil, fmt.Errorf("create_room: persist: %w", err)
		}
	}
	return nil, shared.NewDomainError("room", "Create", shared.ErrAlreadyExists, "could not generate a unique join code")
}

// JoinRoomCommand contains the data to join a room by code.
type JoinRoomCommand struct {
	UserID string
	Code   string

	// Role defaults to student when empty. Teacher self-enrollment by code
	// is allowed so co-teachers can join.
	Role room.Role
}

// Validate validates the command.
func (c JoinRoomCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("join_room: user_id is required")
	}
	if !room.JoinCode(strings.ToUpper(c.Code)).IsValid() {
		return errors.New("join_room: code must be 8 uppercase alphanumeric chars")
	}
	if c.Role != "" && !c.Role.IsValid() {
		return errors.New("join_room: role must be teacher or student")
	}
	return nil
}

// JoinRoomResult contains the room joined and the new membership.
type JoinRoomResult struct {
	Room       *room.Room
	Membership *room.Membership
}

// JoinRoomHandler handles the JoinRoomCommand.
type JoinRoomHandler struct {
	roomRepo room.Repository
}

// NewJoinRoomHandler creates a new JoinRoomHandler.
func NewJoinRoomHandler(roomRepo room.Repository) *JoinRoomHandler {
	return &JoinRoomHandler{roomRepo: roomRepo}
}

// Handle executes the join room command. Joining twice fails with
// ErrMembershipExists; the role of an existing membership never changes.
func (h *JoinRoomHandler) Handle(ctx context.Context, cmd JoinRoomCommand) (*JoinRoomResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("room", "Join", shared.ErrValidation, "invalid command", err)
	}

	code := room.JoinCode(strings.ToUpper(cmd.Code))
	r, err := h.roomRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("join_room: resolve code: %w", err)
	}

	role := cmd.Role
	if role == "" {
		role = room.RoleStudent
	}

	m, err := room.NewMembership(uuid.NewString(), cmd.UserID, r.ID, role)
	if err != nil {
		return nil, err
	}
	if err := h.roomRepo.AddMembership(ctx, m); err != nil {
		return nil, fmt.Errorf("join_room: add membership: %w", err)
	}

	return &JoinRoomResult{Room: r, Membership: m}, nil
}
