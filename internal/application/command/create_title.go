package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/trailroom/trailroom-hub/internal/application/authz"
	"github.com/trailroom/trailroom-hub/internal/application/saga"
	"github.com/trailroom/trailroom-hub/internal/domain/shared"
	"github.com/trailroom/trailroom-hub/internal/domain/title"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE TITLE COMMAND
// Creating a title immediately runs the retroactive sweep so users who
// already cross the thresholds get the grant without waiting for their next
// grade.
// ══════════════════════════════════════════════════════════════════════════════

// CreateTitleCommand contains the data to define a title.
type CreateTitleCommand struct {
	Name        string
	Description string
	Scope       title.Scope

	// RoomID is required for room scope, ignored for global scope.
	RoomID string

	MinPoints            int
	MinCompletedMissions int

	CreatorID string
}

// Validate validates the command.
func (c CreateTitleCommand) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("create_title: name is required")
	}
	if !c.Scope.IsValid() {
		return errors.New("create_title: scope must be global or room")
	}
	if c.Scope == title.ScopeRoom && c.RoomID == "" {
		return errors.New("create_title: room_id is required for room scope")
	}
	if c.MinPoints < 0 || c.MinCompletedMissions < 0 {
		return errors.New("create_title: thresholds cannot be negative")
	}
	if c.CreatorID == "" {
		return errors.New("create_title: creator_id is required")
	}
	return nil
}

// CreateTitleResult contains the created title and the sweep outcome.
type CreateTitleResult struct {
	Title *title.Title

	// RetroactiveGrants is the number of grants written by the sweep.
	RetroactiveGrants int
}

// CreateTitleHandler handles the CreateTitleCommand.
type CreateTitleHandler struct {
	titleRepo title.Repository
	policy    *authz.Policy
	award     *saga.TitleAwardFlow
	eventBus  shared.EventPublisher
}

// NewCreateTitleHandler creates a new CreateTitleHandler.
func NewCreateTitleHandler(
	titleRepo title.Repository,
	policy *authz.Policy,
	award *saga.TitleAwardFlow,
	eventBus shared.EventPublisher,
) *CreateTitleHandler {
	return &CreateTitleHandler{
		titleRepo: titleRepo,
		policy:    policy,
		award:     award,
		eventBus:  eventBus,
	}
}

// Handle executes the create title command. Room-scoped titles require the
// creator to hold the teacher role in that room.
func (h *CreateTitleHandler) Handle(ctx context.Context, cmd CreateTitleCommand) (*CreateTitleResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("title", "Create", shared.ErrValidation, "invalid command", err)
	}

	if cmd.Scope == title.ScopeRoom {
		if err := h.policy.RequireTeacher(ctx, cmd.CreatorID, cmd.RoomID); err != nil {
			return nil, err
		}
	}

	t, err := title.NewTitle(uuid.NewString(), cmd.Name, cmd.Description, cmd.Scope,
		cmd.RoomID, cmd.MinPoints, cmd.MinCompletedMissions, cmd.CreatorID)
	if err != nil {
		return nil, err
	}
	if err := h.titleRepo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create_title: persist: %w", err)
	}

	if h.eventBus != nil {
		_ = h.eventBus.Publish(shared.NewTitleCreatedEvent(t.ID, string(t.Scope), t.RoomID))
	}

	// The title row is durable at this point. The sweep deliberately runs
	// outside a wrapping transaction: each grant write is atomic and
	// idempotent, so a walk that dies midway leaves no partial grant and
	// is repaired by re-running EvaluateAllForNewTitle.
	sweep, err := h.award.EvaluateAllForNewTitle(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create_title: retroactive sweep: %w", err)
	}

	return &CreateTitleResult{
		Title:             t,
		RetroactiveGrants: len(sweep.Granted),
	}, nil
}
