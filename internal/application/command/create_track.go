package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/trailroom/trailroom-hub/internal/application/authz"
	"github.com/trailroom/trailroom-hub/internal/domain/shared"
	"github.com/trailroom/trailroom-hub/internal/domain/track"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE TRACK / ADD MODULE / ADD CONTENT COMMANDS
// Structural writes. Track creation owns the prerequisite cycle validation:
// the chain is checked against every other track of the room before the row
// exists, so traversal never has to defend against loops.
// ══════════════════════════════════════════════════════════════════════════════

// CreateTrackCommand contains the data to create a track.
type CreateTrackCommand struct {
	RoomID      string
	Name        string
	Description string
	CreatorID   string

	// PointsRequired gates access on the creator-chosen point threshold;
	// zero disables the gate.
	PointsRequired int

	// PrerequisiteID optionally names the track that must be completed
	// first. Must belong to the same room and keep the chain acyclic.
	PrerequisiteID string
}

// Validate validates the command.
func (c CreateTrackCommand) Validate() error {
	if c.RoomID == "" {
		return errors.New("create_track: room_id is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("create_track: name is required")
	}
	if c.CreatorID == "" {
		return errors.New("create_track: creator_id is required")
	}
	if c.PointsRequired < 0 {
		return errors.New("create_track: points_required cannot be negative")
	}
	return nil
}

// CreateTrackHandler handles the CreateTrackCommand.
type CreateTrackHandler struct {
	trackRepo track.Repository
	policy    *authz.Policy
	tx        shared.TxManager
}

// NewCreateTrackHandler creates a new CreateTrackHandler.
func NewCreateTrackHandler(trackRepo track.Repository, policy *authz.Policy, tx shared.TxManager) *CreateTrackHandler {
	return &CreateTrackHandler{trackRepo: trackRepo, policy: policy, tx: tx}
}

// Handle executes the create track command. The display order index is the
// count of tracks already in the room, assigned inside the transaction so
// concurrent creations do not collide on it.
func (h *CreateTrackHandler) Handle(ctx context.Context, cmd CreateTrackCommand) (*track.Track, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("track", "Create", shared.ErrValidation, "invalid command", err)
	}

	if err := h.policy.RequireTeacher(ctx, cmd.CreatorID, cmd.RoomID); err != nil {
		return nil, err
	}

	var created *track.Track
	err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := h.trackRepo.ListTracks(ctx, cmd.RoomID)
		if err != nil {
			return fmt.Errorf("create_track: list tracks: %w", err)
		}
		byID := make(map[string]*track.Track, len(existing))
		for _, t := range existing {
			byID[t.ID] = t
		}

		id := uuid.NewString()
		if err := track.ValidatePrerequisite(id, cmd.PrerequisiteID, cmd.RoomID, byID); err != nil {
			return err
		}

		orderIndex, err := h.trackRepo.CountRoomTracks(ctx, cmd.RoomID)
		if err != nil {
			return fmt.Errorf("create_track: count tracks: %w", err)
		}

		t, err := track.NewTrack(id, cmd.RoomID, cmd.Name, cmd.Description,
			orderIndex, cmd.PointsRequired, cmd.PrerequisiteID, cmd.CreatorID)
		if err != nil {
			return err
		}
		if err := h.trackRepo.CreateTrack(ctx, t); err != nil {
			return fmt.Errorf("create_track: persist: %w", err)
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AddModuleCommand contains the data to add a module to a track.
type AddModuleCommand struct {
	TrackID     string
	Title       string
	Description string
	OrderIndex  int
	CreatorID   string
}

// Validate validates the command.
func (c AddModuleCommand) Validate() error {
	if c.TrackID == "" {
		return errors.New("add_module: track_id is required")
	}
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("add_module: title is required")
	}
	if c.CreatorID == "" {
		return errors.New("add_module: creator_id is required")
	}
	return nil
}

// AddModuleHandler handles the AddModuleCommand.
type AddModuleHandler struct {
	trackRepo track.Repository
	policy    *authz.Policy
}

// NewAddModuleHandler creates a new AddModuleHandler.
func NewAddModuleHandler(trackRepo track.Repository, policy *authz.Policy) *AddModuleHandler {
	return &AddModuleHandler{trackRepo: trackRepo, policy: policy}
}

// Handle executes the add module command.
func (h *AddModuleHandler) Handle(ctx context.Context, cmd AddModuleCommand) (*track.Module, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("track", "AddModule", shared.ErrValidation, "invalid command", err)
	}

	t, err := h.trackRepo.GetTrack(ctx, cmd.TrackID)
	if err != nil {
		return nil, fmt.Errorf("add_module: load track: %w", err)
	}
	if err := h.policy.RequireTeacher(ctx, cmd.CreatorID, t.RoomID); err != nil {
		return nil, err
	}

	m, err := track.NewModule(uuid.NewString(), cmd.TrackID, cmd.Title, cmd.Description, cmd.OrderIndex)
	if err != nil {
		return nil, err
	}
	if err := h.trackRepo.CreateModule(ctx, m); err != nil {
		return nil, fmt.Errorf("add_module: persist: %w", err)
	}
	return m, nil
}

// AddContentCommand contains the data to add a content item to a module.
type AddContentCommand struct {
	ModuleID         string
	Title            string
	Type             track.ContentType
	OrderIndex       int
	Body             string
	EstimatedMinutes int
	CreatorID        string
}

// Validate validates the command.
func (c AddContentCommand) Validate() error {
	if c.ModuleID == "" {
		return errors.New("add_content: module_id is required")
	}
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("add_content: title is required")
	}
	if !c.Type.IsValid() {
		return errors.New("add_content: type must be text, video, file or link")
	}
	if c.CreatorID == "" {
		return errors.New("add_content: creator_id is required")
	}
	return nil
}

// AddContentHandler handles the AddContentCommand.
type AddContentHandler struct {
	trackRepo track.Repository
	policy    *authz.Policy
}

// NewAddContentHandler creates a new AddContentHandler.
func NewAddContentHandler(trackRepo track.Repository, policy *authz.Policy) *AddContentHandler {
	return &AddContentHandler{trackRepo: trackRepo, policy: policy}
}

// Handle executes the add content command.
func (h *AddContentHandler) Handle(ctx context.Context, cmd AddContentCommand) (*track.ContentItem, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("track", "AddContent", shared.ErrValidation, "invalid command", err)
	}

	m, err := h.trackRepo.GetModule(ctx, cmd.ModuleID)
	if err != nil {
		return nil, fmt.Errorf("add_content: load module: %w", err)
	}
	t, err := h.trackRepo.GetTrack(ctx, m.TrackID)
	if err != nil {
		return nil, fmt.Errorf("add_content: load track: %w", err)
	}
	if err := h.policy.RequireTeacher(ctx, cmd.CreatorID, t.RoomID); err != nil {
		return nil, err
	}

	item, err := track.NewContentItem(uuid.NewString(), cmd.ModuleID, cmd.Title,
		cmd.Type, cmd.OrderIndex, cmd.Body, cmd.EstimatedMinutes)
	if err != nil {
		return nil, err
	}
	if err := h.trackRepo.CreateContent(ctx, item); err != nil {
		return nil, fmt.Errorf("add_content: persist: %w", err)
	}
	return item, nil
}
