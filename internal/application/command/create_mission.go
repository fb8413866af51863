package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/trailroom/trailroom-hub/internal/application/authz"
	"github.com/trailroom/trailroom-hub/internal/domain/mission"
	"github.com/trailroom/trailroom-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE MISSION / SUBMIT MISSION COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// CreateMissionCommand contains the data to post a mission in a room.
type CreateMissionCommand struct {
	RoomID      string
	Title       string
	Description string

	// Points is the maximum awardable score; must be positive.
	Points int

	CreatorID string
}

// Validate validates the command.
func (c CreateMissionCommand) Validate() error {
	if c.RoomID == "" {
		return errors.New("create_mission: room_id is required")
	}
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("create_mission: title is required")
	}
	if c.Points <= 0 {
		return errors.New("create_mission: points must be positive")
	}
	if c.CreatorID == "" {
		return errors.New("create_mission: creator_id is required")
	}
	return nil
}

// CreateMissionHandler handles the CreateMissionCommand.
type CreateMissionHandler struct {
	missionRepo mission.Repository
	policy      *authz.Policy
}

// NewCreateMissionHandler creates a new CreateMissionHandler.
func NewCreateMissionHandler(missionRepo mission.Repository, policy *authz.Policy) *CreateMissionHandler {
	return &CreateMissionHandler{missionRepo: missionRepo, policy: policy}
}

// Handle executes the create mission command.
func (h *CreateMissionHandler) Handle(ctx context.Context, cmd CreateMissionCommand) (*mission.Mission, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("mission", "Create", shared.ErrValidation, "invalid command", err)
	}

	if err := h.policy.RequireTeacher(ctx, cmd.CreatorID, cmd.RoomID); err != nil {
		return nil, err
	}

	m, err := mission.NewMission(uuid.NewString(), cmd.RoomID, cmd.Title, cmd.Description, cmd.Points, cmd.CreatorID)
	if err != nil {
		return nil, err
	}
	if err := h.missionRepo.CreateMission(ctx, m); err != nil {
		return nil, fmt.Errorf("create_mission: persist: %w", err)
	}
	return m, nil
}

// SubmitMissionCommand contains the data for a student hand-in.
type SubmitMissionCommand struct {
	MissionID string
	StudentID string
}

// Validate validates the command.
func (c SubmitMissionCommand) Validate() error {
	if c.MissionID == "" {
		return errors.New("submit_mission: mission_id is required")
	}
	if c.StudentID == "" {
		return errors.New("submit_mission: student_id is required")
	}
	return nil
}

// SubmitMissionResult contains the submission and the mission status after it.
type SubmitMissionResult struct {
	Submission    *mission.Submission
	MissionStatus mission.Status
}

// SubmitMissionHandler handles the SubmitMissionCommand.
type SubmitMissionHandler struct {
	missionRepo mission.Repository
	policy      *authz.Policy
	tx          shared.TxManager
}

// NewSubmitMissionHandler creates a new SubmitMissionHandler.
func NewSubmitMissionHandler(missionRepo mission.Repository, policy *authz.Policy, tx shared.TxManager) *SubmitMissionHandler {
	return &SubmitMissionHandler{missionRepo: missionRepo, policy: policy, tx: tx}
}

// Handle executes the submit mission command. A second submission by the
// same student fails with ErrAlreadySubmitted. The first submission moves the
// mission from pending to submitted.
func (h *SubmitMissionHandler) Handle(ctx context.Context, cmd SubmitMissionCommand) (*SubmitMissionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("mission", "Submit", shared.ErrValidation, "invalid command", err)
	}

	m, err := h.missionRepo.GetMission(ctx, cmd.MissionID)
	if err != nil {
		return nil, fmt.Errorf("submit_mission: load mission: %w", err)
	}
	if _, err := h.policy.RequireStudent(ctx, cmd.StudentID, m.RoomID); err != nil {
		return nil, err
	}

	sub, err := mission.NewSubmission(cmd.MissionID, cmd.StudentID)
	if err != nil {
		return nil, err
	}

	result := &SubmitMissionResult{Submission: sub, MissionStatus: m.Status}
	err = h.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := h.missionRepo.AddSubmission(ctx, sub); err != nil {
			return fmt.Errorf("submit_mission: add submission: %w", err)
		}
		if m.Status == mission.StatusPending {
			if err := m.AdvanceTo(mission.StatusSubmitted); err != nil {
				return err
			}
			if err := h.missionRepo.UpdateMissionStatus(ctx, m.ID, mission.StatusSubmitted); err != nil {
				return fmt.Errorf("submit_mission: update status: %w", err)
			}
		}
		result.MissionStatus = m.Status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
