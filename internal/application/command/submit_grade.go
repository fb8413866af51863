// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trailroom/trailroom-hub/internal/application/authz"
	"github.com/trailroom/trailroom-hub/internal/domain/mission"
	"github.com/trailroom/trailroom-hub/internal/domain/shared"
	"github.com/trailroom/trailroom-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT GRADE COMMAND
// The single write path for grade rows and the cached user point total.
// First grade inserts and adds the full score; a re-grade revises the same
// (mission, student) row and applies the signed delta, up or down.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitGradeCommand contains the data to grade one student on one mission.
type SubmitGradeCommand struct {
	// MissionID is the mission being graded.
	MissionID string

	// StudentID is the student receiving the score.
	StudentID string

	// TeacherID is the grader; must hold the teacher role in the
	// mission's room.
	TeacherID string

	// Points is the awarded score, within [0, mission points].
	Points int
}

// Validate validates the command.
func (c SubmitGradeCommand) Validate() error {
	if c.MissionID == "" {
		return errors.New("submit_grade: mission_id is required")
	}
	if c.StudentID == "" {
		return errors.New("submit_grade: student_id is required")
	}
	if c.TeacherID == "" {
		return errors.New("submit_grade: teacher_id is required")
	}
	if c.Points < 0 {
		return errors.New("submit_grade: points cannot be negative")
	}
	return nil
}

// SubmitGradeResult contains the result of grading.
type SubmitGradeResult struct {
	// Points is the stored score after this command.
	Points int

	// PointsDelta is the signed change applied to the student's cached
	// total. Equals Points on a first grade.
	PointsDelta int

	// Regrade is true when an existing grade row was revised.
	Regrade bool

	// MissionStatus is the mission status after recomputation.
	MissionStatus mission.Status

	// Events contains the domain events published post-commit.
	Events []shared.Event

	GradedAt time.Time
}

// SubmitGradeHandler handles the SubmitGradeCommand.
type SubmitGradeHandler struct {
	missionRepo mission.Repository
	userRepo    user.Repository
	policy      *authz.Policy
	tx          shared.TxManager
	eventBus    shared.EventPublisher
}

// NewSubmitGradeHandler creates a new SubmitGradeHandler.
func NewSubmitGradeHandler(
	missionRepo mission.Repository,
	userRepo user.Repository,
	policy *authz.Policy,
	tx shared.TxManager,
	eventBus shared.EventPublisher,
) *SubmitGradeHandler {
	return &SubmitGradeHandler{
		missionRepo: missionRepo,
		userRepo:    userRepo,
		policy:      policy,
		tx:          tx,
		eventBus:    eventBus,
	}
}

// Handle executes the submit grade command. The grade write, the point-total
// adjustment and the mission status recomputation happen in one transaction;
// events go out only after it commits.
func (h *SubmitGradeHandler) Handle(ctx context.Context, cmd SubmitGradeCommand) (*SubmitGradeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("mission", "SubmitGrade", shared.ErrValidation, "invalid command", err)
	}

	m, err := h.missionRepo.GetMission(ctx, cmd.MissionID)
	if err != nil {
		return nil, fmt.Errorf("submit_grade: load mission: %w", err)
	}

	if err := m.ValidatePoints(cmd.Points); err != nil {
		return nil, err
	}

	if err := h.policy.RequireTeacher(ctx, cmd.TeacherID, m.RoomID); err != nil {
		return nil, err
	}
	if _, err := h.policy.RequireStudent(ctx, cmd.StudentID, m.RoomID); err != nil {
		return nil, err
	}

	result := &SubmitGradeResult{
		Points:   cmd.Points,
		GradedAt: time.Now().UTC(),
	}
	statusBefore := m.Status

	err = h.tx.WithinTx(ctx, func(ctx context.Context) error {
		// GetGrade locks the (mission, student) row for the rest of the
		// transaction, serializing concurrent regrades of the same pair.
		existing, err := h.missionRepo.GetGrade(ctx, cmd.MissionID, cmd.StudentID)
		switch {
		case err == nil:
			delta := existing.Revise(cmd.TeacherID, cmd.Points)
			if err := h.missionRepo.SaveGrade(ctx, existing); err != nil {
				return fmt.Errorf("submit_grade: revise grade: %w", err)
			}
			if delta != 0 {
				if err := h.userRepo.ApplyPointsDelta(ctx, cmd.StudentID, delta); err != nil {
					return fmt.Errorf("submit_grade: apply delta: %w", err)
				}
			}
			result.PointsDelta = delta
			result.Regrade = true

		case shared.IsNotFound(err):
			g, err := mission.NewGrade(cmd.MissionID, cmd.StudentID, cmd.TeacherID, cmd.Points)
			if err != nil {
				return err
			}
			if err := h.missionRepo.SaveGrade(ctx, g); err != nil {
				return fmt.Errorf("submit_grade: insert grade: %w", err)
			}
			if cmd.Points != 0 {
				if err := h.userRepo.ApplyPointsDelta(ctx, cmd.StudentID, cmd.Points); err != nil {
					return fmt.Errorf("submit_grade: apply points: %w", err)
				}
			}
			result.PointsDelta = cmd.Points

		default:
			return fmt.Errorf("submit_grade: load grade: %w", err)
		}

		status, err := h.recomputeStatus(ctx, m)
		if err != nil {
			return err
		}
		result.MissionStatus = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Events = append(result.Events, shared.NewGradeRecordedEvent(
		cmd.MissionID, m.RoomID, cmd.StudentID, cmd.TeacherID,
		cmd.Points, result.PointsDelta, result.Regrade,
	))
	if result.MissionStatus == mission.StatusGraded && statusBefore != mission.StatusGraded {
		result.Events = append(result.Events, shared.NewMissionGradedEvent(cmd.MissionID, m.RoomID))
	}

	for _, event := range result.Events {
		_ = h.eventBus.Publish(event)
	}

	return result, nil
}

// recomputeStatus re-reads the submission and grade counts inside the
// transaction and flips the mission to graded when every submitter has a
// grade. Only submitters' grades count: a grade entered ahead of a hand-in
// awards points but never advances the mission. The counts are re-read
// rather than carried in, so two concurrent grades converge on the same
// answer.
func (h *SubmitGradeHandler) recomputeStatus(ctx context.Context, m *mission.Mission) (mission.Status, error) {
	submitted, err := h.missionRepo.CountSubmissions(ctx, m.ID)
	if err != nil {
		return m.Status, fmt.Errorf("submit_grade: count submissions: %w", err)
	}
	graded, err := h.missionRepo.CountGradedSubmitters(ctx, m.ID)
	if err != nil {
		return m.Status, fmt.Errorf("submit_grade: count graded submitters: %w", err)
	}

	if submitted == 0 || graded < submitted {
		return m.Status, nil
	}

	if err := m.AdvanceTo(mission.StatusGraded); err != nil {
		return m.Status, err
	}
	if err := h.missionRepo.UpdateMissionStatus(ctx, m.ID, mission.StatusGraded); err != nil {
		return m.Status, fmt.Errorf("submit_grade: update status: %w", err)
	}
	return mission.StatusGraded, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RECOMPUTE USER POINTS COMMAND
// Repair path: rebuilds the materialized total from grade rows when the
// cache has drifted.
// ══════════════════════════════════════════════════════════════════════════════

// RecomputeUserPointsCommand names the user whose total should be rebuilt.
type RecomputeUserPointsCommand struct {
	UserID string
}

// Validate validates the command.
func (c RecomputeUserPointsCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("recompute_points: user_id is required")
	}
	return nil
}

// RecomputeUserPointsResult reports the rebuilt total.
type RecomputeUserPointsResult struct {
	UserID        string
	PreviousTotal int
	Total         int
	Drifted       bool
}

// RecomputeUserPointsHandler rebuilds a user's cached point total.
type RecomputeUserPointsHandler struct {
	missionRepo mission.Repository
	userRepo    user.Repository
	tx          shared.TxManager
}

// NewRecomputeUserPointsHandler creates a new RecomputeUserPointsHandler.
func NewRecomputeUserPointsHandler(
	missionRepo mission.Repository,
	userRepo user.Repository,
	tx shared.TxManager,
) *RecomputeUserPointsHandler {
	return &RecomputeUserPointsHandler{
		missionRepo: missionRepo,
		userRepo:    userRepo,
		tx:          tx,
	}
}

// Handle sums the user's grade rows and overwrites the cached total.
func (h *RecomputeUserPointsHandler) Handle(ctx context.Context, cmd RecomputeUserPointsCommand) (*RecomputeUserPointsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("user", "RecomputePoints", shared.ErrValidation, "invalid command", err)
	}

	result := &RecomputeUserPointsResult{UserID: cmd.UserID}
	err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
		u, err := h.userRepo.GetByID(ctx, cmd.UserID)
		if err != nil {
			return fmt.Errorf("recompute_points: load user: %w", err)
		}
		total, err := h.missionRepo.SumPointsForUser(ctx, cmd.UserID)
		if err != nil {
			return fmt.Errorf("recompute_points: sum grades: %w", err)
		}

		result.PreviousTotal = u.TotalPoints
		result.Total = total
		result.Drifted = u.TotalPoints != total

		if !result.Drifted {
			return nil
		}
		return h.userRepo.SetTotalPoints(ctx, cmd.UserID, total)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
