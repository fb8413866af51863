// Package eventhandler contains the subscribers wired to the engine's
// domain events.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trailroom/trailroom-hub/internal/application/saga"
	"github.com/trailroom/trailroom-hub/internal/domain/mission"
	"github.com/trailroom/trailroom-hub/internal/domain/room"
	"github.com/trailroom/trailroom-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON GRADE RECORDED HANDLER
// Runs after the grade transaction commits:
// 1. Re-evaluate global titles against the student's new total
// 2. Re-evaluate room-scoped titles for the student's membership
// 3. Refresh the room leaderboard cache entry
//
// The handler is synchronous: when SubmitGrade returns, every title the
// grade earned has been granted.
//
// The bus absorbs handler errors, so a failed evaluation never unwinds the
// committed grade. Every step is idempotent and re-runs on the next grade
// event; failures are logged here and counted in the bus metrics.
// ═══════════════════════════════════════════════════════════════════════════

// OnGradeRecordedHandler reacts to GradeRecorded events.
type OnGradeRecordedHandler struct {
	award       *saga.TitleAwardFlow
	roomRepo    room.Repository
	missionRepo mission.Repository
	pointsCache room.PointsCache
	logger      *slog.Logger
}

// NewOnGradeRecordedHandler creates a new OnGradeRecordedHandler.
func NewOnGradeRecordedHandler(
	award *saga.TitleAwardFlow,
	roomRepo room.Repository,
	missionRepo mission.Repository,
	pointsCache room.PointsCache,
	logger *slog.Logger,
) *OnGradeRecordedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnGradeRecordedHandler{
		award:       award,
		roomRepo:    roomRepo,
		missionRepo: missionRepo,
		pointsCache: pointsCache,
		logger:      logger.With("handler", "on_grade_recorded"),
	}
}

// Handle processes a GradeRecorded event. Implements shared.EventHandler.
func (h *OnGradeRecordedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	gradeEvent, ok := event.(shared.GradeRecordedEvent)
	if !ok {
		h.logger.Warn("received non-GradeRecordedEvent", "event_type", event.EventType())
		return nil
	}

	h.logger.Info("processing grade recorded event",
		"mission_id", gradeEvent.MissionID,
		"student_id", gradeEvent.StudentID,
		"points", gradeEvent.Points,
		"delta", gradeEvent.PointsDelta,
		"regrade", gradeEvent.Regrade,
	)

	// Evaluation runs even on a zero delta; it is idempotent and cheap.
	if result, err := h.award.EvaluateForUser(ctx, gradeEvent.StudentID); err != nil {
		h.logger.Error("global title evaluation failed",
			"student_id", gradeEvent.StudentID, "error", err)
		return fmt.Errorf("evaluate global titles: %w", err)
	} else if result.HasGrants() {
		h.logger.Info("global titles granted",
			"student_id", gradeEvent.StudentID, "count", len(result.Granted))
	}

	m, err := h.roomRepo.GetMembership(ctx, gradeEvent.StudentID, gradeEvent.RoomID)
	if err != nil {
		h.logger.Error("membership lookup failed",
			"student_id", gradeEvent.StudentID, "room_id", gradeEvent.RoomID, "error", err)
		return fmt.Errorf("load membership: %w", err)
	}

	if result, err := h.award.EvaluateForMembership(ctx, m.ID); err != nil {
		h.logger.Error("room title evaluation failed",
			"membership_id", m.ID, "error", err)
		return fmt.Errorf("evaluate room titles: %w", err)
	} else if result.HasGrants() {
		h.logger.Info("room titles granted", "membership_id", m.ID, "count", len(result.Granted))
	}

	h.refreshLeaderboard(ctx, gradeEvent)
	return nil
}

// refreshLeaderboard updates the student's cached room score. Cache failures
// are logged and swallowed; the next leaderboard read rebuilds from rows.
func (h *OnGradeRecordedHandler) refreshLeaderboard(ctx context.Context, e shared.GradeRecordedEvent) {
	if h.pointsCache == nil {
		return
	}
	points, err := h.missionRepo.SumPointsForUserInRoom(ctx, e.StudentID, e.RoomID)
	if err != nil {
		h.logger.Warn("room sum for leaderboard refresh failed",
			"student_id", e.StudentID, "room_id", e.RoomID, "error", err)
		return
	}
	if err := h.pointsCache.SetMemberPoints(ctx, e.RoomID, e.StudentID, points); err != nil {
		h.logger.Warn("leaderboard cache update failed",
			"student_id", e.StudentID, "room_id", e.RoomID, "error", err)
	}
}

// EventType returns the event type this handler subscribes to.
func (h *OnGradeRecordedHandler) EventType() shared.EventType {
	return shared.EventGradeRecorded
}
