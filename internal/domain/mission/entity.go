// Package mission contains gradable assignments, student submissions, and the
// authoritative grade records the score ledger reconciles into point totals.
package mission

import (
	"strings"
	"time"

	"github.com/trailroom/trailroom-hub/internal/domain/shared"
)

// Status tracks a mission through its forward-only lifecycle.
type Status string

const (
	// StatusPending - published, no submissions yet.
	StatusPending Status = "pending"
	// StatusSubmitted - at least one student submitted.
	StatusSubmitted Status = "submitted"
	// StatusGraded - every submitter has a grade.
	StatusGraded Status = "graded"
)

// IsValid checks that the status is a known lifecycle state.
func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusSubmitted || s == StatusGraded
}

// rank orders statuses so transitions can be checked for direction.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusSubmitted:
		return 1
	case StatusGraded:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo permits only forward movement: pending → submitted → graded.
func (s Status) CanTransitionTo(next Status) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	return next.rank() >= s.rank()
}

// Domain errors.
var (
	ErrMissionNotFound    = shared.NewDomainError("mission", "Find", shared.ErrNotFound, "mission not found")
	ErrGradeNotFound      = shared.NewDomainError("mission", "FindGrade", shared.ErrNotFound, "grade not found")
	ErrInvalidTitle       = shared.NewDomainError("mission", "Validate", shared.ErrInvalidInput, "mission title must be 1-200 chars")
	ErrInvalidPointValue  = shared.NewDomainError("mission", "Validate", shared.ErrValueOutOfRange, "mission point value must be positive")
	ErrPointsOutOfRange   = shared.NewDomainError("mission", "Grade", shared.ErrValueOutOfRange, "awarded points must be within [0, mission points]")
	ErrBackwardTransition = shared.NewDomainError("mission", "UpdateStatus", shared.ErrStateTransition, "mission status cannot move backward")
	ErrAlreadySubmitted   = shared.NewDomainError("mission", "Submit", shared.ErrAlreadyExists, "student already submitted this mission")
)

// Mission is a gradable assignment posted by a teacher in a room.
type Mission struct {
	ID          string
	RoomID      string
	Title       string
	Description string

	// Points is the maximum awardable score. Always positive.
	Points int

	Status    Status
	CreatorID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewMission validates and builds a mission.
func NewMission(id, roomID, title, description string, points int, creatorID string) (*Mission, error) {
	if id == "" || roomID == "" {
		return nil, shared.NewDomainError("mission", "Create", shared.ErrInvalidID, "mission and room ids are required")
	}
	title = strings.TrimSpace(title)
	if len(title) == 0 || len(title) > 200 {
		return nil, ErrInvalidTitle
	}
	if points <= 0 {
		return nil, ErrInvalidPointValue
	}
	now := time.Now().UTC()
	return &Mission{
		ID:          id,
		RoomID:      roomID,
		Title:       title,
		Description: strings.TrimSpace(description),
		Points:      points,
		Status:      StatusPending,
		CreatorID:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// AdvanceTo moves the mission status forward. Backward moves fail; a repeated
// status is a no-op so recomputation stays idempotent.
func (m *Mission) AdvanceTo(next Status) error {
	if !m.Status.CanTransitionTo(next) {
		return ErrBackwardTransition
	}
	if m.Status != next {
		m.Status = next
		m.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// ClampPoints clamps an awarded score into [0, m.Points].
func (m *Mission) ClampPoints(points int) int {
	if points < 0 {
		return 0
	}
	if points > m.Points {
		return m.Points
	}
	return points
}

// ValidatePoints checks an awarded score without clamping it; out-of-range
// input from a caller is a validation failure, not something to fix silently.
func (m *Mission) ValidatePoints(points int) error {
	if points < 0 || points > m.Points {
		return ErrPointsOutOfRange
	}
	return nil
}

// Submission records that a student handed in work for a mission. One per
// (mission, student) pair; the graded-status recomputation counts these.
type Submission struct {
	MissionID   string
	StudentID   string
	SubmittedAt time.Time
}

// NewSubmission creates a submission record.
func NewSubmission(missionID, studentID string) (*Submission, error) {
	if missionID == "" || studentID == "" {
		return nil, shared.NewDomainError("mission", "Submit", shared.ErrInvalidID, "mission and student ids are required")
	}
	return &Submission{
		MissionID:   missionID,
		StudentID:   studentID,
		SubmittedAt: time.Now().UTC(),
	}, nil
}

// Grade is the authoritative record of points one student earned on one
// mission. Unique per (mission, student); re-grading updates this single row.
type Grade struct {
	MissionID string
	StudentID string
	TeacherID string

	// PointsAwarded is always within [0, mission.Points].
	PointsAwarded int

	GradedAt  time.Time
	UpdatedAt time.Time
}

// NewGrade creates the first grade for a (mission, student) pair. The caller
// validates the range against the mission first.
func NewGrade(missionID, studentID, teacherID string, points int) (*Grade, error) {
	if missionID == "" || studentID == "" || teacherID == "" {
		return nil, shared.NewDomainError("mission", "Grade", shared.ErrInvalidID, "mission, student and teacher ids are required")
	}
	if points < 0 {
		return nil, ErrPointsOutOfRange
	}
	now := time.Now().UTC()
	return &Grade{
		MissionID:     missionID,
		StudentID:     studentID,
		TeacherID:     teacherID,
		PointsAwarded: points,
		GradedAt:      now,
		UpdatedAt:     now,
	}, nil
}

// Revise updates the stored score and returns the signed delta against the
// previous value. The ledger applies exactly this delta to the student's
// cached total: a downgrade subtracts, an upgrade adds, never a full re-add.
func (g *Grade) Revise(teacherID string, points int) (delta int) {
	delta = points - g.PointsAwarded
	g.PointsAwarded = points
	g.TeacherID = teacherID
	g.UpdatedAt = time.Now().UTC()
	return delta
}

// CountsAsCompleted reports whether this grade makes the mission count as a
// completed mission for title thresholds. Zero-point grades do not count.
func (g *Grade) CountsAsCompleted() bool {
	return g.PointsAwarded > 0
}
