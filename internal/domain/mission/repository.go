package mission

import "context"

// Repository defines persistence for missions, submissions and grades.
//
// Grade rows are owned exclusively by the score ledger: no other component
// writes them, and the ledger always revises the single (mission, student)
// row rather than appending.
type Repository interface {
	// CreateMission persists a new mission.
	CreateMission(ctx context.Context, m *Mission) error

	// GetMission returns a mission by ID.
	GetMission(ctx context.Context, id string) (*Mission, error)

	// UpdateMissionStatus persists a status change.
	UpdateMissionStatus(ctx context.Context, id string, status Status) error

	// AddSubmission persists a submission; ErrAlreadySubmitted on the second
	// attempt for the same (mission, student) pair.
	AddSubmission(ctx context.Context, s *Submission) error

	// CountSubmissions returns the number of distinct students who submitted.
	CountSubmissions(ctx context.Context, missionID string) (int, error)

	// GetGrade returns the grade for a (mission, student) pair, or
	// ErrGradeNotFound.
	GetGrade(ctx context.Context, missionID, studentID string) (*Grade, error)

	// SaveGrade inserts or updates the single (mission, student) grade row.
	SaveGrade(ctx context.Context, g *Grade) error

	// CountGradedSubmitters returns the number of submitters who hold a
	// grade. A grade recorded before the student hands in does not count.
	CountGradedSubmitters(ctx context.Context, missionID string) (int, error)

	// SumPointsForUser returns the sum of currently stored points_awarded
	// across every grade of a user. This is the source of truth the cached
	// user total must always reconcile to.
	SumPointsForUser(ctx context.Context, userID string) (int, error)

	// SumPointsForUserInRoom returns the live room-scoped point sum: grades
	// joined to the room's missions. Room totals are never cached.
	SumPointsForUserInRoom(ctx context.Context, userID, roomID string) (int, error)

	// CountCompletedForUser returns the number of missions the user
	// completed globally (grade exists with points_awarded > 0).
	CountCompletedForUser(ctx context.Context, userID string) (int, error)

	// CountCompletedForUserInRoom is the room-scoped analogue.
	CountCompletedForUserInRoom(ctx context.Context, userID, roomID string) (int, error)
}
