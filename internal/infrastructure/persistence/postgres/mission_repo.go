package postgres

import (
	"context"
	"fmt"

	"github.com/trailroom/trailroom-hub/internal/domain/mission"
)

// ══════════════════════════════════════════════════════════════════════════════
// MISSION REPOSITORY IMPLEMENTATION
// Missions, submissions and grades. The grades table is the single source of
// truth for points; the sum queries here feed every total the engine shows.
// ══════════════════════════════════════════════════════════════════════════════

// MissionRepository implements mission.Repository for PostgreSQL.
type MissionRepository struct {
	conn *Connection
}

// NewMissionRepository creates a new MissionRepository.
func NewMissionRepository(conn *Connection) *MissionRepository {
	return &MissionRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Missions
// ─────────────────────────────────────────────────────────────────────────────

// CreateMission persists a new mission.
func (r *MissionRepository) CreateMission(ctx context.Context, m *mission.Mission) error {
	query := `
		INSERT INTO missions (id, room_id, title, description, points, status, creator_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.conn.Exec(ctx, query,
		m.ID,
		m.RoomID,
		m.Title,
		m.Description,
		m.Points,
		string(m.Status),
		m.CreatorID,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create mission: %w", err)
	}

	return nil
}

// GetMission returns a mission by ID.
func (r *MissionRepository) GetMission(ctx context.Context, id string) (*mission.Mission, error) {
	query := `
		SELECT id, room_id, title, description, points, status, creator_id, created_at, updated_at
		FROM missions
		WHERE id = $1
	`

	var m mission.Mission
	var status string

	err := r.conn.QueryRow(ctx, query, id).Scan(
		&m.ID,
		&m.RoomID,
		&m.Title,
		&m.Description,
		&m.Points,
		&status,
		&m.CreatorID,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, mission.ErrMissionNotFound
		}
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}

	m.Status = mission.Status(status)
	return &m, nil
}

// UpdateMissionStatus persists a status change.
func (r *MissionRepository) UpdateMissionStatus(ctx context.Context, id string, status mission.Status) error {
	tag, err := r.conn.Exec(ctx,
		`UPDATE missions SET status = $1 WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update mission status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return mission.ErrMissionNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Submissions
// ─────────────────────────────────────────────────────────────────────────────

// AddSubmission persists a submission.
func (r *MissionRepository) AddSubmission(ctx context.Context, s *mission.Submission) error {
	query := `
		INSERT INTO submissions (mission_id, student_id, submitted_at)
		VALUES ($1, $2, $3)
	`

	_, err := r.conn.Exec(ctx, query, s.MissionID, s.StudentID, s.SubmittedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return mission.ErrAlreadySubmitted
		}
		if IsForeignKeyViolation(err) {
			return mission.ErrMissionNotFound
		}
		return fmt.Errorf("failed to add submission: %w", err)
	}

	return nil
}

// CountSubmissions returns the number of distinct students who submitted.
func (r *MissionRepository) CountSubmissions(ctx context.Context, missionID string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE mission_id = $1`, missionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Grades
// ─────────────────────────────────────────────────────────────────────────────

// GetGrade returns the grade for a (mission, student) pair. Inside a
// transaction the row is locked so a concurrent re-grade of the same pair
// serializes on it.
func (r *MissionRepository) GetGrade(ctx context.Context, missionID, studentID string) (*mission.Grade, error) {
	query := `
		SELECT mission_id, student_id, teacher_id, points_awarded, graded_at, updated_at
		FROM grades
		WHERE mission_id = $1 AND student_id = $2
	`
	if _, inTx := txFromContext(ctx); inTx {
		query += ` FOR UPDATE`
	}

	var g mission.Grade
	err := r.conn.QueryRow(ctx, query, missionID, studentID).Scan(
		&g.MissionID,
		&g.StudentID,
		&g.TeacherID,
		&g.PointsAwarded,
		&g.GradedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, mission.ErrGradeNotFound
		}
		return nil, fmt.Errorf("failed to get grade: %w", err)
	}

	return &g, nil
}

// SaveGrade inserts or updates the single (mission, student) grade row.
func (r *MissionRepository) SaveGrade(ctx context.Context, g *mission.Grade) error {
	query := `
		INSERT INTO grades (mission_id, student_id, teacher_id, points_awarded, graded_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (mission_id, student_id) DO UPDATE SET
			teacher_id = EXCLUDED.teacher_id,
			points_awarded = EXCLUDED.points_awarded,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Exec(ctx, query,
		g.MissionID,
		g.StudentID,
		g.TeacherID,
		g.PointsAwarded,
		g.GradedAt,
		g.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return mission.ErrMissionNotFound
		}
		return fmt.Errorf("failed to save grade: %w", err)
	}

	return nil
}

// CountGradedSubmitters returns the number of submitters who hold a grade.
// Grades for students without a submission row are excluded, so a grade
// entered ahead of a hand-in can never satisfy the graded flip.
func (r *MissionRepository) CountGradedSubmitters(ctx context.Context, missionID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM grades g
		JOIN submissions s
		  ON s.mission_id = g.mission_id AND s.student_id = g.student_id
		WHERE g.mission_id = $1
	`

	var count int
	if err := r.conn.QueryRow(ctx, query, missionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count graded submitters: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Aggregates
// ─────────────────────────────────────────────────────────────────────────────

// SumPointsForUser returns the global point sum from grade rows.
func (r *MissionRepository) SumPointsForUser(ctx context.Context, userID string) (int, error) {
	var sum int
	err := r.conn.QueryRow(ctx,
		`SELECT COALESCE(SUM(points_awarded), 0) FROM grades WHERE student_id = $1`, userID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum points: %w", err)
	}
	return sum, nil
}

// SumPointsForUserInRoom returns the room-scoped point sum.
func (r *MissionRepository) SumPointsForUserInRoom(ctx context.Context, userID, roomID string) (int, error) {
	query := `
		SELECT COALESCE(SUM(g.points_awarded), 0)
		FROM grades g
		JOIN missions m ON m.id = g.mission_id
		WHERE g.student_id = $1 AND m.room_id = $2
	`

	var sum int
	if err := r.conn.QueryRow(ctx, query, userID, roomID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum room points: %w", err)
	}
	return sum, nil
}

// CountCompletedForUser counts missions completed globally. A zero-point
// grade does not count.
func (r *MissionRepository) CountCompletedForUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM grades WHERE student_id = $1 AND points_awarded > 0`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed missions: %w", err)
	}
	return count, nil
}

// CountCompletedForUserInRoom is the room-scoped analogue.
func (r *MissionRepository) CountCompletedForUserInRoom(ctx context.Context, userID, roomID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM grades g
		JOIN missions m ON m.id = g.mission_id
		WHERE g.student_id = $1 AND m.room_id = $2 AND g.points_awarded > 0
	`

	var count int
	if err := r.conn.QueryRow(ctx, query, userID, roomID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count completed room missions: %w", err)
	}
	return count, nil
}
