package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/trailroom/trailroom-hub/internal/domain/mission"
	"github.com/trailroom/trailroom-hub/internal/domain/room"
	"github.com/trailroom/trailroom-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROOM POINTS QUERIES
// Room-scoped totals are never materialized; they are summed live from grade
// rows joined to the room's missions. The leaderboard keeps a Redis sorted
// set as a read cache and rebuilds it from the live sums on a miss.
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentRoomPointsQuery asks for one student's points inside one room.
type GetStudentRoomPointsQuery struct {
	UserID string
	RoomID string
}

// Validate validates the query.
func (q GetStudentRoomPointsQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("room_points: user_id is required")
	}
	if q.RoomID == "" {
		return errors.New("room_points: room_id is required")
	}
	return nil
}

// RoomPointsDTO carries one member's room-scoped score.
type RoomPointsDTO struct {
	UserID            string `json:"user_id"`
	RoomID            string `json:"room_id"`
	Points            int    `json:"points"`
	CompletedMissions int    `json:"completed_missions"`
}

// GetStudentRoomPointsHandler handles single-member room point queries.
type GetStudentRoomPointsHandler struct {
	missionRepo mission.Repository
	roomRepo    room.Repository
}

// NewGetStudentRoomPointsHandler creates a new GetStudentRoomPointsHandler.
func NewGetStudentRoomPointsHandler(missionRepo mission.Repository, roomRepo room.Repository) *GetStudentRoomPointsHandler {
	return &GetStudentRoomPointsHandler{missionRepo: missionRepo, roomRepo: roomRepo}
}

// Handle executes the query with live sums.
func (h *GetStudentRoomPointsHandler) Handle(ctx context.Context, q GetStudentRoomPointsQuery) (*RoomPointsDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("room", "Points", shared.ErrValidation, "invalid query", err)
	}

	if _, err := h.roomRepo.GetMembership(ctx, q.UserID, q.RoomID); err != nil {
		return nil, fmt.Errorf("room_points: load membership: %w", err)
	}

	points, err := h.missionRepo.SumPointsForUserInRoom(ctx, q.UserID, q.RoomID)
	if err != nil {
		return nil, fmt.Errorf("room_points: sum points: %w", err)
	}
	completed, err := h.missionRepo.CountCompletedForUserInRoom(ctx, q.UserID, q.RoomID)
	if err != nil {
		return nil, fmt.Errorf("room_points: count completed: %w", err)
	}

	return &RoomPointsDTO{
		UserID:            q.UserID,
		RoomID:            q.RoomID,
		Points:            points,
		CompletedMissions: completed,
	}, nil
}

// GetRoomLeaderboardQuery asks for a room's standings.
type GetRoomLeaderboardQuery struct {
	RoomID string

	// Limit caps the rows returned; defaults to 20, max 100.
	Limit int

	// SkipCache forces a rebuild from live sums.
	SkipCache bool
}

// Validate validates the query and normalizes the limit.
func (q *GetRoomLeaderboardQuery) Validate() error {
	if q.RoomID == "" {
		return errors.New("leaderboard: room_id is required")
	}
	if q.Limit < 0 {
		return errors.New("leaderboard: limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// RoomLeaderboardDTO carries the ranked standings of a room.
type RoomLeaderboardDTO struct {
	RoomID      string             `json:"room_id"`
	Entries     []room.MemberScore `json:"entries"`
	FromCache   bool               `json:"-"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// GetRoomLeaderboardHandler handles leaderboard queries.
type GetRoomLeaderboardHandler struct {
	missionRepo mission.Repository
	roomRepo    room.Repository
	cache       room.PointsCache
}

// NewGetRoomLeaderboardHandler creates a new GetRoomLeaderboardHandler.
func NewGetRoomLeaderboardHandler(missionRepo mission.Repository, roomRepo room.Repository, cache room.PointsCache) *GetRoomLeaderboardHandler {
	return &GetRoomLeaderboardHandler{missionRepo: missionRepo, roomRepo: roomRepo, cache: cache}
}

// Handle executes the leaderboard query.
func (h *GetRoomLeaderboardHandler) Handle(ctx context.Context, q GetRoomLeaderboardQuery) (*RoomLeaderboardDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("room", "Leaderboard", shared.ErrValidation, "invalid query", err)
	}

	if !q.SkipCache && h.cache != nil {
		cached, err := h.cache.GetTop(ctx, q.RoomID, q.Limit)
		if err == nil && len(cached) > 0 {
			return &RoomLeaderboardDTO{
				RoomID:      q.RoomID,
				Entries:     cached,
				FromCache:   true,
				GeneratedAt: time.Now().UTC(),
			}, nil
		}
	}

	entries, err := h.buildFromLiveSums(ctx, q.RoomID)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		for _, e := range entries {
			_ = h.cache.SetMemberPoints(ctx, q.RoomID, e.UserID, e.Points)
		}
	}

	if len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}

	return &RoomLeaderboardDTO{
		RoomID:      q.RoomID,
		Entries:     entries,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// buildFromLiveSums ranks every student membership by the live room sum.
// Ties keep join order, which ListStudentMemberships already provides.
func (h *GetRoomLeaderboardHandler) buildFromLiveSums(ctx context.Context, roomID string) ([]room.MemberScore, error) {
	memberships, err := h.roomRepo.ListStudentMemberships(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: list memberships: %w", err)
	}

	entries := make([]room.MemberScore, 0, len(memberships))
	for _, m := range memberships {
		points, err := h.missionRepo.SumPointsForUserInRoom(ctx, m.UserID, roomID)
		if err != nil {
			return nil, fmt.Errorf("leaderboard: sum points for %s: %w", m.UserID, err)
		}
		entries = append(entries, room.MemberScore{UserID: m.UserID, Points: points})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
