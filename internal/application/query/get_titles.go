package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/trailroom/trailroom-hub/internal/domain/room"
	"github.com/trailroom/trailroom-hub/internal/domain/shared"
	"github.com/trailroom/trailroom-hub/internal/domain/title"
)

// ══════════════════════════════════════════════════════════════════════════════
// TITLE QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// GetUserTitlesQuery asks for every title a user holds: global grants plus
// the room-scoped grants of each membership.
type GetUserTitlesQuery struct {
	UserID string

	// RoomID narrows the result to one room's grants when set.
	RoomID string
}

// Validate validates the query.
func (q GetUserTitlesQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user_titles: user_id is required")
	}
	return nil
}

// HeldTitleDTO pairs a grant with its definition.
type HeldTitleDTO struct {
	Title *title.Title `json:"title"`
	Grant *title.Grant `json:"grant"`
}

// GetUserTitlesHandler handles held-title queries.
type GetUserTitlesHandler struct {
	titleRepo title.Repository
	roomRepo  room.Repository
}

// NewGetUserTitlesHandler creates a new GetUserTitlesHandler.
func NewGetUserTitlesHandler(titleRepo title.Repository, roomRepo room.Repository) *GetUserTitlesHandler {
	return &GetUserTitlesHandler{titleRepo: titleRepo, roomRepo: roomRepo}
}

// Handle executes the held-title query.
func (h *GetUserTitlesHandler) Handle(ctx context.Context, q GetUserTitlesQuery) ([]HeldTitleDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("title", "ListHeld", shared.ErrValidation, "invalid query", err)
	}

	var held []HeldTitleDTO

	if q.RoomID == "" {
		grants, err := h.titleRepo.ListGrantsForUser(ctx, q.UserID)
		if err != nil {
			return nil, fmt.Errorf("user_titles: list global grants: %w", err)
		}
		for _, g := range grants {
			t, err := h.titleRepo.GetByID(ctx, g.TitleID)
			if err != nil {
				return nil, fmt.Errorf("user_titles: load title %s: %w", g.TitleID, err)
			}
			held = append(held, HeldTitleDTO{Title: t, Grant: g})
		}
		return held, nil
	}

	m, err := h.roomRepo.GetMembership(ctx, q.UserID, q.RoomID)
	if err != nil {
		return nil, fmt.Errorf("user_titles: load membership: %w", err)
	}
	grants, err := h.titleRepo.ListGrantsForMembership(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("user_titles: list room grants: %w", err)
	}
	for _, g := range grants {
		t, err := h.titleRepo.GetByID(ctx, g.TitleID)
		if err != nil {
			return nil, fmt.Errorf("user_titles: load title %s: %w", g.TitleID, err)
		}
		held = append(held, HeldTitleDTO{Title: t, Grant: g})
	}
	return held, nil
}

// GetRoomTitleStatsQuery asks how widely each of a room's titles is held.
type GetRoomTitleStatsQuery struct {
	RoomID string
}

// Validate validates the query.
func (q GetRoomTitleStatsQuery) Validate() error {
	if q.RoomID == "" {
		return errors.New("title_stats: room_id is required")
	}
	return nil
}

// TitleStatDTO is one title with its holder count in the room.
type TitleStatDTO struct {
	Title   *title.Title `json:"title"`
	Holders int          `json:"holders"`
}

// GetRoomTitleStatsHandler handles per-room title holder counts.
type GetRoomTitleStatsHandler struct {
	titleRepo title.Repository
}

// NewGetRoomTitleStatsHandler creates a new GetRoomTitleStatsHandler.
func NewGetRoomTitleStatsHandler(titleRepo title.Repository) *GetRoomTitleStatsHandler {
	return &GetRoomTitleStatsHandler{titleRepo: titleRepo}
}

// Handle executes the title stats query.
func (h *GetRoomTitleStatsHandler) Handle(ctx context.Context, q GetRoomTitleStatsQuery) ([]TitleStatDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("title", "RoomStats", shared.ErrValidation, "invalid query", err)
	}

	titles, err := h.titleRepo.ListForRoom(ctx, q.RoomID)
	if err != nil {
		return nil, fmt.Errorf("title_stats: list titles: %w", err)
	}

	stats := make([]TitleStatDTO, 0, len(titles))
	for _, t := range titles {
		holders, err := h.titleRepo.CountGrantsInRoom(ctx, t.ID, q.RoomID)
		if err != nil {
			return nil, fmt.Errorf("title_stats: count holders of %s: %w", t.ID, err)
		}
		stats = append(stats, TitleStatDTO{Title: t, Holders: holders})
	}
	return stats, nil
}
