// Package query contains read operations following the CQRS pattern.
// Queries never modify authoritative state; they only read, compute and,
// where a cache exists, refresh it.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trailroom/trailroom-hub/internal/domain/progress"
	"github.com/trailroom/trailroom-hub/internal/domain/shared"
	"github.com/trailroom/trailroom-hub/internal/domain/track"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERIES
// Progress is always completed/total*100 rounded to one decimal; an empty
// module or track reads 0, never 100.
// ══════════════════════════════════════════════════════════════════════════════

// GetModuleProgressQuery asks for one user's progress through one module.
type GetModuleProgressQuery struct {
	UserID   string
	ModuleID string
}

// Validate validates the query.
func (q GetModuleProgressQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("module_progress: user_id is required")
	}
	if q.ModuleID == "" {
		return errors.New("module_progress: module_id is required")
	}
	return nil
}

// ProgressDTO carries a computed progress figure.
type ProgressDTO struct {
	UserID    string  `json:"user_id"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`

	// FromCache is true when the percent came from the cache (track
	// queries only; counts are zero in that case).
	FromCache bool `json:"-"`

	GeneratedAt time.Time `json:"generated_at"`
}

// GetModuleProgressHandler handles module progress queries.
type GetModuleProgressHandler struct {
	progressRepo progress.Repository
	graph        track.Reader
}

// NewGetModuleProgressHandler creates a new GetModuleProgressHandler.
func NewGetModuleProgressHandler(progressRepo progress.Repository, graph track.Reader) *GetModuleProgressHandler {
	return &GetModuleProgressHandler{progressRepo: progressRepo, graph: graph}
}

// Handle executes the module progress query.
func (h *GetModuleProgressHandler) Handle(ctx context.Context, q GetModuleProgressQuery) (*ProgressDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("progress", "ModuleProgress", shared.ErrValidation, "invalid query", err)
	}

	if _, err := h.graph.GetModule(ctx, q.ModuleID); err != nil {
		return nil, fmt.Errorf("module_progress: load module: %w", err)
	}

	items, err := h.graph.ListContents(ctx, q.ModuleID)
	if err != nil {
		return nil, fmt.Errorf("module_progress: list contents: %w", err)
	}
	completed, err := h.progressRepo.CountCompletedInModule(ctx, q.UserID, q.ModuleID)
	if err != nil {
		return nil, fmt.Errorf("module_progress: count completed: %w", err)
	}

	return &ProgressDTO{
		UserID:      q.UserID,
		Completed:   completed,
		Total:       len(items),
		Percent:     progress.Percentage(completed, len(items)),
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// GetTrackProgressQuery asks for one user's progress through a whole track.
type GetTrackProgressQuery struct {
	UserID  string
	TrackID string

	// SkipCache forces a live count.
	SkipCache bool
}

// Validate validates the query.
func (q GetTrackProgressQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("track_progress: user_id is required")
	}
	if q.TrackID == "" {
		return errors.New("track_progress: track_id is required")
	}
	return nil
}

// GetTrackProgressHandler handles track progress queries, consulting the
// progress cache before counting rows.
type GetTrackProgressHandler struct {
	progressRepo progress.Repository
	graph        track.Reader
	cache        progress.Cache
}

// NewGetTrackProgressHandler creates a new GetTrackProgressHandler.
func NewGetTrackProgressHandler(progressRepo progress.Repository, graph track.Reader, cache progress.Cache) *GetTrackProgressHandler {
	return &GetTrackProgressHandler{progressRepo: progressRepo, graph: graph, cache: cache}
}

// Handle executes the track progress query.
func (h *GetTrackProgressHandler) Handle(ctx context.Context, q GetTrackProgressQuery) (*ProgressDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("progress", "TrackProgress", shared.ErrValidation, "invalid query", err)
	}

	if !q.SkipCache && h.cache != nil {
		if percent, ok, err := h.cache.GetTrackPercent(ctx, q.UserID, q.TrackID); err == nil && ok {
			return &ProgressDTO{
				UserID:      q.UserID,
				Percent:     percent,
				FromCache:   true,
				GeneratedAt: time.Now().UTC(),
			}, nil
		}
	}

	if _, err := h.graph.GetTrack(ctx, q.TrackID); err != nil {
		return nil, fmt.Errorf("track_progress: load track: %w", err)
	}

	total, err := h.graph.CountTrackContents(ctx, q.TrackID)
	if err != nil {
		return nil, fmt.Errorf("track_progress: count contents: %w", err)
	}
	completed, err := h.progressRepo.CountCompletedInTrack(ctx, q.UserID, q.TrackID)
	if err != nil {
		return nil, fmt.Errorf("track_progress: count completed: %w", err)
	}

	percent := progress.Percentage(completed, total)
	if h.cache != nil {
		_ = h.cache.SetTrackPercent(ctx, q.UserID, q.TrackID, percent)
	}

	return &ProgressDTO{
		UserID:      q.UserID,
		Completed:   completed,
		Total:       total,
		Percent:     percent,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
