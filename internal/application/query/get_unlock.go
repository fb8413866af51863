package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/trailroom/trailroom-hub/internal/domain/progress"
	"github.com/trailroom/trailroom-hub/internal/domain/shared"
	"github.com/trailroom/trailroom-hub/internal/domain/track"
	"github.com/trailroom/trailroom-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRACK ACCESS QUERY
// A track is unlocked when BOTH gates pass: the user's global point total
// meets points_required, and the prerequisite track (if any) is fully
// completed. A missing prerequisite is vacuously satisfied. Cycles cannot
// occur here; track creation rejects them.
// ══════════════════════════════════════════════════════════════════════════════

// LockReasonKind classifies why a gate failed.
type LockReasonKind string

const (
	// LockReasonPoints - the user's point total is below the threshold.
	LockReasonPoints LockReasonKind = "points"

	// LockReasonPrerequisite - the prerequisite track is not fully completed.
	LockReasonPrerequisite LockReasonKind = "prerequisite"
)

// LockReason explains one failed gate in user-presentable terms.
type LockReason struct {
	Kind LockReasonKind `json:"kind"`

	// MissingPoints is how many more points the user needs (points kind).
	MissingPoints int `json:"missing_points,omitempty"`

	// PrerequisiteTrackID and PrerequisiteTrackName identify the track to
	// finish first (prerequisite kind).
	PrerequisiteTrackID   string `json:"prerequisite_track_id,omitempty"`
	PrerequisiteTrackName string `json:"prerequisite_track_name,omitempty"`

	// PrerequisitePercent is the user's current progress on it.
	PrerequisitePercent float64 `json:"prerequisite_percent,omitempty"`
}

// GetTrackAccessQuery asks whether a user may enter a track and why not.
type GetTrackAccessQuery struct {
	UserID  string
	TrackID string
}

// Validate validates the query.
func (q GetTrackAccessQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("track_access: user_id is required")
	}
	if q.TrackID == "" {
		return errors.New("track_access: track_id is required")
	}
	return nil
}

// TrackAccessDTO reports the unlock decision.
type TrackAccessDTO struct {
	TrackID  string       `json:"track_id"`
	Unlocked bool         `json:"unlocked"`
	Reasons  []LockReason `json:"reasons,omitempty"`
}

// GetTrackAccessHandler evaluates the unlock gates.
type GetTrackAccessHandler struct {
	graph        track.Reader
	progressRepo progress.Repository
	userRepo     user.Repository
}

// NewGetTrackAccessHandler creates a new GetTrackAccessHandler.
func NewGetTrackAccessHandler(graph track.Reader, progressRepo progress.Repository, userRepo user.Repository) *GetTrackAccessHandler {
	return &GetTrackAccessHandler{graph: graph, progressRepo: progressRepo, userRepo: userRepo}
}

// Handle executes the track access query. Both gates are always evaluated so
// the caller can show every reason at once.
func (h *GetTrackAccessHandler) Handle(ctx context.Context, q GetTrackAccessQuery) (*TrackAccessDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("track", "Access", shared.ErrValidation, "invalid query", err)
	}

	t, err := h.graph.GetTrack(ctx, q.TrackID)
	if err != nil {
		return nil, fmt.Errorf("track_access: load track: %w", err)
	}

	result := &TrackAccessDTO{TrackID: q.TrackID, Unlocked: true}

	if t.HasPointGate() {
		u, err := h.userRepo.GetByID(ctx, q.UserID)
		if err != nil {
			return nil, fmt.Errorf("track_access: load user: %w", err)
		}
		if u.TotalPoints < t.PointsRequired {
			result.Unlocked = false
			result.Reasons = append(result.Reasons, LockReason{
				Kind:          LockReasonPoints,
				MissingPoints: t.PointsRequired - u.TotalPoints,
			})
		}
	}

	if t.HasPrerequisite() {
		done, percent, prereq, err := h.prerequisiteSatisfied(ctx, q.UserID, t.PrerequisiteID)
		if err != nil {
			return nil, err
		}
		if !done {
			result.Unlocked = false
			result.Reasons = append(result.Reasons, LockReason{
				Kind:                  LockReasonPrerequisite,
				PrerequisiteTrackID:   prereq.ID,
				PrerequisiteTrackName: prereq.Name,
				PrerequisitePercent:   percent,
			})
		}
	}

	return result, nil
}

// prerequisiteSatisfied checks completion of the prerequisite track. A
// prerequisite with no content at all is treated as satisfied: there is
// nothing to complete, mirroring how an absent prerequisite passes.
func (h *GetTrackAccessHandler) prerequisiteSatisfied(ctx context.Context, userID, prereqID string) (bool, float64, *track.Track, error) {
	prereq, err := h.graph.GetTrack(ctx, prereqID)
	if err != nil {
		return false, 0, nil, fmt.Errorf("track_access: load prerequisite: %w", err)
	}

	total, err := h.graph.CountTrackContents(ctx, prereqID)
	if err != nil {
		return false, 0, nil, fmt.Errorf("track_access: count prerequisite contents: %w", err)
	}
	if total == 0 {
		return true, 0, prereq, nil
	}

	completed, err := h.progressRepo.CountCompletedInTrack(ctx, userID, prereqID)
	if err != nil {
		return false, 0, nil, fmt.Errorf("track_access: count completed: %w", err)
	}

	return completed >= total, progress.Percentage(completed, total), prereq, nil
}
