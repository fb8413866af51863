// Package progress contains per-user, per-content completion records and the
// percentage math aggregated over modules and tracks.
package progress

import (
	"math"
	"time"

	"github.com/trailroom/trailroom-hub/internal/domain/shared"
)

// Domain errors.
var (
	ErrViewNotFound = shared.NewDomainError("progress", "Find", shared.ErrNotFound, "view record not found")
)

// ViewRecord tracks whether a user has opened and/or completed one content
// item. At most one record exists per (user, content) pair.
type ViewRecord struct {
	UserID    string
	ContentID string

	// Completed is set by an explicit user action and only reverts by an
	// explicit user action.
	Completed bool

	ViewedAt  time.Time
	UpdatedAt time.Time

	// SecondsSpent is optional analytics data reported by the caller.
	SecondsSpent int
}

// NewViewRecord creates the record written on first view. Completed starts
// false; viewing alone never completes an item.
func NewViewRecord(userID, contentID string) (*ViewRecord, error) {
	if userID == "" || contentID == "" {
		return nil, shared.NewDomainError("progress", "RecordView", shared.ErrInvalidID, "user and content ids are required")
	}
	now := time.Now().UTC()
	return &ViewRecord{
		UserID:    userID,
		ContentID: contentID,
		Completed: false,
		ViewedAt:  now,
		UpdatedAt: now,
	}, nil
}

// SetCompleted flips the completion flag. Returns true when the flag changed.
func (v *ViewRecord) SetCompleted(completed bool) bool {
	if v.Completed == completed {
		return false
	}
	v.Completed = completed
	v.UpdatedAt = time.Now().UTC()
	return true
}

// Percentage computes completed/total*100 rounded to one decimal place.
// A zero total yields 0, never 100: emptiness is not progress, and whether an
// empty track satisfies an unlock gate is the unlock evaluator's decision.
func Percentage(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	if completed < 0 {
		completed = 0
	}
	if completed > total {
		completed = total
	}
	return math.Round(float64(completed)/float64(total)*1000) / 10
}
