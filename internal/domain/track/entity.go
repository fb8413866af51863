// Package track contains the structural learning graph: tracks owned by a
// room, modules inside a track, and content items inside a module. The shape
// is immutable from the engine's point of view; every other component only
// traverses it in stable order.
package track

import (
	"sort"
	"strings"
	"time"

	"github.com/trailroom/trailroom-hub/internal/domain/shared"
)

// ContentType classifies a single learning unit.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentVideo ContentType = "video"
	ContentFile  ContentType = "file"
	ContentLink  ContentType = "link"
)

// IsValid checks that the content type is one of the supported kinds.
func (t ContentType) IsValid() bool {
	switch t {
	case ContentText, ContentVideo, ContentFile, ContentLink:
		return true
	default:
		return false
	}
}

// Domain errors.
var (
	ErrTrackNotFound    = shared.NewDomainError("track", "Find", shared.ErrNotFound, "track not found")
	ErrModuleNotFound   = shared.NewDomainError("track", "FindModule", shared.ErrNotFound, "module not found")
	ErrContentNotFound  = shared.NewDomainError("track", "FindContent", shared.ErrNotFound, "content item not found")
	ErrInvalidTrackName = shared.NewDomainError("track", "Validate", shared.ErrInvalidInput, "track name must be 1-200 chars")
	ErrNegativePoints   = shared.NewDomainError("track", "Validate", shared.ErrValueOutOfRange, "points required must be non-negative")
	ErrInvalidContent   = shared.NewDomainError("track", "Validate", shared.ErrInvalidInput, "invalid content type")
	ErrPrerequisiteLoop = shared.NewDomainError("track", "Create", shared.ErrCycleDetected, "prerequisite chain forms a cycle")
	ErrForeignPrereq    = shared.NewDomainError("track", "Create", shared.ErrInvalidInput, "prerequisite track belongs to another room")
)

// Track is an ordered learning sequence owned by a room. Access can be gated
// on a point threshold, on completion of a prerequisite track, or both.
type Track struct {
	ID          string
	RoomID      string
	Name        string
	Description string
	OrderIndex  int

	// PointsRequired gates access on the user's global point total.
	// Zero means no point gate.
	PointsRequired int

	// PrerequisiteID references the track that must be completed first.
	// Empty means no prerequisite. The chain must stay acyclic.
	PrerequisiteID string

	CreatorID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTrack validates and builds a track. Cycle validation needs the rest of
// the room's tracks and lives in ValidatePrerequisite, called by the create
// command before persisting.
func NewTrack(id, roomID, name, description string, orderIndex, pointsRequired int, prerequisiteID, creatorID string) (*Track, error) {
	if id == "" || roomID == "" {
		return nil, shared.NewDomainError("track", "Create", shared.ErrInvalidID, "track and room ids are required")
	}
	name = strings.TrimSpace(name)
	if len(name) == 0 || len(name) > 200 {
		return nil, ErrInvalidTrackName
	}
	if pointsRequired < 0 {
		return nil, ErrNegativePoints
	}

	now := time.Now().UTC()
	return &Track{
		ID:             id,
		RoomID:         roomID,
		Name:           name,
		Description:    strings.TrimSpace(description),
		OrderIndex:     orderIndex,
		PointsRequired: pointsRequired,
		PrerequisiteID: prerequisiteID,
		CreatorID:      creatorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// HasPointGate returns true when access requires a point total.
func (t *Track) HasPointGate() bool { return t.PointsRequired > 0 }

// HasPrerequisite returns true when access requires a completed track.
func (t *Track) HasPrerequisite() bool { return t.PrerequisiteID != "" }

// ValidatePrerequisite checks that setting prerequisiteID on the track with
// trackID keeps the room's prerequisite chains acyclic, and that the
// prerequisite belongs to the same room. existing holds every other track of
// the room keyed by ID. Performed at write time; evaluation never walks a
// cyclic chain because construction rejects it here.
func ValidatePrerequisite(trackID, prerequisiteID, roomID string, existing map[string]*Track) error {
	if prerequisiteID == "" {
		return nil
	}
	if prerequisiteID == trackID {
		return ErrPrerequisiteLoop
	}

	seen := map[string]bool{trackID: true}
	cur := prerequisiteID
	for cur != "" {
		if seen[cur] {
			return ErrPrerequisiteLoop
		}
		seen[cur] = true

		t, ok := existing[cur]
		if !ok {
			return ErrTrackNotFound
		}
		if t.RoomID != roomID {
			return ErrForeignPrereq
		}
		cur = t.PrerequisiteID
	}
	return nil
}

// Module is an ordered grouping of content items within exactly one track.
type Module struct {
	ID          string
	TrackID     string
	Title       string
	Description string
	OrderIndex  int
	CreatedAt   time.Time
}

// NewModule validates and builds a module.
func NewModule(id, trackID, title, description string, orderIndex int) (*Module, error) {
	if id == "" || trackID == "" {
		return nil, shared.NewDomainError("track", "CreateModule", shared.ErrInvalidID, "module and track ids are required")
	}
	title = strings.TrimSpace(title)
	if len(title) == 0 || len(title) > 200 {
		return nil, shared.NewDomainError("track", "CreateModule", shared.ErrInvalidInput, "module title must be 1-200 chars")
	}
	return &Module{
		ID:          id,
		TrackID:     trackID,
		Title:       title,
		Description: strings.TrimSpace(description),
		OrderIndex:  orderIndex,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// ContentItem is an atomic learning unit inside a module.
type ContentItem struct {
	ID         string
	ModuleID   string
	Title      string
	Type       ContentType
	OrderIndex int

	// Body holds the text for text content, the storage key for file/video
	// content, or the URL for link content. Storage itself is external.
	Body string

	// EstimatedMinutes is the estimated time to complete this item.
	EstimatedMinutes int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewContentItem validates and builds a content item.
func NewContentItem(id, moduleID, title string, contentType ContentType, orderIndex int, body string, estimatedMinutes int) (*ContentItem, error) {
	if id == "" || moduleID == "" {
		return nil, shared.NewDomainError("track", "CreateContent", shared.ErrInvalidID, "content and module ids are required")
	}
	title = strings.TrimSpace(title)
	if len(title) == 0 || len(title) > 200 {
		return nil, shared.NewDomainError("track", "CreateContent", shared.ErrInvalidInput, "content title must be 1-200 chars")
	}
	if !contentType.IsValid() {
		return nil, ErrInvalidContent
	}
	if estimatedMinutes < 0 {
		estimatedMinutes = 0
	}
	now := time.Now().UTC()
	return &ContentItem{
		ID:               id,
		ModuleID:         moduleID,
		Title:            title,
		Type:             contentType,
		OrderIndex:       orderIndex,
		Body:             body,
		EstimatedMinutes: estimatedMinutes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Stable ordering
// ═══════════════════════════════════════════════════════════════════════════

// Order index ties break by creation time ascending so traversal is stable
// regardless of storage iteration order.

// SortTracks sorts tracks in display order.
func SortTracks(tracks []*Track) {
	sort.SliceStable(tracks, func(i, j int) bool {
		if tracks[i].OrderIndex != tracks[j].OrderIndex {
			return tracks[i].OrderIndex < tracks[j].OrderIndex
		}
		return tracks[i].CreatedAt.Before(tracks[j].CreatedAt)
	})
}

// SortModules sorts modules in display order.
func SortModules(modules []*Module) {
	sort.SliceStable(modules, func(i, j int) bool {
		if modules[i].OrderIndex != modules[j].OrderIndex {
			return modules[i].OrderIndex < modules[j].OrderIndex
		}
		return modules[i].CreatedAt.Before(modules[j].CreatedAt)
	})
}

// SortContents sorts content items in display order.
func SortContents(items []*ContentItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].OrderIndex != items[j].OrderIndex {
			return items[i].OrderIndex < items[j].OrderIndex
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

// NextContent returns the content item that follows cur inside its module,
// nil when cur is the last one. items must belong to the same module; they
// are sorted in place.
func NextContent(items []*ContentItem, cur *ContentItem) *ContentItem {
	SortContents(items)
	for i, it := range items {
		if it.ID == cur.ID && i+1 < len(items) {
			return items[i+1]
		}
	}
	return nil
}

// PreviousContent returns the content item that precedes cur inside its
// module, nil when cur is the first one.
func PreviousContent(items []*ContentItem, cur *ContentItem) *ContentItem {
	SortContents(items)
	for i, it := range items {
		if it.ID == cur.ID && i > 0 {
			return items[i-1]
		}
	}
	return nil
}
