package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/trailroom/trailroom-hub/internal/domain/shared"
	"github.com/trailroom/trailroom-hub/internal/domain/track"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT NAVIGATION / TRACK OUTLINE QUERIES
// Pure traversal over the structural graph in stable display order.
// ══════════════════════════════════════════════════════════════════════════════

// GetContentNavigationQuery asks for the neighbours of a content item.
type GetContentNavigationQuery struct {
	ContentID string
}

// Validate validates the query.
func (q GetContentNavigationQuery) Validate() error {
	if q.ContentID == "" {
		return errors.New("navigation: content_id is required")
	}
	return nil
}

// ContentNavigationDTO carries the previous and next items around a content
// item. Next crosses into the first item of the following module when the
// current module is exhausted; Previous stays within the module.
type ContentNavigationDTO struct {
	Current  *track.ContentItem `json:"current"`
	Previous *track.ContentItem `json:"previous,omitempty"`
	Next     *track.ContentItem `json:"next,omitempty"`

	// NextModuleID is set when Next lives in a different module.
	NextModuleID string `json:"next_module_id,omitempty"`
}

// GetContentNavigationHandler handles navigation queries.
type GetContentNavigationHandler struct {
	graph track.Reader
}

// NewGetContentNavigationHandler creates a new GetContentNavigationHandler.
func NewGetContentNavigationHandler(graph track.Reader) *GetContentNavigationHandler {
	return &GetContentNavigationHandler{graph: graph}
}

// Handle executes the navigation query.
func (h *GetContentNavigationHandler) Handle(ctx context.Context, q GetContentNavigationQuery) (*ContentNavigationDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("track", "Navigate", shared.ErrValidation, "invalid query", err)
	}

	current, err := h.graph.GetContent(ctx, q.ContentID)
	if err != nil {
		return nil, fmt.Errorf("navigation: load content: %w", err)
	}

	siblings, err := h.graph.ListContents(ctx, current.ModuleID)
	if err != nil {
		return nil, fmt.Errorf("navigation: list siblings: %w", err)
	}

	dto := &ContentNavigationDTO{
		Current:  current,
		Previous: track.PreviousContent(siblings, current),
		Next:     track.NextContent(siblings, current),
	}

	if dto.Next == nil {
		next, moduleID, err := h.firstOfNextModule(ctx, current)
		if err != nil {
			return nil, err
		}
		dto.Next = next
		dto.NextModuleID = moduleID
	}

	return dto, nil
}

// firstOfNextModule finds the first content item of the module that follows
// the current one within the track, skipping empty modules.
func (h *GetContentNavigationHandler) firstOfNextModule(ctx context.Context, current *track.ContentItem) (*track.ContentItem, string, error) {
	mod, err := h.graph.GetModule(ctx, current.ModuleID)
	if err != nil {
		return nil, "", fmt.Errorf("navigation: load module: %w", err)
	}
	modules, err := h.graph.ListModules(ctx, mod.TrackID)
	if err != nil {
		return nil, "", fmt.Errorf("navigation: list modules: %w", err)
	}

	passed := false
	for _, m := range modules {
		if m.ID == mod.ID {
			passed = true
			continue
		}
		if !passed {
			continue
		}
		items, err := h.graph.ListContents(ctx, m.ID)
		if err != nil {
			return nil, "", fmt.Errorf("navigation: list contents: %w", err)
		}
		if len(items) > 0 {
			return items[0], m.ID, nil
		}
	}
	return nil, "", nil
}

// GetTrackOutlineQuery asks for the full structure of a track.
type GetTrackOutlineQuery struct {
	TrackID string
}

// Validate validates the query.
func (q GetTrackOutlineQuery) Validate() error {
	if q.TrackID == "" {
		return errors.New("outline: track_id is required")
	}
	return nil
}

// ModuleOutlineDTO is one module with its ordered content items.
type ModuleOutlineDTO struct {
	Module   *track.Module        `json:"module"`
	Contents []*track.ContentItem `json:"contents"`
}

// TrackOutlineDTO is a track with its ordered modules and contents.
type TrackOutlineDTO struct {
	Track   *track.Track       `json:"track"`
	Modules []ModuleOutlineDTO `json:"modules"`
}

// GetTrackOutlineHandler handles outline queries.
type GetTrackOutlineHandler struct {
	graph track.Reader
}

// NewGetTrackOutlineHandler creates a new GetTrackOutlineHandler.
func NewGetTrackOutlineHandler(graph track.Reader) *GetTrackOutlineHandler {
	return &GetTrackOutlineHandler{graph: graph}
}

// Handle executes the outline query.
func (h *GetTrackOutlineHandler) Handle(ctx context.Context, q GetTrackOutlineQuery) (*TrackOutlineDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("track", "Outline", shared.ErrValidation, "invalid query", err)
	}

	t, err := h.graph.GetTrack(ctx, q.TrackID)
	if err != nil {
		return nil, fmt.Errorf("outline: load track: %w", err)
	}
	modules, err := h.graph.ListModules(ctx, q.TrackID)
	if err != nil {
		return nil, fmt.Errorf("outline: list modules: %w", err)
	}

	dto := &TrackOutlineDTO{Track: t, Modules: make([]ModuleOutlineDTO, 0, len(modules))}
	for _, m := range modules {
		items, err := h.graph.ListContents(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("outline: list contents: %w", err)
		}
		dto.Modules = append(dto.Modules, ModuleOutlineDTO{Module: m, Contents: items})
	}
	return dto, nil
}
