package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trailroom/trailroom-hub/internal/domain/track"
)

// navGraph builds a track with three modules: two items, an empty module,
// then one item. Navigation must cross the empty module.
func navGraph() *fakeGraph {
	graph := newFakeGraph()
	graph.tracks["track-1"] = &track.Track{ID: "track-1", RoomID: "room-1", Name: "Basics"}
	graph.modules["mod-1"] = &track.Module{ID: "mod-1", TrackID: "track-1", OrderIndex: 0}
	graph.modules["mod-2"] = &track.Module{ID: "mod-2", TrackID: "track-1", OrderIndex: 1}
	graph.modules["mod-3"] = &track.Module{ID: "mod-3", TrackID: "track-1", OrderIndex: 2}

	graph.contents["c1"] = &track.ContentItem{ID: "c1", ModuleID: "mod-1", OrderIndex: 0, Type: track.ContentText}
	graph.contents["c2"] = &track.ContentItem{ID: "c2", ModuleID: "mod-1", OrderIndex: 1, Type: track.ContentText}
	graph.contents["c3"] = &track.ContentItem{ID: "c3", ModuleID: "mod-3", OrderIndex: 0, Type: track.ContentText}
	return graph
}

func TestNavigationWithinModule(t *testing.T) {
	h := NewGetContentNavigationHandler(navGraph())

	result, err := h.Handle(context.Background(), GetContentNavigationQuery{ContentID: "c1"})
	assert.NoError(t, err)
	assert.Nil(t, result.Previous)
	assert.Equal(t, "c2", result.Next.ID)
	assert.Empty(t, result.NextModuleID)
}

func TestNavigationCrossesModuleBoundary(t *testing.T) {
	h := NewGetContentNavigationHandler(navGraph())

	// The last item of mod-1 continues into mod-3, skipping the empty mod-2.
	result, err := h.Handle(context.Background(), GetContentNavigationQuery{ContentID: "c2"})
	assert.NoError(t, err)
	assert.Equal(t, "c1", result.Previous.ID)
	assert.Equal(t, "c3", result.Next.ID)
	assert.Equal(t, "mod-3", result.NextModuleID)
}

func TestNavigationAtTrackEnd(t *testing.T) {
	h := NewGetContentNavigationHandler(navGraph())

	result, err := h.Handle(context.Background(), GetContentNavigationQuery{ContentID: "c3"})
	assert.NoError(t, err)
	assert.Nil(t, result.Next)
	assert.Nil(t, result.Previous)
}

func TestNavigationUnknownContent(t *testing.T) {
	h := NewGetContentNavigationHandler(navGraph())

	_, err := h.Handle(context.Background(), GetContentNavigationQuery{ContentID: "ghost"})
	assert.ErrorIs(t, err, track.ErrContentNotFound)
}

func TestTrackOutline(t *testing.T) {
	h := NewGetTrackOutlineHandler(navGraph())

	result, err := h.Handle(context.Background(), GetTrackOutlineQuery{TrackID: "track-1"})
	assert.NoError(t, err)
	assert.Equal(t, "Basics", result.Track.Name)
	assert.Len(t, result.Modules, 3)

	// Modules come back in display order with their items ordered too.
	assert.Equal(t, "mod-1", result.Modules[0].Module.ID)
	assert.Len(t, result.Modules[0].Contents, 2)
	assert.Equal(t, "c1", result.Modules[0].Contents[0].ID)
	assert.Empty(t, result.Modules[1].Contents)
	assert.Len(t, result.Modules[2].Contents, 1)
}
