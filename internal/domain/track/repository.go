package track

import "context"

// Reader is the read-only traversal interface over the structural graph.
// The progress tracker, unlock evaluator and score ledger all consume this;
// none of them may mutate the shape.
type Reader interface {
	// GetTrack returns a track by ID.
	GetTrack(ctx context.Context, id string) (*Track, error)

	// ListTracks returns the tracks of a room in display order
	// (order index, then creation time).
	ListTracks(ctx context.Context, roomID string) ([]*Track, error)

	// ListModules returns the modules of a track in display order.
	ListModules(ctx context.Context, trackID string) ([]*Module, error)

	// GetModule returns a module by ID.
	GetModule(ctx context.Context, id string) (*Module, error)

	// ListContents returns the content items of a module in display order.
	ListContents(ctx context.Context, moduleID string) ([]*ContentItem, error)

	// GetContent returns a content item by ID.
	GetContent(ctx context.Context, id string) (*ContentItem, error)

	// CountTrackContents returns the number of content items across every
	// module of a track.
	CountTrackContents(ctx context.Context, trackID string) (int, error)
}

// Repository extends Reader with the write operations the structural CRUD
// layer uses. The engine itself writes tracks only through the create-track
// command (which owns cycle validation).
type Repository interface {
	Reader

	// CreateTrack persists a new track.
	CreateTrack(ctx context.Context, t *Track) error

	// CreateModule persists a new module.
	CreateModule(ctx context.Context, m *Module) error

	// CreateContent persists a new content item.
	CreateContent(ctx context.Context, c *ContentItem) error

	// CountRoomTracks returns the number of tracks in a room, used to assign
	// the next display order index.
	CountRoomTracks(ctx context.Context, roomID string) (int, error)
}
