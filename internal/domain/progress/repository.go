package progress

import "context"

// Repository defines persistence operations for view records and the
// aggregate counts the percentage math runs on.
type Repository interface {
	// Get returns the view record for a (user, content) pair, or
	// ErrViewNotFound.
	Get(ctx context.Context, userID, contentID string) (*ViewRecord, error)

	// Upsert inserts the record if the (user, content) pair has none, else
	// updates the existing row in place. The unique key makes RecordView
	// idempotent.
	Upsert(ctx context.Context, v *ViewRecord) error

	// CountCompletedInModule returns how many content items of a module the
	// user has completed.
	CountCompletedInModule(ctx context.Context, userID, moduleID string) (int, error)

	// CountCompletedInTrack returns how many content items across all
	// modules of a track the user has completed.
	CountCompletedInTrack(ctx context.Context, userID, trackID string) (int, error)
}
