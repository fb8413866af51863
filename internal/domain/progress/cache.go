package progress

import "context"

// Cache stores computed track-progress percentages with a TTL so repeated
// reads of a large track avoid recounting rows. Never authoritative; any
// completion write invalidates the affected entry.
type Cache interface {
	// GetTrackPercent returns the cached percentage and whether it was found.
	GetTrackPercent(ctx context.Context, userID, trackID string) (float64, bool, error)

	// SetTrackPercent stores the computed percentage.
	SetTrackPercent(ctx context.Context, userID, trackID string, percent float64) error

	// InvalidateTrack drops the cached percentage for a (user, track) pair.
	InvalidateTrack(ctx context.Context, userID, trackID string) error
}
