package room

import "context"

// MemberScore is one leaderboard row of a room.
type MemberScore struct {
	UserID string
	Points int
	Rank   int
}

// PointsCache is the read-side cache of room point standings. It is never
// authoritative; grade rows are. Writers update it after a grade commits and
// readers fall back to live sums on a miss.
type PointsCache interface {
	// SetMemberPoints stores the current room-scoped point total of a member.
	SetMemberPoints(ctx context.Context, roomID, userID string, points int) error

	// GetTop returns up to limit members ordered by points descending.
	// An empty slice with no error means the cache is cold.
	GetTop(ctx context.Context, roomID string, limit int) ([]MemberScore, error)

	// Invalidate drops the cached standings of a room.
	Invalidate(ctx context.Context, roomID string) error
}
