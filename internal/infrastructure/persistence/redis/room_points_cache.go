package redis

import (
	"context"
	"fmt"

	"github.com/trailroom/trailroom-hub/internal/domain/room"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROOM POINTS CACHE
// One sorted set per room, member = user ID, score = room point sum. The
// leaderboard query repopulates the whole set from grade rows on a miss, so
// a dropped key just costs one rebuild.
// ══════════════════════════════════════════════════════════════════════════════

// RoomPointsCache implements room.PointsCache on Redis sorted sets.
type RoomPointsCache struct {
	cache *Cache
}

// NewRoomPointsCache creates a new RoomPointsCache.
func NewRoomPointsCache(cache *Cache) *RoomPointsCache {
	return &RoomPointsCache{cache: cache}
}

func (c *RoomPointsCache) key(roomID string) string {
	return PrefixRoomPoints + roomID
}

// SetMemberPoints writes one member's score and refreshes the key TTL.
func (c *RoomPointsCache) SetMemberPoints(ctx context.Context, roomID, userID string, points int) error {
	key := c.key(roomID)

	pipe := c.cache.Client().Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(points), Member: userID})
	pipe.Expire(ctx, key, TTLRoomPoints)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("room_points: set member score: %w", err)
	}
	return nil
}

// GetTop returns the highest-scored members of a room in descending order.
// An empty result means the key is cold, not that the room is empty; callers
// fall back to the authoritative rows.
func (c *RoomPointsCache) GetTop(ctx context.Context, roomID string, limit int) ([]room.MemberScore, error) {
	if limit <= 0 {
		return nil, nil
	}

	entries, err := c.cache.Client().ZRevRangeWithScores(ctx, c.key(roomID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("room_points: range: %w", err)
	}

	scores := make([]room.MemberScore, 0, len(entries))
	for i, e := range entries {
		userID, ok := e.Member.(string)
		if !ok {
			continue
		}
		scores = append(scores, room.MemberScore{
			UserID: userID,
			Points: int(e.Score),
			Rank:   i + 1,
		})
	}
	return scores, nil
}

// Invalidate drops the whole room standing.
func (c *RoomPointsCache) Invalidate(ctx context.Context, roomID string) error {
	if err := c.cache.Delete(ctx, c.key(roomID)); err != nil {
		return fmt.Errorf("room_points: invalidate: %w", err)
	}
	return nil
}
