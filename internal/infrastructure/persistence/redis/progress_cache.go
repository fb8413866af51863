package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRACK PROGRESS CACHE
// ══════════════════════════════════════════════════════════════════════════════

// ProgressCache implements progress.Cache. One key per (user, track) pair
// holding the computed percentage as a plain float string.
type ProgressCache struct {
	cache *Cache
}

// NewProgressCache creates a new ProgressCache.
func NewProgressCache(cache *Cache) *ProgressCache {
	return &ProgressCache{cache: cache}
}

func (c *ProgressCache) key(userID, trackID string) string {
	return PrefixProgress + userID + ":" + trackID
}

// GetTrackPercent returns the cached percentage and whether it was found.
func (c *ProgressCache) GetTrackPercent(ctx context.Context, userID, trackID string) (float64, bool, error) {
	val, err := c.cache.Client().Get(ctx, c.key(userID, trackID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("progress_cache: get: %w", err)
	}

	percent, err := strconv.ParseFloat(val, 64)
	if err != nil {
		// A corrupt entry is treated as a miss and dropped.
		_ = c.cache.Delete(ctx, c.key(userID, trackID))
		return 0, false, nil
	}

	return percent, true, nil
}

// SetTrackPercent stores the computed percentage.
func (c *ProgressCache) SetTrackPercent(ctx context.Context, userID, trackID string, percent float64) error {
	val := strconv.FormatFloat(percent, 'f', -1, 64)
	if err := c.cache.Client().Set(ctx, c.key(userID, trackID), val, TTLTrackProgress).Err(); err != nil {
		return fmt.Errorf("progress_cache: set: %w", err)
	}
	return nil
}

// InvalidateTrack drops the cached percentage for a (user, track) pair.
func (c *ProgressCache) InvalidateTrack(ctx context.Context, userID, trackID string) error {
	if err := c.cache.Delete(ctx, c.key(userID, trackID)); err != nil {
		return fmt.Errorf("progress_cache: invalidate: %w", err)
	}
	return nil
}
