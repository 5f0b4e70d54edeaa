package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	HomeStatsKey     = "home:stats"
	CategoriesKey    = "taxonomy:categories"
	TagsKey          = "taxonomy:tags"
	ProfileKeyPrefix = "profile:%d"
)

const (
	HomeStatsTTL = 2 * time.Minute
	TaxonomyTTL  = 10 * time.Minute
	ProfileTTL   = 5 * time.Minute
)

func ProfileKey(userID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

// Aside reads key into dest, or runs load (which must fill dest) and stores the result for ttl.
// Without a Redis client it simply runs load.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, load func() error) error {
	if client == nil {
		return load()
	}

	raw, err := client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			observability.CacheResults.WithLabelValues("hit").Inc()
			return nil
		}
		observability.CacheResults.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		observability.CacheResults.WithLabelValues("miss").Inc()
	default:
		observability.CacheResults.WithLabelValues("error").Inc()
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	if err := load(); err != nil {
		return err
	}

	payload, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	if err := client.Set(ctx, key, payload, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateHome drops the cached home stats after posts or comments change.
func InvalidateHome(ctx context.Context) {
	Invalidate(ctx, HomeStatsKey, CategoriesKey)
}

func InvalidateTaxonomy(ctx context.Context) {
	Invalidate(ctx, CategoriesKey, TagsKey)
}

func InvalidateProfile(ctx context.Context, userID uint) {
	Invalidate(ctx, ProfileKey(userID))
}
