package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"time"

	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Limit is a fixed-window request quota for one endpoint, counted in Redis per caller.
type Limit struct {
	Name   string
	Max    int
	Window time.Duration
	// FailClosed answers 503 when Redis cannot count; otherwise the request passes.
	FailClosed bool
}

// Per-endpoint quotas.
var (
	SignupLimit    = Limit{Name: "signup", Max: 3, Window: 10 * time.Minute}
	LoginLimit     = Limit{Name: "login", Max: 10, Window: 5 * time.Minute}
	SubscribeLimit = Limit{Name: "subscribe", Max: 5, Window: 10 * time.Minute}
	CommentLimit   = Limit{Name: "create_comment", Max: 10, Window: time.Minute}
)

var errNoRedis = errors.New("redis client is nil")

// limitsEnforced is false for local and test runs (APP_ENV unset, "development" or "test").
func limitsEnforced() bool {
	switch os.Getenv("APP_ENV") {
	case "", "development", "test":
		return false
	}
	return true
}

// Take counts one request by caller and reports whether it fits the quota,
// along with the time left in the current window.
func (l Limit) Take(ctx context.Context, rdb *redis.Client, caller string) (bool, time.Duration, error) {
	if !limitsEnforced() {
		return true, 0, nil
	}
	if rdb == nil {
		return false, 0, errNoRedis
	}

	key := fmt.Sprintf("rl:%s:%s", l.Name, caller)
	n, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if n == 1 {
		if err := rdb.Expire(ctx, key, l.Window).Err(); err != nil {
			return false, 0, err
		}
	}
	ttl, err := rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = l.Window
	}
	return n <= int64(l.Max), ttl, nil
}

// callerKey identifies the caller by user id once authenticated, by IP otherwise.
func callerKey(c *fiber.Ctx) string {
	if uid := CurrentUserID(c); uid != 0 {
		return "user:" + strconv.FormatUint(uint64(uid), 10)
	}
	return "ip:" + c.IP()
}

// RateLimit enforces l on the routes it guards.
func RateLimit(rdb *redis.Client, l Limit) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		allowed, ttl, err := l.Take(ctx, rdb, callerKey(c))
		if err != nil {
			if !l.FailClosed {
				return c.Next()
			}
			Logger.WarnContext(ctx, "rate limit unavailable",
				slog.String("limit", l.Name),
				slog.String("error", err.Error()),
			)
			return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
				Error: "Service temporarily unavailable, please try again later.",
				Code:  models.CodeRateLimited,
			})
		}

		if !allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(ttl.Seconds()))))
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
				Code:  models.CodeRateLimited,
			})
		}
		return c.Next()
	}
}
