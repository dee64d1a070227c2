package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
)

const limitMessage = "Too many requests from this IP, please try again in an hour!"

// Limiter counts requests per key in fixed windows stored in Redis.
type Limiter struct {
	Client redis.Cmdable
	Max    int
	Window time.Duration
	Prefix string
	Now    func() time.Time
}

func New(client redis.Cmdable, max int, window time.Duration) *Limiter {
	return &Limiter{
		Client: client,
		Max:    max,
		Window: window,
		Prefix: "storefront:ratelimit",
		Now:    time.Now,
	}
}

type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.Now()
	start := now.Truncate(l.Window)
	reset := start.Add(l.Window)
	redisKey := fmt.Sprintf("%s:%s:%d", l.Prefix, key, start.Unix())

	var incr *redis.IntCmd
	_, err := l.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, redisKey)
		p.Expire(ctx, redisKey, reset.Sub(now))
		return nil
	})
	if err != nil {
		return Result{Allowed: true}, fmt.Errorf("rate limit counter: %w", err)
	}

	count := int(incr.Val())
	remaining := l.Max - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: count <= l.Max, Remaining: remaining, Reset: reset}, nil
}

// Middleware limits requests per client IP. Redis failures let the request through.
func Middleware(l *Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			res, err := l.Allow(ctx, c.RealIP())
			if err != nil {
				logging.FromContext(ctx).Error("rate_limit_error", "error", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))

			if !res.Allowed {
				h.Set("Retry-After", strconv.Itoa(int(res.Reset.Sub(l.Now()).Seconds())+1))
				return echo.NewHTTPError(http.StatusTooManyRequests, limitMessage)
			}
			return next(c)
		}
	}
}
