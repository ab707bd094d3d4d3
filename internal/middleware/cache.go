package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/pmicianjur/pelantikan-api/internal/config"
)

// captureWriter tees the response body into a buffer (up to a limit)
// while forwarding it to the client, so successful responses can be
// stored after the handler ran.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 || cw.size+int64(len(b)) <= cw.limit {
		cw.buf.Write(b)
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// cacheKey builds prefix:route:sha1(query). The route stays readable so
// Invalidate can drop every variant of one route with a single pattern
// scan; only the query string is hashed, to keep keys short and uniform
// regardless of query length.
func cacheKey(prefix, route, query string) string {
	sum := sha1.Sum([]byte(query))
	return fmt.Sprintf("%s:%s:%x", prefix, route, sum[:])
}

// invalidatePattern matches every cached variant of a route, whatever
// query it was requested with.
func invalidatePattern(prefix, route string) string {
	return prefix + ":" + route + ":*"
}

// Cache wraps GET handlers with a Redis response cache. Only 200 JSON
// responses within the size limit are stored. Admin status mutations
// call Invalidate so the listing never serves a stale status for longer
// than one in-flight request.
type Cache struct {
	cfg config.CacheConfig
	rdb *redis.Client
}

// NewCache builds the cache helper; with a nil client every method is a
// no-op passthrough.
func NewCache(cfg config.CacheConfig, rdb *redis.Client) *Cache {
	return &Cache{cfg: cfg, rdb: rdb}
}

// Middleware returns the Echo middleware function.
func (ca *Cache) Middleware() echo.MiddlewareFunc {
	if !ca.cfg.Enabled || ca.rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	ttl := ca.cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !ca.cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(ca.cfg.Prefix, c.Path(), c.Request().URL.RawQuery)

			if body, err := ca.rdb.Get(ctx, key).Bytes(); err == nil {
				c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
				c.Response().Header().Set("X-Cache", "HIT")
				c.Response().WriteHeader(http.StatusOK)
				_, _ = c.Response().Write(body)
				return nil
			}

			cw := &captureWriter{
				ResponseWriter: c.Response().Writer,
				status:         http.StatusOK,
				limit:          int64(ca.cfg.MaxBodyBytes),
			}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status == http.StatusOK && cw.buf.Len() > 0 && (ca.cfg.MaxBodyBytes <= 0 || cw.size <= int64(ca.cfg.MaxBodyBytes)) {
				_ = ca.rdb.Set(ctx, key, cw.buf.Bytes(), ttl).Err()
			}
			return nil
		}
	}
}

// Invalidate drops every cached entry for a route, regardless of the
// query string it was requested with. Called by admin mutations on the
// listing route they affect.
func (ca *Cache) Invalidate(ctx context.Context, route string) {
	if ca.rdb == nil {
		return
	}
	iter := ca.rdb.Scan(ctx, 0, invalidatePattern(ca.cfg.Prefix, route), 100).Iterator()
	for iter.Next(ctx) {
		_ = ca.rdb.Del(ctx, iter.Val()).Err()
	}
	// A scan error means some variants outlive the mutation by one TTL.
	_ = iter.Err()
}
