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

	"github.com/tdapps/td-backend/internal/config"
)

// bodyCapture tees the response body so a successful listing can be stored
// in Redis after it has been sent to the client.
type bodyCapture struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *bodyCapture) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// cacheStore is the slice of the Redis API the listing cache uses.
// *redis.Client satisfies it; tests substitute an in-memory fake.
type cacheStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetEx(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// listingEntities maps a route to the record types its listings are built
// from.  Every cached key embeds the entity's generation counter and every
// successful mutation increments it, so a write invalidates all cached
// listings of that entity at once (the owner's and the admin/staff ones),
// without scanning Redis for keys.  Superseded entries age out via TTL.
func listingEntities(path string) []string {
	switch {
	case strings.HasPrefix(path, "/pdu/full"):
		return []string{"pdu", "acara"}
	case strings.HasPrefix(path, "/pdu"): // /pdu, /pdu/:id, /pduadmin, /pdustaff
		return []string{"pdu"}
	case strings.HasPrefix(path, "/acara"), path == "/admin/acara":
		return []string{"acara"}
	}
	return nil
}

// ListingCache caches successful GET responses on the record routes per
// authenticated user for a short TTL.  The cache key includes the user id
// from the request context, so one user's records are never replayed to
// another; unauthenticated requests are never cached.  Mutating requests
// pass through and bump the generation of the entity they touched.
// Runs after JWTAuth.
func ListingCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return listingCache(cfg, rdb)
}

func listingCache(cfg config.CacheConfig, rdb cacheStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			entities := listingEntities(c.Path())
			if len(entities) == 0 {
				return next(c)
			}

			if c.Request().Method != http.MethodGet {
				err := next(c)
				if err == nil && c.Response().Status < http.StatusBadRequest {
					// The response is already on the wire; a lost INCR only
					// means staleness until the TTL, so errors are ignored.
					for _, ent := range entities {
						_ = rdb.Incr(context.Background(), genKey(cfg, ent)).Err()
					}
				}
				return err
			}

			uid, ok := c.Get(CtxUserID).(uint64)
			if !ok {
				return next(c)
			}

			ctx := c.Request().Context()
			gen, err := rdb.Get(ctx, genKey(cfg, entities[0])).Result()
			if err != nil {
				gen = "0"
			}
			sum := sha1.Sum([]byte(fmt.Sprintf("%d:%s:%s", uid, c.Path(), c.Request().URL.RawQuery)))
			key := fmt.Sprintf("%s:%s:g%s:%x", cfg.Prefix, entities[0], gen, sum)

			if body, err := rdb.Get(ctx, key).Bytes(); err == nil {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.JSONBlob(http.StatusOK, body)
			}

			cw := &bodyCapture{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status == http.StatusOK {
				_ = rdb.SetEx(context.Background(), key, cw.buf.Bytes(), cfg.TTL).Err()
			}
			return nil
		}
	}
}

func genKey(cfg config.CacheConfig, entity string) string {
	return cfg.Prefix + ":gen:" + entity
}
