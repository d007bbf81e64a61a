package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/feek13/mini-social-sub003/internal/cache"
	"github.com/feek13/mini-social-sub003/internal/logger"
	"github.com/feek13/mini-social-sub003/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const responseCachePrefix = "response:"

type cachedResponse struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// ResponseCache serves repeated GETs of a route from the cache for ttl. Only
// 2xx responses are stored. The key covers the route, the query parameters and
// the caller's user id. X-Cache reports HIT or MISS.
//
// Anonymous responses may be kept by shared caches for ttl. A signed-in
// caller's response is private and must be revalidated.
func ResponseCache(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || !store.Enabled() {
			c.Next()
			return
		}

		key := responseCacheKey(c)
		ctx := c.Request.Context()
		cacheControl := fmt.Sprintf("public, max-age=%d", int(ttl.Seconds()))
		if util.OptionalUserID(c) != "" {
			cacheControl = "private, no-cache"
		}
		c.Writer.Header().Add("Vary", "Authorization")

		var hit cachedResponse
		found, err := store.Get(ctx, key, &hit)
		if err != nil {
			logger.Log.Debug("Response cache read failed", zap.String("key", key), zap.Error(err))
		}
		if found {
			c.Header("X-Cache", "HIT")
			c.Header("Cache-Control", cacheControl)
			c.Data(http.StatusOK, hit.ContentType, hit.Body)
			c.Abort()
			return
		}

		writer := &cachedResponseWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer
		c.Header("X-Cache", "MISS")
		c.Header("Cache-Control", cacheControl)

		c.Next()

		status := writer.Status()
		if status < 200 || status >= 300 || writer.body.Len() == 0 {
			return
		}
		entry := cachedResponse{ContentType: writer.Header().Get("Content-Type"), Body: writer.body.Bytes()}
		if err := store.Set(ctx, key, entry, ttl); err != nil {
			logger.Log.Debug("Response cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// InvalidateResponseCache drops the cached responses of the given routes
// after a successful mutation.
func InvalidateResponseCache(store *cache.Cache, routes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if status := c.Writer.Status(); status < 200 || status >= 400 {
			return
		}
		for _, route := range routes {
			if _, err := store.DeletePrefix(c.Request.Context(), responseCachePrefix+route); err != nil {
				logger.Log.Warn("Failed to invalidate response cache", zap.String("route", route), zap.Error(err))
			}
		}
	}
}

func responseCacheKey(c *gin.Context) string {
	params := make(map[string]any)
	for name, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[name] = values[0]
		}
	}
	if userID := util.OptionalUserID(c); userID != "" {
		params["_user"] = userID
	}
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	for _, p := range c.Params {
		params["_"+p.Key] = p.Value
	}
	return cache.GenerateKey(responseCachePrefix+route, params)
}

// cachedResponseWriter tees the response body so it can be stored.
type cachedResponseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *cachedResponseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *cachedResponseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
