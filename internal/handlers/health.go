package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthTimeout = 3 * time.Second

// Health reports database and cache connectivity. A cache failure degrades
// the service; a database failure makes it unavailable.
// GET /api/health
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := gin.H{}
	status := "healthy"
	code := http.StatusOK

	if err := h.pingDatabase(ctx); err != nil {
		checks["database"] = err.Error()
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	switch {
	case !h.cache.Enabled():
		checks["cache"] = "disabled"
	case h.cache.Ping(ctx) != nil:
		checks["cache"] = "unreachable"
		if code == http.StatusOK {
			status = "degraded"
		}
	default:
		checks["cache"] = "ok"
	}

	c.JSON(code, gin.H{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	})
}

func (h *Handlers) pingDatabase(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
