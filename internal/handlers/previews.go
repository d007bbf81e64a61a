package handlers

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/feek13/mini-social-sub003/internal/cache"
	"github.com/feek13/mini-social-sub003/internal/linkpreview"
	"github.com/feek13/mini-social-sub003/internal/util"
	"github.com/gin-gonic/gin"
)

// GetLinkPreview fetches Open Graph metadata for a URL
// GET /api/previews?url=
func (h *Handlers) GetLinkPreview(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("url"))
	if raw == "" {
		util.RespondValidationError(c, "url", "url is required")
		return
	}
	u, err := linkpreview.ParseURL(raw)
	if err != nil {
		util.RespondValidationError(c, "url", err.Error())
		return
	}

	key := cache.GenerateKey("preview", map[string]any{"url": u.String()})
	preview, cached, err := cache.GetOrSet(c.Request.Context(), h.cache, key, cache.TTLPreview,
		func(ctx context.Context) (*linkpreview.Preview, error) {
			return h.previews.Fetch(ctx, u.String())
		})
	if err != nil {
		switch {
		case stderrors.Is(err, linkpreview.ErrInvalidURL),
			stderrors.Is(err, linkpreview.ErrBlockedHost),
			stderrors.Is(err, linkpreview.ErrNotHTML):
			util.RespondValidationError(c, "url", err.Error())
		default:
			respondUpstream(c, "linkpreview", err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": preview, "cached": cached})
}
