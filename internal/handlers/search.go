package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/feek13/mini-social-sub003/internal/cache"
	"github.com/feek13/mini-social-sub003/internal/models"
	"github.com/feek13/mini-social-sub003/internal/repository"
	"github.com/feek13/mini-social-sub003/internal/util"
	"github.com/gin-gonic/gin"
)

const searchResultLimit = 10

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
}

// GetHashtagPosts lists posts carrying a hashtag
// GET /api/search/hashtags/:tag
func (h *Handlers) GetHashtagPosts(c *gin.Context) {
	tag := normalizeTag(c.Param("tag"))
	if tag == "" {
		util.RespondValidationError(c, "tag", "hashtag is required")
		return
	}

	ctx := c.Request.Context()
	limit, offset := util.ParsePagination(c)
	posts, total, err := h.posts.ListPosts(ctx, repository.PostQuery{
		Hashtag: tag,
		Page:    repository.Page{Limit: limit, Offset: offset},
	})
	if err != nil {
		util.RespondInternalError(c, "failed to search posts", err)
		return
	}
	out, err := h.postResponses(ctx, util.OptionalUserID(c), posts)
	if err != nil {
		util.RespondInternalError(c, "failed to search posts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hashtag":    tag,
		"posts":      out,
		"pagination": util.NewPagination(limit, offset, total),
	})
}

// GetTrendingHashtags lists the most used hashtags
// GET /api/search/hashtags/trending
func (h *Handlers) GetTrendingHashtags(c *gin.Context) {
	limit := util.ParseInt(c.Query("limit"), searchResultLimit)
	if limit <= 0 || limit > util.MaxLimit {
		limit = searchResultLimit
	}

	key := cache.GenerateKey("hashtags:trending", map[string]any{"limit": limit})
	tags, cached, err := cache.GetOrSet(c.Request.Context(), h.cache, key, cache.TTLTrending,
		func(ctx context.Context) ([]models.Hashtag, error) {
			return h.posts.TrendingHashtags(ctx, limit)
		})
	if err != nil {
		util.RespondInternalError(c, "failed to get trending hashtags", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tags, "cached": cached})
}

// Search matches users and hashtags
// GET /api/search?q=
func (h *Handlers) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		util.RespondValidationError(c, "q", "search query is required")
		return
	}
	ctx := c.Request.Context()

	users, _, err := h.users.SearchUsers(ctx, strings.TrimPrefix(q, "@"), repository.Page{Limit: searchResultLimit})
	if err != nil {
		util.RespondInternalError(c, "failed to search", err)
		return
	}
	tags, err := h.posts.SearchHashtags(ctx, normalizeTag(q), searchResultLimit)
	if err != nil {
		util.RespondInternalError(c, "failed to search", err)
		return
	}

	out := make([]models.PublicUser, len(users))
	for i := range users {
		out[i] = users[i].Public()
	}
	c.JSON(http.StatusOK, gin.H{
		"query":    q,
		"users":    out,
		"hashtags": tags,
	})
}
