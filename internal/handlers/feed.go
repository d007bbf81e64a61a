package handlers

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/feek13/mini-social-sub003/internal/linkpreview"
	"github.com/feek13/mini-social-sub003/internal/logger"
	"github.com/feek13/mini-social-sub003/internal/models"
	"github.com/feek13/mini-social-sub003/internal/repository"
	"github.com/feek13/mini-social-sub003/internal/util"
	"github.com/feek13/mini-social-sub003/internal/validation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ListPosts returns one page of a feed: latest (default), following or
// trending. The following feed needs a signed-in viewer.
// GET /api/posts?feed=
func (h *Handlers) ListPosts(c *gin.Context) {
	feed := strings.ToLower(c.DefaultQuery("feed", repository.FeedLatest))
	switch feed {
	case repository.FeedLatest, repository.FeedFollowing, repository.FeedTrending:
	default:
		util.RespondValidationError(c, "feed", "feed must be latest, following or trending")
		return
	}

	viewerID := util.OptionalUserID(c)
	if feed == repository.FeedFollowing && viewerID == "" {
		util.RespondUnauthorized(c, "sign in to see the following feed")
		return
	}

	ctx := c.Request.Context()
	limit, offset := util.ParsePagination(c)
	posts, total, err := h.posts.ListPosts(ctx, repository.PostQuery{
		Feed:     feed,
		ViewerID: viewerID,
		Page:     repository.Page{Limit: limit, Offset: offset},
	})
	if err != nil {
		util.RespondInternalError(c, "failed to load feed", err)
		return
	}
	out, err := h.postResponses(ctx, viewerID, posts)
	if err != nil {
		util.RespondInternalError(c, "failed to load feed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feed":       feed,
		"posts":      out,
		"pagination": util.NewPagination(limit, offset, total),
	})
}

type createPostRequest struct {
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
	LinkURL  string `json:"link_url"`
}

// CreatePost publishes a post, links its #hashtags and notifies @mentions
// POST /api/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid request body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := validation.ValidatePostContent(req.Content); err != nil {
		respondRepoError(c, err, "post")
		return
	}
	for field, raw := range map[string]string{"image_url": req.ImageURL, "link_url": req.LinkURL} {
		if raw == "" {
			continue
		}
		if _, err := linkpreview.ParseURL(raw); err != nil {
			util.RespondValidationError(c, field, "must be an http or https url")
			return
		}
	}

	ctx := c.Request.Context()
	post := models.Post{
		UserID:   user.ID,
		Content:  req.Content,
		ImageURL: req.ImageURL,
		LinkURL:  req.LinkURL,
	}
	tags, err := h.posts.CreatePost(ctx, &post)
	if err != nil {
		respondRepoError(c, err, "post")
		return
	}
	post.User = *user

	h.notifyMentions(ctx, user.ID, util.ExtractMentions(post.Content), post.ID, nil)

	logger.Log.Info("Post created",
		logger.WithUserID(user.ID),
		logger.WithPostID(post.ID),
		zap.Strings("hashtags", tags),
	)

	resp := newPostResponse(&post, false)
	resp.Hashtags = tags
	c.JSON(http.StatusCreated, gin.H{"post": resp})
}

// GetPost returns one post
// GET /api/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := h.posts.GetPost(ctx, c.Param("id"))
	if err != nil {
		respondRepoError(c, err, "post")
		return
	}

	liked, err := h.posts.LikedPostIDs(ctx, util.OptionalUserID(c), []string{post.ID})
	if err != nil {
		util.RespondInternalError(c, "failed to load post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": newPostResponse(post, liked[post.ID])})
}

// DeletePost removes the caller's own post
// DELETE /api/posts/:id
func (h *Handlers) DeletePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	post, err := h.posts.GetPost(ctx, c.Param("id"))
	if err != nil {
		respondRepoError(c, err, "post")
		return
	}
	if post.UserID != userID {
		util.RespondForbidden(c, "you can only delete your own posts")
		return
	}

	if err := h.posts.DeletePost(ctx, post); err != nil {
		respondRepoError(c, err, "post")
		return
	}
	logger.Log.Info("Post deleted", logger.WithUserID(userID), logger.WithPostID(post.ID))
	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": post.ID})
}

// LikePost likes a post. Liking twice is a no-op.
// POST /api/posts/:id/like
func (h *Handlers) LikePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	postID := c.Param("id")

	changed, count, err := h.posts.Like(ctx, postID, userID)
	if err != nil {
		respondRepoError(c, err, "post")
		return
	}
	if changed {
		if post, err := h.posts.GetPost(ctx, postID); err == nil {
			h.notify(ctx, &models.Notification{
				RecipientID: post.UserID,
				ActorID:     userID,
				Type:        models.NotificationLike,
				PostID:      &post.ID,
			})
		}
	}
	c.JSON(http.StatusOK, gin.H{"liked": true, "likes_count": count})
}

// UnlikePost removes the caller's like
// DELETE /api/posts/:id/like
func (h *Handlers) UnlikePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	_, count, err := h.posts.Unlike(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if stderrors.Is(err, repository.ErrPostNotFound) {
			util.RespondNotFound(c, "post")
			return
		}
		util.RespondInternalError(c, "failed to unlike post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": false, "likes_count": count})
}
