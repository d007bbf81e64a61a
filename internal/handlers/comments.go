package handlers

import (
	"net/http"
	"strings"

	"github.com/feek13/mini-social-sub003/internal/logger"
	"github.com/feek13/mini-social-sub003/internal/models"
	"github.com/feek13/mini-social-sub003/internal/repository"
	"github.com/feek13/mini-social-sub003/internal/util"
	"github.com/feek13/mini-social-sub003/internal/validation"
	"github.com/gin-gonic/gin"
)

// GetComments lists a post's comments, oldest first
// GET /api/posts/:id/comments
func (h *Handlers) GetComments(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := h.posts.GetPost(ctx, c.Param("id"))
	if err != nil {
		respondRepoError(c, err, "post")
		return
	}

	limit, offset := util.ParsePagination(c)
	comments, total, err := h.posts.ListComments(ctx, post.ID, repository.Page{Limit: limit, Offset: offset})
	if err != nil {
		util.RespondInternalError(c, "failed to get comments", err)
		return
	}

	out := make([]commentResponse, len(comments))
	for i := range comments {
		out[i] = newCommentResponse(&comments[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"comments":   out,
		"pagination": util.NewPagination(limit, offset, total),
	})
}

type createCommentRequest struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parent_id"`
}

// CreateComment comments on a post, optionally replying to another comment
// POST /api/posts/:id/comments
func (h *Handlers) CreateComment(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid request body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := validation.ValidateCommentContent(req.Content); err != nil {
		respondRepoError(c, err, "comment")
		return
	}
	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}

	ctx := c.Request.Context()
	post, err := h.posts.GetPost(ctx, c.Param("id"))
	if err != nil {
		respondRepoError(c, err, "post")
		return
	}

	comment := models.Comment{
		PostID:   post.ID,
		UserID:   user.ID,
		ParentID: req.ParentID,
		Content:  req.Content,
	}
	if err := h.posts.AddComment(ctx, &comment); err != nil {
		respondRepoError(c, err, "comment")
		return
	}
	comment.User = *user

	h.notify(ctx, &models.Notification{
		RecipientID: post.UserID,
		ActorID:     user.ID,
		Type:        models.NotificationComment,
		PostID:      &post.ID,
		CommentID:   &comment.ID,
	})
	h.notifyMentions(ctx, user.ID, util.ExtractMentions(comment.Content), post.ID, &comment.ID)

	logger.Log.Info("Comment created", logger.WithUserID(user.ID), logger.WithPostID(post.ID))
	c.JSON(http.StatusCreated, gin.H{"comment": newCommentResponse(&comment)})
}

// DeleteComment removes a comment and its replies. The comment's author and
// the post's owner may delete it.
// DELETE /api/comments/:id
func (h *Handlers) DeleteComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	comment, err := h.posts.GetComment(ctx, c.Param("id"))
	if err != nil {
		respondRepoError(c, err, "comment")
		return
	}
	if comment.UserID != userID {
		post, err := h.posts.GetPost(ctx, comment.PostID)
		if err != nil || post.UserID != userID {
			util.RespondForbidden(c, "you can only delete your own comments")
			return
		}
	}

	if err := h.posts.DeleteComment(ctx, comment); err != nil {
		respondRepoError(c, err, "comment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": comment.ID})
}
