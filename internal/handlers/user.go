package handlers

import (
	"context"
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

// GetProfile returns a public profile
// GET /api/users/:username
func (h *Handlers) GetProfile(c *gin.Context) {
	user, err := h.users.GetUserByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondRepoError(c, err, "user")
		return
	}

	isFollowing := false
	viewerID := util.OptionalUserID(c)
	if viewerID != "" && viewerID != user.ID {
		isFollowing, err = h.users.IsFollowing(c.Request.Context(), viewerID, user.ID)
		if err != nil {
			util.RespondInternalError(c, "failed to load follow state", err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"user":         user,
		"is_following": isFollowing,
		"is_self":      viewerID == user.ID,
	})
}

type updateProfileRequest struct {
	DisplayName   *string `json:"display_name"`
	Bio           *string `json:"bio"`
	AvatarURL     *string `json:"avatar_url"`
	Website       *string `json:"website"`
	WalletAddress *string `json:"wallet_address"`
}

// UpdateProfile edits the caller's profile. Absent fields are left alone; an
// empty wallet_address unlinks the wallet.
// PUT /api/users/me
func (h *Handlers) UpdateProfile(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid request body")
		return
	}

	updates := map[string]any{}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" || len([]rune(name)) > 50 {
			util.RespondValidationError(c, "display_name", "display name must be 1-50 characters")
			return
		}
		updates["display_name"] = name
	}
	if req.Bio != nil {
		if err := validation.ValidateBio(*req.Bio); err != nil {
			respondRepoError(c, err, "profile")
			return
		}
		updates["bio"] = strings.TrimSpace(*req.Bio)
	}
	for field, value := range map[string]*string{"avatar_url": req.AvatarURL, "website": req.Website} {
		if value == nil {
			continue
		}
		v := strings.TrimSpace(*value)
		if v != "" {
			if _, err := linkpreview.ParseURL(v); err != nil {
				util.RespondValidationError(c, field, "must be an http or https url")
				return
			}
		}
		updates[field] = v
	}
	if req.WalletAddress != nil {
		addr := strings.TrimSpace(*req.WalletAddress)
		if addr == "" {
			updates["wallet_address"] = nil
		} else {
			checksummed, err := validation.ChecksumAddress(addr)
			if err != nil {
				util.RespondValidationError(c, "wallet_address", "invalid address format")
				return
			}
			updates["wallet_address"] = checksummed
		}
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userID, updates)
	if err != nil {
		respondRepoError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profileResponse{User: *user, Email: user.Email}})
}

// GetUserPosts lists a user's posts, newest first
// GET /api/users/:username/posts
func (h *Handlers) GetUserPosts(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.users.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		respondRepoError(c, err, "user")
		return
	}

	limit, offset := util.ParsePagination(c)
	posts, total, err := h.posts.ListPosts(ctx, repository.PostQuery{
		AuthorID: user.ID,
		Page:     repository.Page{Limit: limit, Offset: offset},
	})
	if err != nil {
		util.RespondInternalError(c, "failed to list posts", err)
		return
	}
	out, err := h.postResponses(ctx, util.OptionalUserID(c), posts)
	if err != nil {
		util.RespondInternalError(c, "failed to list posts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":      out,
		"pagination": util.NewPagination(limit, offset, total),
	})
}

// GetFollowers lists who follows a user
// GET /api/users/:username/followers
func (h *Handlers) GetFollowers(c *gin.Context) {
	h.followList(c, h.users.GetFollowers, "followers")
}

// GetFollowing lists who a user follows
// GET /api/users/:username/following
func (h *Handlers) GetFollowing(c *gin.Context) {
	h.followList(c, h.users.GetFollowing, "following")
}

type followLister func(ctx context.Context, userID string, page repository.Page) ([]models.User, int64, error)

func (h *Handlers) followList(c *gin.Context, list followLister, key string) {
	ctx := c.Request.Context()
	user, err := h.users.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		respondRepoError(c, err, "user")
		return
	}

	limit, offset := util.ParsePagination(c)
	users, total, err := list(ctx, user.ID, repository.Page{Limit: limit, Offset: offset})
	if err != nil {
		util.RespondInternalError(c, "failed to list "+key, err)
		return
	}

	out := make([]models.PublicUser, len(users))
	for i := range users {
		out[i] = users[i].Public()
	}
	c.JSON(http.StatusOK, gin.H{
		key:          out,
		"pagination": util.NewPagination(limit, offset, total),
	})
}

// SearchUsers matches username or display name
// GET /api/users/search?q=
func (h *Handlers) SearchUsers(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		util.RespondValidationError(c, "q", "search query is required")
		return
	}

	limit, offset := util.ParsePagination(c)
	users, total, err := h.users.SearchUsers(c.Request.Context(), q, repository.Page{Limit: limit, Offset: offset})
	if err != nil {
		util.RespondInternalError(c, "failed to search users", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users":      users,
		"pagination": util.NewPagination(limit, offset, total),
	})
}

// FollowUser follows :username
// POST /api/users/:username/follow
func (h *Handlers) FollowUser(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	target, err := h.users.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		respondRepoError(c, err, "user")
		return
	}

	created, err := h.users.Follow(ctx, userID, target.ID)
	if err != nil {
		respondRepoError(c, err, "follow")
		return
	}
	if created {
		h.notify(ctx, &models.Notification{
			RecipientID: target.ID,
			ActorID:     userID,
			Type:        models.NotificationFollow,
		})
		logger.Log.Info("User followed", logger.WithUserID(userID), zap.String("target_id", target.ID))
	}

	c.JSON(http.StatusOK, gin.H{"following": true, "user_id": target.ID})
}

// UnfollowUser unfollows :username
// DELETE /api/users/:username/follow
func (h *Handlers) UnfollowUser(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	target, err := h.users.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		respondRepoError(c, err, "user")
		return
	}
	if _, err := h.users.Unfollow(ctx, userID, target.ID); err != nil {
		respondRepoError(c, err, "follow")
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": false, "user_id": target.ID})
}
