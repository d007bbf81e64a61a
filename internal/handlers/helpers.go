package handlers

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/feek13/mini-social-sub003/internal/alchemy"
	"github.com/feek13/mini-social-sub003/internal/chains"
	"github.com/feek13/mini-social-sub003/internal/defillama"
	"github.com/feek13/mini-social-sub003/internal/errors"
	"github.com/feek13/mini-social-sub003/internal/etherscan"
	"github.com/feek13/mini-social-sub003/internal/models"
	"github.com/feek13/mini-social-sub003/internal/repository"
	"github.com/feek13/mini-social-sub003/internal/util"
	"github.com/feek13/mini-social-sub003/internal/validation"
	"github.com/gin-gonic/gin"
)

// respondRepoError maps repository and validation errors to API errors.
func respondRepoError(c *gin.Context, err error, resource string) {
	var fieldErr *validation.FieldError
	switch {
	case stderrors.As(err, &fieldErr):
		util.RespondValidationError(c, fieldErr.Field, fieldErr.Message)
	case isNotFound(err):
		util.RespondNotFound(c, resource)
	case stderrors.Is(err, repository.ErrSelfFollow),
		stderrors.Is(err, repository.ErrSelfMessage),
		stderrors.Is(err, repository.ErrInvalidInput):
		util.RespondBadRequest(c, err.Error())
	case stderrors.Is(err, repository.ErrDuplicate):
		util.RespondWithAPIError(c, errors.AlreadyExists(resource))
	default:
		util.RespondInternalError(c, "failed to process "+resource, err)
	}
}

// respondUpstream converts a data client error: missing keys are 503, a
// cancelled deadline 504, anything else 502.
func respondUpstream(c *gin.Context, service string, err error) {
	switch {
	case stderrors.Is(err, defillama.ErrNotFound):
		util.RespondNotFound(c, "protocol")
	case stderrors.Is(err, etherscan.ErrNoAPIKey), stderrors.Is(err, alchemy.ErrNoAPIKey):
		util.RespondWithAPIError(c, errors.ServiceUnavailable(service))
	case stderrors.Is(err, alchemy.ErrUnsupportedNetwork):
		util.RespondValidationError(c, "chain", err.Error())
	case stderrors.Is(err, context.DeadlineExceeded):
		util.RespondWithAPIError(c, errors.Timeout(service+" request"))
	default:
		util.RespondUpstreamError(c, service, err)
	}
}

// chainParam reads ?chain= as a chain key or chain id, defaulting to the
// registry default.
func chainParam(c *gin.Context) (chains.Chain, bool) {
	key := strings.TrimSpace(c.Query("chain"))
	if key == "" {
		return chains.Default(), true
	}
	chain, err := chains.Lookup(key)
	if err != nil {
		util.RespondValidationError(c, "chain", err.Error())
		return chains.Chain{}, false
	}
	return chain, true
}

// addressParam reads and validates the :address path segment.
func addressParam(c *gin.Context) (string, bool) {
	address := c.Param("address")
	if !validation.IsValidAddress(address) {
		util.RespondValidationError(c, "address", "invalid address format")
		return "", false
	}
	return address, true
}

func boolQuery(c *gin.Context, name string) bool {
	switch strings.ToLower(c.Query(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

type postResponse struct {
	models.Post
	Author   models.PublicUser `json:"author"`
	Liked    bool              `json:"liked"`
	Hashtags []string          `json:"hashtags,omitempty"`
}

func newPostResponse(p *models.Post, liked bool) postResponse {
	return postResponse{Post: *p, Author: p.User.Public(), Liked: liked}
}

// postResponses marks the posts viewerID has liked.
func (h *Handlers) postResponses(ctx context.Context, viewerID string, posts []models.Post) ([]postResponse, error) {
	ids := make([]string, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	liked, err := h.posts.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	out := make([]postResponse, len(posts))
	for i := range posts {
		out[i] = newPostResponse(&posts[i], liked[posts[i].ID])
	}
	return out, nil
}

type commentResponse struct {
	models.Comment
	Author models.PublicUser `json:"author"`
}

func newCommentResponse(cm *models.Comment) commentResponse {
	return commentResponse{Comment: *cm, Author: cm.User.Public()}
}

type notificationResponse struct {
	models.Notification
	Actor models.PublicUser `json:"actor"`
}

type conversationResponse struct {
	ID            string            `json:"id"`
	Other         models.PublicUser `json:"other_user"`
	LastMessage   *models.Message   `json:"last_message"`
	LastMessageAt time.Time         `json:"last_message_at"`
	UnreadCount   int64             `json:"unread_count"`
}

func newConversationResponse(s *repository.ConversationSummary) conversationResponse {
	return conversationResponse{
		ID:            s.Conversation.ID,
		Other:         s.Other.Public(),
		LastMessage:   s.LastMessage,
		LastMessageAt: s.Conversation.LastMessageAt,
		UnreadCount:   s.UnreadCount,
	}
}

// profileResponse adds the fields only the owner may see.
type profileResponse struct {
	models.User
	Email string `json:"email"`
}
