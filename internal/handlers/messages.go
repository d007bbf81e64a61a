package handlers

import (
	"net/http"
	"strings"

	"github.com/feek13/mini-social-sub003/internal/models"
	"github.com/feek13/mini-social-sub003/internal/repository"
	"github.com/feek13/mini-social-sub003/internal/util"
	"github.com/feek13/mini-social-sub003/internal/validation"
	"github.com/gin-gonic/gin"
)

// GetConversations lists the caller's direct-message inbox
// GET /api/conversations
func (h *Handlers) GetConversations(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	limit, offset := util.ParsePagination(c)
	summaries, total, err := h.messages.ListConversations(c.Request.Context(), userID, repository.Page{Limit: limit, Offset: offset})
	if err != nil {
		util.RespondInternalError(c, "failed to get conversations", err)
		return
	}

	out := make([]conversationResponse, len(summaries))
	for i := range summaries {
		out[i] = newConversationResponse(&summaries[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"conversations": out,
		"pagination":    util.NewPagination(limit, offset, total),
	})
}

// CreateConversation returns the caller's DM with recipient_id, creating it
// on first contact
// POST /api/conversations
func (h *Handlers) CreateConversation(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		RecipientID string `json:"recipient_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondValidationError(c, "recipient_id", "recipient_id is required")
		return
	}

	ctx := c.Request.Context()
	recipient, err := h.users.GetUser(ctx, req.RecipientID)
	if err != nil {
		respondRepoError(c, err, "user")
		return
	}

	conv, created, err := h.messages.GetOrCreateDirect(ctx, userID, recipient.ID)
	if err != nil {
		respondRepoError(c, err, "conversation")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"conversation": gin.H{
			"id":              conv.ID,
			"other_user":      recipient.Public(),
			"last_message_at": conv.LastMessageAt,
		},
		"created": created,
	})
}

// requireParticipant answers 403 unless the caller is in the conversation.
func (h *Handlers) requireParticipant(c *gin.Context, conversationID, userID string) bool {
	ok, err := h.messages.IsParticipant(c.Request.Context(), conversationID, userID)
	if err != nil {
		util.RespondInternalError(c, "failed to load conversation", err)
		return false
	}
	if !ok {
		util.RespondForbidden(c, "not a participant of this conversation")
		return false
	}
	return true
}

// GetMessages lists a conversation's messages, newest first
// GET /api/conversations/:id/messages
func (h *Handlers) GetMessages(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	convID := c.Param("id")
	if !h.requireParticipant(c, convID, userID) {
		return
	}

	limit, offset := util.ParsePagination(c)
	messages, total, err := h.messages.ListMessages(c.Request.Context(), convID, repository.Page{Limit: limit, Offset: offset})
	if err != nil {
		util.RespondInternalError(c, "failed to get messages", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages":   messages,
		"pagination": util.NewPagination(limit, offset, total),
	})
}

// SendMessage posts a message and notifies the other participant
// POST /api/conversations/:id/messages
func (h *Handlers) SendMessage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	convID := c.Param("id")

	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid request body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := validation.ValidateMessageContent(req.Content); err != nil {
		respondRepoError(c, err, "message")
		return
	}
	if !h.requireParticipant(c, convID, userID) {
		return
	}

	ctx := c.Request.Context()
	msg := models.Message{ConversationID: convID, SenderID: userID, Content: req.Content}
	if err := h.messages.SendMessage(ctx, &msg); err != nil {
		respondRepoError(c, err, "conversation")
		return
	}

	participants, err := h.messages.Participants(ctx, convID)
	if err == nil {
		for _, id := range participants {
			h.notify(ctx, &models.Notification{RecipientID: id, ActorID: userID, Type: models.NotificationMessage})
		}
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// MarkConversationRead moves the caller's read marker to now
// POST /api/conversations/:id/read
func (h *Handlers) MarkConversationRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	convID := c.Param("id")
	if !h.requireParticipant(c, convID, userID) {
		return
	}
	if err := h.messages.MarkRead(c.Request.Context(), convID, userID); err != nil {
		util.RespondInternalError(c, "failed to mark conversation read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
