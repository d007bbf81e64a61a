package handlers

import (
	"net/http"

	"github.com/feek13/mini-social-sub003/internal/repository"
	"github.com/feek13/mini-social-sub003/internal/util"
	"github.com/gin-gonic/gin"
)

// GetNotifications lists the caller's notifications, newest first
// GET /api/notifications?unread=true
func (h *Handlers) GetNotifications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	limit, offset := util.ParsePagination(c)
	notifs, total, err := h.notifications.List(ctx, userID, boolQuery(c, "unread"), repository.Page{Limit: limit, Offset: offset})
	if err != nil {
		util.RespondInternalError(c, "failed to get notifications", err)
		return
	}
	unread, err := h.notifications.UnreadCount(ctx, userID)
	if err != nil {
		util.RespondInternalError(c, "failed to get notifications", err)
		return
	}

	out := make([]notificationResponse, len(notifs))
	for i := range notifs {
		out[i] = notificationResponse{Notification: notifs[i], Actor: notifs[i].Actor.Public()}
	}
	c.JSON(http.StatusOK, gin.H{
		"notifications": out,
		"unread":        unread,
		"pagination":    util.NewPagination(limit, offset, total),
	})
}

// GetUnreadCount returns the badge count
// GET /api/notifications/unread-count
func (h *Handlers) GetUnreadCount(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	count, err := h.notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		util.RespondInternalError(c, "failed to get notification count", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkNotificationRead marks one notification read
// POST /api/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	found, err := h.notifications.MarkRead(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		util.RespondInternalError(c, "failed to mark notification read", err)
		return
	}
	if !found {
		util.RespondNotFound(c, "notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// MarkAllNotificationsRead marks all notifications as read
// POST /api/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	n, err := h.notifications.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		util.RespondInternalError(c, "failed to mark notifications read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "updated": n})
}
