package util

import (
	"github.com/feek13/mini-social-sub003/internal/models"
	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware.
const (
	ContextUserKey   = "user"
	ContextUserIDKey = "user_id"
)

// GetUserFromContext returns the authenticated user. When there is none it
// responds 401 and returns false.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	user, exists := c.Get(ContextUserKey)
	if !exists {
		RespondUnauthorized(c)
		return nil, false
	}
	userPtr, ok := user.(*models.User)
	if !ok {
		RespondInternalError(c, "invalid user data in context")
		return nil, false
	}
	return userPtr, true
}

// GetUserIDFromContext returns the authenticated user's id, responding 401
// when the request is anonymous.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID := OptionalUserID(c)
	if userID == "" {
		RespondUnauthorized(c)
		return "", false
	}
	return userID, true
}

// OptionalUserID returns the caller's user id or "" for anonymous requests.
func OptionalUserID(c *gin.Context) string {
	v, exists := c.Get(ContextUserIDKey)
	if !exists {
		return ""
	}
	id, _ := v.(string)
	return id
}
