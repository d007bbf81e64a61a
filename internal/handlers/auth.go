package handlers

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/feek13/mini-social-sub003/internal/auth"
	"github.com/feek13/mini-social-sub003/internal/errors"
	"github.com/feek13/mini-social-sub003/internal/logger"
	"github.com/feek13/mini-social-sub003/internal/util"
	"github.com/feek13/mini-social-sub003/internal/validation"
	"github.com/gin-gonic/gin"
)

// Register creates an account and returns a token
// POST /api/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "email, username and password are required")
		return
	}

	resp, err := h.auth.Register(req)
	if err != nil {
		var fieldErr *validation.FieldError
		switch {
		case stderrors.As(err, &fieldErr):
			util.RespondValidationError(c, fieldErr.Field, fieldErr.Message)
		case stderrors.Is(err, auth.ErrUserExists):
			util.RespondWithAPIError(c, errors.AlreadyExists("email"))
		case stderrors.Is(err, auth.ErrUsernameExists):
			util.RespondWithAPIError(c, errors.AlreadyExists("username"))
		default:
			util.RespondInternalError(c, "failed to register", err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":      resp.Token,
		"expires_at": resp.ExpiresAt,
		"user":       profileResponse{User: resp.User, Email: resp.User.Email},
	})
}

// Login exchanges credentials for a token
// POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "login and password are required")
		return
	}

	resp, err := h.auth.Login(req)
	if err != nil {
		if stderrors.Is(err, auth.ErrInvalidCredentials) {
			util.RespondUnauthorized(c, "invalid credentials")
			return
		}
		util.RespondInternalError(c, "failed to log in", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      resp.Token,
		"expires_at": resp.ExpiresAt,
		"user":       profileResponse{User: resp.User, Email: resp.User.Email},
	})
}

// Me returns the authenticated user
// GET /api/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profileResponse{User: *user, Email: user.Email}})
}

// bearerToken extracts the token from "Authorization: Bearer <token>". The
// scheme is matched case-insensitively.
func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// AuthMiddleware validates requests with JWT tokens
func (h *Handlers) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			util.RespondUnauthorized(c, "missing bearer token")
			return
		}

		user, err := h.auth.ValidateToken(token)
		if err != nil {
			logger.Log.Debug("Rejected bearer token", logger.WithIP(c.ClientIP()))
			util.RespondUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(util.ContextUserKey, user)
		c.Set(util.ContextUserIDKey, user.ID)
		c.Next()
	}
}

// OptionalAuthMiddleware identifies the caller when a valid token is sent and
// lets anonymous requests through otherwise.
func (h *Handlers) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if user, err := h.auth.ValidateToken(token); err == nil {
				c.Set(util.ContextUserKey, user)
				c.Set(util.ContextUserIDKey, user.ID)
			}
		}
		c.Next()
	}
}
