package auth

import "github.com/feek13/mini-social-sub003/internal/models"

// AuthService is what the HTTP layer needs from authentication. Handler tests
// use MockAuthService.
type AuthService interface {
	Register(req RegisterRequest) (*AuthResponse, error)
	Login(req LoginRequest) (*AuthResponse, error)
	IssueToken(user *models.User) (*AuthResponse, error)
	ValidateToken(tokenString string) (*models.User, error)
}

var _ AuthService = (*Service)(nil)
