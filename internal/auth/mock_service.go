package auth

import (
	"sync"
	"time"

	"github.com/feek13/mini-social-sub003/internal/models"
	"github.com/google/uuid"
)

// MockCall records a method call for assertion
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockAuthService is an in-memory AuthService for handler tests. Tokens are
// "mock_token_<user id>".
type MockAuthService struct {
	mu sync.Mutex

	Calls []MockCall

	RegisterFunc      func(req RegisterRequest) (*AuthResponse, error)
	LoginFunc         func(req LoginRequest) (*AuthResponse, error)
	ValidateTokenFunc func(tokenString string) (*models.User, error)

	DefaultError error

	// Users keyed by id.
	Users map[string]*models.User
}

func NewMockAuthService() *MockAuthService {
	return &MockAuthService{
		Calls: make([]MockCall, 0),
		Users: make(map[string]*models.User),
	}
}

func (m *MockAuthService) recordCall(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// GetCallsForMethod returns calls for a specific method
func (m *MockAuthService) GetCallsForMethod(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []MockCall
	for _, call := range m.Calls {
		if call.Method == method {
			result = append(result, call)
		}
	}
	return result
}

// AddUser registers user and returns the token that authenticates as them.
func (m *MockAuthService) AddUser(user *models.User) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	m.Users[user.ID] = user
	return "mock_token_" + user.ID
}

func (m *MockAuthService) response(user *models.User) *AuthResponse {
	return &AuthResponse{
		Token:     "mock_token_" + user.ID,
		User:      *user,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
}

func (m *MockAuthService) Register(req RegisterRequest) (*AuthResponse, error) {
	m.recordCall("Register", req)
	if m.RegisterFunc != nil {
		return m.RegisterFunc(req)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	for _, u := range m.Users {
		if u.Email == req.Email {
			m.mu.Unlock()
			return nil, ErrUserExists
		}
		if u.Username == req.Username {
			m.mu.Unlock()
			return nil, ErrUsernameExists
		}
	}
	m.mu.Unlock()

	user := &models.User{Email: req.Email, Username: req.Username, DisplayName: req.DisplayName}
	m.AddUser(user)
	return m.response(user), nil
}

func (m *MockAuthService) Login(req LoginRequest) (*AuthResponse, error) {
	m.recordCall("Login", req)
	if m.LoginFunc != nil {
		return m.LoginFunc(req)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Email == req.Email || u.Username == req.Login {
			return m.response(u), nil
		}
	}
	return nil, ErrInvalidCredentials
}

func (m *MockAuthService) IssueToken(user *models.User) (*AuthResponse, error) {
	m.recordCall("IssueToken", user.ID)
	return m.response(user), nil
}

func (m *MockAuthService) ValidateToken(tokenString string) (*models.User, error) {
	m.recordCall("ValidateToken", tokenString)
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(tokenString)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	const prefix = "mock_token_"
	if len(tokenString) > len(prefix) && tokenString[:len(prefix)] == prefix {
		if u, ok := m.Users[tokenString[len(prefix):]]; ok {
			return u, nil
		}
	}
	return nil, ErrInvalidToken
}

var _ AuthService = (*MockAuthService)(nil)
