package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/feek13/mini-social-sub003/internal/database"
	"github.com/feek13/mini-social-sub003/internal/models"
	"github.com/feek13/mini-social-sub003/internal/validation"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// AuthServiceTestSuite runs the service against an in-memory sqlite database.
type AuthServiceTestSuite struct {
	suite.Suite
	authService *Service
}

func (suite *AuthServiceTestSuite) SetupTest() {
	_, err := database.OpenSQLite(":memory:")
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), database.Migrate())

	suite.authService = NewService([]byte("test_jwt_secret_key"), time.Hour)
}

func (suite *AuthServiceTestSuite) TearDownTest() {
	_ = database.Close()
}

func (suite *AuthServiceTestSuite) register(username, email string) *AuthResponse {
	resp, err := suite.authService.Register(RegisterRequest{
		Email:    email,
		Username: username,
		Password: "secret1",
	})
	require.NoError(suite.T(), err)
	return resp
}

func (suite *AuthServiceTestSuite) TestRegister() {
	t := suite.T()

	resp := suite.register("alice_01", "Alice@Example.com")
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice_01", resp.User.Username)
	assert.Equal(t, "alice_01", resp.User.DisplayName)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.NotEqual(t, "secret1", resp.User.PasswordHash)

	_, err := suite.authService.Register(RegisterRequest{Email: "alice@example.com", Username: "other", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = suite.authService.Register(RegisterRequest{Email: "new@example.com", Username: "ALICE_01", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func (suite *AuthServiceTestSuite) TestRegisterValidation() {
	t := suite.T()

	cases := []RegisterRequest{
		{Email: "a@example.com", Username: "ab", Password: "secret1"},
		{Email: "a@example.com", Username: "abcdefghijklmnopqrstu", Password: "secret1"},
		{Email: "a@example.com", Username: "bad-name", Password: "secret1"},
		{Email: "a@example.com", Username: "goodname", Password: "12345"},
		{Email: "not-an-email", Username: "goodname", Password: "secret1"},
	}
	for _, req := range cases {
		_, err := suite.authService.Register(req)
		var fieldErr *validation.FieldError
		assert.True(t, errors.As(err, &fieldErr), "%+v", req)
	}
}

func (suite *AuthServiceTestSuite) TestLogin() {
	t := suite.T()
	suite.register("bob", "bob@example.com")

	resp, err := suite.authService.Login(LoginRequest{Email: "BOB@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "bob", resp.User.Username)

	resp, err = suite.authService.Login(LoginRequest{Login: "Bob", Password: "secret1"})
	require.NoError(t, err)
	assert.NotNil(t, resp.User.LastActiveAt)

	_, err = suite.authService.Login(LoginRequest{Login: "bob", Password: "wrong!!"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = suite.authService.Login(LoginRequest{Login: "nobody", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestValidateToken() {
	t := suite.T()
	resp := suite.register("carol", "carol@example.com")

	user, err := suite.authService.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)

	_, err = suite.authService.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewService([]byte("another_secret"), time.Hour)
	_, err = other.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewService([]byte("test_jwt_secret_key"), time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, database.DB.Delete(&models.User{}, "id = ?", resp.User.ID).Error)
	_, err = suite.authService.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func (suite *AuthServiceTestSuite) TestRejectsOtherSigningMethod() {
	t := suite.T()
	resp := suite.register("dave", "dave@example.com")

	claims := Claims{UserID: resp.User.ID, RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = suite.authService.ValidateToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func TestMockAuthService(t *testing.T) {
	m := NewMockAuthService()
	token := m.AddUser(&models.User{Username: "eve", Email: "eve@example.com"})

	u, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "eve", u.Username)

	_, err = m.ValidateToken("mock_token_unknown")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Len(t, m.GetCallsForMethod("ValidateToken"), 2)
}
