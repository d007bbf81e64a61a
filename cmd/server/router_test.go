package main

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/feek13/mini-social-sub003/internal/auth"
	"github.com/feek13/mini-social-sub003/internal/cache"
	"github.com/feek13/mini-social-sub003/internal/database"
	"github.com/feek13/mini-social-sub003/internal/handlers"
	"github.com/feek13/mini-social-sub003/internal/models"
	"github.com/feek13/mini-social-sub003/internal/ratelimit"
	"github.com/feek13/mini-social-sub003/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router   *gin.Engine
	auth     *auth.MockAuthService
	handlers *handlers.Handlers
}

func newTestServer(t *testing.T, withCache bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate())
	t.Cleanup(func() { _ = database.Close() })

	var store *cache.Cache
	if withCache {
		mr := miniredis.RunT(t)
		store = cache.New(cache.WrapRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()})))
	}

	limiter := ratelimit.NewMemoryLimiter()
	mockAuth := auth.NewMockAuthService()
	h := handlers.NewHandlers(mockAuth, db)
	h.SetCache(store)

	return &testServer{
		router: setupRouter(routerOptions{
			Handlers:    h,
			Limiter:     limiter,
			Cache:       store,
			Origins:     []string{"*"},
			ServiceName: "mini-social-test",
		}),
		auth:     mockAuth,
		handlers: h,
	}
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.RemoteAddr = "192.0.2.10:40000"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) createUser(t *testing.T, username string) string {
	t.Helper()
	user := &models.User{
		Email:        username + "@example.com",
		Username:     username,
		DisplayName:  username,
		PasswordHash: "hash",
	}
	require.NoError(t, database.DB.Create(user).Error)
	return s.auth.AddUser(user)
}

func TestRouterHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = s.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")

	w = s.do(http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestRouterStrictLimitOnLogin(t *testing.T) {
	s := newTestServer(t, false)

	for i := 0; i < ratelimit.Strict.Max; i++ {
		w := s.do(http.MethodPost, "/api/auth/login", "", "{")
		assert.Equal(t, http.StatusBadRequest, w.Code, "attempt %d", i+1)
	}

	w := s.do(http.MethodPost, "/api/auth/login", "", "{")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Register shares the strict window of the same caller.
	w = s.do(http.MethodPost, "/api/auth/register", "", "{")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Another client is unaffected.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString("{"))
	req.RemoteAddr = "198.51.100.7:40000"
	other := httptest.NewRecorder()
	s.router.ServeHTTP(other, req)
	assert.Equal(t, http.StatusBadRequest, other.Code)
}

func TestRouterRequiresAuth(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(http.MethodPost, "/api/posts", "", `{"content":"gm"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))

	token := s.createUser(t, "alice")
	w = s.do(http.MethodPost, "/api/posts", token, `{"content":"gm #defi"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "30", w.Header().Get("X-RateLimit-Limit"))
}

func TestRouterCORS(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterProfileResponseCache(t *testing.T) {
	s := newTestServer(t, true)
	s.createUser(t, "alice")
	bob := s.createUser(t, "bob")

	w := s.do(http.MethodGet, "/api/users/alice", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	w = s.do(http.MethodGet, "/api/users/alice", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	w = s.do(http.MethodPost, "/api/users/alice/follow", bob, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/users/alice", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Contains(t, w.Body.String(), `"followers_count":1`)
}

type avatarUploader struct{}

func (avatarUploader) UploadImage(_ context.Context, data []byte, userID, _ string, kind storage.ImageKind) (*storage.UploadResult, error) {
	key := "avatars/" + userID + ".png"
	return &storage.UploadResult{Key: key, URL: "https://cdn.example.com/" + key, ContentType: "image/png", Size: int64(len(data))}, nil
}

func (avatarUploader) DeleteFile(context.Context, string) error { return nil }

func TestRouterAvatarUploadInvalidatesProfile(t *testing.T) {
	s := newTestServer(t, true)
	s.handlers.SetUploader(avatarUploader{})
	alice := s.createUser(t, "alice")

	w := s.do(http.MethodGet, "/api/users/alice", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, "HIT", s.do(http.MethodGet, "/api/users/alice", "", "").Header().Get("X-Cache"))

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("kind", "avatar"))
	part, err := form.CreateFormFile("file", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads/image", &body)
	req.RemoteAddr = "192.0.2.10:40000"
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+alice)
	up := httptest.NewRecorder()
	s.router.ServeHTTP(up, req)
	require.Equal(t, http.StatusCreated, up.Code, up.Body.String())

	w = s.do(http.MethodGet, "/api/users/alice", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Contains(t, w.Body.String(), "https://cdn.example.com/avatars/")
}

func TestRouterProfileCacheHeaders(t *testing.T) {
	s := newTestServer(t, true)
	s.createUser(t, "alice")
	bob := s.createUser(t, "bob")

	anon := s.do(http.MethodGet, "/api/users/alice", "", "")
	require.Equal(t, http.StatusOK, anon.Code)
	assert.Equal(t, "public, max-age=30", anon.Header().Get("Cache-Control"))
	assert.Contains(t, anon.Header().Values("Vary"), "Authorization")

	viewer := s.do(http.MethodGet, "/api/users/alice", bob, "")
	require.Equal(t, http.StatusOK, viewer.Code)
	assert.Equal(t, "private, no-cache", viewer.Header().Get("Cache-Control"))
	assert.Contains(t, viewer.Header().Values("Vary"), "Authorization")
}
