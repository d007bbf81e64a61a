package util

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feek13/mini-social-sub003/internal/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHasMore(t *testing.T) {
	tests := []struct {
		limit, offset int
		total         int64
		want          bool
	}{
		{20, 0, 21, true},
		{20, 0, 20, false},
		{20, 20, 45, true},
		{20, 40, 45, false},
		{10, 0, 0, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HasMore(tt.limit, tt.offset, tt.total), "limit=%d offset=%d total=%d", tt.limit, tt.offset, tt.total)
	}

	p := NewPagination(20, 0, 50)
	assert.True(t, p.HasMore)
	assert.Equal(t, int64(50), p.Total)
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 20, 0},
		{"limit=5&offset=10", 5, 10},
		{"limit=1000", 100, 0},
		{"limit=-3&offset=-1", 20, 0},
		{"limit=abc&offset=xyz", 20, 0},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)

		limit, offset := ParsePagination(c)
		assert.Equal(t, tt.wantLimit, limit, tt.query)
		assert.Equal(t, tt.wantOffset, offset, tt.query)
	}
}

func TestExtractMentions(t *testing.T) {
	got := ExtractMentions("gm @Alice and @bob_99, also @alice again. email a@b.com @xy")
	assert.Equal(t, []string{"alice", "bob_99"}, got)
	assert.Empty(t, ExtractMentions("no mentions here"))
}

func TestExtractHashtags(t *testing.T) {
	got := ExtractHashtags("#DeFi is back #eth #defi, not this: foo#bar")
	assert.Equal(t, []string{"defi", "eth"}, got)
}

func TestRespondWithAPIError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RespondWithAPIError(c, errors.ValidationError("username", "username must be 3-20 characters"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"username must be 3-20 characters","code":"VALIDATION_ERROR","field":"username"}`, w.Body.String())
}

func TestRespondUpstreamError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RespondUpstreamError(c, "defillama", assert.AnError)

	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "UPSTREAM_ERROR")
}

func TestOptionalUserID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "", OptionalUserID(c))

	c.Set(ContextUserIDKey, "u1")
	assert.Equal(t, "u1", OptionalUserID(c))
}
