package httpclient

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSetsDefaultHeaders(t *testing.T) {
	var gotUA, gotAccept, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		gotKey = r.Header.Get("x-api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"uniswap","tvl":12.5}`))
	}))
	defer srv.Close()

	client := New(Options{Name: "test", BaseURL: srv.URL, Headers: map[string]string{"x-api-key": "secret"}})

	var out struct {
		Name string  `json:"name"`
		TVL  float64 `json:"tvl"`
	}
	resp, err := client.R().SetResult(&out).Get("/protocol")
	require.NoError(t, Check("test", resp, err))

	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "uniswap", out.Name)
	assert.Equal(t, 12.5, out.TVL)
}

func TestCheckStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("x", 1000)))
	}))
	defer srv.Close()

	client := New(Options{Name: "test", BaseURL: srv.URL})
	resp, err := client.R().Get("/")
	err = Check("test", resp, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "test", statusErr.Service)
	assert.Len(t, statusErr.Body, 256)
}

func TestCheckTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := New(Options{Name: "test", BaseURL: url})
	resp, err := client.R().Get("/")
	err = Check("test", resp, err)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "test request failed")
	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}
