package linkpreview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!doctype html><html><head>
<title> Fallback Title </title>
<meta property="og:title" content="Hello World">
<meta name="description" content="plain description">
<meta property="og:image" content="/img/card.png">
</head><body><p>ignored</p></body></html>`

func TestParse(t *testing.T) {
	base, _ := url.Parse("https://example.com/posts/1")
	p := Parse(strings.NewReader(page), base)

	assert.Equal(t, "Hello World", p.Title)
	assert.Equal(t, "plain description", p.Description)
	assert.Equal(t, "https://example.com/img/card.png", p.Image)
	assert.Equal(t, "example.com", p.SiteName)
}

func TestParseFallsBackToTitleTag(t *testing.T) {
	base, _ := url.Parse("https://example.com")
	p := Parse(strings.NewReader(`<html><head><title>Only Title</title></head></html>`), base)
	assert.Equal(t, "Only Title", p.Title)
	assert.Empty(t, p.Image)
}

func TestParseURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://x.com", "/relative", "javascript:alert(1)"} {
		_, err := ParseURL(raw)
		assert.ErrorIs(t, err, ErrInvalidURL, raw)
	}
	u, err := ParseURL(" https://example.com/a ")
	require.NoError(t, err)
	assert.Equal(t, "example.com", u.Host)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	p, err := NewFetcher(WithPrivateHosts()).Fetch(context.Background(), srv.URL+"/a")
	require.NoError(t, err)
	assert.Equal(t, "Hello World", p.Title)
	assert.Equal(t, srv.URL+"/img/card.png", p.Image)
}

func TestFetchRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewFetcher().Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrBlockedHost)

	_, err = NewFetcher(WithPrivateHosts()).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrNotHTML)
}

func TestFetchRejectsRedirectToPrivateHost(t *testing.T) {
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>INTERNAL SECRET</title></head></html>`))
	}))
	defer internal.Close()

	targets := []string{
		internal.URL + "/admin",
		"http://10.0.0.8/",
		"http://169.254.169.254/latest/meta-data/",
		"http://localhost./",
	}
	for _, target := range targets {
		t.Run(target, func(t *testing.T) {
			public := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, target, http.StatusFound)
			}))
			defer public.Close()

			f := NewFetcher()
			f.trusted[strings.TrimPrefix(public.URL, "http://")] = true

			p, err := f.Fetch(context.Background(), public.URL)
			assert.ErrorIs(t, err, ErrBlockedHost)
			assert.Nil(t, p)
		})
	}
}

func TestFetchFollowsRedirectWhenPrivateHostsAllowed(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer target.Close()
	hop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL+"/post", http.StatusMovedPermanently)
	}))
	defer hop.Close()

	p, err := NewFetcher(WithPrivateHosts()).Fetch(context.Background(), hop.URL)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", p.Title)
}

func TestDialControl(t *testing.T) {
	f := NewFetcher()
	for addr, blocked := range map[string]bool{
		"127.0.0.1:80":       true,
		"10.1.2.3:443":       true,
		"192.168.0.10:8080":  true,
		"169.254.169.254:80": true,
		"0.0.0.0:80":         true,
		"[::1]:443":          true,
		"[fd00::1]:443":      true,
		"93.184.216.34:443":  false,
		"[2606:4700::1]:443": false,
	} {
		err := f.dialControl("tcp", addr, nil)
		if blocked {
			assert.ErrorIs(t, err, ErrBlockedHost, addr)
		} else {
			assert.NoError(t, err, addr)
		}
	}

	assert.NoError(t, NewFetcher(WithPrivateHosts()).dialControl("tcp", "127.0.0.1:80", nil))
}
