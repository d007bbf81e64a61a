// Package linkpreview fetches a page and extracts its Open Graph card.
package linkpreview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/feek13/mini-social-sub003/internal/httpclient"
	"github.com/feek13/mini-social-sub003/internal/telemetry"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"
)

const (
	serviceName = "linkpreview"

	FetchTimeout = 10 * time.Second
	MaxBodyBytes = 1 << 20
	MaxRedirects = 5
)

var (
	ErrInvalidURL  = errors.New("linkpreview: url must be absolute http or https")
	ErrBlockedHost = errors.New("linkpreview: host not allowed")
	ErrNotHTML     = errors.New("linkpreview: response is not html")
)

type Preview struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
}

type Fetcher struct {
	http         *resty.Client
	allowPrivate bool
	// trusted holds host:port pairs exempt from the private address checks.
	trusted map[string]bool
}

type Option func(*Fetcher)

// WithPrivateHosts lets the fetcher reach loopback and private addresses.
func WithPrivateHosts() Option {
	return func(f *Fetcher) { f.allowPrivate = true }
}

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{trusted: map[string]bool{}}
	for _, opt := range opts {
		opt(f)
	}

	// Every hop is checked twice: by host name before the redirect is
	// followed and by resolved address right before the socket connects.
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second, Control: f.dialControl}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	f.http = httpclient.New(httpclient.Options{
		Name:      serviceName,
		Timeout:   FetchTimeout,
		UserAgent: "Mozilla/5.0 (compatible; mini-social-preview/1.0)",
	}).
		SetTransport(telemetry.WrapTransport(serviceName, transport)).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(MaxRedirects), resty.RedirectPolicyFunc(f.checkRedirect))
	return f
}

func (f *Fetcher) checkRedirect(req *http.Request, _ []*http.Request) error {
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return ErrInvalidURL
	}
	if f.blocked(req.URL.Host, req.URL.Hostname()) {
		return ErrBlockedHost
	}
	return nil
}

// dialControl runs after DNS resolution, so address is always ip:port.
func (f *Fetcher) dialControl(_, address string, _ syscall.RawConn) error {
	if f.allowPrivate || f.trusted[address] {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return ErrBlockedHost
	}
	if blockedHost(host) {
		return ErrBlockedHost
	}
	return nil
}

func (f *Fetcher) blocked(hostport, host string) bool {
	if f.allowPrivate || f.trusted[hostport] {
		return false
	}
	return blockedHost(host)
}

// ParseURL accepts only absolute http(s) URLs.
func ParseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, ErrInvalidURL
	}
	return u, nil
}

func blockedHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified())
}

// Fetch downloads at most MaxBodyBytes of rawURL within FetchTimeout and
// extracts the preview.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Preview, error) {
	u, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	if f.blocked(u.Host, u.Hostname()) {
		return nil, ErrBlockedHost
	}

	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	resp, err := f.http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetDoNotParseResponse(true).
		Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("linkpreview request failed: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return nil, &httpclient.StatusError{Service: serviceName, StatusCode: resp.StatusCode()}
	}
	if ct := resp.Header().Get("Content-Type"); ct != "" && !strings.Contains(strings.ToLower(ct), "html") {
		return nil, ErrNotHTML
	}

	preview := Parse(io.LimitReader(body, MaxBodyBytes), u)
	return preview, nil
}

// Parse extracts og:title, og:description, og:image and og:site_name,
// falling back to <title> and the description meta tag. Relative image URLs
// are resolved against base.
func Parse(r io.Reader, base *url.URL) *Preview {
	p := &Preview{URL: base.String()}
	var title, description string

	z := html.NewTokenizer(r)
	inTitle := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return finish(p, base, title, description)
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "title":
				inTitle = true
			case "meta":
				key, content := metaAttrs(tok)
				switch key {
				case "og:title":
					p.Title = content
				case "og:description":
					p.Description = content
				case "og:image", "og:image:url":
					if p.Image == "" {
						p.Image = content
					}
				case "og:site_name":
					p.SiteName = content
				case "description", "twitter:description":
					if description == "" {
						description = content
					}
				case "twitter:image":
					if p.Image == "" {
						p.Image = content
					}
				}
			case "body":
				return finish(p, base, title, description)
			}
		case html.TextToken:
			if inTitle && title == "" {
				title = strings.TrimSpace(string(z.Text()))
			}
		case html.EndTagToken:
			if tok := z.Token(); tok.Data == "title" {
				inTitle = false
			}
		}
	}
}

func metaAttrs(tok html.Token) (key, content string) {
	for _, a := range tok.Attr {
		switch strings.ToLower(a.Key) {
		case "property", "name":
			if key == "" {
				key = strings.ToLower(strings.TrimSpace(a.Val))
			}
		case "content":
			content = strings.TrimSpace(a.Val)
		}
	}
	return key, content
}

func finish(p *Preview, base *url.URL, title, description string) *Preview {
	if p.Title == "" {
		p.Title = title
	}
	if p.Title == "" {
		p.Title = base.Hostname()
	}
	if p.Description == "" {
		p.Description = description
	}
	if p.SiteName == "" {
		p.SiteName = base.Hostname()
	}
	if p.Image != "" {
		if ref, err := url.Parse(p.Image); err == nil {
			p.Image = base.ResolveReference(ref).String()
		}
	}
	return p
}
