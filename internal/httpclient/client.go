package httpclient

import (
	"fmt"
	"time"

	"github.com/feek13/mini-social-sub003/internal/logger"
	"github.com/feek13/mini-social-sub003/internal/metrics"
	"github.com/feek13/mini-social-sub003/internal/telemetry"
	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultUserAgent = "mini-social/1.0"
)

// Options configures a client for one upstream API.
type Options struct {
	// Name labels metrics, spans and log lines ("defillama", "etherscan", ...).
	Name      string
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
}

// StatusError is returned for a non-2xx upstream response.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded with status %d: %s", e.Service, e.StatusCode, e.Body)
}

// New builds a resty client with tracing, metrics and debug logging. Requests
// are never retried.
func New(opts Options) *resty.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	json := jsoniter.ConfigCompatibleWithStandardLibrary
	client := resty.New().
		SetTransport(telemetry.NewTransport(opts.Name)).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	if opts.BaseURL != "" {
		client.SetBaseURL(opts.BaseURL)
	}
	for k, v := range opts.Headers {
		client.SetHeader(k, v)
	}

	name := opts.Name
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		logger.Log.Debug("Upstream request",
			logger.WithUpstream(name),
			zap.String("method", req.Method),
			zap.String("url", req.URL))
		return nil
	})
	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		metrics.RecordUpstreamRequest(name, resp.StatusCode(), resp.Time())
		logger.Log.Debug("Upstream response",
			logger.WithUpstream(name),
			logger.WithStatus(resp.StatusCode()),
			zap.Duration("duration", resp.Time()))
		return nil
	})
	client.OnError(func(req *resty.Request, err error) {
		metrics.RecordUpstreamRequest(name, 0, time.Since(req.Time))
		logger.WarnWithFields("Upstream request failed", err,
			logger.WithUpstream(name),
			zap.String("url", req.URL))
	})

	return client
}

// Check folds transport failures and non-2xx responses into one error.
func Check(service string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	if resp.IsError() {
		body := resp.String()
		if len(body) > 256 {
			body = body[:256]
		}
		return &StatusError{Service: service, StatusCode: resp.StatusCode(), Body: body}
	}
	return nil
}
