package telemetry

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// NewTransport wraps the default transport so every outbound request gets a
// client span named after the upstream service.
func NewTransport(service string) http.RoundTripper {
	return WrapTransport(service, http.DefaultTransport)
}

// WrapTransport is NewTransport over a caller-supplied base transport.
func WrapTransport(service string, base http.RoundTripper) http.RoundTripper {
	return otelhttp.NewTransport(
		base,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return service + " " + r.Method
		}),
		otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
	)
}
