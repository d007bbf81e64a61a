package middleware

import (
	"github.com/feek13/mini-social-sub003/internal/util"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware is otelgin followed by a handler that tags the server
// span with the caller and the chain/feed parameters once the route has run.
func TracingMiddleware(serviceName string) gin.HandlersChain {
	return gin.HandlersChain{otelgin.Middleware(serviceName), annotateSpan}
}

func annotateSpan(c *gin.Context) {
	c.Next()

	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}
	if userID := util.OptionalUserID(c); userID != "" {
		span.SetAttributes(attribute.String("user.id", userID))
	}
	if chain := c.Query("chain"); chain != "" {
		span.SetAttributes(attribute.String("web3.chain", chain))
	}
	if feed := c.Query("feed"); feed != "" {
		span.SetAttributes(attribute.String("feed.type", feed))
	}
	for _, ginErr := range c.Errors {
		if ginErr.Err != nil {
			span.RecordError(ginErr.Err)
			span.SetStatus(codes.Error, ginErr.Error())
		}
	}
}
