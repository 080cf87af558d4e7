package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/mirrorbay/davserver/pkg/logging"
)

// InitializeHandling is added at the beginning of the handler chain. It
// generates a correlation ID for diagnostics and injects a request-scoped
// logger into the context.
func InitializeHandling(l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := uuid.FromStringOrNil(c.GetHeader("X-Correlation-ID"))
		if cid == uuid.Nil {
			cid = uuid.Must(uuid.NewV4())
		}

		reqLogger := l.CopyWithPrefix(fmt.Sprintf("[Cid: %s]", cid))
		ctx := context.WithValue(c.Request.Context(), logging.CorrelationIDCtx{}, cid)
		ctx = context.WithValue(ctx, logging.LoggerCtx{}, reqLogger)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// Logging logs incoming request info.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		l := logging.FromContext(c.Request.Context())
		logging.Request(l, c.Writer.Status(), c.Request.Method, c.ClientIP(), path,
			c.Errors.ByType(gin.ErrorTypePrivate).String(), start)
	}
}

// CacheControl disables client caching of WebDAV responses.
func CacheControl() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "private, no-cache")
	}
}
