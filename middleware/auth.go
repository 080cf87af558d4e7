package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mirrorbay/davserver/pkg/auth"
	"github.com/mirrorbay/davserver/pkg/logging"
)

// UserCtx defines keys for the authenticated user carried in request
// context.
type UserCtx struct{}

// UserFromContext retrieves the authenticated user, nil for anonymous.
func UserFromContext(ctx context.Context) *auth.User {
	u, _ := ctx.Value(UserCtx{}).(*auth.User)
	return u
}

// WebDAVAuth is the authentication and authorization gate. It runs outside
// the throttle: unauthenticated requests never consume rate budget.
func WebDAVAuth(authenticator auth.Authenticator, authorizer auth.Authorizer, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := authenticator.Authenticate(c.Request)
		if err != nil {
			if challenge := authenticator.Challenge(); challenge != "" {
				c.Writer.Header().Set("WWW-Authenticate", challenge)
			}
			c.String(http.StatusUnauthorized, "Authentication required")
			c.Abort()
			return
		}

		action := auth.ActionForMethod(c.Request.Method)
		authPath := strings.TrimPrefix(c.Request.URL.Path, strings.TrimSuffix(prefix, "/"))
		if authPath == "" {
			authPath = "/"
		}

		if reason := authorizer.Authorize(user, action, authPath); reason != "" {
			logging.FromContext(c.Request.Context()).
				Debug("Authorization denied for %s %s: %s", c.Request.Method, authPath, reason)
			c.String(http.StatusForbidden, reason)
			c.Abort()
			return
		}

		if user != nil {
			ctx := context.WithValue(c.Request.Context(), UserCtx{}, user)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
