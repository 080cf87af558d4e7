package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mirrorbay/davserver/pkg/auth"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingAuthorizer struct {
	action auth.Action
	path   string
	deny   string
}

func (r *recordingAuthorizer) Authorize(user *auth.User, action auth.Action, path string) string {
	r.action = action
	r.path = path
	return r.deny
}

func authTestEngine(authenticator auth.Authenticator, authorizer auth.Authorizer) (*gin.Engine, *auth.User) {
	var seen *auth.User
	r := gin.New()
	r.Use(WebDAVAuth(authenticator, authorizer, "/dav"))
	handle := func(c *gin.Context) {
		seenPtr := UserFromContext(c.Request.Context())
		seen = seenPtr
		c.Status(http.StatusOK)
	}
	r.Handle("GET", "/dav/*path", handle)
	r.Handle("PUT", "/dav/*path", handle)
	r.Handle("LOCK", "/dav/*path", handle)
	return r, seen
}

func TestWebDAVAuthBasic(t *testing.T) {
	asserts := assert.New(t)
	users := map[string]string{"alice": auth.HashPassword("secret")}
	authenticator := auth.NewBasicAuthenticator("test", users)
	authorizer := &recordingAuthorizer{}
	r, _ := authTestEngine(authenticator, authorizer)

	// No credentials yields a challenge.
	req := httptest.NewRequest("GET", "/dav/a.txt", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	asserts.Equal(http.StatusUnauthorized, rec.Code)
	asserts.Contains(rec.Header().Get("WWW-Authenticate"), "Basic")

	// Wrong password is rejected.
	req = httptest.NewRequest("GET", "/dav/a.txt", nil)
	req.SetBasicAuth("alice", "wrong")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	asserts.Equal(http.StatusUnauthorized, rec.Code)

	// Valid credentials pass through.
	req = httptest.NewRequest("GET", "/dav/a.txt", nil)
	req.SetBasicAuth("alice", "secret")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	asserts.Equal(http.StatusOK, rec.Code)
}

func TestWebDAVAuthActionsAndPath(t *testing.T) {
	asserts := assert.New(t)
	authorizer := &recordingAuthorizer{}
	r, _ := authTestEngine(auth.AnonymousAuthenticator{}, authorizer)

	req := httptest.NewRequest("GET", "/dav/sub/file.txt", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	asserts.Equal(auth.ActionRead, authorizer.action)
	asserts.Equal("/sub/file.txt", authorizer.path)

	req = httptest.NewRequest("PUT", "/dav/sub/file.txt", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	asserts.Equal(auth.ActionWrite, authorizer.action)

	req = httptest.NewRequest("LOCK", "/dav/sub/file.txt", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	asserts.Equal(auth.ActionLock, authorizer.action)
}

func TestWebDAVAuthDenial(t *testing.T) {
	asserts := assert.New(t)
	authorizer := &recordingAuthorizer{deny: "quota exceeded"}
	r, _ := authTestEngine(auth.AnonymousAuthenticator{}, authorizer)

	req := httptest.NewRequest("GET", "/dav/a.txt", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	asserts.Equal(http.StatusForbidden, rec.Code)
	asserts.Equal("quota exceeded", rec.Body.String())
}

func TestActionForMethod(t *testing.T) {
	asserts := assert.New(t)
	asserts.Equal(auth.ActionRead, auth.ActionForMethod("PROPFIND"))
	asserts.Equal(auth.ActionRead, auth.ActionForMethod("OPTIONS"))
	asserts.Equal(auth.ActionLock, auth.ActionForMethod("UNLOCK"))
	asserts.Equal(auth.ActionWrite, auth.ActionForMethod("MKCOL"))
	asserts.Equal(auth.ActionRead, auth.ActionForMethod("BREW"))
}
