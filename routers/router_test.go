package routers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mirrorbay/davserver/middleware"
	"github.com/mirrorbay/davserver/pkg/auth"
	"github.com/mirrorbay/davserver/pkg/conf"
	"github.com/mirrorbay/davserver/pkg/filesystem"
	"github.com/mirrorbay/davserver/pkg/lock"
	"github.com/mirrorbay/davserver/pkg/logging"
	"github.com/mirrorbay/davserver/pkg/prop"
	"github.com/mirrorbay/davserver/pkg/webdav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	root := t.TempDir()

	confPath := filepath.Join(t.TempDir(), "conf.ini")
	content := "[WebDAV]\nRoot = " + root + "\nPrefix = /dav\nAllowAnonymous = true\n"
	require.NoError(t, os.WriteFile(confPath, []byte(content), 0644))

	l := logging.NewConsoleLogger(logging.LevelError)
	cfg, err := conf.NewIniConfigProvider(confPath, l)
	require.NoError(t, err)

	fs, err := filesystem.NewLocalFS(root)
	require.NoError(t, err)

	handler := webdav.NewHandler(webdav.Config{
		Prefix: "/dav",
		Root:   root,
	}, fs, prop.NewMemoryStore(), lock.NewMemoryStore(), nil)

	throttler := middleware.NewThrottler(cfg.Throttle())
	r := InitRouter(cfg, l, handler, auth.AnonymousAuthenticator{}, auth.AllowAllAuthorizer{}, throttler)
	return r, root
}

func TestRouterEndToEnd(t *testing.T) {
	asserts := assert.New(t)
	r, _ := testRouter(t)

	// A full PUT → PROPFIND → GET pass through the real middleware chain.
	req := httptest.NewRequest("PUT", "/dav/hello.txt", strings.NewReader("hi"))
	req.ContentLength = 2
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	asserts.Equal(http.StatusCreated, rec.Code)

	req = httptest.NewRequest("PROPFIND", "/dav/", nil)
	req.Header.Set("Depth", "1")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	asserts.Equal(207, rec.Code)
	asserts.Contains(rec.Body.String(), "hello.txt")

	req = httptest.NewRequest("GET", "/dav/hello.txt", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	asserts.Equal(http.StatusOK, rec.Code)
	asserts.Equal("hi", rec.Body.String())
	asserts.Equal("private, no-cache", rec.Header().Get("Cache-Control"))

	// OPTIONS advertises WebDAV class 2.
	req = httptest.NewRequest("OPTIONS", "/dav", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	asserts.Equal(http.StatusOK, rec.Code)
	asserts.Equal("1,2", rec.Header().Get("DAV"))
}

func TestRouterOutsideMount(t *testing.T) {
	asserts := assert.New(t)
	r, _ := testRouter(t)

	req := httptest.NewRequest("GET", "/elsewhere", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	asserts.Equal(http.StatusNotFound, rec.Code)
}
