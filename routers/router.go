package routers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mirrorbay/davserver/middleware"
	"github.com/mirrorbay/davserver/pkg/auth"
	"github.com/mirrorbay/davserver/pkg/conf"
	"github.com/mirrorbay/davserver/pkg/logging"
	"github.com/mirrorbay/davserver/pkg/util"
	"github.com/mirrorbay/davserver/pkg/webdav"
)

// InitRouter assembles the gin engine: request initialization, logging,
// CORS, the auth gate, the throttle gate, and the WebDAV mount.
func InitRouter(cfg conf.ConfigProvider, l logging.Logger, handler *webdav.Handler,
	authenticator auth.Authenticator, authorizer auth.Authorizer, throttler *middleware.Throttler) *gin.Engine {
	if !cfg.System().Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.InitializeHandling(l))
	r.Use(middleware.Logging())
	initCORS(r, cfg.Cors())

	prefix := util.RemoveSlash(cfg.WebDAV().Prefix)
	dav := r.Group(prefix)
	dav.Use(middleware.CacheControl())
	dav.Use(middleware.WebDAVAuth(authenticator, authorizer, prefix))
	dav.Use(throttler.Handler())
	methods := []string{
		"OPTIONS", "GET", "HEAD", "POST", "PUT", "DELETE",
		"MKCOL", "COPY", "MOVE", "PROPFIND", "PROPPATCH", "LOCK", "UNLOCK",
	}
	for _, method := range methods {
		dav.Handle(method, "", handler.ServeHTTP)
		dav.Handle(method, "/*path", handler.ServeHTTP)
	}

	return r
}

// initCORS enables cross-origin access when origins are configured.
func initCORS(r *gin.Engine, c *conf.Cors) {
	if len(c.AllowOrigins) > 0 && c.AllowOrigins[0] != "UNSET" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     c.AllowOrigins,
			AllowMethods:     c.AllowMethods,
			AllowHeaders:     c.AllowHeaders,
			AllowCredentials: c.AllowCredentials,
			ExposeHeaders:    c.ExposeHeaders,
		}))
	}
}
