// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package webdav implements the RFC 4918 class 2 protocol engine: a
// method dispatcher translating WebDAV requests on a URL-prefixed
// namespace into operations against a filesystem, a dead-property store
// and a lock store.
package webdav

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mirrorbay/davserver/pkg/filesystem"
	"github.com/mirrorbay/davserver/pkg/lock"
	"github.com/mirrorbay/davserver/pkg/logging"
	"github.com/mirrorbay/davserver/pkg/metrics"
	"github.com/mirrorbay/davserver/pkg/prop"
)

// Config carries the engine's own settings; transport and gate settings
// live with their middleware.
type Config struct {
	// Prefix is the URL mount prefix, e.g. "/dav".
	Prefix string
	// Root is the served directory.
	Root string
	ReadOnly bool
	// MaxUploadSize caps one PUT body in bytes. Zero means unlimited.
	MaxUploadSize int64
	// SpeedLimit caps GET streaming in bytes per second. Zero means
	// unlimited.
	SpeedLimit int64
}

// Handler dispatches WebDAV methods. Locks may be nil, which disables
// locking entirely.
type Handler struct {
	fs      filesystem.FileSystem
	props   prop.Store
	locks   lock.Store
	metrics metrics.Collector

	prefix        string
	root          string
	readOnly      bool
	maxUploadSize int64
	speedLimit    int64
}

// NewHandler assembles the engine around its collaborators.
func NewHandler(cfg Config, fs filesystem.FileSystem, props prop.Store, locks lock.Store, collector metrics.Collector) *Handler {
	if collector == nil {
		collector = metrics.NoopCollector{}
	}
	return &Handler{
		fs:            fs,
		props:         props,
		locks:         locks,
		metrics:       collector,
		prefix:        strings.TrimSuffix(cfg.Prefix, "/"),
		root:          cfg.Root,
		readOnly:      cfg.ReadOnly,
		maxUploadSize: cfg.MaxUploadSize,
		speedLimit:    cfg.SpeedLimit,
	}
}

// handlerFunc handles one method against an already classified resource.
// A zero status means the handler has written the response itself.
type handlerFunc func(c *gin.Context, cache *statCache, res *resource) (status int, err error)

// knownMethods is the Allow set advertised on unknown methods.
var knownMethods = []string{
	"OPTIONS", "GET", "HEAD", "POST", "PUT", "DELETE",
	"MKCOL", "COPY", "MOVE", "PROPFIND", "PROPPATCH", "LOCK", "UNLOCK",
}

// ServeHTTP is the dispatcher: metrics, path gate, one stat, method
// routing, and the single error-to-response conversion point.
func (h *Handler) ServeHTTP(c *gin.Context) {
	start := time.Now()
	method := c.Request.Method
	h.metrics.RecordMethod(method)
	cache := newStatCache()

	status, err := h.dispatch(c, cache)

	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			status = se.Status
			writePlain(c, status, se.Message)
		} else if status == 0 {
			status = http.StatusInternalServerError
			writePlain(c, status, StatusText(status))
		} else {
			writePlain(c, status, StatusText(status))
		}
		logging.FromContext(c.Request.Context()).
			Debug("WebDAV %s %s failed: %s", method, c.Request.URL.Path, err)
	} else if status != 0 {
		writePlain(c, status, StatusText(status))
	} else {
		status = c.Writer.Status()
	}

	h.metrics.RecordRequest(method, status, time.Since(start))
}

func (h *Handler) dispatch(c *gin.Context, cache *statCache) (int, error) {
	internal, err := resolvePath(
		c.Request.URL.EscapedPath(),
		c.Request.URL.Path,
		h.prefix,
		h.root,
	)
	if err != nil {
		return 0, err
	}

	res, err := resolveResource(c.Request.Context(), h.fs, cache, internal)
	if err != nil {
		return 0, ErrInternal
	}

	var fn handlerFunc
	switch c.Request.Method {
	case "OPTIONS":
		fn = h.handleOptions
	case "GET", "HEAD", "POST":
		fn = h.handleGetHead
	case "PUT":
		fn = h.handlePut
	case "DELETE":
		fn = h.handleDelete
	case "MKCOL":
		fn = h.handleMkcol
	case "COPY", "MOVE":
		fn = h.handleCopyMove
	case "PROPFIND":
		fn = h.handlePropfind
	case "PROPPATCH":
		fn = h.handleProppatch
	case "LOCK":
		fn = h.handleLock
	case "UNLOCK":
		fn = h.handleUnlock
	default:
		c.Writer.Header().Set("Allow", strings.Join(knownMethods, ", "))
		return http.StatusMethodNotAllowed, nil
	}

	return fn(c, cache, res)
}

func writePlain(c *gin.Context, status int, body string) {
	if c.Writer.Written() {
		return
	}
	c.Writer.WriteHeader(status)
	if status != http.StatusNoContent && status != http.StatusNotModified && body != "" {
		_, _ = c.Writer.WriteString(body)
	}
}

// handleOptions advertises the server's capabilities. It works on all
// three resource variants including null.
func (h *Handler) handleOptions(c *gin.Context, cache *statCache, res *resource) (int, error) {
	allow := append([]string(nil), knownMethods...)
	allow = append(allow, "TRACE")
	if h.readOnly {
		allow = filterMethods(allow, "PUT", "DELETE", "MKCOL", "COPY", "MOVE", "PROPPATCH")
	}
	if h.locks == nil {
		allow = filterMethods(allow, "LOCK", "UNLOCK")
	}

	c.Writer.Header().Set("Allow", strings.Join(allow, ", "))
	// http://www.webdav.org/specs/rfc4918.html#dav.compliance.classes
	c.Writer.Header().Set("DAV", "1,2")
	// http://msdn.microsoft.com/en-au/library/cc250217.aspx
	c.Writer.Header().Set("MS-Author-Via", "DAV")
	c.Writer.Header().Set("Content-Length", "0")
	c.Writer.WriteHeader(http.StatusOK)
	return 0, nil
}

func filterMethods(methods []string, drop ...string) []string {
	res := methods[:0]
	for _, m := range methods {
		dropped := false
		for _, d := range drop {
			if m == d {
				dropped = true
				break
			}
		}
		if !dropped {
			res = append(res, m)
		}
	}
	return res
}

// listChildren reads a collection's entries, hiding property documents of
// the file-backed property store.
func (h *Handler) listChildren(ctx context.Context, internalPath string) ([]os.FileInfo, error) {
	entries, err := h.fs.ReadDir(ctx, internalPath)
	if err != nil {
		return nil, err
	}
	res := entries[:0]
	for _, e := range entries {
		if prop.IsPropertyDocument(e.Name()) {
			continue
		}
		res = append(res, e)
	}
	return res, nil
}
