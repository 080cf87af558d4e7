package webdav

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleMkcol creates one collection, non-recursively.
func (h *Handler) handleMkcol(c *gin.Context, cache *statCache, res *resource) (int, error) {
	if res.exists() {
		return 0, &StatusError{http.StatusMethodNotAllowed, "Resource already exists"}
	}

	ctx := c.Request.Context()
	if err := h.checkPreconditions(ctx, c.Request, cache, res, true); err != nil {
		return 0, err
	}

	if c.Request.ContentLength > 0 {
		// MKCOL bodies are undefined by RFC 4918.
		return http.StatusUnsupportedMediaType, nil
	}

	if err := h.fs.Mkdir(ctx, res.internalPath, 0755); err != nil {
		return 0, ErrInternal
	}
	cache.invalidate(res.internalPath)

	c.Writer.Header().Set("Location", c.Request.URL.Path)
	c.Writer.WriteHeader(http.StatusCreated)
	return 0, nil
}
