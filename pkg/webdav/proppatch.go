package webdav

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleProppatch applies an ordered sequence of set and remove blocks.
// Failures are per-property; the outcome is one multistatus response
// grouping properties by status code.
func (h *Handler) handleProppatch(c *gin.Context, cache *statCache, res *resource) (int, error) {
	if !res.exists() {
		return 0, ErrNotFound
	}
	if c.Request.ContentLength == 0 {
		return http.StatusBadRequest, errInvalidProppatch
	}

	ctx := c.Request.Context()
	if err := h.checkPreconditions(ctx, c.Request, cache, res, false); err != nil {
		return 0, err
	}

	ops, err := readProppatch(c.Request.Body)
	if err != nil {
		return http.StatusBadRequest, err
	}

	results := h.patchProps(ctx, res, ops)
	groups := groupPatchResults(results)

	mw := newMultistatusWriter(c.Writer)
	href := hrefForPath(h.prefix, res.internalPath, res.isCollection())
	if err := mw.writePropstats(href, groups); err != nil {
		return 0, ErrInternal
	}
	if err := mw.close(); err != nil {
		return 0, ErrInternal
	}
	return 0, nil
}
