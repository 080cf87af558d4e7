package webdav

import (
	"context"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// handleDelete unlinks a file or recursively deletes a collection,
// reporting per-member failures as Multi-Status and continuing past them.
func (h *Handler) handleDelete(c *gin.Context, cache *statCache, res *resource) (int, error) {
	if !res.exists() {
		return 0, ErrNotFound
	}
	if res.internalPath == "/" {
		return 0, &StatusError{http.StatusForbidden, "Cannot delete the root collection"}
	}

	ctx := c.Request.Context()
	if err := h.checkPreconditions(ctx, c.Request, cache, res, false); err != nil {
		return 0, err
	}

	if !res.isCollection() {
		if err := h.fs.Remove(ctx, res.internalPath); err != nil {
			return 0, ErrInternal
		}
		cache.invalidate(res.internalPath)
		_ = h.props.RemoveAll(res.internalPath)
		return http.StatusNoContent, nil
	}

	ms := &multiStatusBuilder{}
	h.deleteRecursive(ctx, res.internalPath, 0, ms)

	if ms.empty() {
		cache.invalidate(res.internalPath)
		return http.StatusNoContent, nil
	}
	writeMultiStatus(c, ms)
	return 0, nil
}

// deleteRecursive removes a collection's members depth-first. A failed
// member is recorded and its siblings still get visited; a collection with
// failed members is left in place.
func (h *Handler) deleteRecursive(ctx context.Context, name string, depth int, ms *multiStatusBuilder) bool {
	if depth > maxRecursionDepth {
		ms.add(hrefForPath(h.prefix, name, true), http.StatusForbidden, errRecursionTooDeep.Error())
		return false
	}

	entries, err := h.listChildren(ctx, name)
	if err != nil {
		ms.add(hrefForPath(h.prefix, name, true), http.StatusForbidden, "Failed to list collection")
		return false
	}

	ok := true
	for _, entry := range entries {
		child := path.Join(name, entry.Name())
		if entry.IsDir() {
			if !h.deleteRecursive(ctx, child, depth+1, ms) {
				ok = false
			}
			continue
		}
		if err := h.fs.Remove(ctx, child); err != nil {
			ms.add(hrefForPath(h.prefix, child, false), http.StatusForbidden, "Failed to delete member")
			ok = false
			continue
		}
		_ = h.props.RemoveAll(child)
	}

	if !ok {
		return false
	}
	if err := h.fs.Remove(ctx, name); err != nil {
		ms.add(hrefForPath(h.prefix, name, true), http.StatusForbidden, "Failed to delete collection")
		return false
	}
	_ = h.props.RemoveAll(name)
	return true
}

// writeMultiStatus renders an aggregate 207 response.
func writeMultiStatus(c *gin.Context, ms *multiStatusBuilder) {
	c.Writer.Header().Set("Content-Type", xmlContentType)
	c.Writer.WriteHeader(StatusMulti)
	_, _ = c.Writer.WriteString(ms.render())
}

// maxRecursionDepth is the defense-in-depth ceiling on recursive
// collection operations.
const maxRecursionDepth = 10
