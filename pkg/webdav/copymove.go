package webdav

import (
	"context"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// handleCopyMove duplicates or relocates a resource, migrating its dead
// properties and reporting per-member failures of collection operations as
// Multi-Status.
func (h *Handler) handleCopyMove(c *gin.Context, cache *statCache, res *resource) (int, error) {
	if !res.exists() {
		return 0, ErrNotFound
	}

	ctx := c.Request.Context()
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	dest, err := parseDestination(
		c.Request.Header.Get("Destination"),
		h.prefix, h.root, scheme, c.Request.Host,
	)
	if err != nil {
		return 0, err
	}
	if dest == res.internalPath {
		return 0, ErrSameSourceDestination
	}

	overwrite := c.Request.Header.Get("Overwrite") != "F"
	destRes, err := resolveResource(ctx, h.fs, cache, dest)
	if err != nil {
		return 0, ErrInternal
	}

	// The destination is always mutated; the source only by MOVE.
	if err := h.checkPreconditions(ctx, c.Request, cache, destRes, true); err != nil {
		return 0, err
	}
	isMove := c.Request.Method == "MOVE"
	if isMove {
		if err := h.checkLock(res.internalPath, c.Request); err != nil {
			return 0, err
		}
	}

	if destRes.exists() && !overwrite {
		return 0, ErrDestinationExists
	}

	if isMove {
		return h.moveResource(c, cache, res, destRes)
	}
	return h.copyResource(c, cache, res, destRes)
}

func (h *Handler) copyResource(c *gin.Context, cache *statCache, res, destRes *resource) (int, error) {
	ctx := c.Request.Context()
	replaced := destRes.exists()

	if !res.isCollection() {
		if replaced {
			if status, err := h.removeExisting(ctx, destRes); err != nil {
				return status, err
			}
		}
		if err := h.copyFileContents(ctx, res.internalPath, destRes.internalPath); err != nil {
			return 0, ErrInternal
		}
		if err := h.props.Copy(res.internalPath, destRes.internalPath); err != nil {
			return 0, ErrInternal
		}
		cache.invalidate(destRes.internalPath)
		return h.copyMoveResponse(c, cache, destRes.internalPath, replaced)
	}

	// Section 9.8.3: a COPY on a collection defaults to depth infinity and
	// accepts only "0" or "infinity".
	depth := infiniteDepth
	if hdr := c.Request.Header.Get("Depth"); hdr != "" {
		depth = parseDepth(hdr)
		if depth != 0 && depth != infiniteDepth {
			return http.StatusBadRequest, errInvalidDepth
		}
	}

	if replaced {
		if status, err := h.removeExisting(ctx, destRes); err != nil {
			return status, err
		}
	}

	if depth == 0 {
		if err := h.fs.Mkdir(ctx, destRes.internalPath, 0755); err != nil {
			return 0, ErrInternal
		}
		if err := h.props.Copy(res.internalPath, destRes.internalPath); err != nil {
			return 0, ErrInternal
		}
		cache.invalidate(destRes.internalPath)
		return h.copyMoveResponse(c, cache, destRes.internalPath, replaced)
	}

	ms := &multiStatusBuilder{}
	h.copyRecursive(ctx, res.internalPath, destRes.internalPath, 0, ms)
	cache.invalidate(destRes.internalPath)

	if !ms.empty() {
		writeMultiStatus(c, ms)
		return 0, nil
	}
	return h.copyMoveResponse(c, cache, destRes.internalPath, replaced)
}

func (h *Handler) moveResource(c *gin.Context, cache *statCache, res, destRes *resource) (int, error) {
	ctx := c.Request.Context()
	replaced := destRes.exists()

	// A MOVE on a collection must act as depth infinity; any explicit
	// other value is an error. Section 9.9.2.
	if hdr := c.Request.Header.Get("Depth"); hdr != "" && res.isCollection() {
		if parseDepth(hdr) != infiniteDepth {
			return http.StatusBadRequest, errInvalidDepth
		}
	}

	if replaced {
		if status, err := h.removeExisting(ctx, destRes); err != nil {
			return status, err
		}
	}

	if err := h.fs.Rename(ctx, res.internalPath, destRes.internalPath); err == nil {
		if err := h.props.Move(res.internalPath, destRes.internalPath); err != nil {
			return 0, ErrInternal
		}
		cache.invalidate(res.internalPath)
		cache.invalidate(destRes.internalPath)
		return h.copyMoveResponse(c, cache, destRes.internalPath, replaced)
	}

	// Rename failed; fall back to copy-then-delete with per-member
	// tracking of both phases.
	ms := &multiStatusBuilder{}
	if !res.isCollection() {
		if err := h.copyFileContents(ctx, res.internalPath, destRes.internalPath); err != nil {
			return 0, ErrInternal
		}
		if err := h.fs.Remove(ctx, res.internalPath); err != nil {
			ms.add(hrefForPath(h.prefix, res.internalPath, false), http.StatusForbidden, "Failed to delete source")
		}
	} else {
		h.copyRecursive(ctx, res.internalPath, destRes.internalPath, 0, ms)
		if ms.empty() {
			h.deleteRecursive(ctx, res.internalPath, 0, ms)
		}
	}

	if !ms.empty() {
		writeMultiStatus(c, ms)
		return 0, nil
	}

	if err := h.props.Move(res.internalPath, destRes.internalPath); err != nil {
		return 0, ErrInternal
	}
	cache.invalidate(res.internalPath)
	cache.invalidate(destRes.internalPath)
	return h.copyMoveResponse(c, cache, destRes.internalPath, replaced)
}

// removeExisting clears a destination that is being replaced.
func (h *Handler) removeExisting(ctx context.Context, destRes *resource) (int, error) {
	if destRes.isCollection() {
		ms := &multiStatusBuilder{}
		if !h.deleteRecursive(ctx, destRes.internalPath, 0, ms) {
			return 0, ErrInternal
		}
		return 0, nil
	}
	if err := h.fs.Remove(ctx, destRes.internalPath); err != nil {
		return 0, ErrInternal
	}
	_ = h.props.RemoveAll(destRes.internalPath)
	return 0, nil
}

// copyRecursive duplicates a collection subtree, recording failed members
// and continuing with their siblings.
func (h *Handler) copyRecursive(ctx context.Context, from, to string, depth int, ms *multiStatusBuilder) {
	if depth > maxRecursionDepth {
		ms.add(hrefForPath(h.prefix, from, true), http.StatusForbidden, errRecursionTooDeep.Error())
		return
	}

	if err := h.fs.Mkdir(ctx, to, 0755); err != nil {
		ms.add(hrefForPath(h.prefix, to, true), http.StatusForbidden, "Failed to create collection")
		return
	}
	if err := h.props.Copy(from, to); err != nil {
		ms.add(hrefForPath(h.prefix, to, true), http.StatusForbidden, "Failed to copy properties")
	}

	entries, err := h.listChildren(ctx, from)
	if err != nil {
		ms.add(hrefForPath(h.prefix, from, true), http.StatusForbidden, "Failed to list collection")
		return
	}

	for _, entry := range entries {
		src := path.Join(from, entry.Name())
		dst := path.Join(to, entry.Name())
		if entry.IsDir() {
			h.copyRecursive(ctx, src, dst, depth+1, ms)
			continue
		}
		if err := h.copyFileContents(ctx, src, dst); err != nil {
			ms.add(hrefForPath(h.prefix, src, false), http.StatusForbidden, "Failed to copy member")
			continue
		}
		if err := h.props.Copy(src, dst); err != nil {
			ms.add(hrefForPath(h.prefix, src, false), http.StatusForbidden, "Failed to copy properties")
		}
	}
}

// copyMoveResponse writes the success shape shared by COPY and MOVE.
func (h *Handler) copyMoveResponse(c *gin.Context, cache *statCache, dest string, replaced bool) (int, error) {
	if replaced {
		return http.StatusNoContent, nil
	}

	ctx := c.Request.Context()
	cache.invalidate(dest)
	if info, err := cache.stat(ctx, h.fs, dest); err == nil {
		c.Writer.Header().Set("ETag", computeETag(info, dest))
		c.Writer.Header().Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	}
	c.Writer.Header().Set("Location", path.Join(h.prefix, dest))
	return http.StatusCreated, nil
}
