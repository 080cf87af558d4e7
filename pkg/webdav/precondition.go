package webdav

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/mirrorbay/davserver/pkg/util"
)

// ifHeaderToken extracts the first lock token of an If header. Only the
// simple `(<token>)` and `</uri> (<token>)` forms are recognized; the full
// RFC 4918 tagged-list grammar would need a dedicated parser.
var ifHeaderToken = regexp.MustCompile(`\(<([^>]+)>\)`)

// lockTokenFromRequest extracts the lock token a request presents, trying
// the If header first and falling back to Lock-Token stripped of its
// angle brackets.
func lockTokenFromRequest(r *http.Request) string {
	if hdr := r.Header.Get("If"); hdr != "" {
		if m := ifHeaderToken.FindStringSubmatch(hdr); m != nil {
			return m[1]
		}
	}

	t := strings.TrimSpace(r.Header.Get("Lock-Token"))
	t = strings.TrimPrefix(t, "<")
	t = strings.TrimSuffix(t, ">")
	return t
}

// checkPreconditions runs the mutating-method gates in their fixed order:
// read-only mode, upload size, lock coverage, parent existence, and ETag
// preconditions. res is the already resolved resource view; needParent is
// set for methods creating an entry under an existing collection.
func (h *Handler) checkPreconditions(ctx context.Context, r *http.Request, cache *statCache, res *resource, needParent bool) error {
	if h.readOnly {
		return ErrReadOnly
	}

	if h.maxUploadSize > 0 && r.ContentLength > h.maxUploadSize {
		return ErrUploadTooLarge
	}

	if err := h.checkLock(res.internalPath, r); err != nil {
		return err
	}

	if needParent {
		if err := h.checkParent(ctx, cache, res.internalPath); err != nil {
			return err
		}
	}

	return h.checkETags(r, res)
}

// checkLock enforces the lock gate for path against the token the request
// presents.
func (h *Handler) checkLock(path string, r *http.Request) error {
	if h.locks == nil {
		return nil
	}
	locked, err := h.locks.IsLocked(path)
	if err != nil {
		return err
	}
	if !locked {
		return nil
	}

	ok, err := h.locks.CanModify(path, lockTokenFromRequest(r))
	if err != nil {
		return err
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// checkParent requires the parent collection of path to exist.
func (h *Handler) checkParent(ctx context.Context, cache *statCache, path string) error {
	parent := util.ParentPath(path)
	if parent == path {
		return nil
	}
	info, err := cache.stat(ctx, h.fs, parent)
	if err != nil || !info.IsDir() {
		return ErrMissingParent
	}
	return nil
}

// checkETags evaluates If-Match and If-None-Match against the resource.
// If-None-Match "*" on an existing resource always fails with 412 here;
// the safe-method 304 path lives in the GET handler.
func (h *Handler) checkETags(r *http.Request, res *resource) error {
	ifMatch := r.Header.Get("If-Match")
	ifNoneMatch := r.Header.Get("If-None-Match")

	if !res.exists() {
		// If-Match against a missing resource can never match.
		if ifMatch != "" {
			return ErrPreconditionFailed
		}
		return nil
	}

	etag := computeETag(res.info, res.internalPath)
	if !checkIfMatch(etag, ifMatch) {
		return ErrPreconditionFailed
	}
	if !checkIfNoneMatch(etag, ifNoneMatch) {
		return ErrPreconditionFailed
	}
	return nil
}
