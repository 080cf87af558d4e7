package webdav

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mirrorbay/davserver/pkg/lock"
)

// handleLock creates or refreshes a lock. Locking a null resource is
// valid: it reserves the name, and a subsequent PUT there must present the
// lock token.
func (h *Handler) handleLock(c *gin.Context, cache *statCache, res *resource) (int, error) {
	if h.locks == nil {
		return 0, &StatusError{http.StatusMethodNotAllowed, "Locking is disabled"}
	}
	if h.readOnly {
		return 0, ErrReadOnly
	}

	timeout, err := parseTimeout(c.Request.Header.Get("Timeout"))
	if err != nil {
		return http.StatusBadRequest, err
	}

	li, refresh, err := readLockInfo(c.Request.Body)
	if err != nil {
		return http.StatusBadRequest, err
	}

	if refresh {
		return h.refreshLock(c, res, timeout)
	}

	scope := lock.ScopeExclusive
	if li.Shared != nil {
		scope = lock.ScopeShared
	}

	depth := 0
	if hdr := c.Request.Header.Get("Depth"); parseDepth(hdr) == infiniteDepth {
		depth = lock.DepthInfinity
	}

	l, err := h.locks.Create(res.internalPath, scope, lock.TypeWrite, li.Owner.ownerText(), timeout, depth)
	if err != nil {
		return 0, ErrInternal
	}
	if l == nil {
		return 0, ErrLocked
	}

	c.Writer.Header().Set("Lock-Token", "<"+l.Token+">")
	c.Writer.Header().Set("Content-Type", xmlContentType)
	c.Writer.WriteHeader(http.StatusOK)
	_, _ = c.Writer.WriteString(lockDiscoveryBody(l, c.Request.URL.Path))
	return 0, nil
}

// refreshLock resets the TTL of a held lock identified by the If or
// Lock-Token header.
func (h *Handler) refreshLock(c *gin.Context, res *resource, timeout *time.Duration) (int, error) {
	token := lockTokenFromRequest(c.Request)
	if token == "" {
		return 0, ErrPreconditionFailed
	}

	held, err := h.locks.Get(token)
	if err != nil {
		return 0, ErrInternal
	}
	if held == nil || !held.Covers(res.internalPath) {
		return 0, ErrPreconditionFailed
	}

	l, err := h.locks.Refresh(token, timeout)
	if err != nil {
		return 0, ErrInternal
	}
	if l == nil {
		return 0, ErrPreconditionFailed
	}

	c.Writer.Header().Set("Content-Type", xmlContentType)
	c.Writer.WriteHeader(http.StatusOK)
	_, _ = c.Writer.WriteString(lockDiscoveryBody(l, c.Request.URL.Path))
	return 0, nil
}

// handleUnlock removes the lock named by the Lock-Token header.
func (h *Handler) handleUnlock(c *gin.Context, cache *statCache, res *resource) (int, error) {
	if h.locks == nil {
		return 0, &StatusError{http.StatusMethodNotAllowed, "Locking is disabled"}
	}

	// The Lock-Token value is a Coded-URL; strip the angle brackets.
	t := c.Request.Header.Get("Lock-Token")
	if len(t) < 2 || t[0] != '<' || t[len(t)-1] != '>' {
		return http.StatusBadRequest, errInvalidLockToken
	}
	t = t[1 : len(t)-1]

	removed, err := h.locks.Remove(t)
	if err != nil {
		return 0, ErrInternal
	}
	if !removed {
		return 0, &StatusError{http.StatusConflict, "No such lock token"}
	}
	return http.StatusNoContent, nil
}
