// Package lock manages WebDAV write locks with scope, depth coverage and
// TTL expiry.
package lock

import (
	"time"

	"github.com/mirrorbay/davserver/pkg/util"
)

// Scope of a lock.
type Scope string

const (
	ScopeExclusive Scope = "exclusive"
	ScopeShared    Scope = "shared"
)

// TypeWrite is the only lock type of RFC 4918.
const TypeWrite = "write"

// DepthInfinity marks a lock covering the whole subtree of its path.
const DepthInfinity = -1

// TokenPrefix is the URI scheme of server minted lock tokens.
const TokenPrefix = "opaquelocktoken:"

// Lock is one active lock record.
type Lock struct {
	Token   string     `json:"token"`
	Path    string     `json:"path"`
	Scope   Scope      `json:"scope"`
	Type    string     `json:"type"`
	Owner   string     `json:"owner,omitempty"`
	Created time.Time  `json:"created"`
	Expires *time.Time `json:"expires,omitempty"`
	// Depth is 0 or DepthInfinity.
	Depth int `json:"depth"`
}

// Expired reports whether l's TTL has passed at now.
func (l *Lock) Expired(now time.Time) bool {
	return l.Expires != nil && l.Expires.Before(now)
}

// Covers reports whether l covers path: the lock's own path always, plus
// every descendant when the lock depth is infinite.
func (l *Lock) Covers(path string) bool {
	path = util.SlashClean(path)
	if l.Path == path {
		return true
	}
	return l.Depth == DepthInfinity && util.IsDescendant(l.Path, path)
}

// Remaining returns the seconds until expiry, or nil for an infinite lock.
func (l *Lock) Remaining(now time.Time) *int64 {
	if l.Expires == nil {
		return nil
	}
	s := int64(l.Expires.Sub(now) / time.Second)
	if s < 0 {
		s = 0
	}
	return &s
}

// Store creates, resolves, refreshes and expires locks. Operations are
// point-wise atomic; an expired lock is indistinguishable from an absent
// one on all queries.
type Store interface {
	// Create attempts to place a lock at path. A nil result means the
	// request conflicts with existing covering locks. A nil timeout means
	// no expiry.
	Create(path string, scope Scope, lockType, owner string, timeout *time.Duration, depth int) (*Lock, error)

	// Get resolves a token. Expired locks are removed and reported absent.
	Get(token string) (*Lock, error)

	// LocksFor returns all active locks covering path, including ancestor
	// locks with infinite depth.
	LocksFor(path string) ([]Lock, error)

	// Refresh resets the TTL of the lock with the given token. A nil result
	// means the token resolves to no active lock.
	Refresh(token string, timeout *time.Duration) (*Lock, error)

	// Remove deletes the lock with the given token, reporting whether it
	// existed.
	Remove(token string) (bool, error)

	// RemoveExpired drops every expired lock. Called by the background
	// sweep.
	RemoveExpired() error

	// IsLocked reports whether any active lock covers path.
	IsLocked(path string) (bool, error)

	// CanModify reports whether a request holding token (possibly empty)
	// may modify path: true when no covering locks exist, or when the token
	// matches one of them.
	CanModify(path, token string) (bool, error)

	// Close releases the backing resources.
	Close() error
}
