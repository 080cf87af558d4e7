package lock

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func second(n int) *time.Duration {
	d := time.Duration(n) * time.Second
	return &d
}

func TestCreateAndConflicts(t *testing.T) {
	asserts := assert.New(t)
	s := NewMemoryStore()
	defer s.Close()

	l, err := s.Create("/f.txt", ScopeExclusive, TypeWrite, "alice", second(3600), 0)
	asserts.NoError(err)
	asserts.NotNil(l)
	asserts.True(strings.HasPrefix(l.Token, TokenPrefix))

	// A second lock on the same path conflicts.
	dup, err := s.Create("/f.txt", ScopeExclusive, TypeWrite, "bob", second(3600), 0)
	asserts.NoError(err)
	asserts.Nil(dup)

	// Shared locks coexist with each other but not with exclusive ones.
	sh1, err := s.Create("/shared.txt", ScopeShared, TypeWrite, "", nil, 0)
	asserts.NoError(err)
	asserts.NotNil(sh1)
	sh2, err := s.Create("/shared.txt", ScopeShared, TypeWrite, "", nil, 0)
	asserts.NoError(err)
	asserts.NotNil(sh2)
	ex, err := s.Create("/shared.txt", ScopeExclusive, TypeWrite, "", nil, 0)
	asserts.NoError(err)
	asserts.Nil(ex)
}

func TestDepthCoverage(t *testing.T) {
	asserts := assert.New(t)
	s := NewMemoryStore()
	defer s.Close()

	l, err := s.Create("/dir", ScopeExclusive, TypeWrite, "", nil, DepthInfinity)
	asserts.NoError(err)
	asserts.NotNil(l)

	// Descendants are covered by the infinite-depth ancestor lock.
	locked, err := s.IsLocked("/dir/sub/file.txt")
	asserts.NoError(err)
	asserts.True(locked)

	locks, err := s.LocksFor("/dir/sub/file.txt")
	asserts.NoError(err)
	asserts.Len(locks, 1)
	asserts.Equal(l.Token, locks[0].Token)

	// A child lock under a covering exclusive lock conflicts.
	child, err := s.Create("/dir/sub", ScopeExclusive, TypeWrite, "", nil, 0)
	asserts.NoError(err)
	asserts.Nil(child)

	// A zero-depth lock covers only its own path.
	z, err := s.Create("/flat", ScopeExclusive, TypeWrite, "", nil, 0)
	asserts.NoError(err)
	asserts.NotNil(z)
	locked, _ = s.IsLocked("/flat/below")
	asserts.False(locked)
}

func TestLockedDescendantBlocksInfiniteLock(t *testing.T) {
	asserts := assert.New(t)
	s := NewMemoryStore()
	defer s.Close()

	_, err := s.Create("/tree/leaf.txt", ScopeExclusive, TypeWrite, "", nil, 0)
	asserts.NoError(err)

	blocked, err := s.Create("/tree", ScopeExclusive, TypeWrite, "", nil, DepthInfinity)
	asserts.NoError(err)
	asserts.Nil(blocked)
}

func TestCanModify(t *testing.T) {
	asserts := assert.New(t)
	s := NewMemoryStore()
	defer s.Close()

	ok, err := s.CanModify("/free.txt", "")
	asserts.NoError(err)
	asserts.True(ok)

	l, _ := s.Create("/f.txt", ScopeExclusive, TypeWrite, "", nil, 0)
	ok, _ = s.CanModify("/f.txt", "")
	asserts.False(ok)
	ok, _ = s.CanModify("/f.txt", "opaquelocktoken:wrong")
	asserts.False(ok)
	ok, _ = s.CanModify("/f.txt", l.Token)
	asserts.True(ok)
}

func TestRefreshAndRemove(t *testing.T) {
	asserts := assert.New(t)
	s := NewMemoryStore()
	defer s.Close()

	l, _ := s.Create("/f.txt", ScopeExclusive, TypeWrite, "", second(10), 0)

	refreshed, err := s.Refresh(l.Token, second(7200))
	asserts.NoError(err)
	asserts.NotNil(refreshed)
	asserts.NotNil(refreshed.Expires)
	asserts.True(refreshed.Expires.After(time.Now().Add(time.Hour)))

	// Refreshing to Infinite drops the expiry.
	refreshed, err = s.Refresh(l.Token, nil)
	asserts.NoError(err)
	asserts.Nil(refreshed.Expires)

	removed, err := s.Remove(l.Token)
	asserts.NoError(err)
	asserts.True(removed)

	removed, err = s.Remove(l.Token)
	asserts.NoError(err)
	asserts.False(removed)

	missing, err := s.Refresh("opaquelocktoken:gone", nil)
	asserts.NoError(err)
	asserts.Nil(missing)
}

func TestExpiry(t *testing.T) {
	asserts := assert.New(t)
	s := NewMemoryStore()
	defer s.Close()

	l, _ := s.Create("/f.txt", ScopeExclusive, TypeWrite, "", second(0), 0)
	asserts.NotNil(l)
	time.Sleep(10 * time.Millisecond)

	// An expired lock is indistinguishable from an absent one.
	got, err := s.Get(l.Token)
	asserts.NoError(err)
	asserts.Nil(got)

	locked, _ := s.IsLocked("/f.txt")
	asserts.False(locked)

	// The path is free for a new lock.
	l2, err := s.Create("/f.txt", ScopeExclusive, TypeWrite, "", nil, 0)
	asserts.NoError(err)
	asserts.NotNil(l2)
}

func TestRemoveExpiredSweep(t *testing.T) {
	asserts := assert.New(t)
	s := NewMemoryStore()
	defer s.Close()

	_, _ = s.Create("/a", ScopeExclusive, TypeWrite, "", second(0), 0)
	keep, _ := s.Create("/b", ScopeExclusive, TypeWrite, "", second(3600), 0)
	time.Sleep(10 * time.Millisecond)

	asserts.NoError(s.RemoveExpired())

	locked, _ := s.IsLocked("/a")
	asserts.False(locked)
	got, _ := s.Get(keep.Token)
	asserts.NotNil(got)
}

func TestCovers(t *testing.T) {
	asserts := assert.New(t)

	flat := &Lock{Path: "/a/b", Depth: 0}
	asserts.True(flat.Covers("/a/b"))
	asserts.False(flat.Covers("/a/b/c"))
	asserts.False(flat.Covers("/a"))

	deep := &Lock{Path: "/a", Depth: DepthInfinity}
	asserts.True(deep.Covers("/a"))
	asserts.True(deep.Covers("/a/b/c"))
	asserts.False(deep.Covers("/ab"))
}
