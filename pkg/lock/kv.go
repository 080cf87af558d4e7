package lock

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mirrorbay/davserver/pkg/cache"
	"github.com/mirrorbay/davserver/pkg/util"
	"github.com/samber/lo"
)

const (
	tokenKeyPrefix = "lock:token:"
	pathKeyPrefix  = "lock:path:"
)

// kvStore keeps lock records in a cache.Driver under two key families:
// "lock:token:<token>" holds the JSON lock record and "lock:path:<path>"
// holds the JSON list of tokens rooted at that path. With a RedisStore
// driver, locks survive restarts.
type kvStore struct {
	mu     sync.Mutex
	driver cache.Driver
}

// NewKvStore returns a Store backed by the given cache driver.
func NewKvStore(driver cache.Driver) Store {
	return &kvStore{driver: driver}
}

// NewMemoryStore returns a Store holding everything in process memory.
func NewMemoryStore() Store {
	return &kvStore{driver: cache.NewMemoStore()}
}

func (s *kvStore) loadLock(token string) *Lock {
	raw, ok := s.driver.Get(tokenKeyPrefix + token)
	if !ok {
		return nil
	}
	text, ok := raw.(string)
	if !ok {
		return nil
	}
	l := &Lock{}
	if err := json.Unmarshal([]byte(text), l); err != nil {
		// Corrupt records are treated as absent.
		return nil
	}
	return l
}

func (s *kvStore) loadTokens(path string) []string {
	raw, ok := s.driver.Get(pathKeyPrefix + path)
	if !ok {
		return nil
	}
	text, ok := raw.(string)
	if !ok {
		return nil
	}
	var tokens []string
	if err := json.Unmarshal([]byte(text), &tokens); err != nil {
		return nil
	}
	return tokens
}

func (s *kvStore) saveLock(l *Lock) error {
	text, err := json.Marshal(l)
	if err != nil {
		return err
	}
	if err := s.driver.Set(tokenKeyPrefix+l.Token, string(text), 0); err != nil {
		return err
	}

	tokens := s.loadTokens(l.Path)
	if !lo.Contains(tokens, l.Token) {
		tokens = append(tokens, l.Token)
	}
	list, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	return s.driver.Set(pathKeyPrefix+l.Path, string(list), 0)
}

// dropLocked removes one lock record and its path index entry. Callers hold s.mu.
func (s *kvStore) dropLocked(l *Lock) error {
	if err := s.driver.Delete("", tokenKeyPrefix+l.Token); err != nil {
		return err
	}

	tokens := lo.Without(s.loadTokens(l.Path), l.Token)
	if len(tokens) == 0 {
		return s.driver.Delete("", pathKeyPrefix+l.Path)
	}
	list, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	return s.driver.Set(pathKeyPrefix+l.Path, string(list), 0)
}

// activeLocksAt returns the non-expired locks rooted exactly at path,
// pruning expired ones as they are seen. Callers hold s.mu.
func (s *kvStore) activeLocksAt(path string, now time.Time) []Lock {
	var res []Lock
	for _, token := range s.loadTokens(path) {
		l := s.loadLock(token)
		if l == nil {
			continue
		}
		if l.Expired(now) {
			_ = s.dropLocked(l)
			continue
		}
		res = append(res, *l)
	}
	return res
}

// coveringLocks returns all active locks covering path: locks rooted at
// the path itself plus ancestor locks with infinite depth. Callers hold s.mu.
func (s *kvStore) coveringLocks(path string, now time.Time) []Lock {
	path = util.SlashClean(path)
	var res []Lock
	walkToRoot(path, func(name string, first bool) bool {
		for _, l := range s.activeLocksAt(name, now) {
			if first || l.Depth == DepthInfinity {
				res = append(res, l)
			}
		}
		return true
	})
	return res
}

// lockedDescendant reports whether any active lock is rooted strictly
// below path. Callers hold s.mu.
func (s *kvStore) lockedDescendant(path string, now time.Time) bool {
	keys, err := s.driver.Keys(pathKeyPrefix)
	if err != nil {
		return false
	}
	for _, key := range keys {
		root := strings.TrimPrefix(key, pathKeyPrefix)
		if !util.IsDescendant(path, root) {
			continue
		}
		if len(s.activeLocksAt(root, now)) > 0 {
			return true
		}
	}
	return false
}

func (s *kvStore) Create(path string, scope Scope, lockType, owner string, timeout *time.Duration, depth int) (*Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path = util.SlashClean(path)
	now := time.Now()

	for _, l := range s.coveringLocks(path, now) {
		if l.Scope == ScopeExclusive || scope == ScopeExclusive {
			return nil, nil
		}
	}
	if depth == DepthInfinity && scope == ScopeExclusive && s.lockedDescendant(path, now) {
		return nil, nil
	}

	l := &Lock{
		Token:   TokenPrefix + uuid.NewString(),
		Path:    path,
		Scope:   scope,
		Type:    lockType,
		Owner:   owner,
		Created: now,
		Depth:   depth,
	}
	if timeout != nil {
		expires := now.Add(*timeout)
		l.Expires = &expires
	}

	if err := s.saveLock(l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *kvStore) Get(token string) (*Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.loadLock(token)
	if l == nil {
		return nil, nil
	}
	if l.Expired(time.Now()) {
		return nil, s.dropLocked(l)
	}
	return l, nil
}

func (s *kvStore) LocksFor(path string) ([]Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coveringLocks(path, time.Now()), nil
}

func (s *kvStore) Refresh(token string, timeout *time.Duration) (*Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.loadLock(token)
	if l == nil {
		return nil, nil
	}
	now := time.Now()
	if l.Expired(now) {
		return nil, s.dropLocked(l)
	}

	l.Expires = nil
	if timeout != nil {
		expires := now.Add(*timeout)
		l.Expires = &expires
	}
	if err := s.saveLock(l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *kvStore) Remove(token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.loadLock(token)
	if l == nil {
		return false, nil
	}
	expired := l.Expired(time.Now())
	if err := s.dropLocked(l); err != nil {
		return false, err
	}
	return !expired, nil
}

func (s *kvStore) RemoveExpired() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.driver.Keys(tokenKeyPrefix)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, key := range keys {
		l := s.loadLock(strings.TrimPrefix(key, tokenKeyPrefix))
		if l == nil {
			_ = s.driver.Delete("", key)
			continue
		}
		if l.Expired(now) {
			if err := s.dropLocked(l); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *kvStore) IsLocked(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.coveringLocks(path, time.Now())) > 0, nil
}

func (s *kvStore) CanModify(path, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	covering := s.coveringLocks(path, time.Now())
	if len(covering) == 0 {
		return true, nil
	}
	if token == "" {
		return false, nil
	}
	return lo.ContainsBy(covering, func(l Lock) bool {
		return l.Token == token
	}), nil
}

func (s *kvStore) Close() error {
	return nil
}

// walkToRoot visits name and then each of its ancestors up to "/".
func walkToRoot(name string, f func(name0 string, first bool) bool) bool {
	for first := true; ; first = false {
		if !f(name, first) {
			return false
		}
		if name == "/" {
			break
		}
		name = name[:strings.LastIndex(name, "/")]
		if name == "" {
			name = "/"
		}
	}
	return true
}
