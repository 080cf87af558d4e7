package prop

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/mirrorbay/davserver/pkg/cache"
	"github.com/mirrorbay/davserver/pkg/util"
)

const propKeyPrefix = "prop:"

// kvStore keeps one JSON document per resource inside a cache.Driver. With
// a MemoStore driver it is the in-memory backend; with a RedisStore driver
// properties survive restarts.
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

func (s *kvStore) load(path string) map[string]Property {
	raw, ok := s.driver.Get(propKeyPrefix + util.SlashClean(path))
	if !ok {
		return map[string]Property{}
	}

	text, ok := raw.(string)
	if !ok {
		return map[string]Property{}
	}

	props := make(map[string]Property)
	if err := json.Unmarshal([]byte(text), &props); err != nil {
		// Corrupt documents are treated as empty.
		return map[string]Property{}
	}
	return props
}

func (s *kvStore) save(path string, props map[string]Property) error {
	key := propKeyPrefix + util.SlashClean(path)
	if len(props) == 0 {
		return s.driver.Delete("", key)
	}

	text, err := json.Marshal(props)
	if err != nil {
		return err
	}
	return s.driver.Set(key, string(text), 0)
}

func (s *kvStore) GetAll(path string) (map[string]Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(path), nil
}

func (s *kvStore) Get(path, ns, name string) (Property, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.load(path)[QName(ns, name)]
	return p, ok, nil
}

func (s *kvStore) Set(path string, p Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	props := s.load(path)
	props[p.QName()] = p
	return s.save(path, props)
}

func (s *kvStore) Remove(path, ns, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	props := s.load(path)
	qn := QName(ns, name)
	if _, ok := props[qn]; !ok {
		return false, nil
	}
	delete(props, qn)
	return true, s.save(path, props)
}

func (s *kvStore) RemoveAll(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver.Delete("", propKeyPrefix+util.SlashClean(path))
}

// subtreePaths lists every stored path equal to or below root.
func (s *kvStore) subtreePaths(root string) []string {
	keys, err := s.driver.Keys(propKeyPrefix)
	if err != nil {
		return []string{root}
	}
	var res []string
	for _, key := range keys {
		p := strings.TrimPrefix(key, propKeyPrefix)
		if p == root || util.IsDescendant(root, p) {
			res = append(res, p)
		}
	}
	return res
}

func (s *kvStore) Move(from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, to = util.SlashClean(from), util.SlashClean(to)
	if _, ok := s.driver.Get(propKeyPrefix + from); !ok {
		// Nothing stored at from; clear any stale destination document.
		if err := s.driver.Delete("", propKeyPrefix+to); err != nil {
			return err
		}
	}
	for _, src := range s.subtreePaths(from) {
		dst := to + strings.TrimPrefix(src, from)
		if err := s.save(dst, s.load(src)); err != nil {
			return err
		}
		if err := s.driver.Delete("", propKeyPrefix+src); err != nil {
			return err
		}
	}
	return nil
}

func (s *kvStore) Copy(from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, to = util.SlashClean(from), util.SlashClean(to)
	if _, ok := s.driver.Get(propKeyPrefix + from); !ok {
		// Nothing stored at from; clear any stale destination document.
		if err := s.driver.Delete("", propKeyPrefix+to); err != nil {
			return err
		}
	}
	for _, src := range s.subtreePaths(from) {
		dst := to + strings.TrimPrefix(src, from)
		if err := s.save(dst, s.load(src)); err != nil {
			return err
		}
	}
	return nil
}

func (s *kvStore) Has(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.load(path)) > 0, nil
}

func (s *kvStore) Count(path string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.load(path)), nil
}

func (s *kvStore) Close() error {
	return nil
}
