package prop

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mirrorbay/davserver/pkg/util"
)

const propFileSuffix = ".properties"

// fileStore keeps one hidden JSON document next to each resource:
// `.<basename>.properties` in the resource's parent directory. The root
// collection's document is `.properties` inside the root itself.
type fileStore struct {
	mu   sync.Mutex
	root string
}

// NewFileStore returns a Store persisting property documents as hidden
// sibling files under root.
func NewFileStore(root string) (Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &fileStore{root: abs}, nil
}

// docPath maps an internal path to its property document location.
func (s *fileStore) docPath(p string) string {
	p = util.SlashClean(p)
	if p == "/" {
		return filepath.Join(s.root, propFileSuffix)
	}
	dir, base := path.Split(p)
	return filepath.Join(s.root, filepath.FromSlash(dir), "."+base+propFileSuffix)
}

func (s *fileStore) load(p string) map[string]Property {
	raw, err := os.ReadFile(s.docPath(p))
	if err != nil {
		return map[string]Property{}
	}

	props := make(map[string]Property)
	if err := json.Unmarshal(raw, &props); err != nil {
		return map[string]Property{}
	}
	return props
}

func (s *fileStore) save(p string, props map[string]Property) error {
	doc := s.docPath(p)
	if len(props) == 0 {
		err := os.Remove(doc)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	text, err := json.Marshal(props)
	if err != nil {
		return err
	}

	f, err := util.CreatNestedFile(doc)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(text)
	return err
}

func (s *fileStore) GetAll(path string) (map[string]Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(path), nil
}

func (s *fileStore) Get(path, ns, name string) (Property, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.load(path)[QName(ns, name)]
	return p, ok, nil
}

func (s *fileStore) Set(path string, p Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	props := s.load(path)
	props[p.QName()] = p
	return s.save(path, props)
}

func (s *fileStore) Remove(path, ns, name string) (bool, error) {
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

func (s *fileStore) RemoveAll(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(path, nil)
}

func (s *fileStore) Move(from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, dst := s.docPath(from), s.docPath(to)
	if !util.Exists(src) {
		// Nothing to migrate; clear any stale destination document.
		return s.save(to, nil)
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(src, dst)
}

func (s *fileStore) Copy(from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(to, s.load(from))
}

func (s *fileStore) Has(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.load(path)) > 0, nil
}

func (s *fileStore) Count(path string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.load(path)), nil
}

func (s *fileStore) Close() error {
	return nil
}

// IsPropertyDocument reports whether the directory entry name is a hidden
// property document managed by the file backend. Directory listings and
// recursive operations use it to keep documents out of the WebDAV view.
func IsPropertyDocument(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, propFileSuffix)
}
