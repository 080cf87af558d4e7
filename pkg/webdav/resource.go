package webdav

import (
	"context"
	"mime"
	"os"
	"path"
	"strings"
	"time"

	"github.com/mirrorbay/davserver/pkg/filesystem"
)

// resourceKind is the variant a request URI resolves to: an existing file,
// an existing collection, or nothing.
type resourceKind int

const (
	kindNull resourceKind = iota
	kindFile
	kindCollection
)

// resource is the view of one URI, observed by a single stat at dispatch
// time. Handlers do not re-stat unless they mutate.
type resource struct {
	kind resourceKind
	// internalPath is absolute, slash separated, prefix stripped.
	internalPath string
	info         os.FileInfo
}

func (r *resource) exists() bool {
	return r.kind != kindNull
}

func (r *resource) isCollection() bool {
	return r.kind == kindCollection
}

// displayName is the resource's own name; the root collection displays as "/".
func (r *resource) displayName() string {
	if r.internalPath == "/" {
		return "/"
	}
	return path.Base(r.internalPath)
}

// contentType derives the MIME type of a file from its path suffix.
func (r *resource) contentType() string {
	if r.isCollection() {
		return "httpd/unix-directory"
	}
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(r.internalPath))); t != "" {
		return t
	}
	return "application/octet-stream"
}

// statCacheTTL bounds how long one request trusts a previous stat of the
// same path.
const statCacheTTL = time.Second

type statEntry struct {
	info os.FileInfo
	err  error
	at   time.Time
}

// statCache dedupes stat calls within a single request. It is owned by the
// request and never shared.
type statCache struct {
	entries map[string]statEntry
}

func newStatCache() *statCache {
	return &statCache{entries: make(map[string]statEntry)}
}

func (c *statCache) stat(ctx context.Context, fs filesystem.FileSystem, name string) (os.FileInfo, error) {
	if e, ok := c.entries[name]; ok && time.Since(e.at) < statCacheTTL {
		return e.info, e.err
	}
	info, err := fs.Stat(ctx, name)
	c.entries[name] = statEntry{info: info, err: err, at: time.Now()}
	return info, err
}

// invalidate drops a cached entry after a mutation of name.
func (c *statCache) invalidate(name string) {
	delete(c.entries, name)
}

// resolveResource classifies the internal path with one stat.
func resolveResource(ctx context.Context, fs filesystem.FileSystem, cache *statCache, internalPath string) (*resource, error) {
	info, err := cache.stat(ctx, fs, internalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &resource{kind: kindNull, internalPath: internalPath}, nil
		}
		return nil, err
	}

	kind := kindFile
	if info.IsDir() {
		kind = kindCollection
	}
	return &resource{kind: kind, internalPath: internalPath, info: info}, nil
}
