package filesystem

import (
	"context"
	"io"
	"os"
)

// A File is returned by a FileSystem's OpenFile method and can be served by
// the engine's GET and PUT handlers.
type File interface {
	io.Closer
	io.Reader
	io.Seeker
	io.Writer
	Readdir(count int) ([]os.FileInfo, error)
	Stat() (os.FileInfo, error)
}

// A FileSystem implements access to a collection of named files and
// directories. The elements in a file path are separated by slash ('/',
// U+002F) characters, regardless of host operating system convention.
//
// Each method has the same semantics as the os package's function of the
// same name. All paths are internal paths: absolute, slash separated, and
// already stripped of the URL prefix.
type FileSystem interface {
	Mkdir(ctx context.Context, name string, perm os.FileMode) error
	OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (File, error)
	Remove(ctx context.Context, name string) error
	Rename(ctx context.Context, oldName, newName string) error
	Stat(ctx context.Context, name string) (os.FileInfo, error)
	ReadDir(ctx context.Context, name string) ([]os.FileInfo, error)

	// Resolve maps an internal path to the backend's native path. The result
	// is informational; callers must not bypass the FileSystem with it.
	Resolve(name string) string
}
