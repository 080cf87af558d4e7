package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/mirrorbay/davserver/pkg/util"
	"github.com/pkg/errors"
)

// ErrOutsideRoot is returned when a resolved path escapes the root directory.
var ErrOutsideRoot = errors.New("filesystem: path outside root directory")

// LocalFS implements FileSystem on top of the host filesystem, rooted at a
// single directory. Every internal path is joined onto the root and the
// result is verified to stay inside it.
type LocalFS struct {
	root string
}

// NewLocalFS returns a FileSystem rooted at dir. The directory is created
// when missing.
func NewLocalFS(dir string) (*LocalFS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(err, "filesystem: failed to resolve root")
	}
	if !util.Exists(abs) {
		if err := os.MkdirAll(abs, 0700); err != nil {
			return nil, errors.Wrap(err, "filesystem: failed to create root")
		}
	}
	return &LocalFS{root: abs}, nil
}

// resolve maps an internal path onto the root directory and rejects any
// result that is not contained in it.
func (fs *LocalFS) resolve(name string) (string, error) {
	// Paths from the dispatcher are already canonical, but a second
	// containment check here keeps the backend safe when used directly.
	if strings.ContainsAny(name, "\x00") {
		return "", ErrOutsideRoot
	}
	mapped := filepath.Join(fs.root, filepath.FromSlash(util.SlashClean(name)))
	abs, err := filepath.Abs(mapped)
	if err != nil {
		return "", errors.Wrap(err, "filesystem: failed to resolve path")
	}
	if abs != fs.root && !strings.HasPrefix(abs, fs.root+string(os.PathSeparator)) {
		return "", ErrOutsideRoot
	}
	return abs, nil
}

// Resolve implements FileSystem. It ignores containment errors and returns
// the joined path for display purposes.
func (fs *LocalFS) Resolve(name string) string {
	return filepath.Join(fs.root, filepath.FromSlash(util.SlashClean(name)))
}

func (fs *LocalFS) Mkdir(ctx context.Context, name string, perm os.FileMode) error {
	p, err := fs.resolve(name)
	if err != nil {
		return err
	}
	return os.Mkdir(p, perm)
}

func (fs *LocalFS) OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (File, error) {
	p, err := fs.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(p, flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (fs *LocalFS) Remove(ctx context.Context, name string) error {
	p, err := fs.resolve(name)
	if err != nil {
		return err
	}
	if p == fs.root {
		// Never remove the root itself.
		return os.ErrPermission
	}
	return os.Remove(p)
}

func (fs *LocalFS) Rename(ctx context.Context, oldName, newName string) error {
	from, err := fs.resolve(oldName)
	if err != nil {
		return err
	}
	to, err := fs.resolve(newName)
	if err != nil {
		return err
	}
	if from == fs.root || to == fs.root {
		return os.ErrPermission
	}
	return os.Rename(from, to)
}

func (fs *LocalFS) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	p, err := fs.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.Stat(p)
}

func (fs *LocalFS) ReadDir(ctx context.Context, name string) ([]os.FileInfo, error) {
	p, err := fs.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Readdir(-1)
}
