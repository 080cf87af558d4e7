package filesystem

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFSBasics(t *testing.T) {
	asserts := assert.New(t)
	ctx := context.Background()
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)

	asserts.NoError(fs.Mkdir(ctx, "/dir", 0755))

	f, err := fs.OpenFile(ctx, "/dir/a.txt", os.O_WRONLY|os.O_CREATE, 0644)
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	asserts.NoError(err)
	asserts.NoError(f.Close())

	info, err := fs.Stat(ctx, "/dir/a.txt")
	asserts.NoError(err)
	asserts.Equal(int64(5), info.Size())
	asserts.False(info.IsDir())

	entries, err := fs.ReadDir(ctx, "/dir")
	asserts.NoError(err)
	asserts.Len(entries, 1)

	asserts.NoError(fs.Rename(ctx, "/dir/a.txt", "/dir/b.txt"))
	_, err = fs.Stat(ctx, "/dir/a.txt")
	asserts.True(os.IsNotExist(err))

	asserts.NoError(fs.Remove(ctx, "/dir/b.txt"))
	asserts.NoError(fs.Remove(ctx, "/dir"))
}

func TestLocalFSContainment(t *testing.T) {
	asserts := assert.New(t)
	ctx := context.Background()
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)

	// Escaping names are cleaned back inside the root rather than
	// resolving outside it.
	asserts.NoError(fs.Mkdir(ctx, "/../../escape", 0755))
	_, err = fs.Stat(ctx, "/escape")
	asserts.NoError(err)

	// NUL bytes never resolve.
	_, err = fs.OpenFile(ctx, "/bad\x00name", os.O_RDONLY, 0)
	asserts.ErrorIs(err, ErrOutsideRoot)

	// Removing the root itself is refused.
	asserts.ErrorIs(fs.Remove(ctx, "/"), os.ErrPermission)
}
