package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mirrorbay/davserver/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIniConfigProviderDefaults(t *testing.T) {
	asserts := assert.New(t)
	path := filepath.Join(t.TempDir(), "conf.ini")
	l := logging.NewConsoleLogger(logging.LevelError)

	// A missing file is created with defaults.
	provider, err := NewIniConfigProvider(path, l)
	require.NoError(t, err)
	asserts.FileExists(path)

	asserts.Equal(":5212", provider.System().Listen)
	asserts.Equal("/dav", provider.WebDAV().Prefix)
	asserts.True(provider.WebDAV().EnableLocking)
	asserts.Equal(MemoryBackend, provider.Store().PropertyBackend)
	asserts.Equal(64, provider.Throttle().MaxConcurrent)
	asserts.Empty(provider.Auth().Users)
}

func TestNewIniConfigProviderParsesSections(t *testing.T) {
	asserts := assert.New(t)
	path := filepath.Join(t.TempDir(), "conf.ini")
	content := `[System]
Listen = :9000
LogLevel = debug

[WebDAV]
Root = /srv/dav
Prefix = /files
ReadOnly = true
MaxUploadSize = 1048576

[Throttle]
MaxConcurrent = 8
MaxRPS = 100
WindowSeconds = 30

[Store]
PropertyBackend = file
LockBackend = memory

[Users]
alice = 2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	provider, err := NewIniConfigProvider(path, logging.NewConsoleLogger(logging.LevelError))
	require.NoError(t, err)

	asserts.Equal(":9000", provider.System().Listen)
	asserts.Equal("debug", provider.System().LogLevel)
	asserts.Equal("/srv/dav", provider.WebDAV().Root)
	asserts.Equal("/files", provider.WebDAV().Prefix)
	asserts.True(provider.WebDAV().ReadOnly)
	asserts.Equal(int64(1048576), provider.WebDAV().MaxUploadSize)
	asserts.Equal(8, provider.Throttle().MaxConcurrent)
	asserts.Equal(100, provider.Throttle().MaxRPS)
	asserts.Equal(FileBackend, provider.Store().PropertyBackend)
	asserts.Len(provider.Auth().Users, 1)
	asserts.Contains(provider.Auth().Users, "alice")
}

func TestNewIniConfigProviderValidation(t *testing.T) {
	asserts := assert.New(t)
	path := filepath.Join(t.TempDir(), "conf.ini")
	content := `[WebDAV]
Prefix = no-leading-slash
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := NewIniConfigProvider(path, logging.NewConsoleLogger(logging.LevelError))
	asserts.Error(err)
}
