package webdav

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeInfo struct {
	name    string
	size    int64
	modTime time.Time
	dir     bool
}

func (f fakeInfo) Name() string       { return f.name }
func (f fakeInfo) Size() int64        { return f.size }
func (f fakeInfo) Mode() os.FileMode  { return 0 }
func (f fakeInfo) ModTime() time.Time { return f.modTime }
func (f fakeInfo) IsDir() bool        { return f.dir }
func (f fakeInfo) Sys() interface{}   { return nil }

func TestComputeETag(t *testing.T) {
	asserts := assert.New(t)
	now := time.Now()
	info := fakeInfo{name: "a.txt", size: 5, modTime: now}

	etag := computeETag(info, "/a.txt")
	asserts.Regexp(`^"5-\d+-[0-9a-f]{8}"$`, etag)

	// Same inputs produce the same tag.
	asserts.Equal(etag, computeETag(info, "/a.txt"))

	// Any component change changes the tag.
	asserts.NotEqual(etag, computeETag(fakeInfo{size: 6, modTime: now}, "/a.txt"))
	asserts.NotEqual(etag, computeETag(fakeInfo{size: 5, modTime: now.Add(time.Second)}, "/a.txt"))
	asserts.NotEqual(etag, computeETag(info, "/b.txt"))
}

func TestETagMatches(t *testing.T) {
	asserts := assert.New(t)
	etag := `"5-100-abcd1234"`

	asserts.True(etagMatches(etag, "*"))
	asserts.True(etagMatches(etag, `"5-100-abcd1234"`))
	asserts.True(etagMatches(etag, `W/"5-100-abcd1234"`))
	asserts.True(etagMatches(etag, `"other", "5-100-abcd1234"`))
	asserts.False(etagMatches(etag, `"other"`))
	// Unquoted candidates are rejected structurally.
	asserts.False(etagMatches(etag, `5-100-abcd1234`))
}

func TestIfMatchHeaders(t *testing.T) {
	asserts := assert.New(t)
	etag := `"1-2-33334444"`

	asserts.True(checkIfMatch(etag, ""))
	asserts.True(checkIfMatch(etag, etag))
	asserts.False(checkIfMatch(etag, `"nope"`))

	asserts.True(checkIfNoneMatch(etag, ""))
	asserts.False(checkIfNoneMatch(etag, etag))
	asserts.False(checkIfNoneMatch(etag, "*"))
	asserts.True(checkIfNoneMatch(etag, `"nope"`))
}
