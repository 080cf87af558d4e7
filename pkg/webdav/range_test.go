package webdav

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRange(t *testing.T) {
	asserts := assert.New(t)

	// No header means no range.
	r, ok := parseRange("", 100)
	asserts.True(ok)
	asserts.Nil(r)

	// A plain bounded range.
	r, ok = parseRange("bytes=10-19", 100)
	asserts.True(ok)
	asserts.Equal(int64(10), r.Start)
	asserts.Equal(int64(19), r.End)
	asserts.Equal(int64(10), r.length())

	// Open-ended range runs to the last byte.
	r, ok = parseRange("bytes=90-", 100)
	asserts.True(ok)
	asserts.Equal(int64(90), r.Start)
	asserts.Equal(int64(99), r.End)

	// Multi-range, suffix range and foreign units degrade to full body.
	for _, header := range []string{
		"bytes=0-1,5-6",
		"bytes=-10",
		"lines=0-10",
		"bytes=abc-def",
	} {
		r, ok = parseRange(header, 100)
		asserts.True(ok, header)
		asserts.Nil(r, header)
	}

	// Out-of-bounds ranges are unsatisfiable.
	for _, header := range []string{
		"bytes=100-",
		"bytes=100-200",
		"bytes=20-10",
		"bytes=0-100",
	} {
		_, ok = parseRange(header, 100)
		asserts.False(ok, header)
	}
}
