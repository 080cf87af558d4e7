package webdav

import (
	"io"
	"strconv"
	"strings"
)

// byteRange is one parsed, validated Range request. End is inclusive.
type byteRange struct {
	Start int64
	End   int64
}

func (r byteRange) length() int64 {
	return r.End - r.Start + 1
}

// parseRange parses a single-range bytes request against the resource
// size. It returns (nil, true) when no usable range is present (multi
// range, suffix range, non-bytes units, malformed), and (nil, false) when
// a syntactically valid range falls outside the resource.
func parseRange(header string, size int64) (*byteRange, bool) {
	if header == "" {
		return nil, true
	}
	if !strings.HasPrefix(header, "bytes=") {
		return nil, true
	}
	spec := strings.TrimPrefix(header, "bytes=")
	if strings.Contains(spec, ",") {
		// Multi-range requests are served as a full response.
		return nil, true
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 || parts[0] == "" {
		// Suffix ranges ("bytes=-N") are not supported.
		return nil, true
	}

	start, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return nil, true
	}

	end := size - 1
	if strings.TrimSpace(parts[1]) != "" {
		end, err = strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return nil, true
		}
	}

	if start < 0 || start >= size || end < start || end >= size {
		return nil, false
	}
	return &byteRange{Start: start, End: end}, true
}

// sectionReader streams exactly the requested sub-range from an underlying
// seekable stream, regardless of the chunk boundaries the stream produces.
func sectionReader(src io.ReadSeeker, r *byteRange) (io.Reader, error) {
	if _, err := src.Seek(r.Start, io.SeekStart); err != nil {
		return nil, err
	}
	return io.LimitReader(src, r.length()), nil
}
