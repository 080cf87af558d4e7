package webdav

import (
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/juju/ratelimit"
)

// handleGetHead serves file contents with ETag and single-range support.
// HEAD produces the identical headers with an empty body.
func (h *Handler) handleGetHead(c *gin.Context, cache *statCache, res *resource) (int, error) {
	if !res.exists() {
		return 0, ErrNotFound
	}

	if res.isCollection() {
		c.Writer.WriteHeader(http.StatusOK)
		return 0, nil
	}

	etag := computeETag(res.info, res.internalPath)
	size := res.info.Size()

	header := c.Writer.Header()
	header.Set("Accept-Ranges", "bytes")
	header.Set("ETag", etag)
	header.Set("Last-Modified", res.info.ModTime().UTC().Format(http.TimeFormat))
	header.Set("Content-Type", res.contentType())

	if !checkIfNoneMatch(etag, c.Request.Header.Get("If-None-Match")) {
		return 0, ErrNotModified
	}
	if !checkIfMatch(etag, c.Request.Header.Get("If-Match")) {
		return 0, ErrPreconditionFailed
	}

	rng, ok := parseRange(c.Request.Header.Get("Range"), size)
	if !ok {
		header.Set("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
		return http.StatusRequestedRangeNotSatisfiable, nil
	}

	status := http.StatusOK
	length := size
	if rng != nil {
		status = http.StatusPartialContent
		length = rng.length()
		header.Set("Content-Range",
			"bytes "+strconv.FormatInt(rng.Start, 10)+"-"+strconv.FormatInt(rng.End, 10)+
				"/"+strconv.FormatInt(size, 10))
	}
	header.Set("Content-Length", strconv.FormatInt(length, 10))

	if c.Request.Method == "HEAD" {
		c.Writer.WriteHeader(status)
		return 0, nil
	}

	f, err := h.fs.OpenFile(c.Request.Context(), res.internalPath, os.O_RDONLY, 0)
	if err != nil {
		return 0, ErrInternal
	}
	defer f.Close()

	var src io.Reader = f
	if rng != nil {
		src, err = sectionReader(f, rng)
		if err != nil {
			return 0, ErrInternal
		}
	}
	if h.speedLimit > 0 {
		bucket := ratelimit.NewBucketWithRate(float64(h.speedLimit), h.speedLimit)
		src = ratelimit.Reader(src, bucket)
	}

	c.Writer.WriteHeader(status)
	_, _ = io.CopyN(c.Writer, src, length)
	return 0, nil
}
