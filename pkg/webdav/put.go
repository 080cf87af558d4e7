package webdav

import (
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mirrorbay/davserver/pkg/util"
)

// handlePut stores a request body as a file. Replacement is atomic: the
// body streams into a hidden sibling temp file which is then copied over
// the target and unlinked.
func (h *Handler) handlePut(c *gin.Context, cache *statCache, res *resource) (int, error) {
	if res.isCollection() {
		return 0, &StatusError{http.StatusMethodNotAllowed, "Cannot PUT to an existing collection"}
	}
	if strings.HasSuffix(c.Request.URL.Path, "/") {
		return 0, ErrConflict
	}

	ctx := c.Request.Context()
	if err := h.checkPreconditions(ctx, c.Request, cache, res, true); err != nil {
		return 0, err
	}

	existed := res.exists()
	if existed {
		if err := h.writeViaTemp(ctx, res.internalPath, c.Request.Body); err != nil {
			return 0, err
		}
	} else {
		if err := h.writeDirect(ctx, res.internalPath, c.Request.Body); err != nil {
			return 0, err
		}
	}

	cache.invalidate(res.internalPath)
	info, err := cache.stat(ctx, h.fs, res.internalPath)
	if err != nil {
		return 0, ErrInternal
	}

	c.Writer.Header().Set("ETag", computeETag(info, res.internalPath))
	c.Writer.Header().Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	if existed {
		c.Writer.WriteHeader(http.StatusOK)
	} else {
		c.Writer.WriteHeader(http.StatusCreated)
	}
	return 0, nil
}

// writeDirect streams body into a brand new file.
func (h *Handler) writeDirect(ctx context.Context, name string, body io.Reader) error {
	f, err := h.fs.OpenFile(ctx, name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return ErrInternal
	}

	if err := h.copyBody(f, body); err != nil {
		f.Close()
		_ = h.fs.Remove(ctx, name)
		return err
	}
	return f.Close()
}

// writeViaTemp streams body into a hidden sibling, copies it over the
// target, then unlinks the sibling.
func (h *Handler) writeViaTemp(ctx context.Context, name string, body io.Reader) error {
	dir, base := path.Split(util.SlashClean(name))
	tmp := path.Join(dir, "."+base+".upload-"+util.RandStringRunes(8))

	f, err := h.fs.OpenFile(ctx, tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return ErrInternal
	}

	if err := h.copyBody(f, body); err != nil {
		f.Close()
		_ = h.fs.Remove(ctx, tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = h.fs.Remove(ctx, tmp)
		return ErrInternal
	}

	if err := h.copyFileContents(ctx, tmp, name); err != nil {
		_ = h.fs.Remove(ctx, tmp)
		return ErrInternal
	}
	return h.fs.Remove(ctx, tmp)
}

// copyBody streams the request body, enforcing the upload size limit while
// streaming.
func (h *Handler) copyBody(dst io.Writer, body io.Reader) error {
	if h.maxUploadSize <= 0 {
		_, err := io.Copy(dst, body)
		if err != nil {
			return ErrInternal
		}
		return nil
	}

	n, err := io.Copy(dst, io.LimitReader(body, h.maxUploadSize+1))
	if err != nil {
		return ErrInternal
	}
	if n > h.maxUploadSize {
		return ErrUploadTooLarge
	}
	return nil
}

// copyFileContents copies one file's bytes onto another path.
func (h *Handler) copyFileContents(ctx context.Context, from, to string) error {
	src, err := h.fs.OpenFile(ctx, from, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := h.fs.OpenFile(ctx, to, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
