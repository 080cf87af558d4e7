package webdav

import (
	"context"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// handlePropfind walks the subject to the requested depth and streams one
// multistatus response entry per visited resource.
func (h *Handler) handlePropfind(c *gin.Context, cache *statCache, res *resource) (int, error) {
	if !res.exists() {
		return 0, ErrNotFound
	}

	// RFC 4918 defaults PROPFIND to depth infinity; unparsable values fall
	// back to it as well.
	depth := infiniteDepth
	if hdr := c.Request.Header.Get("Depth"); hdr != "" {
		if d := parseDepth(hdr); d != invalidDepth {
			depth = d
		}
	}

	pf := readPropfind(c.Request.Body)
	ctx := c.Request.Context()

	mw := newMultistatusWriter(c.Writer)
	if err := h.walkPropfind(ctx, res, depth, 0, &pf, mw); err != nil {
		if !mw.begun {
			return 0, ErrInternal
		}
		// The document already streams; all we can do is close it.
	}
	if err := mw.close(); err != nil {
		return 0, ErrInternal
	}
	return 0, nil
}

// walkPropfind emits the entry for res and recurses into collections while
// depth and the recursion ceiling allow.
func (h *Handler) walkPropfind(ctx context.Context, res *resource, depth, level int, pf *propfind, mw *multistatusWriter) error {
	if level > maxRecursionDepth {
		return errRecursionTooDeep
	}

	groups, err := h.propfindGroups(ctx, res, pf)
	if err != nil {
		return err
	}
	href := hrefForPath(h.prefix, res.internalPath, res.isCollection())
	if err := mw.writePropstats(href, groups); err != nil {
		return err
	}

	if !res.isCollection() || depth == 0 {
		return nil
	}
	childDepth := depth
	if depth == 1 {
		childDepth = 0
	}

	entries, err := h.listChildren(ctx, res.internalPath)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		child := &resource{
			kind:         kindFile,
			internalPath: path.Join(res.internalPath, entry.Name()),
			info:         entry,
		}
		if entry.IsDir() {
			child.kind = kindCollection
		}
		if err := h.walkPropfind(ctx, child, childDepth, level+1, pf, mw); err != nil {
			if err == errRecursionTooDeep {
				continue
			}
			return err
		}
	}
	return nil
}

// propfindGroups resolves the propstat groups of one resource for the
// request's mode: propname, allprop, or a named property list.
func (h *Handler) propfindGroups(ctx context.Context, res *resource, pf *propfind) ([]propstatGroup, error) {
	if pf.Propname != nil {
		pnames, err := h.propnames(ctx, res)
		if err != nil {
			return nil, err
		}
		g := propstatGroup{Status: http.StatusOK}
		for _, pn := range pnames {
			g.Props = append(g.Props, davProperty{Space: pn.Space, Local: pn.Local})
		}
		return []propstatGroup{g}, nil
	}
	if pf.Allprop != nil {
		return h.allProps(ctx, res, pf.Include)
	}
	return h.findProps(ctx, res, pf.Prop)
}
