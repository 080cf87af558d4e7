// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package webdav

import (
	"context"
	"encoding/xml"
	"net/http"
	"sort"
	"strconv"

	"github.com/mirrorbay/davserver/pkg/prop"
)

// liveProps contains all supported, protected DAV: properties.
var liveProps = map[xml.Name]struct {
	// findFn implements the propfind function of this property. If nil,
	// it indicates a hidden property.
	findFn func(context.Context, *Handler, *resource) (string, error)
	// dir is true if the property applies to directories.
	dir bool
}{
	{Space: "DAV:", Local: "resourcetype"}: {
		findFn: findResourceType,
		dir:    true,
	},
	{Space: "DAV:", Local: "displayname"}: {
		findFn: findDisplayName,
		dir:    true,
	},
	{Space: "DAV:", Local: "getcontentlength"}: {
		findFn: findContentLength,
		dir:    false,
	},
	{Space: "DAV:", Local: "getlastmodified"}: {
		findFn: findLastModified,
		// Some WebDAV clients expect child directories to be sortable by
		// getlastmodified date, so this value is true, not false.
		dir: true,
	},
	{Space: "DAV:", Local: "creationdate"}: {
		findFn: findCreationDate,
		dir:    true,
	},
	{Space: "DAV:", Local: "getcontenttype"}: {
		findFn: findContentType,
		dir:    false,
	},
	{Space: "DAV:", Local: "getetag"}: {
		findFn: findETag,
		dir:    true,
	},
	{Space: "DAV:", Local: "lockdiscovery"}: {
		findFn: findLockDiscovery,
		dir:    true,
	},
	{Space: "DAV:", Local: "supportedlock"}: {
		findFn: findSupportedLock,
		dir:    true,
	},
}

func findResourceType(ctx context.Context, h *Handler, r *resource) (string, error) {
	if r.isCollection() {
		return `<D:collection/>`, nil
	}
	return "", nil
}

func findDisplayName(ctx context.Context, h *Handler, r *resource) (string, error) {
	return escapeXML(r.displayName()), nil
}

func findContentLength(ctx context.Context, h *Handler, r *resource) (string, error) {
	return strconv.FormatInt(r.info.Size(), 10), nil
}

func findLastModified(ctx context.Context, h *Handler, r *resource) (string, error) {
	return r.info.ModTime().UTC().Format(http.TimeFormat), nil
}

func findCreationDate(ctx context.Context, h *Handler, r *resource) (string, error) {
	// The backend records no birth time; the modification time is the
	// closest observable value.
	return r.info.ModTime().UTC().Format(http.TimeFormat), nil
}

func findContentType(ctx context.Context, h *Handler, r *resource) (string, error) {
	return escapeXML(r.contentType()), nil
}

func findETag(ctx context.Context, h *Handler, r *resource) (string, error) {
	return escapeXML(computeETag(r.info, r.internalPath)), nil
}

func findLockDiscovery(ctx context.Context, h *Handler, r *resource) (string, error) {
	if h.locks == nil {
		return "", nil
	}
	locks, err := h.locks.LocksFor(r.internalPath)
	if err != nil {
		return "", err
	}
	discovery := ""
	for i := range locks {
		discovery += activeLockXML(&locks[i], hrefForPath(h.prefix, locks[i].Path, false))
	}
	return discovery, nil
}

func findSupportedLock(ctx context.Context, h *Handler, r *resource) (string, error) {
	return `` +
		`<D:lockentry>` +
		`<D:lockscope><D:exclusive/></D:lockscope>` +
		`<D:locktype><D:write/></D:locktype>` +
		`</D:lockentry>` +
		`<D:lockentry>` +
		`<D:lockscope><D:shared/></D:lockscope>` +
		`<D:locktype><D:write/></D:locktype>` +
		`</D:lockentry>`, nil
}

// deadToDav converts a stored dead property into its emitted form,
// escaping the text value.
func deadToDav(p prop.Property) davProperty {
	return davProperty{Space: p.Namespace, Local: p.Name, InnerXML: escapeXML(p.Value)}
}

// sortedDead returns the dead properties of a map in a stable order.
func sortedDead(dead map[string]prop.Property) []prop.Property {
	keys := make([]string, 0, len(dead))
	for k := range dead {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	res := make([]prop.Property, 0, len(keys))
	for _, k := range keys {
		res = append(res, dead[k])
	}
	return res
}

// propnames returns the names of every defined property of r.
func (h *Handler) propnames(ctx context.Context, r *resource) ([]xml.Name, error) {
	dead, err := h.props.GetAll(r.internalPath)
	if err != nil {
		return nil, err
	}

	pnames := make([]xml.Name, 0, len(liveProps)+len(dead))
	for pn, p := range liveProps {
		if p.findFn != nil && (p.dir || !r.isCollection()) {
			pnames = append(pnames, pn)
		}
	}
	for _, p := range sortedDead(dead) {
		pnames = append(pnames, p.XMLName())
	}
	return pnames, nil
}

// findProps resolves the named properties of r into 200 and 404 groups.
func (h *Handler) findProps(ctx context.Context, r *resource, pnames []xml.Name) ([]propstatGroup, error) {
	dead, err := h.props.GetAll(r.internalPath)
	if err != nil {
		// A broken property backend must not hide the resource itself.
		dead = map[string]prop.Property{}
	}

	pstatOK := propstatGroup{Status: http.StatusOK}
	pstatNotFound := propstatGroup{Status: http.StatusNotFound}
	for _, pn := range pnames {
		// If this resource has dead properties, check if they contain pn.
		if dp, ok := dead[prop.QName(pn.Space, pn.Local)]; ok {
			pstatOK.Props = append(pstatOK.Props, deadToDav(dp))
			continue
		}
		// Otherwise, it must either be a live property or we don't know it.
		if p := liveProps[pn]; p.findFn != nil && (p.dir || !r.isCollection()) {
			innerXML, err := p.findFn(ctx, h, r)
			if err != nil {
				return nil, err
			}
			pstatOK.Props = append(pstatOK.Props, davProperty{
				Space:    pn.Space,
				Local:    pn.Local,
				InnerXML: innerXML,
			})
		} else {
			pstatNotFound.Props = append(pstatNotFound.Props, davProperty{
				Space: pn.Space,
				Local: pn.Local,
			})
		}
	}
	return makePropstatGroups(pstatOK, pstatNotFound), nil
}

// allProps resolves every defined property plus the include list.
func (h *Handler) allProps(ctx context.Context, r *resource, include []xml.Name) ([]propstatGroup, error) {
	pnames, err := h.propnames(ctx, r)
	if err != nil {
		return nil, err
	}
	// Add names from include if they are not already covered in pnames.
	nameset := make(map[xml.Name]bool)
	for _, pn := range pnames {
		nameset[pn] = true
	}
	for _, pn := range include {
		if !nameset[pn] {
			pnames = append(pnames, pn)
		}
	}
	return h.findProps(ctx, r, pnames)
}

// propOpResult is the outcome of one PROPPATCH property operation.
type propOpResult struct {
	name     xml.Name
	status   int
	xmlError string
}

// patchProps applies the ordered PROPPATCH operations one property at a
// time. Failures are per-property; execution continues.
func (h *Handler) patchProps(ctx context.Context, r *resource, ops []proppatchOp) []propOpResult {
	var results []propOpResult
	for _, op := range ops {
		for _, p := range op.Props {
			if _, protected := liveProps[p.Name]; protected {
				results = append(results, propOpResult{
					name:     p.Name,
					status:   http.StatusForbidden,
					xmlError: `<D:cannot-modify-protected-property/>`,
				})
				continue
			}

			if op.Remove {
				removed, err := h.props.Remove(r.internalPath, p.Name.Space, p.Name.Local)
				switch {
				case err != nil:
					results = append(results, propOpResult{name: p.Name, status: http.StatusInternalServerError})
				case !removed:
					results = append(results, propOpResult{name: p.Name, status: http.StatusNotFound})
				default:
					results = append(results, propOpResult{name: p.Name, status: http.StatusOK})
				}
				continue
			}

			err := h.props.Set(r.internalPath, prop.Property{
				Namespace: p.Name.Space,
				Name:      p.Name.Local,
				Value:     p.Value,
			})
			status := http.StatusOK
			if err != nil {
				status = http.StatusInternalServerError
			}
			results = append(results, propOpResult{name: p.Name, status: status})
		}
	}
	return results
}

// groupPatchResults collapses per-property outcomes into one propstat per
// distinct status code.
func groupPatchResults(results []propOpResult) []propstatGroup {
	byStatus := make(map[int]*propstatGroup)
	var order []int
	for _, res := range results {
		g, ok := byStatus[res.status]
		if !ok {
			g = &propstatGroup{Status: res.status}
			byStatus[res.status] = g
			order = append(order, res.status)
		}
		g.Props = append(g.Props, davProperty{Space: res.name.Space, Local: res.name.Local})
		if g.XMLError == "" && res.xmlError != "" {
			g.XMLError = res.xmlError
		}
	}

	groups := make([]propstatGroup, 0, len(order))
	for _, status := range order {
		groups = append(groups, *byStatus[status])
	}
	if len(groups) == 0 {
		groups = append(groups, propstatGroup{Status: http.StatusOK})
	}
	return groups
}

// makePropstatGroups returns those of x and y with a non-empty property
// set, defaulting to a bare 200 OK group.
func makePropstatGroups(x, y propstatGroup) []propstatGroup {
	groups := make([]propstatGroup, 0, 2)
	if len(x.Props) != 0 {
		groups = append(groups, x)
	}
	if len(y.Props) != 0 {
		groups = append(groups, y)
	}
	if len(groups) == 0 {
		groups = append(groups, propstatGroup{Status: http.StatusOK})
	}
	return groups
}
