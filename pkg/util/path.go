package util

import (
	"path"
	"strings"
)

// FillSlash appends a trailing `/` to a path unless it is the root.
func FillSlash(p string) string {
	if p == "/" {
		return p
	}
	return p + "/"
}

// RemoveSlash removes the trailing `/` of a path unless it is the root.
func RemoveSlash(p string) string {
	if len(p) > 1 {
		return strings.TrimSuffix(p, "/")
	}
	return p
}

// SlashClean is equivalent to but slightly more efficient than
// path.Clean("/" + name).
func SlashClean(name string) string {
	if name == "" || name[0] != '/' {
		name = "/" + name
	}
	return path.Clean(name)
}

// ParentPath returns the parent of an internal path. The parent of the
// root is the root itself.
func ParentPath(p string) string {
	return path.Dir(SlashClean(p))
}

// BasePath returns the last element of an internal path.
func BasePath(p string) string {
	return path.Base(SlashClean(p))
}

// IsDescendant reports whether child is a strict descendant of ancestor
// under the `/` separator. Equal paths are not descendants.
func IsDescendant(ancestor, child string) bool {
	ancestor = SlashClean(ancestor)
	child = SlashClean(child)
	if ancestor == "/" {
		return child != "/"
	}
	return strings.HasPrefix(child, ancestor+"/")
}
