package webdav

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/mirrorbay/davserver/pkg/util"
)

// Substrings that reveal an encoded or double-encoded traversal attempt.
// Matched case-insensitively against both the raw and the decoded path.
var traversalSignals = []string{
	"%2e%2e%2f",
	"%2e%2e/",
	"..%2f",
	"%2e%2e%5c",
	"%252e%252e%252f",
}

// containsTraversal reports whether one form of a request path carries a
// traversal signal.
func containsTraversal(p string) bool {
	if strings.Contains(p, "../") || strings.Contains(p, "..\\") {
		return true
	}

	lower := strings.ToLower(p)
	for _, signal := range traversalSignals {
		if strings.Contains(lower, signal) {
			return true
		}
	}

	for _, segment := range strings.Split(p, "/") {
		decoded, err := url.PathUnescape(segment)
		if err != nil {
			// An undecodable segment is hostile by definition.
			return true
		}
		if decoded == ".." {
			return true
		}
	}
	return false
}

// checkPathSafety runs the traversal checks of the dispatcher gate against
// the raw (percent-encoded) and decoded forms of a request path.
func checkPathSafety(rawPath, decodedPath string) error {
	if rawPath != "" && containsTraversal(rawPath) {
		return ErrPathForbidden
	}
	if containsTraversal(decodedPath) {
		return ErrPathForbidden
	}
	return nil
}

// stripPrefix validates that the decoded path sits under the mount prefix
// and returns the canonical internal path.
func stripPrefix(decodedPath, prefix string) (string, error) {
	if !strings.HasPrefix(decodedPath, prefix) {
		return "", ErrPathForbidden
	}
	return util.SlashClean(strings.TrimPrefix(decodedPath, prefix)), nil
}

// mapToFilesystem joins the internal path onto the root directory and
// verifies the result stays inside it.
func mapToFilesystem(internalPath, root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", ErrPathForbidden
	}
	mapped, err := filepath.Abs(filepath.Join(absRoot, filepath.FromSlash(internalPath)))
	if err != nil {
		return "", ErrPathForbidden
	}
	if mapped != absRoot && !strings.HasPrefix(mapped, absRoot+string(filepath.Separator)) {
		return "", ErrPathForbidden
	}
	return mapped, nil
}

// resolvePath runs the full path gate: traversal checks on both forms,
// prefix check, canonicalization, and containment against the root. It
// returns the internal path.
func resolvePath(rawPath, decodedPath, prefix, root string) (string, error) {
	if err := checkPathSafety(rawPath, decodedPath); err != nil {
		return "", err
	}
	internal, err := stripPrefix(decodedPath, prefix)
	if err != nil {
		return "", err
	}
	if _, err := mapToFilesystem(internal, root); err != nil {
		return "", err
	}
	return internal, nil
}

// parseDestination validates a COPY/MOVE Destination header against the
// request's scheme, host and mount prefix, and returns the destination's
// internal path.
func parseDestination(destination, prefix, root, reqScheme, reqHost string) (string, error) {
	if destination == "" {
		return "", ErrMissingDestination
	}
	if containsTraversal(destination) {
		return "", ErrInvalidDestination
	}

	u, err := url.Parse(destination)
	if err != nil {
		return "", ErrInvalidDestination
	}
	if u.Host != "" {
		if u.Host != reqHost {
			return "", ErrInvalidDestination
		}
		if u.Scheme != "" && reqScheme != "" && u.Scheme != reqScheme {
			return "", ErrInvalidDestination
		}
	} else if !strings.HasPrefix(u.Path, "/") {
		return "", ErrInvalidDestination
	}

	raw := u.EscapedPath()
	if containsTraversal(raw) || containsTraversal(u.Path) {
		return "", ErrInvalidDestination
	}
	if !strings.HasPrefix(u.Path, prefix) {
		return "", ErrInvalidDestination
	}

	internal := util.SlashClean(strings.TrimPrefix(u.Path, prefix))
	if _, err := mapToFilesystem(internal, root); err != nil {
		return "", ErrInvalidDestination
	}
	return internal, nil
}

// hrefForPath builds the URL path emitted in multistatus href elements,
// keeping the mount prefix intact and a trailing slash on collections.
func hrefForPath(prefix, internalPath string, isCollection bool) string {
	p := path.Join(prefix, internalPath)
	if isCollection {
		p = util.FillSlash(p)
	}
	return (&url.URL{Path: p}).EscapedPath()
}
