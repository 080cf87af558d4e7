// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package webdav

import (
	"fmt"
	"strings"
	"time"

	"github.com/mirrorbay/davserver/pkg/lock"
)

// activeLockXML renders one activelock element, shared by the LOCK
// response body and the lockdiscovery live property.
func activeLockXML(l *lock.Lock, rootHref string) string {
	depth := "infinity"
	if l.Depth == 0 {
		depth = "0"
	}

	scope := "<D:exclusive/>"
	if l.Scope == lock.ScopeShared {
		scope = "<D:shared/>"
	}

	timeout := "Infinite"
	if remaining := l.Remaining(time.Now()); remaining != nil {
		timeout = fmt.Sprintf("Second-%d", *remaining)
	}

	sb := &strings.Builder{}
	sb.WriteString("<D:activelock>\n")
	fmt.Fprintf(sb, "<D:locktype><D:%s/></D:locktype>\n", l.Type)
	fmt.Fprintf(sb, "<D:lockscope>%s</D:lockscope>\n", scope)
	fmt.Fprintf(sb, "<D:depth>%s</D:depth>\n", depth)
	fmt.Fprintf(sb, "<D:owner>%s</D:owner>\n", escapeXML(l.Owner))
	fmt.Fprintf(sb, "<D:timeout>%s</D:timeout>\n", timeout)
	fmt.Fprintf(sb, "<D:locktoken><D:href>%s</D:href></D:locktoken>\n", escapeXML(l.Token))
	fmt.Fprintf(sb, "<D:lockroot><D:href>%s</D:href></D:lockroot>\n", escapeXML(rootHref))
	sb.WriteString("</D:activelock>\n")
	return sb.String()
}

// lockDiscoveryBody renders the full LOCK response document.
func lockDiscoveryBody(l *lock.Lock, rootHref string) string {
	return "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n" +
		"<D:prop xmlns:D=\"DAV:\"><D:lockdiscovery>\n" +
		activeLockXML(l, rootHref) +
		"</D:lockdiscovery></D:prop>\n"
}
