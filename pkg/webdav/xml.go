// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package webdav

// The XML encoding is covered by Section 14 of RFC 4918.
// http://www.webdav.org/specs/rfc4918.html#xml.element.definitions

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const xmlContentType = "application/xml; charset=utf-8"

// escapeXML escapes the five XML special characters of a text value.
// Values are stored verbatim; escaping happens only on emission.
func escapeXML(s string) string {
	for i := 0; i < len(s); i++ {
		// As an optimization, if s contains only ASCII letters, digits or a
		// few special characters, the escaped value is s itself and we don't
		// need to allocate a buffer and convert between string and []byte.
		switch c := s[i]; {
		case c == ' ' || c == '_' ||
			('+' <= c && c <= '9') || // Digits as well as + , - . and /
			('A' <= c && c <= 'Z') ||
			('a' <= c && c <= 'z'):
			continue
		}
		var buf bytes.Buffer
		xml.EscapeText(&buf, []byte(s))
		return buf.String()
	}
	return s
}

type countingReader struct {
	n int
	r io.Reader
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

// http://www.webdav.org/specs/rfc4918.html#ELEMENT_propfind
type propfind struct {
	XMLName  xml.Name      `xml:"DAV: propfind"`
	Allprop  *struct{}     `xml:"DAV: allprop"`
	Propname *struct{}     `xml:"DAV: propname"`
	Prop     propfindProps `xml:"DAV: prop"`
	Include  propfindProps `xml:"DAV: include"`
}

// http://www.webdav.org/specs/rfc4918.html#ELEMENT_prop (for propfind)
type propfindProps []xml.Name

// UnmarshalXML appends the property names enclosed within start to pn.
// Character data between properties is ignored.
func (pn *propfindProps) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	depth := 0
	for {
		t, err := next(d)
		if err != nil {
			return err
		}
		switch e := t.(type) {
		case xml.EndElement:
			if depth == 0 {
				return nil
			}
			depth--
		case xml.StartElement:
			if depth == 0 {
				*pn = append(*pn, e.Name)
			}
			depth++
		}
	}
}

// readPropfind parses a PROPFIND body. An empty or malformed body is
// treated as allprop.
func readPropfind(r io.Reader) propfind {
	c := countingReader{r: r}
	pf := propfind{}
	if err := xml.NewDecoder(&c).Decode(&pf); err != nil {
		return propfind{Allprop: new(struct{})}
	}
	if pf.Allprop == nil && pf.Propname == nil && pf.Prop == nil {
		return propfind{Allprop: new(struct{})}
	}
	return pf
}

// next returns the next token, if any, in the XML stream of d.
// RFC 4918 requires to ignore comments, processing instructions
// and directives.
func next(d *xml.Decoder) (xml.Token, error) {
	for {
		t, err := d.Token()
		if err != nil {
			return t, err
		}
		switch t.(type) {
		case xml.Comment, xml.Directive, xml.ProcInst:
			continue
		default:
			return t, nil
		}
	}
}

// proppatchOp is one set or remove instruction of a PROPPATCH, in document
// order.
type proppatchOp struct {
	// Remove specifies whether this op removes properties. If it does not
	// remove them, it sets them.
	Remove bool
	Props  []patchProperty
}

// patchProperty is one property of a PROPPATCH body. Value carries the
// element's inner XML verbatim.
type patchProperty struct {
	Name  xml.Name
	Value string
}

type xmlValue []byte

func (v *xmlValue) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	// The XML value of a property can be arbitrary, mixed-content XML.
	// To make sure that the unmarshalled value contains all required
	// namespaces, we encode all the property value XML tokens into a
	// buffer. This forces the encoder to redeclare any used namespaces.
	var b bytes.Buffer
	e := xml.NewEncoder(&b)
	for {
		t, err := next(d)
		if err != nil {
			return err
		}
		if end, ok := t.(xml.EndElement); ok && end.Name == start.Name {
			break
		}
		if err = e.EncodeToken(t); err != nil {
			return err
		}
	}
	if err := e.Flush(); err != nil {
		return err
	}
	*v = b.Bytes()
	return nil
}

type proppatchProps []patchProperty

// UnmarshalXML appends the property names and values enclosed within start
// to ps.
func (ps *proppatchProps) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		t, err := next(d)
		if err != nil {
			return err
		}
		switch elem := t.(type) {
		case xml.EndElement:
			if len(*ps) == 0 {
				return fmt.Errorf("%s must not be empty", start.Name.Local)
			}
			return nil
		case xml.StartElement:
			p := patchProperty{Name: elem.Name}
			var v xmlValue
			if err := d.DecodeElement(&v, &elem); err != nil {
				return err
			}
			p.Value = string(v)
			*ps = append(*ps, p)
		}
	}
}

// http://www.webdav.org/specs/rfc4918.html#ELEMENT_set
// http://www.webdav.org/specs/rfc4918.html#ELEMENT_remove
type setRemove struct {
	XMLName xml.Name
	Prop    proppatchProps `xml:"DAV: prop"`
}

// http://www.webdav.org/specs/rfc4918.html#ELEMENT_propertyupdate
type propertyupdate struct {
	XMLName   xml.Name    `xml:"DAV: propertyupdate"`
	SetRemove []setRemove `xml:",any"`
}

// readProppatch parses a PROPPATCH body into its ordered operations.
func readProppatch(r io.Reader) ([]proppatchOp, error) {
	var pu propertyupdate
	if err := xml.NewDecoder(r).Decode(&pu); err != nil {
		return nil, errInvalidProppatch
	}
	var ops []proppatchOp
	for _, op := range pu.SetRemove {
		remove := false
		switch op.XMLName {
		case xml.Name{Space: "DAV:", Local: "set"}:
			// No-op.
		case xml.Name{Space: "DAV:", Local: "remove"}:
			remove = true
		default:
			return nil, errInvalidProppatch
		}
		ops = append(ops, proppatchOp{Remove: remove, Props: op.Prop})
	}
	if len(ops) == 0 {
		return nil, errInvalidProppatch
	}
	return ops, nil
}

// http://www.webdav.org/specs/rfc4918.html#ELEMENT_lockinfo
type lockInfo struct {
	XMLName   xml.Name  `xml:"lockinfo"`
	Exclusive *struct{} `xml:"lockscope>exclusive"`
	Shared    *struct{} `xml:"lockscope>shared"`
	Write     *struct{} `xml:"locktype>write"`
	Owner     owner     `xml:"owner"`
}

// http://www.webdav.org/specs/rfc4918.html#ELEMENT_owner
type owner struct {
	InnerXML string `xml:",innerxml"`
	Href     string `xml:"href"`
}

// ownerText returns the owner as text: the href inner text when present,
// otherwise the element's own inner text.
func (o owner) ownerText() string {
	if strings.TrimSpace(o.Href) != "" {
		return strings.TrimSpace(o.Href)
	}
	return strings.TrimSpace(o.InnerXML)
}

// readLockInfo parses a LOCK body. An empty body means to refresh a held
// lock and yields (lockInfo{}, true, nil).
func readLockInfo(r io.Reader) (li lockInfo, refresh bool, err error) {
	c := &countingReader{r: r}
	if err = xml.NewDecoder(c).Decode(&li); err != nil {
		if err == io.EOF && c.n == 0 {
			// An empty body means to refresh the lock.
			// http://www.webdav.org/specs/rfc4918.html#refreshing-locks
			return lockInfo{}, true, nil
		}
		return lockInfo{}, false, errInvalidLockInfo
	}
	return li, false, nil
}

// parseTimeout parses a Timeout header. A nil duration means no expiry.
// http://www.webdav.org/specs/rfc4918.html#HEADER_Timeout
func parseTimeout(header string) (*time.Duration, error) {
	if header == "" {
		return nil, nil
	}
	// Accept the first understood token of a comma separated list.
	for _, field := range strings.Split(header, ",") {
		field = strings.TrimSpace(field)
		if field == "Infinite" {
			return nil, nil
		}
		if strings.HasPrefix(field, "Second-") {
			var n int64
			if _, err := fmt.Sscanf(field, "Second-%d", &n); err != nil || n < 0 {
				return nil, errInvalidTimeout
			}
			d := time.Duration(n) * time.Second
			return &d, nil
		}
	}
	return nil, errInvalidTimeout
}

const (
	infiniteDepth = -1
	invalidDepth  = -2
)

// parseDepth maps the strings "0", "1" and "infinity" to 0, 1 and
// infiniteDepth. Parsing any other string returns invalidDepth.
func parseDepth(s string) int {
	switch s {
	case "0":
		return 0
	case "1":
		return 1
	case "infinity":
		return infiniteDepth
	}
	return invalidDepth
}

// davProperty is one property ready for emission: a qualified name plus
// pre-rendered inner XML (already escaped where it is text).
type davProperty struct {
	Space    string
	Local    string
	InnerXML string
}

// propstatGroup groups emitted properties under one status.
type propstatGroup struct {
	Status              int
	Props               []davProperty
	ResponseDescription string
	// XMLError is an optional pre-rendered error element body.
	XMLError string
}

// nsManager assigns stable prefixes to property namespaces. DAV: maps to
// "D"; other namespaces receive ns0, ns1, … in declaration order.
type nsManager struct {
	prefixes map[string]string
}

func newNsManager() *nsManager {
	return &nsManager{prefixes: map[string]string{"DAV:": "D"}}
}

// prefix returns the element prefix of ns, assigning the next nsN prefix
// the first time a namespace is seen. writeProperty decides whether the
// xmlns declaration is emitted.
func (m *nsManager) prefix(ns string) string {
	if p, ok := m.prefixes[ns]; ok {
		return p
	}
	p := fmt.Sprintf("ns%d", len(m.prefixes)-1)
	m.prefixes[ns] = p
	return p
}

// writeProperty emits one property element with its namespace prefix.
func (m *nsManager) writeProperty(sb *strings.Builder, p davProperty) {
	if p.Space == "" {
		if p.InnerXML == "" {
			fmt.Fprintf(sb, "<%s/>", p.Local)
		} else {
			fmt.Fprintf(sb, "<%s>%s</%s>", p.Local, p.InnerXML, p.Local)
		}
		return
	}

	_, seen := m.prefixes[p.Space]
	prefix := m.prefix(p.Space)
	decl := ""
	if !seen && p.Space != "DAV:" {
		decl = fmt.Sprintf(" xmlns:%s=%q", prefix, p.Space)
	}
	if p.InnerXML == "" {
		fmt.Fprintf(sb, "<%s:%s%s/>", prefix, p.Local, decl)
	} else {
		fmt.Fprintf(sb, "<%s:%s%s>%s</%s:%s>", prefix, p.Local, decl, p.InnerXML, prefix, p.Local)
	}
}

// multistatusWriter streams a 207 Multi-Status document response by
// response, so PROPFIND over a large tree never materializes the whole
// document.
type multistatusWriter struct {
	w     http.ResponseWriter
	ns    *nsManager
	begun bool
}

func newMultistatusWriter(w http.ResponseWriter) *multistatusWriter {
	return &multistatusWriter{w: w, ns: newNsManager()}
}

func (w *multistatusWriter) writeHeader() error {
	if w.begun {
		return nil
	}
	w.begun = true
	w.w.Header().Set("Content-Type", xmlContentType)
	w.w.WriteHeader(StatusMulti)
	_, err := io.WriteString(w.w,
		"<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<D:multistatus xmlns:D=\"DAV:\">\n")
	return err
}

// writePropstats emits one response element carrying propstat groups.
func (w *multistatusWriter) writePropstats(href string, groups []propstatGroup) error {
	if href == "" {
		return errInvalidResponse
	}
	if err := w.writeHeader(); err != nil {
		return err
	}

	sb := &strings.Builder{}
	fmt.Fprintf(sb, "<D:response>\n<D:href>%s</D:href>\n", escapeXML(href))
	for _, g := range groups {
		sb.WriteString("<D:propstat>\n<D:prop>")
		for _, p := range g.Props {
			w.ns.writeProperty(sb, p)
		}
		sb.WriteString("</D:prop>\n")
		fmt.Fprintf(sb, "<D:status>HTTP/1.1 %d %s</D:status>\n", g.Status, StatusText(g.Status))
		if g.XMLError != "" {
			fmt.Fprintf(sb, "<D:error>%s</D:error>\n", g.XMLError)
		}
		if g.ResponseDescription != "" {
			fmt.Fprintf(sb, "<D:responsedescription>%s</D:responsedescription>\n",
				escapeXML(g.ResponseDescription))
		}
		sb.WriteString("</D:propstat>\n")
	}
	sb.WriteString("</D:response>\n")

	_, err := io.WriteString(w.w, sb.String())
	return err
}

func (w *multistatusWriter) close() error {
	if !w.begun {
		return nil
	}
	_, err := io.WriteString(w.w, "</D:multistatus>\n")
	return err
}

// multiStatusBuilder accumulates per-resource outcomes of a collection
// operation and renders them as one 207 document.
type multiStatusBuilder struct {
	entries []multiStatusEntry
}

type multiStatusEntry struct {
	href        string
	status      int
	description string
}

func (b *multiStatusBuilder) add(href string, status int, description string) {
	b.entries = append(b.entries, multiStatusEntry{href: href, status: status, description: description})
}

func (b *multiStatusBuilder) empty() bool {
	return len(b.entries) == 0
}

// render produces the aggregate multistatus document.
func (b *multiStatusBuilder) render() string {
	sb := &strings.Builder{}
	sb.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<D:multistatus xmlns:D=\"DAV:\">\n")
	for _, e := range b.entries {
		fmt.Fprintf(sb, "<D:response>\n<D:href>%s</D:href>\n<D:status>HTTP/1.1 %d %s</D:status>\n",
			escapeXML(e.href), e.status, StatusText(e.status))
		if e.description != "" {
			fmt.Fprintf(sb, "<D:responsedescription>%s</D:responsedescription>\n", escapeXML(e.description))
		}
		sb.WriteString("</D:response>\n")
	}
	sb.WriteString("</D:multistatus>\n")
	return sb.String()
}
