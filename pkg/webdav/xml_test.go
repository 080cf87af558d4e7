package webdav

import (
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReadPropfind(t *testing.T) {
	asserts := assert.New(t)

	// Empty and malformed bodies degrade to allprop.
	pf := readPropfind(strings.NewReader(""))
	asserts.NotNil(pf.Allprop)
	pf = readPropfind(strings.NewReader("<not-xml"))
	asserts.NotNil(pf.Allprop)

	pf = readPropfind(strings.NewReader(
		`<?xml version="1.0"?><D:propfind xmlns:D="DAV:"><D:allprop/></D:propfind>`))
	asserts.NotNil(pf.Allprop)

	pf = readPropfind(strings.NewReader(
		`<?xml version="1.0"?><D:propfind xmlns:D="DAV:"><D:propname/></D:propfind>`))
	asserts.NotNil(pf.Propname)

	pf = readPropfind(strings.NewReader(
		`<?xml version="1.0"?>` +
			`<D:propfind xmlns:D="DAV:"><D:prop>` +
			`<D:displayname/><foo xmlns="urn:example"/>` +
			`</D:prop></D:propfind>`))
	asserts.Nil(pf.Allprop)
	asserts.Len(pf.Prop, 2)
	asserts.Equal(xml.Name{Space: "DAV:", Local: "displayname"}, pf.Prop[0])
	asserts.Equal(xml.Name{Space: "urn:example", Local: "foo"}, pf.Prop[1])
}

func TestReadProppatch(t *testing.T) {
	asserts := assert.New(t)

	ops, err := readProppatch(strings.NewReader(
		`<?xml version="1.0"?>` +
			`<D:propertyupdate xmlns:D="DAV:" xmlns:Z="urn:zebra">` +
			`<D:set><D:prop><Z:color>green</Z:color></D:prop></D:set>` +
			`<D:remove><D:prop><Z:stripes/></D:prop></D:remove>` +
			`</D:propertyupdate>`))
	asserts.NoError(err)
	asserts.Len(ops, 2)
	asserts.False(ops[0].Remove)
	asserts.Equal("color", ops[0].Props[0].Name.Local)
	asserts.Equal("urn:zebra", ops[0].Props[0].Name.Space)
	asserts.Equal("green", ops[0].Props[0].Value)
	asserts.True(ops[1].Remove)
	asserts.Equal("stripes", ops[1].Props[0].Name.Local)

	_, err = readProppatch(strings.NewReader("<bogus"))
	asserts.Error(err)
	_, err = readProppatch(strings.NewReader(""))
	asserts.Error(err)
}

func TestReadLockInfo(t *testing.T) {
	asserts := assert.New(t)

	// Empty body means refresh.
	_, refresh, err := readLockInfo(strings.NewReader(""))
	asserts.NoError(err)
	asserts.True(refresh)

	li, refresh, err := readLockInfo(strings.NewReader(
		`<?xml version="1.0"?>` +
			`<D:lockinfo xmlns:D="DAV:">` +
			`<D:lockscope><D:exclusive/></D:lockscope>` +
			`<D:locktype><D:write/></D:locktype>` +
			`<D:owner><D:href>http://example.com/~user</D:href></D:owner>` +
			`</D:lockinfo>`))
	asserts.NoError(err)
	asserts.False(refresh)
	asserts.NotNil(li.Exclusive)
	asserts.Nil(li.Shared)
	asserts.Equal("http://example.com/~user", li.Owner.ownerText())

	li, _, err = readLockInfo(strings.NewReader(
		`<lockinfo xmlns="DAV:"><lockscope><shared/></lockscope>` +
			`<locktype><write/></locktype><owner>alice</owner></lockinfo>`))
	asserts.NoError(err)
	asserts.NotNil(li.Shared)
	asserts.Equal("alice", li.Owner.ownerText())

	_, _, err = readLockInfo(strings.NewReader("<lockinfo"))
	asserts.Error(err)
}

func TestParseTimeout(t *testing.T) {
	asserts := assert.New(t)

	d, err := parseTimeout("")
	asserts.NoError(err)
	asserts.Nil(d)

	d, err = parseTimeout("Infinite")
	asserts.NoError(err)
	asserts.Nil(d)

	d, err = parseTimeout("Second-3600")
	asserts.NoError(err)
	asserts.Equal(time.Hour, *d)

	d, err = parseTimeout("Infinite, Second-4100000000")
	asserts.NoError(err)
	asserts.Nil(d)

	_, err = parseTimeout("Fortnight-1")
	asserts.Error(err)
}

func TestParseDepth(t *testing.T) {
	asserts := assert.New(t)
	asserts.Equal(0, parseDepth("0"))
	asserts.Equal(1, parseDepth("1"))
	asserts.Equal(infiniteDepth, parseDepth("infinity"))
	asserts.Equal(invalidDepth, parseDepth("2"))
	asserts.Equal(invalidDepth, parseDepth(""))
}

func TestMultistatusWriterStreams(t *testing.T) {
	asserts := assert.New(t)
	rec := httptest.NewRecorder()
	mw := newMultistatusWriter(rec)

	err := mw.writePropstats("/dav/a/", []propstatGroup{
		{Status: http.StatusOK, Props: []davProperty{
			{Space: "DAV:", Local: "displayname", InnerXML: "a"},
			{Space: "urn:example", Local: "foo", InnerXML: "v1"},
			{Space: "urn:other", Local: "bar", InnerXML: "v2"},
		}},
		{Status: http.StatusNotFound, Props: []davProperty{
			{Space: "DAV:", Local: "missing"},
		}},
	})
	asserts.NoError(err)
	asserts.NoError(mw.close())

	asserts.Equal(StatusMulti, rec.Code)
	asserts.Equal(xmlContentType, rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	asserts.Contains(body, `<D:multistatus xmlns:D="DAV:">`)
	asserts.Contains(body, `<D:href>/dav/a/</D:href>`)
	asserts.Contains(body, `<D:displayname>a</D:displayname>`)
	// Foreign namespaces receive ns0, ns1, … in declaration order.
	asserts.Contains(body, `<ns0:foo xmlns:ns0="urn:example">v1</ns0:foo>`)
	asserts.Contains(body, `<ns1:bar xmlns:ns1="urn:other">v2</ns1:bar>`)
	asserts.Contains(body, `<D:status>HTTP/1.1 200 OK</D:status>`)
	asserts.Contains(body, `<D:status>HTTP/1.1 404 Not Found</D:status>`)
	asserts.Contains(body, `<D:missing/>`)
	asserts.True(strings.HasSuffix(strings.TrimSpace(body), "</D:multistatus>"))
}

func TestMultiStatusBuilder(t *testing.T) {
	asserts := assert.New(t)

	ms := &multiStatusBuilder{}
	asserts.True(ms.empty())
	ms.add("/dav/x", http.StatusForbidden, "Failed to delete member")
	asserts.False(ms.empty())

	body := ms.render()
	asserts.Contains(body, `<D:href>/dav/x</D:href>`)
	asserts.Contains(body, `<D:status>HTTP/1.1 403 Forbidden</D:status>`)
	asserts.Contains(body, `<D:responsedescription>Failed to delete member</D:responsedescription>`)
}

func TestEscapeXML(t *testing.T) {
	asserts := assert.New(t)
	asserts.Equal("plain", escapeXML("plain"))
	asserts.Equal("&lt;b&gt;hi&lt;/b&gt;", escapeXML("<b>hi</b>"))
	asserts.Equal("a&amp;b", escapeXML("a&b"))
}
