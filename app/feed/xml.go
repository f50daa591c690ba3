package feed

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	xpp "github.com/mmcdole/goxpp"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Canonical prefixes for the namespaces the parsers care about. The RSS 1.0
// and 0.9 default namespaces map to the empty prefix so their elements look
// like plain RSS 2.0 elements.
var namespacePrefixes = map[string]string{
	"http://purl.org/rss/1.0/modules/content/":     "content",
	"http://purl.org/dc/elements/1.1/":             "dc",
	"http://purl.org/dc/terms/":                    "dcterms",
	"http://purl.org/rss/1.0/modules/syndication/": "sy",
	"http://www.w3.org/2005/atom":                  "atom",
	"http://purl.org/atom/ns#":                     "atom",
	"http://www.w3.org/1999/02/22-rdf-syntax-ns#":  "rdf",
	"http://search.yahoo.com/mrss/":                "media",
	"http://www.itunes.com/dtds/podcast-1.0.dtd":   "itunes",
	"http://www.w3.org/1999/xhtml":                 "xhtml",
	"http://purl.org/rss/1.0/":                     "",
	"http://my.netscape.com/rdf/simple/0.9/":       "",
	"http://backend.userland.com/rss2":             "",
}

// xmlTokenizer wraps a non-strict pull parser. Non-strict mode tolerates
// unknown entities and auto-closes mismatched elements, which is what lets
// the state machines recover from unclosed inline tags.
type xmlTokenizer struct {
	format string
	p      *xpp.XMLPullParser
}

func newXMLTokenizer(format string, r io.Reader) *xmlTokenizer {
	r = transform.NewReader(r, unicode.BOMOverride(transform.Nop))
	return &xmlTokenizer{
		format: format,
		p:      xpp.NewXMLPullParser(r, false, charsetReader),
	}
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	// UTF-16 input has already been transcoded by the BOM override.
	if strings.HasPrefix(strings.ToLower(label), "utf-16") {
		return input, nil
	}
	reader, err := charset.NewReaderLabel(label, input)
	if err != nil {
		return input, nil
	}
	return reader, nil
}

// next returns the next start, end, text or end-of-document event.
// Running out of input inside open elements counts as end of document.
func (t *xmlTokenizer) next() (xpp.XMLEventType, error) {
	event, err := t.p.Next()
	if err == nil {
		return event, nil
	}

	var syntaxErr *xml.SyntaxError
	if errors.As(err, &syntaxErr) && syntaxErr.Msg == "unexpected EOF" {
		return xpp.EndDocument, nil
	}
	if errors.Is(err, io.EOF) {
		return xpp.EndDocument, nil
	}
	return event, syntaxError(t.format, err)
}

// key returns the lower-cased, prefix-qualified name of the current element,
// e.g. "content:encoded" or "title".
func (t *xmlTokenizer) key() string {
	local := strings.ToLower(t.p.Name)
	prefix := namespacePrefix(t.p.Space)
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}

func (t *xmlTokenizer) prefix() string {
	return namespacePrefix(t.p.Space)
}

func (t *xmlTokenizer) local() string {
	return strings.ToLower(t.p.Name)
}

func (t *xmlTokenizer) text() string {
	return t.p.Text
}

// attr looks an attribute up by local name, case-insensitively.
func (t *xmlTokenizer) attr(name string) string {
	for _, a := range t.p.Attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}

// writeStart re-serializes the current start tag, used to keep inline
// XHTML markup inside Atom content.
func (t *xmlTokenizer) writeStart(b *strings.Builder) {
	b.WriteByte('<')
	b.WriteString(t.p.Name)
	for _, a := range t.p.Attrs {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(a.Name.Local)
		b.WriteString(`="`)
		xml.EscapeText(b, []byte(a.Value))
		b.WriteByte('"')
	}
	b.WriteByte('>')
}

func (t *xmlTokenizer) writeEnd(b *strings.Builder) {
	b.WriteString("</")
	b.WriteString(t.p.Name)
	b.WriteByte('>')
}

func namespacePrefix(space string) string {
	if space == "" {
		return ""
	}
	if prefix, ok := namespacePrefixes[strings.ToLower(space)]; ok {
		return prefix
	}
	return strings.ToLower(space)
}
