package feed

import (
	"cmp"
	"io"
	"strings"

	xpp "github.com/mmcdole/goxpp"
)

const formatOPML = "opml"

// Outline types that denote a leaf even without an xmlUrl.
var opmlLeafTypes = map[string]bool{
	"rss":     true,
	"atom":    true,
	"link":    true,
	"include": true,
	"song":    true,
}

type opmlFrame struct {
	categoryLen int
}

// opmlParser walks outline elements inside body, keeping a category stack
// that mirrors folder nesting.
type opmlParser struct {
	tok *xmlTokenizer
	out *sink[struct{}, OpmlFeed]

	rootSeen bool
	bodySeen bool
	inBody   bool

	frames   []opmlFrame
	category []string
}

func parseOPML(r io.Reader, out *sink[struct{}, OpmlFeed]) error {
	p := &opmlParser{
		tok: newXMLTokenizer(formatOPML, r),
		out: out,
	}
	return p.run()
}

func (p *opmlParser) run() error {
	for {
		event, err := p.tok.next()
		if err != nil {
			return err
		}

		switch event {
		case xpp.StartTag:
			if err := p.startTag(); err != nil {
				return err
			}
		case xpp.EndTag:
			p.endTag()
		case xpp.EndDocument:
			if !p.rootSeen {
				return malformed(formatOPML, "no opml element found")
			}
			if !p.bodySeen {
				return malformed(formatOPML, "no body element found")
			}
			return nil
		}
	}
}

func (p *opmlParser) startTag() error {
	switch p.tok.local() {
	case "opml":
		p.rootSeen = true
	case "body":
		if !p.rootSeen {
			return malformed(formatOPML, "body outside of opml element")
		}
		p.bodySeen = true
		p.inBody = true
		p.out.ready(struct{}{})
	case "outline":
		if p.inBody {
			return p.startOutline()
		}
	}
	return nil
}

func (p *opmlParser) endTag() {
	switch p.tok.local() {
	case "outline":
		if len(p.frames) == 0 {
			return
		}
		frame := p.frames[len(p.frames)-1]
		p.frames = p.frames[:len(p.frames)-1]
		p.category = p.category[:frame.categoryLen]
	case "body":
		p.inBody = false
		p.frames = p.frames[:0]
		p.category = p.category[:0]
	}
}

func (p *opmlParser) startOutline() error {
	p.frames = append(p.frames, opmlFrame{categoryLen: len(p.category)})

	xmlURL := p.tok.attr("xmlUrl")
	text := p.tok.attr("text")
	title := p.tok.attr("title")

	if xmlURL != "" {
		feed := OpmlFeed{
			XMLURL:  xmlURL,
			Title:   cmp.Or(title, text),
			HTMLURL: p.tok.attr("htmlUrl"),
		}
		if len(p.category) > 0 {
			feed.Category = append([]string(nil), p.category...)
		} else {
			feed.Category = splitCategory(p.tok.attr("category"))
		}
		return p.out.emit(feed)
	}

	if opmlLeafTypes[strings.ToLower(p.tok.attr("type"))] {
		return nil
	}

	// Treated as a folder; if it turns out to have no children nothing
	// ever reads the pushed name.
	if name := cmp.Or(text, title); name != "" {
		p.category = append(p.category, name)
	}
	return nil
}

// splitCategory turns a category attribute into a path. "/" separates path
// segments; a comma separated list only contributes its first entry.
func splitCategory(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if strings.Contains(value, "/") {
		var path []string
		for _, segment := range strings.Split(value, "/") {
			if segment = strings.TrimSpace(segment); segment != "" {
				path = append(path, segment)
			}
		}
		return path
	}

	if first, _, found := strings.Cut(value, ","); found {
		if first = strings.TrimSpace(first); first != "" {
			return []string{first}
		}
		return nil
	}

	return []string{value}
}
