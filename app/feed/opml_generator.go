package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"slices"
	"strings"
)

const defaultOpmlTitle = "Feed Subscriptions"

type OpmlGenerator struct{}

func NewOpmlGenerator() *OpmlGenerator {
	return &OpmlGenerator{}
}

// Run serializes subscriptions into an OPML 2.0 document. When any
// subscription carries tags, every feed is written once at the top level and
// once inside each of its tag folders; otherwise the legacy folder field
// decides the single place a feed is listed.
func (g *OpmlGenerator) Run(subs []OpmlSubscription, meta *OpmlMetadata) (string, error) {
	for i, sub := range subs {
		if strings.TrimSpace(sub.XMLURL) == "" {
			return "", fmt.Errorf("subscription at index %d has no xmlUrl", i)
		}
	}

	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<opml version="2.0">`)
	buf.WriteString("\n  <head>\n")

	if meta == nil {
		meta = &OpmlMetadata{}
	}
	g.writeElement(&buf, "title", cmp.Or(strings.TrimSpace(meta.Title), defaultOpmlTitle), 4)
	g.writeElement(&buf, "ownerName", meta.OwnerName, 4)
	g.writeElement(&buf, "ownerEmail", meta.OwnerEmail, 4)

	buf.WriteString("  </head>\n  <body>\n")

	if usesTags(subs) {
		g.writeTagged(&buf, subs)
	} else {
		g.writeFoldered(&buf, subs)
	}

	buf.WriteString("  </body>\n</opml>\n")

	return buf.String(), nil
}

func (g *OpmlGenerator) writeFoldered(buf *bytes.Buffer, subs []OpmlSubscription) {
	var folders []string
	byFolder := make(map[string][]OpmlSubscription)

	for _, sub := range subs {
		folder := strings.TrimSpace(sub.Folder)
		if folder == "" {
			g.writeFeed(buf, sub, 4)
			continue
		}
		if _, ok := byFolder[folder]; !ok {
			folders = append(folders, folder)
		}
		byFolder[folder] = append(byFolder[folder], sub)
	}

	for _, folder := range folders {
		g.writeFolder(buf, folder, byFolder[folder])
	}
}

func (g *OpmlGenerator) writeTagged(buf *bytes.Buffer, subs []OpmlSubscription) {
	byTag := make(map[string][]OpmlSubscription)

	for _, sub := range subs {
		g.writeFeed(buf, sub, 4)

		seen := make(map[string]bool)
		for _, tag := range sub.Tags {
			tag = strings.TrimSpace(tag)
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			byTag[tag] = append(byTag[tag], sub)
		}
	}

	tags := make([]string, 0, len(byTag))
	for tag := range byTag {
		tags = append(tags, tag)
	}
	slices.Sort(tags)

	for _, tag := range tags {
		g.writeFolder(buf, tag, byTag[tag])
	}
}

func (g *OpmlGenerator) writeFolder(buf *bytes.Buffer, name string, subs []OpmlSubscription) {
	buf.WriteString("    <outline")
	g.writeAttr(buf, "text", name)
	g.writeAttr(buf, "title", name)
	buf.WriteString(">\n")

	for _, sub := range subs {
		g.writeFeed(buf, sub, 6)
	}

	buf.WriteString("    </outline>\n")
}

func (g *OpmlGenerator) writeFeed(buf *bytes.Buffer, sub OpmlSubscription, indent int) {
	title := cmp.Or(strings.TrimSpace(sub.Title), sub.XMLURL)

	buf.WriteString(strings.Repeat(" ", indent))
	buf.WriteString("<outline")
	g.writeAttr(buf, "type", "rss")
	g.writeAttr(buf, "text", title)
	g.writeAttr(buf, "title", title)
	g.writeAttr(buf, "xmlUrl", sub.XMLURL)
	if sub.HTMLURL != "" {
		g.writeAttr(buf, "htmlUrl", sub.HTMLURL)
	}
	buf.WriteString("/>\n")
}

func (g *OpmlGenerator) writeAttr(buf *bytes.Buffer, name, value string) {
	buf.WriteByte(' ')
	buf.WriteString(name)
	buf.WriteString(`="`)
	xml.EscapeText(buf, []byte(value))
	buf.WriteByte('"')
}

func (g *OpmlGenerator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func usesTags(subs []OpmlSubscription) bool {
	for _, sub := range subs {
		if len(sub.Tags) > 0 {
			return true
		}
	}
	return false
}
