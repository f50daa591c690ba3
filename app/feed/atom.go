package feed

import (
	"cmp"
	"encoding/xml"
	"io"
	"strings"
	"time"

	xpp "github.com/mmcdole/goxpp"
)

type atomState int

const (
	atomInitial atomState = iota
	atomInFeed
	atomInFeedAuthor
	atomInEntry
	atomInEntryAuthor
	atomInSource
)

// The text directly inside <author> is tracked under its own key so that
// closing the author element is never mistaken for closing a field.
const atomAuthorText = "author#text"

var atomFeedFields = map[string]bool{
	"title":              true,
	"subtitle":           true,
	"tagline":            true,
	"icon":               true,
	"logo":               true,
	"sy:updateperiod":    true,
	"sy:updatefrequency": true,
}

var atomEntryFields = map[string]bool{
	"id":         true,
	"title":      true,
	"content":    true,
	"summary":    true,
	"published":  true,
	"issued":     true,
	"updated":    true,
	"modified":   true,
	"dc:date":    true,
	"dc:creator": true,
}

type atomEntry struct {
	ParsedEntry
	creator    string
	bareAuthor string
	otherLink  string
	published  *time.Time
	updated    *time.Time
}

// atomParser is the tag driven state machine for Atom 1.0 (and the 0.3
// element names that still show up).
type atomParser struct {
	tok *xmlTokenizer
	out *sink[ParsedFeed, ParsedEntry]

	state       atomState
	rootSeen    bool
	rootClosed  bool
	sourceDepth int

	field     string
	fieldRel  string
	xhtml     bool
	xhtmlDiv  bool
	markupLvl int
	text      strings.Builder

	feed           ParsedFeed
	feedAuthor     string
	feedAuthorText string
	logo           string
	period         string
	frequency      string

	entry atomEntry
}

func parseAtom(r io.Reader, out *sink[ParsedFeed, ParsedEntry]) error {
	p := &atomParser{
		tok: newXMLTokenizer(string(FeedTypeAtom), r),
		out: out,
	}
	return p.run()
}

func (p *atomParser) run() error {
	for {
		event, err := p.tok.next()
		if err != nil {
			if !p.rootClosed {
				return err
			}
			event = xpp.EndDocument
		}

		switch event {
		case xpp.StartTag:
			if err := p.startTag(); err != nil {
				return err
			}
		case xpp.EndTag:
			if err := p.endTag(); err != nil {
				return err
			}
		case xpp.Text:
			p.onText()
		case xpp.EndDocument:
			if !p.rootSeen {
				return malformed(string(FeedTypeAtom), "no feed element found")
			}
			p.markReady()
			return nil
		}
	}
}

// key returns the element key with the Atom namespace stripped.
func (p *atomParser) key() string {
	switch p.tok.prefix() {
	case "", "atom":
		return p.tok.local()
	}
	return p.tok.key()
}

func (p *atomParser) onText() {
	if p.field == "" {
		return
	}
	if p.xhtml {
		xml.EscapeText(&p.text, []byte(p.tok.text()))
		return
	}
	p.text.WriteString(p.tok.text())
}

func (p *atomParser) startTag() error {
	if p.state == atomInSource {
		p.sourceDepth++
		return nil
	}

	if p.field != "" && p.xhtml {
		p.startMarkup()
		return nil
	}

	key := p.key()

	switch p.state {
	case atomInitial:
		if key == "feed" {
			p.rootSeen = true
			p.state = atomInFeed
		}
	case atomInFeed:
		switch {
		case key == "entry":
			p.startEntry()
		case key == "link":
			p.commit()
			p.link()
		case key == "author":
			p.commit()
			p.state = atomInFeedAuthor
			p.open(atomAuthorText)
		case atomFeedFields[key]:
			p.open(key)
		}
	case atomInFeedAuthor, atomInEntryAuthor:
		if key == "name" {
			p.open(key)
		} else {
			p.commit()
		}
	case atomInEntry:
		switch {
		case key == "entry":
			// Unclosed entry followed by a new one.
			if err := p.finishEntry(); err != nil {
				return err
			}
			p.startEntry()
		case key == "link":
			p.commit()
			p.link()
		case key == "author":
			p.commit()
			p.state = atomInEntryAuthor
			p.open(atomAuthorText)
		case key == "source":
			p.commit()
			p.state = atomInSource
			p.sourceDepth = 1
		case atomEntryFields[key]:
			p.open(key)
			if key == "content" || key == "summary" {
				p.xhtml = strings.EqualFold(p.tok.attr("type"), "xhtml")
			}
		}
	}
	return nil
}

func (p *atomParser) endTag() error {
	if p.state == atomInSource {
		p.sourceDepth--
		if p.sourceDepth == 0 {
			p.state = atomInEntry
		}
		return nil
	}

	if p.field != "" && p.xhtml && p.markupLvl > 0 {
		p.endMarkup()
		return nil
	}

	key := p.key()

	if p.field != "" && key == p.field {
		p.commit()
		return nil
	}

	switch {
	case key == "author" && p.state == atomInFeedAuthor:
		p.commit()
		p.state = atomInFeed
	case key == "author" && p.state == atomInEntryAuthor:
		p.commit()
		p.state = atomInEntry
	case key == "entry" && p.state == atomInEntry:
		return p.finishEntry()
	case key == "feed" && p.state == atomInFeed:
		p.commit()
		p.state = atomInitial
		p.rootClosed = true
	}
	return nil
}

func (p *atomParser) startMarkup() {
	if p.markupLvl == 0 && p.tok.local() == "div" && !p.xhtmlDiv {
		p.xhtmlDiv = true
		p.markupLvl++
		return
	}
	p.markupLvl++
	p.tok.writeStart(&p.text)
}

func (p *atomParser) endMarkup() {
	p.markupLvl--
	if p.markupLvl == 0 && p.xhtmlDiv {
		return
	}
	p.tok.writeEnd(&p.text)
}

func (p *atomParser) open(key string) {
	p.commit()
	p.field = key
	p.fieldRel = ""
	p.text.Reset()
}

func (p *atomParser) commit() {
	if p.field == "" {
		return
	}

	field, value := p.field, strings.TrimSpace(p.text.String())
	p.field = ""
	p.xhtml = false
	p.xhtmlDiv = false
	p.markupLvl = 0
	p.text.Reset()

	if field == "link" {
		p.applyLink(p.fieldRel, value)
		return
	}

	switch p.state {
	case atomInFeed:
		p.setFeedField(field, value)
	case atomInFeedAuthor:
		if field == "name" {
			p.feedAuthor = cmp.Or(p.feedAuthor, value)
		} else {
			p.feedAuthorText = cmp.Or(p.feedAuthorText, value)
		}
	case atomInEntry:
		p.setEntryField(field, value)
	case atomInEntryAuthor:
		if field == "name" {
			p.entry.creator = cmp.Or(p.entry.creator, value)
		} else {
			p.entry.bareAuthor = cmp.Or(p.entry.bareAuthor, value)
		}
	}
}

func (p *atomParser) setFeedField(field, value string) {
	switch field {
	case "title":
		p.feed.Title = cmp.Or(p.feed.Title, value)
	case "subtitle", "tagline":
		p.feed.Description = cmp.Or(p.feed.Description, value)
	case "icon":
		p.feed.IconURL = cmp.Or(p.feed.IconURL, value)
	case "logo":
		p.logo = cmp.Or(p.logo, value)
	case "sy:updateperiod":
		p.period = cmp.Or(p.period, value)
	case "sy:updatefrequency":
		p.frequency = cmp.Or(p.frequency, value)
	}
}

func (p *atomParser) setEntryField(field, value string) {
	entry := &p.entry

	switch field {
	case "id":
		entry.GUID = cmp.Or(entry.GUID, value)
	case "title":
		entry.Title = cmp.Or(entry.Title, value)
	case "content":
		entry.Content = cmp.Or(entry.Content, value)
	case "summary":
		entry.Summary = cmp.Or(entry.Summary, value)
	case "dc:creator":
		entry.creator = cmp.Or(entry.creator, value)
	case "published", "issued":
		if entry.published == nil {
			entry.published = parseDatePtr(value)
		}
	case "updated", "modified", "dc:date":
		if entry.updated == nil {
			entry.updated = parseDatePtr(value)
		}
	}
}

// link handles <link rel href/>. A link without href is captured as text,
// which some broken feeds do.
func (p *atomParser) link() {
	rel := p.tok.attr("rel")
	href := p.tok.attr("href")
	if href == "" {
		p.open("link")
		p.fieldRel = rel
		return
	}
	p.applyLink(rel, href)
}

func (p *atomParser) applyLink(rel, href string) {
	if href == "" {
		return
	}
	rel = strings.ToLower(rel)

	switch p.state {
	case atomInFeed:
		switch rel {
		case "", "alternate":
			p.feed.SiteURL = cmp.Or(p.feed.SiteURL, href)
		case "self":
			p.feed.SelfURL = cmp.Or(p.feed.SelfURL, href)
		case "hub":
			p.feed.HubURL = cmp.Or(p.feed.HubURL, href)
		}
	case atomInEntry:
		switch rel {
		case "", "alternate":
			p.entry.Link = cmp.Or(p.entry.Link, href)
		case "enclosure":
		default:
			p.entry.otherLink = cmp.Or(p.entry.otherLink, href)
		}
	}
}

func (p *atomParser) startEntry() {
	p.commit()
	p.markReady()
	p.state = atomInEntry
	p.entry = atomEntry{}
}

func (p *atomParser) finishEntry() error {
	p.commit()
	p.state = atomInFeed

	item := p.entry
	p.entry = atomEntry{}

	entry := item.ParsedEntry
	entry.Link = cmp.Or(entry.Link, item.otherLink)
	entry.Author = cmp.Or(item.creator, item.bareAuthor, p.feedAuthor, p.feedAuthorText)
	entry.Content = cmp.Or(entry.Content, entry.Summary)
	entry.PubDate = item.published
	if entry.PubDate == nil {
		entry.PubDate = item.updated
	}

	return p.out.emit(entry)
}

func (p *atomParser) markReady() {
	if p.out.isReady {
		return
	}

	meta := p.feed
	meta.IconURL = cmp.Or(meta.IconURL, p.logo)
	meta.Syndication = NewSyndicationHints(p.period, p.frequency)
	p.out.ready(meta)
}
