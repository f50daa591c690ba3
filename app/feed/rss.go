package feed

import (
	"cmp"
	"io"
	"strconv"
	"strings"
	"time"

	xpp "github.com/mmcdole/goxpp"
)

type rssState int

const (
	rssInitial rssState = iota
	rssInChannel
	rssInImage
	rssInTextInput
	rssInItem
)

var rssChannelFields = map[string]bool{
	"title":              true,
	"link":               true,
	"description":        true,
	"ttl":                true,
	"sy:updateperiod":    true,
	"sy:updatefrequency": true,
}

var rssItemFields = map[string]bool{
	"title":           true,
	"link":            true,
	"description":     true,
	"content:encoded": true,
	"guid":            true,
	"author":          true,
	"dc:creator":      true,
	"itunes:author":   true,
	"pubdate":         true,
	"dc:date":         true,
}

type rssItem struct {
	ParsedEntry
	about      string
	creator    string
	bareAuthor string
	otherLink  string
	permalink  string
	published  *time.Time
	dcDate     *time.Time
}

// rssParser is the tag driven state machine for RSS 2.0, RSS 1.0 (RDF) and
// bare channel fragments.
type rssParser struct {
	tok *xmlTokenizer
	out *sink[ParsedFeed, ParsedEntry]

	state       rssState
	parentState rssState
	rdfMode     bool
	rootSeen    bool
	rootKey     string
	rootClosed  bool

	field     string
	fieldHref string
	guidLink  bool
	text      strings.Builder

	feed        ParsedFeed
	period      string
	frequency   string
	altLink     string
	itunesImage string

	item rssItem
}

func parseRSS(r io.Reader, out *sink[ParsedFeed, ParsedEntry]) error {
	p := &rssParser{
		tok: newXMLTokenizer(string(FeedTypeRSS), r),
		out: out,
	}
	return p.run()
}

func (p *rssParser) run() error {
	for {
		event, err := p.tok.next()
		if err != nil {
			// Trailing junk after the root element does not cost the feed.
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
			if p.field != "" {
				p.text.WriteString(p.tok.text())
			}
		case xpp.EndDocument:
			if !p.rootSeen {
				return malformed(string(FeedTypeRSS), "no rss, rdf:RDF or channel element found")
			}
			p.markReady()
			return nil
		}
	}
}

func (p *rssParser) startTag() error {
	key := p.tok.key()

	switch key {
	case "rss":
		p.setRoot(key)
		return nil
	case "rdf:rdf":
		p.setRoot(key)
		p.rdfMode = true
		return nil
	case "channel":
		if p.state == rssInitial {
			p.setRoot(key)
			p.state = rssInChannel
		}
		return nil
	case "item":
		return p.startItem()
	}

	switch p.state {
	case rssInitial:
		if key == "image" && p.rdfMode {
			p.enter(rssInImage)
		}
	case rssInChannel:
		switch {
		case key == "image":
			p.enter(rssInImage)
		case key == "textinput":
			p.enter(rssInTextInput)
		case key == "atom:link":
			p.commit()
			p.channelAtomLink()
		case key == "itunes:image":
			p.commit()
			if p.itunesImage == "" {
				p.itunesImage = p.tok.attr("href")
			}
		case rssChannelFields[key]:
			p.open(key)
		}
	case rssInImage:
		if key == "url" {
			p.open(key)
		}
	case rssInItem:
		switch {
		case key == "atom:link":
			p.commit()
			p.itemAtomLink()
		case rssItemFields[key]:
			p.open(key)
			if key == "guid" {
				p.guidLink = !strings.EqualFold(p.tok.attr("isPermaLink"), "false")
			}
		}
	}
	return nil
}

func (p *rssParser) endTag() error {
	key := p.tok.key()

	if p.field != "" && key == p.field {
		p.commit()
		return nil
	}

	if key == p.rootKey {
		p.rootClosed = true
	}

	switch {
	case key == "item" && p.state == rssInItem:
		return p.finishItem()
	case key == "image" && p.state == rssInImage,
		key == "textinput" && p.state == rssInTextInput:
		p.commit()
		p.state = p.parentState
	case key == "channel" && p.state == rssInChannel:
		p.commit()
		p.state = rssInitial
	}
	return nil
}

// setRoot records the outermost feed element so that its end can be
// recognized.
func (p *rssParser) setRoot(key string) {
	p.rootSeen = true
	if p.rootKey == "" {
		p.rootKey = key
	}
}

// open starts capturing a recognized field. A field that is still open is
// committed first: this is the recovery path for unclosed inline tags.
func (p *rssParser) open(key string) {
	p.commit()
	p.field = key
	p.fieldHref = p.tok.attr("href")
	p.text.Reset()
}

func (p *rssParser) enter(state rssState) {
	p.commit()
	p.parentState = p.state
	p.state = state
}

func (p *rssParser) commit() {
	if p.field == "" {
		return
	}

	field, value := p.field, strings.TrimSpace(p.text.String())
	p.field = ""
	p.text.Reset()

	switch p.state {
	case rssInChannel:
		p.setChannelField(field, value)
	case rssInImage:
		if field == "url" && p.feed.IconURL == "" {
			p.feed.IconURL = value
		}
	case rssInItem:
		p.setItemField(field, value)
	}
}

func (p *rssParser) setChannelField(field, value string) {
	switch field {
	case "title":
		p.feed.Title = cmp.Or(p.feed.Title, value)
	case "link":
		p.feed.SiteURL = cmp.Or(p.feed.SiteURL, value, p.fieldHref)
	case "description":
		p.feed.Description = cmp.Or(p.feed.Description, value)
	case "ttl":
		if n, err := strconv.Atoi(value); err == nil && n >= 0 && p.feed.TTLMinutes == nil {
			p.feed.TTLMinutes = &n
		}
	case "sy:updateperiod":
		p.period = cmp.Or(p.period, value)
	case "sy:updatefrequency":
		p.frequency = cmp.Or(p.frequency, value)
	}
}

func (p *rssParser) setItemField(field, value string) {
	item := &p.item

	switch field {
	case "title":
		item.Title = cmp.Or(item.Title, value)
	case "link":
		item.Link = cmp.Or(item.Link, value, p.fieldHref)
	case "description":
		item.Summary = cmp.Or(item.Summary, value)
	case "content:encoded":
		item.Content = cmp.Or(item.Content, value)
	case "guid":
		if item.GUID == "" && value != "" {
			item.GUID = value
			if p.guidLink && isHTTPURL(value) {
				item.permalink = value
			}
		}
	case "dc:creator":
		item.creator = cmp.Or(item.creator, value)
	case "author", "itunes:author":
		item.bareAuthor = cmp.Or(item.bareAuthor, authorName(value))
	case "pubdate":
		if item.published == nil {
			item.published = parseDatePtr(value)
		}
	case "dc:date":
		if item.dcDate == nil {
			item.dcDate = parseDatePtr(value)
		}
	}
}

func (p *rssParser) channelAtomLink() {
	href := p.tok.attr("href")
	if href == "" {
		return
	}

	switch strings.ToLower(p.tok.attr("rel")) {
	case "hub":
		p.feed.HubURL = cmp.Or(p.feed.HubURL, href)
	case "self":
		p.feed.SelfURL = cmp.Or(p.feed.SelfURL, href)
	case "", "alternate":
		p.altLink = cmp.Or(p.altLink, href)
	}
}

func (p *rssParser) itemAtomLink() {
	href := p.tok.attr("href")
	if href == "" {
		return
	}

	switch strings.ToLower(p.tok.attr("rel")) {
	case "", "alternate":
		p.item.Link = cmp.Or(p.item.Link, href)
	case "enclosure":
	default:
		p.item.otherLink = cmp.Or(p.item.otherLink, href)
	}
}

func (p *rssParser) startItem() error {
	switch p.state {
	case rssInItem:
		// An item opened inside an unclosed item: flush the first one.
		parent := p.parentState
		if err := p.finishItem(); err != nil {
			return err
		}
		p.state = parent
	case rssInChannel:
	case rssInitial:
		// RDF items are siblings of channel; a bare item fragment is
		// accepted the same way.
		p.rootSeen = true
	default:
		return nil
	}

	p.commit()
	p.markReady()
	p.parentState = p.state
	p.state = rssInItem
	p.item = rssItem{about: p.tok.attr("about")}
	return nil
}

func (p *rssParser) finishItem() error {
	p.commit()
	p.state = p.parentState

	item := p.item
	p.item = rssItem{}

	entry := item.ParsedEntry
	entry.GUID = cmp.Or(entry.GUID, item.about)
	entry.Link = cmp.Or(entry.Link, item.otherLink, item.permalink)
	entry.Author = cmp.Or(item.creator, item.bareAuthor)
	entry.Content = cmp.Or(entry.Content, entry.Summary)
	entry.PubDate = item.published
	if entry.PubDate == nil {
		entry.PubDate = item.dcDate
	}

	return p.out.emit(entry)
}

// markReady freezes the channel metadata. Real feeds put channel elements
// before items, so the first item is the point where it is final.
func (p *rssParser) markReady() {
	if p.out.isReady {
		return
	}

	meta := p.feed
	meta.SiteURL = cmp.Or(meta.SiteURL, p.altLink)
	meta.IconURL = cmp.Or(meta.IconURL, p.itunesImage)
	meta.Syndication = NewSyndicationHints(p.period, p.frequency)
	p.out.ready(meta)
}

// authorName extracts the display name from the RSS "email (Name)" form.
func authorName(value string) string {
	open := strings.IndexByte(value, '(')
	end := strings.LastIndexByte(value, ')')
	if open >= 0 && end > open {
		if name := strings.TrimSpace(value[open+1 : end]); name != "" {
			return name
		}
	}
	return value
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
