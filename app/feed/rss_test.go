package feed

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func parseRSSString(t *testing.T, doc string) *ParsedFeed {
	t.Helper()

	parsed, err := NewParser().ParseFormat(strings.NewReader(doc), FeedTypeRSS)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	return parsed
}

func TestParseRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0"
     xmlns:atom="http://www.w3.org/2005/Atom"
     xmlns:content="http://purl.org/rss/1.0/modules/content/"
     xmlns:dc="http://purl.org/dc/elements/1.1/"
     xmlns:sy="http://purl.org/rss/1.0/modules/syndication/">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <ttl>60</ttl>
    <sy:updatePeriod>hourly</sy:updatePeriod>
    <sy:updateFrequency>2</sy:updateFrequency>
    <atom:link rel="hub" href="https://hub.example.com/"/>
    <atom:link rel="self" href="https://example.com/feed.xml" type="application/rss+xml"/>
    <image>
      <url>https://example.com/icon.png</url>
      <title>Image Title</title>
      <link>https://example.com/image-link</link>
    </image>
    <item>
      <title>Test Item 1</title>
      <link>https://example.com/item1</link>
      <description>Short summary</description>
      <content:encoded><![CDATA[<p>Full body</p>]]></content:encoded>
      <guid isPermaLink="false">item-1</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <author>test@example.com (Test Author)</author>
      <dc:creator>Creator Name</dc:creator>
    </item>
    <item>
      <title>Test Item 2</title>
      <description>Only a description</description>
      <guid>https://example.com/item2</guid>
      <author>plain@example.com</author>
      <dc:date>2023-07-03T11:00:00Z</dc:date>
    </item>
  </channel>
</rss>`

	parsed := parseRSSString(t, rssData)

	if parsed.Title != "Test Feed" {
		t.Errorf("Expected title 'Test Feed', got: %s", parsed.Title)
	}
	if parsed.SiteURL != "https://example.com" {
		t.Errorf("Expected site URL 'https://example.com', got: %s", parsed.SiteURL)
	}
	if parsed.Description != "Test Description" {
		t.Errorf("Expected description 'Test Description', got: %s", parsed.Description)
	}
	if parsed.IconURL != "https://example.com/icon.png" {
		t.Errorf("Expected icon URL from image, got: %s", parsed.IconURL)
	}
	if parsed.HubURL != "https://hub.example.com/" {
		t.Errorf("Expected hub URL, got: %s", parsed.HubURL)
	}
	if parsed.SelfURL != "https://example.com/feed.xml" {
		t.Errorf("Expected self URL, got: %s", parsed.SelfURL)
	}
	if parsed.TTLMinutes == nil || *parsed.TTLMinutes != 60 {
		t.Errorf("Expected ttl 60, got: %v", parsed.TTLMinutes)
	}
	if parsed.Syndication == nil || parsed.Syndication.UpdatePeriod != UpdateHourly ||
		parsed.Syndication.UpdateFrequency == nil || *parsed.Syndication.UpdateFrequency != 2 {
		t.Errorf("Expected hourly/2 syndication hints, got: %+v", parsed.Syndication)
	}

	if len(parsed.Entries) != 2 {
		t.Fatalf("Expected 2 entries, got: %d", len(parsed.Entries))
	}

	first := parsed.Entries[0]
	if first.Title != "Test Item 1" {
		t.Errorf("Expected title 'Test Item 1', got: %s", first.Title)
	}
	if first.Link != "https://example.com/item1" {
		t.Errorf("Expected link 'https://example.com/item1', got: %s", first.Link)
	}
	if first.GUID != "item-1" {
		t.Errorf("Expected GUID 'item-1', got: %s", first.GUID)
	}
	if first.Content != "<p>Full body</p>" {
		t.Errorf("Expected content from content:encoded, got: %s", first.Content)
	}
	if first.Summary != "Short summary" {
		t.Errorf("Expected summary from description, got: %s", first.Summary)
	}
	if first.Author != "Creator Name" {
		t.Errorf("Expected dc:creator to win over author, got: %s", first.Author)
	}
	want := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)
	if first.PubDate == nil || !first.PubDate.Equal(want) {
		t.Errorf("Expected pubDate %v, got: %v", want, first.PubDate)
	}

	second := parsed.Entries[1]
	if second.Link != "https://example.com/item2" {
		t.Errorf("Expected permalink guid as link, got: %s", second.Link)
	}
	if second.Content != "Only a description" || second.Summary != "Only a description" {
		t.Errorf("Expected description as content and summary, got: %q / %q", second.Content, second.Summary)
	}
	if second.Author != "plain@example.com" {
		t.Errorf("Expected bare author, got: %s", second.Author)
	}
	want = time.Date(2023, 7, 3, 11, 0, 0, 0, time.UTC)
	if second.PubDate == nil || !second.PubDate.Equal(want) {
		t.Errorf("Expected dc:date fallback %v, got: %v", want, second.PubDate)
	}
}

func TestParseRSSUnclosedLink(t *testing.T) {
	doc := "<item><title>Post</title><link>http://x.com/1\n<pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate></item>"

	parsed := parseRSSString(t, doc)

	if len(parsed.Entries) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(parsed.Entries))
	}

	entry := parsed.Entries[0]
	if entry.Title != "Post" {
		t.Errorf("Expected title 'Post', got: %q", entry.Title)
	}
	if entry.Link != "http://x.com/1" {
		t.Errorf("Expected link 'http://x.com/1', got: %q", entry.Link)
	}
	want := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if entry.PubDate == nil || !entry.PubDate.Equal(want) {
		t.Errorf("Expected pubDate %v, got: %v", want, entry.PubDate)
	}
}

func TestParseRSSUnclosedItem(t *testing.T) {
	doc := `<rss version="2.0"><channel><title>C</title>
<item><title>A</title>
<item><title>B</title></item>
</channel></rss>`

	parsed := parseRSSString(t, doc)

	if len(parsed.Entries) != 2 {
		t.Fatalf("Expected 2 entries, got: %d", len(parsed.Entries))
	}
	if parsed.Entries[0].Title != "A" || parsed.Entries[1].Title != "B" {
		t.Errorf("Expected entries A, B; got %q, %q", parsed.Entries[0].Title, parsed.Entries[1].Title)
	}
}

func TestParseRSSTruncatedDocument(t *testing.T) {
	doc := `<rss version="2.0"><channel><title>C</title>
<item><title>Complete</title></item>
<item><title>Cut off`

	parsed := parseRSSString(t, doc)

	if parsed.Title != "C" {
		t.Errorf("Expected title 'C', got: %q", parsed.Title)
	}
	if len(parsed.Entries) != 1 || parsed.Entries[0].Title != "Complete" {
		t.Errorf("Expected only the complete entry, got: %+v", parsed.Entries)
	}
}

func TestParseRDF(t *testing.T) {
	doc := `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns="http://purl.org/rss/1.0/"
         xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel rdf:about="https://example.org/">
    <title>RDF Feed</title>
    <link>https://example.org/</link>
    <description>An RSS 1.0 feed</description>
    <image rdf:resource="https://example.org/logo.png"/>
  </channel>
  <image rdf:about="https://example.org/logo.png">
    <title>Logo</title>
    <url>https://example.org/logo.png</url>
  </image>
  <item rdf:about="https://example.org/a">
    <title>A</title>
    <link>https://example.org/a</link>
    <dc:creator>Alice</dc:creator>
    <dc:date>2024-02-01T08:00:00+02:00</dc:date>
  </item>
  <item rdf:about="https://example.org/b">
    <title>B</title>
  </item>
</rdf:RDF>`

	parsed := parseRSSString(t, doc)

	if parsed.Title != "RDF Feed" {
		t.Errorf("Expected title 'RDF Feed', got: %q", parsed.Title)
	}
	if parsed.IconURL != "https://example.org/logo.png" {
		t.Errorf("Expected icon from sibling image, got: %q", parsed.IconURL)
	}
	if len(parsed.Entries) != 2 {
		t.Fatalf("Expected 2 entries, got: %d", len(parsed.Entries))
	}

	a := parsed.Entries[0]
	if a.GUID != "https://example.org/a" {
		t.Errorf("Expected rdf:about as GUID, got: %q", a.GUID)
	}
	if a.Author != "Alice" {
		t.Errorf("Expected author 'Alice', got: %q", a.Author)
	}
	want := time.Date(2024, 2, 1, 6, 0, 0, 0, time.UTC)
	if a.PubDate == nil || !a.PubDate.Equal(want) {
		t.Errorf("Expected pubDate %v, got: %v", want, a.PubDate)
	}
	if parsed.Entries[1].Title != "B" {
		t.Errorf("Expected second entry 'B', got: %q", parsed.Entries[1].Title)
	}
}

func TestParseRSSLinkFallbacks(t *testing.T) {
	doc := `<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom"><channel>
<atom:link rel="alternate" href="https://example.com/home"/>
<item><title>atom link</title><atom:link rel="alternate" href="https://example.com/a"/></item>
<item><title>non permalink guid</title><guid isPermaLink="false">https://example.com/b</guid></item>
<item><title>guid not a URL</title><guid>tag:example.com,2024:c</guid></item>
</channel></rss>`

	parsed := parseRSSString(t, doc)

	if parsed.SiteURL != "https://example.com/home" {
		t.Errorf("Expected site URL from atom:link, got: %q", parsed.SiteURL)
	}
	if len(parsed.Entries) != 3 {
		t.Fatalf("Expected 3 entries, got: %d", len(parsed.Entries))
	}
	if parsed.Entries[0].Link != "https://example.com/a" {
		t.Errorf("Expected atom:link as link, got: %q", parsed.Entries[0].Link)
	}
	if parsed.Entries[1].Link != "" {
		t.Errorf("Expected no link for non-permalink guid, got: %q", parsed.Entries[1].Link)
	}
	if parsed.Entries[2].Link != "" || parsed.Entries[2].GUID != "tag:example.com,2024:c" {
		t.Errorf("Unexpected entry: %+v", parsed.Entries[2])
	}
}

func TestParseRSSIgnoresInvalidFields(t *testing.T) {
	doc := `<rss version="2.0"><channel><title>C</title><ttl>soon</ttl>
<item><title>T</title><pubDate>someday</pubDate></item>
</channel></rss>`

	parsed := parseRSSString(t, doc)

	if parsed.TTLMinutes != nil {
		t.Errorf("Expected no ttl, got: %d", *parsed.TTLMinutes)
	}
	if parsed.Syndication != nil {
		t.Errorf("Expected no syndication hints, got: %+v", parsed.Syndication)
	}
	if len(parsed.Entries) != 1 || parsed.Entries[0].PubDate != nil {
		t.Errorf("Expected one entry without pubDate, got: %+v", parsed.Entries)
	}
}

func TestParseRSSWithoutRoot(t *testing.T) {
	_, err := NewParser().ParseFormat(strings.NewReader(`<html><body>nope</body></html>`), FeedTypeRSS)
	if !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("Expected malformed document error, got: %v", err)
	}
}

func TestParseRSSSyntaxError(t *testing.T) {
	doc := `<rss version="2.0"><channel><item><title>A</title></item>< oops`

	_, err := NewParser().ParseFormat(strings.NewReader(doc), FeedTypeRSS)
	if !errors.Is(err, ErrSyntax) {
		t.Fatalf("Expected syntax error, got: %v", err)
	}

	var parseErr *ParseError
	if !errors.As(err, &parseErr) || parseErr.Format != "rss" {
		t.Errorf("Expected *ParseError for rss, got: %#v", err)
	}
}

func TestAuthorName(t *testing.T) {
	tests := map[string]string{
		"test@example.com (Test Author)": "Test Author",
		"Plain Name":                     "Plain Name",
		"x@example.com ()":               "x@example.com ()",
	}

	for input, want := range tests {
		if got := authorName(input); got != want {
			t.Errorf("authorName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestParseRSSTextInputDoesNotLeak(t *testing.T) {
	doc := `<rss version="2.0"><channel>
<title>Real Title</title>
<textInput>
  <title>TI</title>
  <description>Search the archive</description>
  <name>q</name>
  <link>http://ti</link>
</textInput>
<item><title>A</title></item>
</channel></rss>`

	parsed := parseRSSString(t, doc)

	if parsed.Title != "Real Title" {
		t.Errorf("Expected channel title, got: %q", parsed.Title)
	}
	if parsed.SiteURL != "" {
		t.Errorf("Expected no site URL, got: %q", parsed.SiteURL)
	}
	if parsed.Description != "" {
		t.Errorf("Expected no description, got: %q", parsed.Description)
	}
	if len(parsed.Entries) != 1 || parsed.Entries[0].Title != "A" {
		t.Errorf("Unexpected entries: %+v", parsed.Entries)
	}
}

func TestParseRSSItunesImage(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "itunes image only",
			doc: `<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd"><channel>
<title>Pod</title><itunes:image href="https://example.com/cover.jpg"/>
</channel></rss>`,
			want: "https://example.com/cover.jpg",
		},
		{
			name: "image url wins",
			doc: `<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd"><channel>
<title>Pod</title><itunes:image href="https://example.com/cover.jpg"/>
<image><url>https://example.com/logo.png</url></image>
</channel></rss>`,
			want: "https://example.com/logo.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := parseRSSString(t, tt.doc)
			if parsed.IconURL != tt.want {
				t.Errorf("Expected icon %q, got: %q", tt.want, parsed.IconURL)
			}
			if parsed.Title != "Pod" {
				t.Errorf("Expected title Pod, got: %q", parsed.Title)
			}
		})
	}
}

func TestParseRSSTrailingGarbage(t *testing.T) {
	docs := map[string]string{
		"stray end tag": `<rss version="2.0"><channel><title>T</title><item><title>A</title></item></channel></rss></html>`,
		"broken markup": `<rss version="2.0"><channel><title>T</title><item><title>A</title></item></channel></rss>< oops`,
		"rdf":           `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns="http://purl.org/rss/1.0/"><channel><title>T</title></channel><item><title>A</title></item></rdf:RDF></body>`,
	}

	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			parsed := parseRSSString(t, doc)
			if parsed.Title != "T" {
				t.Errorf("Expected title T, got: %q", parsed.Title)
			}
			if len(parsed.Entries) != 1 || parsed.Entries[0].Title != "A" {
				t.Errorf("Unexpected entries: %+v", parsed.Entries)
			}
		})
	}
}
