package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var jsonFeedVersionPrefixes = []string{
	"https://jsonfeed.org/version/",
	"http://jsonfeed.org/version/",
}

// lenient holds a value that is only present when the JSON had the expected
// type. Wrongly typed optional fields are absent, never an error.
type lenient[T any] struct {
	Value T
	Valid bool
}

func (l *lenient[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	l.Value, l.Valid = v, true
	return nil
}

// jsonID accepts both string and numeric item ids.
type jsonID string

func (id *jsonID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = jsonID(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*id = jsonID(strconv.FormatFloat(n, 'f', -1, 64))
	}
	return nil
}

type jsonAuthor struct {
	Name lenient[string] `json:"name"`
}

type jsonAuthors = lenient[[]lenient[jsonAuthor]]

type jsonHub struct {
	Type lenient[string] `json:"type"`
	URL  lenient[string] `json:"url"`
}

type jsonFeedDoc struct {
	Version     lenient[string]             `json:"version"`
	Title       lenient[string]             `json:"title"`
	HomePageURL lenient[string]             `json:"home_page_url"`
	FeedURL     lenient[string]             `json:"feed_url"`
	Description lenient[string]             `json:"description"`
	Icon        lenient[string]             `json:"icon"`
	Favicon     lenient[string]             `json:"favicon"`
	Author      lenient[jsonAuthor]         `json:"author"`
	Authors     jsonAuthors                 `json:"authors"`
	Hubs        lenient[[]lenient[jsonHub]] `json:"hubs"`
	Items       jsoniter.RawMessage         `json:"items"`
}

type jsonItem struct {
	ID            jsonID              `json:"id"`
	URL           lenient[string]     `json:"url"`
	ExternalURL   lenient[string]     `json:"external_url"`
	Title         lenient[string]     `json:"title"`
	ContentHTML   lenient[string]     `json:"content_html"`
	ContentText   lenient[string]     `json:"content_text"`
	Summary       lenient[string]     `json:"summary"`
	DatePublished lenient[string]     `json:"date_published"`
	DateModified  lenient[string]     `json:"date_modified"`
	Author        lenient[jsonAuthor] `json:"author"`
	Authors       jsonAuthors         `json:"authors"`
}

// parseJSONFeed decodes a whole JSON Feed document. JSON cannot be consumed
// field by field without the full object, so entries are emitted from the
// decoded array in source order.
func parseJSONFeed(r io.Reader, out *sink[ParsedFeed, ParsedEntry]) error {
	data, err := io.ReadAll(transform.NewReader(r, unicode.BOMOverride(transform.Nop)))
	if err != nil {
		return fmt.Errorf("failed to read feed: %w", err)
	}
	data = bytes.TrimPrefix(bytes.TrimSpace(data), utf8BOM)

	doc, rawItems, err := decodeJSONFeed(data)
	if err != nil {
		return err
	}

	meta := ParsedFeed{
		Title:       strings.TrimSpace(doc.Title.Value),
		Description: strings.TrimSpace(doc.Description.Value),
		SiteURL:     strings.TrimSpace(doc.HomePageURL.Value),
		SelfURL:     strings.TrimSpace(doc.FeedURL.Value),
		IconURL:     cmp.Or(strings.TrimSpace(doc.Favicon.Value), strings.TrimSpace(doc.Icon.Value)),
		HubURL:      jsonHubURL(doc.Hubs),
	}
	out.ready(meta)

	feedAuthor := jsonAuthorName(doc.Authors, doc.Author)

	for i, raw := range rawItems {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			slog.Debug("Skipping JSON feed item that is not an object", "index", i)
			continue
		}

		var item jsonItem
		if err := json.Unmarshal(trimmed, &item); err != nil {
			slog.Debug("Skipping undecodable JSON feed item", "index", i, "error", err)
			continue
		}

		if err := out.emit(item.entry(feedAuthor)); err != nil {
			return err
		}
	}
	return nil
}

// decodeJSONFeed separates syntax errors from structural ones: invalid JSON
// is a syntax error, valid JSON of the wrong shape is a malformed document.
func decodeJSONFeed(data []byte) (*jsonFeedDoc, []jsoniter.RawMessage, error) {
	format := string(FeedTypeJSON)

	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, nil, syntaxError(format, err)
	}
	if _, ok := probe.(map[string]any); !ok {
		return nil, nil, malformed(format, "root must be a JSON object")
	}

	var doc jsonFeedDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, malformed(format, "undecodable document: %v", err)
	}

	if !doc.Version.Valid || !hasJSONFeedVersion(doc.Version.Value) {
		return nil, nil, malformed(format, "missing or invalid version")
	}

	items := bytes.TrimSpace(doc.Items)
	if len(items) == 0 || bytes.Equal(items, []byte("null")) {
		return nil, nil, malformed(format, "missing items")
	}
	if items[0] != '[' {
		return nil, nil, malformed(format, "items must be an array")
	}

	var rawItems []jsoniter.RawMessage
	if err := json.Unmarshal(items, &rawItems); err != nil {
		return nil, nil, malformed(format, "items must be an array")
	}
	return &doc, rawItems, nil
}

func (item *jsonItem) entry(feedAuthor string) ParsedEntry {
	text := strings.TrimSpace(item.ContentText.Value)
	html := strings.TrimSpace(item.ContentHTML.Value)
	summary := strings.TrimSpace(item.Summary.Value)

	entry := ParsedEntry{
		GUID:    strings.TrimSpace(string(item.ID)),
		Link:    cmp.Or(strings.TrimSpace(item.URL.Value), strings.TrimSpace(item.ExternalURL.Value)),
		Title:   strings.TrimSpace(item.Title.Value),
		Author:  cmp.Or(jsonAuthorName(item.Authors, item.Author), feedAuthor),
		Content: cmp.Or(html, text, summary),
		Summary: cmp.Or(summary, text),
		PubDate: parseDatePtr(item.DatePublished.Value),
	}
	if entry.PubDate == nil {
		entry.PubDate = parseDatePtr(item.DateModified.Value)
	}
	return entry
}

func hasJSONFeedVersion(version string) bool {
	for _, prefix := range jsonFeedVersionPrefixes {
		if strings.HasPrefix(version, prefix) {
			return true
		}
	}
	return false
}

// jsonAuthorName prefers the first named entry of the 1.1 "authors" list over
// the deprecated 1.0 "author" object.
func jsonAuthorName(authors jsonAuthors, author lenient[jsonAuthor]) string {
	for _, a := range authors.Value {
		if name := strings.TrimSpace(a.Value.Name.Value); a.Valid && name != "" {
			return name
		}
	}
	return strings.TrimSpace(author.Value.Name.Value)
}

func jsonHubURL(hubs lenient[[]lenient[jsonHub]]) string {
	first := ""
	for _, h := range hubs.Value {
		url := strings.TrimSpace(h.Value.URL.Value)
		if !h.Valid || url == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(h.Value.Type.Value), "websub") {
			return url
		}
		first = cmp.Or(first, url)
	}
	return first
}
