package feed

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type FeedType string

const (
	FeedTypeRSS     FeedType = "rss"
	FeedTypeAtom    FeedType = "atom"
	FeedTypeJSON    FeedType = "json"
	FeedTypeUnknown FeedType = "unknown"
)

const (
	detectChunkSize = 512
	detectMaxBytes  = 2048
)

var (
	utf8BOM = []byte{0xEF, 0xBB, 0xBF}

	feedTagRe    = regexp.MustCompile(`(?i)<([a-z0-9_-]+:)?feed[\s>/]`)
	rssTagRe     = regexp.MustCompile(`(?i)<rss[\s>/]`)
	rdfTagRe     = regexp.MustCompile(`(?i)<rdf:rdf[\s>/]`)
	channelTagRe = regexp.MustCompile(`(?i)<channel[\s>/]`)
)

// ParseFeedType converts a user supplied hint ("rss", "atom", "json") into
// a FeedType. Anything else is FeedTypeUnknown.
func ParseFeedType(s string) FeedType {
	switch FeedType(strings.ToLower(strings.TrimSpace(s))) {
	case FeedTypeRSS:
		return FeedTypeRSS
	case FeedTypeAtom:
		return FeedTypeAtom
	case FeedTypeJSON:
		return FeedTypeJSON
	}
	return FeedTypeUnknown
}

// DetectFeedType classifies a prefix of a document. A few kilobytes are
// enough; the function is pure. A UTF-16 byte order mark is honoured so the
// markers are matched on decoded text.
func DetectFeedType(prefix []byte) FeedType {
	if decoded, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), prefix); err == nil {
		prefix = decoded
	}

	data := bytes.TrimLeft(prefix, " \t\r\n")
	data = bytes.TrimPrefix(data, utf8BOM)
	data = bytes.TrimLeft(data, " \t\r\n")

	if len(data) > 0 && data[0] == '{' {
		return FeedTypeJSON
	}

	hasRSS := rssTagRe.Match(data)

	if feedTagRe.Match(data) && !hasRSS {
		return FeedTypeAtom
	}

	if hasRSS || rdfTagRe.Match(data) {
		return FeedTypeRSS
	}

	if channelTagRe.Match(data) {
		return FeedTypeRSS
	}

	return FeedTypeUnknown
}

// DetectReader reads from r until the document can be classified or the
// detection cap is reached. The returned reader yields every byte of the
// original stream, including the ones consumed for detection.
func DetectReader(r io.Reader) (FeedType, io.Reader, error) {
	buf := make([]byte, 0, detectMaxBytes)
	feedType := FeedTypeUnknown

	for len(buf) < detectMaxBytes {
		chunk := min(detectChunkSize, detectMaxBytes-len(buf))
		n, err := io.ReadFull(r, buf[len(buf):len(buf)+chunk])
		buf = buf[:len(buf)+n]

		if n > 0 {
			feedType = DetectFeedType(buf)
			if feedType != FeedTypeUnknown {
				break
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return FeedTypeUnknown, nil, err
		}
	}

	return feedType, io.MultiReader(bytes.NewReader(buf), r), nil
}

// FeedTypeFromContentType maps a transport content type to a format hint.
// Generic XML types are ambiguous and map to FeedTypeUnknown.
func FeedTypeFromContentType(contentType string) FeedType {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	switch mediaType {
	case "application/rss+xml", "application/rdf+xml":
		return FeedTypeRSS
	case "application/atom+xml":
		return FeedTypeAtom
	case "application/feed+json", "application/json":
		return FeedTypeJSON
	}
	return FeedTypeUnknown
}
