package feed

import (
	"bytes"
	"context"
	"io"
)

type Parser struct {
	queueSize int
}

type Option func(*Parser)

// WithQueueSize sets how many parsed items a stream buffers ahead of the
// consumer.
func WithQueueSize(n int) Option {
	return func(p *Parser) {
		if n >= 0 {
			p.queueSize = n
		}
	}
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{queueSize: defaultQueueSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type feedRunner func(io.Reader, *sink[ParsedFeed, ParsedEntry]) error

func runnerFor(feedType FeedType) feedRunner {
	switch feedType {
	case FeedTypeRSS:
		return parseRSS
	case FeedTypeAtom:
		return parseAtom
	case FeedTypeJSON:
		return parseJSONFeed
	}
	return nil
}

// Parse detects the format of r and parses the whole document.
func (p *Parser) Parse(r io.Reader) (*ParsedFeed, error) {
	return p.ParseFormat(r, FeedTypeUnknown)
}

// ParseFormat parses r as the given format, skipping detection. Passing
// FeedTypeUnknown falls back to detection.
func (p *Parser) ParseFormat(r io.Reader, feedType FeedType) (*ParsedFeed, error) {
	if feedType == FeedTypeUnknown {
		var err error
		if feedType, r, err = DetectReader(r); err != nil {
			return nil, err
		}
	}

	run := runnerFor(feedType)
	if run == nil {
		return nil, &ParseError{Kind: ErrUnknownFormat}
	}

	meta, entries, err := collect(func(out *sink[ParsedFeed, ParsedEntry]) error {
		return run(r, out)
	})
	if err != nil {
		return nil, err
	}

	meta.Entries = entries
	return &meta, nil
}

func (p *Parser) ParseBytes(data []byte) (*ParsedFeed, error) {
	return p.Parse(bytes.NewReader(data))
}

// Stream detects the format of r and returns once the feed metadata is
// known. Entries are produced lazily as the consumer pulls them.
func (p *Parser) Stream(ctx context.Context, r io.Reader) (*FeedStream, error) {
	return p.StreamFormat(ctx, r, FeedTypeUnknown)
}

func (p *Parser) StreamFormat(ctx context.Context, r io.Reader, feedType FeedType) (*FeedStream, error) {
	source := r
	if feedType == FeedTypeUnknown {
		var err error
		if feedType, r, err = DetectReader(r); err != nil {
			return nil, err
		}
	}

	run := runnerFor(feedType)
	if run == nil {
		return nil, &ParseError{Kind: ErrUnknownFormat}
	}

	meta, stream, err := startPipe(ctx, source, p.queueSize, func(out *sink[ParsedFeed, ParsedEntry]) error {
		return run(r, out)
	})
	if err != nil {
		return nil, err
	}

	return &FeedStream{Feed: meta, Stream: stream}, nil
}

// ParseOpml returns every feed outline of an OPML document in document
// order. Folder outlines are not returned; they become categories.
func (p *Parser) ParseOpml(r io.Reader) ([]OpmlFeed, error) {
	_, feeds, err := collect(func(out *sink[struct{}, OpmlFeed]) error {
		return parseOPML(r, out)
	})
	if err != nil {
		return nil, err
	}
	return feeds, nil
}

func (p *Parser) StreamOpml(ctx context.Context, r io.Reader) (*OpmlStream, error) {
	_, stream, err := startPipe(ctx, r, p.queueSize, func(out *sink[struct{}, OpmlFeed]) error {
		return parseOPML(r, out)
	})
	if err != nil {
		return nil, err
	}
	return &OpmlStream{Stream: stream}, nil
}
