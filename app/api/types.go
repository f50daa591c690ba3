package api

import (
	"context"
	"io"
	"time"

	"github.com/lysyi3m/feedparse/app/feed"
)

type FeedParserInterface interface {
	ParseFormat(r io.Reader, feedType feed.FeedType) (*feed.ParsedFeed, error)
	StreamFormat(ctx context.Context, r io.Reader, feedType feed.FeedType) (*feed.FeedStream, error)
	ParseOpml(r io.Reader) ([]feed.OpmlFeed, error)
}

type OpmlGeneratorInterface interface {
	Run(subs []feed.OpmlSubscription, meta *feed.OpmlMetadata) (string, error)
}

var (
	_ FeedParserInterface    = (*feed.Parser)(nil)
	_ OpmlGeneratorInterface = (*feed.OpmlGenerator)(nil)
)

type Handler struct {
	parser       FeedParserInterface
	generator    OpmlGeneratorInterface
	maxBodyBytes int64
	maxEntries   int
	version      string
	startedAt    time.Time
}

type generateOpmlRequest struct {
	Metadata      *feed.OpmlMetadata      `json:"metadata"`
	Subscriptions []feed.OpmlSubscription `json:"subscriptions" binding:"required"`
}

// streamLine is one NDJSON record of /api/parse/stream. Exactly one field is
// set per line.
type streamLine struct {
	Feed  *streamFeed       `json:"feed,omitempty"`
	Entry *feed.ParsedEntry `json:"entry,omitempty"`
	Error string            `json:"error,omitempty"`
}

// streamFeed is the metadata snapshot sent first on a stream. Entries follow
// as separate lines, so the field is left out.
type streamFeed struct {
	feed.ParsedFeed
	Entries []feed.ParsedEntry `json:"entries,omitempty"`
}
