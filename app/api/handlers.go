package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/lysyi3m/feedparse/app/feed"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func NewHandler(parser FeedParserInterface, generator OpmlGeneratorInterface,
	maxBodyBytes int64, maxEntries int, version string) *Handler {
	return &Handler{
		parser:       parser,
		generator:    generator,
		maxBodyBytes: maxBodyBytes,
		maxEntries:   maxEntries,
		version:      version,
		startedAt:    time.Now(),
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"uptime":    time.Since(h.startedAt).Truncate(time.Second).String(),
	})
}

func (h *Handler) Detect(c *gin.Context) {
	feedType, _, err := feed.DetectReader(h.body(c))
	if err != nil {
		h.writeError(c, "detect", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"format": feedType})
}

func (h *Handler) Parse(c *gin.Context) {
	hint, ok := h.formatHint(c)
	if !ok {
		return
	}

	parsed, err := h.parser.ParseFormat(h.body(c), hint)
	if err != nil {
		h.writeError(c, "parse", err)
		return
	}

	total := len(parsed.Entries)
	if h.maxEntries > 0 && total > h.maxEntries {
		parsed.Entries = parsed.Entries[:h.maxEntries]
	}

	c.Header("X-Feed-Entries", strconv.Itoa(len(parsed.Entries)))
	c.Header("X-Feed-Total-Entries", strconv.Itoa(total))
	c.JSON(http.StatusOK, parsed)
}

// ParseStream writes the feed as NDJSON: one metadata line followed by one
// line per entry, flushed as entries are parsed. Errors that happen after
// the first line can only be reported in-band.
func (h *Handler) ParseStream(c *gin.Context) {
	hint, ok := h.formatHint(c)
	if !ok {
		return
	}

	stream, err := h.parser.StreamFormat(c.Request.Context(), h.body(c), hint)
	if err != nil {
		h.writeError(c, "parse_stream", err)
		return
	}
	defer stream.Close()

	c.Header("Content-Type", "application/x-ndjson")
	c.Status(http.StatusOK)

	enc := json.NewEncoder(c.Writer)
	if err := enc.Encode(streamLine{Feed: &streamFeed{ParsedFeed: stream.Feed}}); err != nil {
		slog.Debug("Stream client went away", "error", err)
		return
	}
	c.Writer.Flush()

	count := 0
	for entry := range stream.All() {
		if h.maxEntries > 0 && count >= h.maxEntries {
			break
		}
		if err := enc.Encode(streamLine{Entry: &entry}); err != nil {
			slog.Debug("Stream client went away", "error", err)
			return
		}
		c.Writer.Flush()
		count++
	}

	if err := stream.Err(); err != nil {
		slog.Warn("Feed stream failed", "entries", count, "error", err)
		_ = enc.Encode(streamLine{Error: err.Error()})
		c.Writer.Flush()
	}
}

func (h *Handler) ParseOpml(c *gin.Context) {
	feeds, err := h.parser.ParseOpml(h.body(c))
	if err != nil {
		h.writeError(c, "parse_opml", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) GenerateOpml(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)

	var req generateOpmlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(c, "generate_opml", err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	opml, err := h.generator.Run(req.Subscriptions, req.Metadata)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscriptions", "details": err.Error()})
		return
	}

	c.Header("X-Opml-Outlines", strconv.Itoa(len(req.Subscriptions)))
	c.Data(http.StatusOK, "text/x-opml; charset=utf-8", []byte(opml))
}

func (h *Handler) body(c *gin.Context) io.Reader {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	return c.Request.Body
}

// formatHint resolves the format from ?format= first, then from the
// request Content-Type. An unrecognized explicit format is rejected.
func (h *Handler) formatHint(c *gin.Context) (feed.FeedType, bool) {
	if raw := strings.TrimSpace(c.Query("format")); raw != "" {
		hint := feed.ParseFeedType(raw)
		if hint == feed.FeedTypeUnknown {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported format", "format": raw})
			return hint, false
		}
		return hint, true
	}
	return feed.FeedTypeFromContentType(c.ContentType()), true
}

func (h *Handler) writeError(c *gin.Context, operation string, err error) {
	var maxErr *http.MaxBytesError

	switch {
	case errors.As(err, &maxErr):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large", "limit": maxErr.Limit})
	case errors.Is(err, feed.ErrUnknownFormat):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "Unknown feed format", "details": err.Error()})
	case errors.Is(err, feed.ErrMalformedDocument):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Malformed document", "details": err.Error()})
	case errors.Is(err, feed.ErrSyntax):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Syntax error", "details": err.Error()})
	default:
		slog.Error("Request failed", "operation", operation, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
