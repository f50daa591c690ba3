package logger

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// New builds a slog logger writing JSON (or text) records with UTC
// timestamps truncated to the second.
func New(w io.Writer, format string, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}

	var base slog.Handler
	if format == "text" {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}

	return slog.New(&utcHandler{handler: base})
}

// Setup installs the logger as the process default.
func Setup(w io.Writer, format string, debug bool) *slog.Logger {
	l := New(w, format, debug)
	slog.SetDefault(l)
	return l
}

type utcHandler struct {
	handler slog.Handler
}

func (h *utcHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *utcHandler) Handle(ctx context.Context, r slog.Record) error {
	r.Time = r.Time.UTC().Truncate(time.Second)
	return h.handler.Handle(ctx, r)
}

func (h *utcHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &utcHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *utcHandler) WithGroup(name string) slog.Handler {
	return &utcHandler{handler: h.handler.WithGroup(name)}
}
