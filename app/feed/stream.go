package feed

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"runtime"
	"sync"
)

const defaultQueueSize = 16

// sink receives what a parser recognizes: the frozen metadata exactly once,
// then items in document order. Parsers call ready before the first emit.
type sink[M, T any] struct {
	onReady func(M)
	onItem  func(T) error
	isReady bool
}

func (s *sink[M, T]) ready(meta M) {
	if s.isReady {
		return
	}
	s.isReady = true
	s.onReady(meta)
}

func (s *sink[M, T]) emit(item T) error {
	return s.onItem(item)
}

// collect runs a parser synchronously and materializes everything it emits.
func collect[M, T any](run func(*sink[M, T]) error) (M, []T, error) {
	var (
		meta  M
		items = []T{}
	)

	out := &sink[M, T]{
		onReady: func(m M) { meta = m },
		onItem: func(item T) error {
			items = append(items, item)
			return nil
		},
	}

	if err := run(out); err != nil {
		var zero M
		return zero, nil, err
	}
	return meta, items, nil
}

// pipe is the state shared between the producer goroutine and a Stream.
type pipe[T any] struct {
	items    chan T
	finished chan struct{}
	err      error

	cancel    context.CancelFunc
	source    io.Reader
	closeOnce sync.Once
}

func (p *pipe[T]) stop() {
	p.closeOnce.Do(func() {
		p.cancel()
		if closer, ok := p.source.(io.Closer); ok {
			_ = closer.Close()
		}
	})
}

// Stream is a lazy, single pass sequence of parsed items. The producer runs
// in its own goroutine and is released by Close, by cancelling the context
// the stream was created with, or once the Stream becomes unreachable.
type Stream[T any] struct {
	p *pipe[T]
}

func newStream[T any](p *pipe[T]) *Stream[T] {
	s := &Stream[T]{p: p}
	runtime.AddCleanup(s, func(p *pipe[T]) { p.stop() }, p)
	return s
}

// Next blocks until the next item is available. It returns false once the
// sequence is exhausted, failed or was closed; check Err afterwards.
func (s *Stream[T]) Next() (T, bool) {
	item, ok := <-s.p.items
	return item, ok
}

// Err returns the error that ended the sequence, if any. It is only
// meaningful after Next returned false.
func (s *Stream[T]) Err() error {
	select {
	case <-s.p.finished:
		return s.p.err
	default:
		return nil
	}
}

// Close abandons the sequence and releases the producer. If the source
// passed to the parser is an io.Closer it is closed as well.
func (s *Stream[T]) Close() error {
	s.p.stop()
	return nil
}

// All ranges over the remaining items. Breaking out of the loop closes the
// stream.
func (s *Stream[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			item, ok := s.Next()
			if !ok {
				return
			}
			if !yield(item) {
				s.Close()
				return
			}
		}
	}
}

// FeedStream pairs the frozen feed metadata with the lazy entry sequence.
type FeedStream struct {
	Feed ParsedFeed
	*Stream[ParsedEntry]
}

// OpmlStream is the lazy sequence of feeds found in an OPML document.
type OpmlStream struct {
	*Stream[OpmlFeed]
}

// startPipe launches run in a producer goroutine and waits until the
// metadata is ready, the producer failed, or ctx is done.
func startPipe[M, T any](ctx context.Context, source io.Reader, queueSize int,
	run func(*sink[M, T]) error) (M, *Stream[T], error) {
	var zero M

	parent := ctx
	ctx, cancel := context.WithCancel(parent)
	p := &pipe[T]{
		items:    make(chan T, queueSize),
		finished: make(chan struct{}),
		cancel:   cancel,
		source:   source,
	}
	metaCh := make(chan M, 1)

	go func() {
		out := &sink[M, T]{
			onReady: func(m M) { metaCh <- m },
			onItem: func(item T) error {
				select {
				case p.items <- item:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			},
		}

		err := run(out)
		if err != nil && ctx.Err() != nil {
			slog.Debug("Stream producer stopped", "reason", ctx.Err())
			err = nil
		}
		p.err = err
		close(p.finished)
		close(p.items)
	}()

	select {
	case meta := <-metaCh:
		return meta, newStream(p), nil
	case <-p.finished:
		select {
		case meta := <-metaCh:
			return meta, newStream(p), nil
		default:
		}
		p.stop()
		if p.err != nil {
			return zero, nil, p.err
		}
		if err := parent.Err(); err != nil {
			return zero, nil, err
		}
		return zero, nil, errors.New("parser finished without producing metadata")
	case <-parent.Done():
		p.stop()
		return zero, nil, parent.Err()
	}
}
