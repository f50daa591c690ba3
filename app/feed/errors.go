package feed

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownFormat is returned when the input could not be classified
	// and no explicit format was supplied.
	ErrUnknownFormat = errors.New("unable to detect feed format")

	// ErrMalformedDocument is returned when the input matches a format but
	// misses that format's minimal structure (e.g. JSON Feed without version).
	ErrMalformedDocument = errors.New("malformed document")

	// ErrSyntax is returned when the markup or JSON cannot be tokenized.
	ErrSyntax = errors.New("syntax error")
)

// ParseError carries the error kind (one of the sentinels above), the format
// being parsed and, for syntax errors, the underlying decoder error.
type ParseError struct {
	Kind   error
	Format string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := e.Kind.Error()
	if e.Format != "" {
		msg = e.Format + ": " + msg
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func malformed(format, reason string, args ...any) error {
	return &ParseError{Kind: ErrMalformedDocument, Format: format, Reason: fmt.Sprintf(reason, args...)}
}

func syntaxError(format string, err error) error {
	return &ParseError{Kind: ErrSyntax, Format: format, Err: err}
}
