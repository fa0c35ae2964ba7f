package pdfwrap

import (
	"errors"
	"strings"
)

// Sentinel errors returned by the library. The typed errors below unwrap
// to them, so callers can match with [errors.Is].
var (
	// ErrClosed is returned when attempting to use a closed [Browser].
	ErrClosed = errors.New("pdfwrap: browser is closed")

	// ErrParse reports markup the engine could not accept.
	ErrParse = errors.New("pdfwrap: malformed input")

	// ErrNotFound reports a missing or unreadable source file.
	ErrNotFound = errors.New("pdfwrap: file not found")

	// ErrRenderWarnings reports engine warnings promoted to a failure.
	ErrRenderWarnings = errors.New("pdfwrap: render produced warnings")

	// ErrUnsupportedOperation reports an operation the engine does not offer.
	ErrUnsupportedOperation = errors.New("pdfwrap: unsupported operation")

	// ErrEncryptionUnsupported reports a canvas that cannot encrypt output.
	ErrEncryptionUnsupported = errors.New("pdfwrap: encryption unsupported")

	// ErrNotRendered is returned by engines asked for page data before a
	// render pass completed.
	ErrNotRendered = errors.New("pdfwrap: document has not been rendered")
)

// ParseError is returned when source markup is rejected.
type ParseError struct {
	Encoding string
	Err      error
}

func (e *ParseError) Error() string {
	msg := "pdfwrap: cannot parse markup"
	if e.Encoding != "" {
		msg += " (encoding " + e.Encoding + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() []error { return wrapped(ErrParse, e.Err) }

// NotFoundError is returned when a source file is missing or unreadable.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	msg := "pdfwrap: cannot read " + e.Path
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NotFoundError) Unwrap() []error { return wrapped(ErrNotFound, e.Err) }

// RenderWarningError carries the warnings of a render pass when warning
// surfacing is enabled.
type RenderWarningError struct {
	Warnings []string
}

func (e *RenderWarningError) Error() string {
	return "pdfwrap: render warnings:\n" + e.Text()
}

// Text returns the warnings joined by newlines, each line terminated.
func (e *RenderWarningError) Text() string {
	var b strings.Builder
	for _, w := range e.Warnings {
		b.WriteString(w)
		b.WriteByte('\n')
	}
	return b.String()
}

func (e *RenderWarningError) Unwrap() error { return ErrRenderWarnings }

// UnsupportedOperationError names an operation the engine cannot perform.
type UnsupportedOperationError struct {
	Op string
}

func (e *UnsupportedOperationError) Error() string {
	return "pdfwrap: operation " + e.Op + " is not supported by the engine"
}

func (e *UnsupportedOperationError) Unwrap() error { return ErrUnsupportedOperation }

// EncryptionUnsupportedError is returned when encryption is requested on
// a canvas that cannot encrypt.
type EncryptionUnsupportedError struct {
	Canvas string
}

func (e *EncryptionUnsupportedError) Error() string {
	return "pdfwrap: encryption is not supported by canvas " + e.Canvas
}

func (e *EncryptionUnsupportedError) Unwrap() error { return ErrEncryptionUnsupported }

func wrapped(sentinel, cause error) []error {
	if cause == nil {
		return []error{sentinel}
	}
	return []error{sentinel, cause}
}
