package models

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreNotFound is returned when a query or delete names an unknown store id.
	ErrStoreNotFound = errors.New("store not found")

	// ErrEmptyCorpus is returned when no input file yielded any extractable text.
	ErrEmptyCorpus = errors.New("no extractable text in any input file")

	// ErrEmbeddingUnavailable is returned by the preflight check when the
	// embedding backend cannot be reached; nothing has been written yet.
	ErrEmbeddingUnavailable = errors.New("embedding backend unreachable")
)

// ValidationError reports missing or invalid request input. Nothing is
// written when it is returned.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Msg
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// UnsupportedFormatError names an input file that is not a readable document.
type UnsupportedFormatError struct {
	File string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format %q for file %s", e.Ext, e.File)
}

// ExtractionError reports a document that could not be decoded at all.
type ExtractionError struct {
	File string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from %s: %v", e.File, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// IndexWriteError reports a failed batch upsert; the caller rolls back the
// partially written collection before surfacing it.
type IndexWriteError struct {
	Batch int
	Err   error
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("failed to write batch %d to vector index: %v", e.Batch, e.Err)
}

func (e *IndexWriteError) Unwrap() error { return e.Err }
