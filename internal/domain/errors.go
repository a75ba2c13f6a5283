package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest signals bad or missing request parameters.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidSchema signals an invalid collection definition.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrUpstream signals a failed call to the search engine or document store.
	ErrUpstream = errors.New("upstream failure")

	// ErrJobInProgress signals an unfinished ingestion job for the same collection.
	ErrJobInProgress = errors.New("ingestion already in progress")
	// ErrFileRequired signals a multipart upload without the file part.
	ErrFileRequired = errors.New("file is required")
	// ErrUnsupportedFile signals a file whose extension or MIME type does not match the endpoint.
	ErrUnsupportedFile = errors.New("unsupported file type")
	// ErrFileTooLarge signals an upload over the size limit.
	ErrFileTooLarge = errors.New("file too large")
)

// UpstreamError names the collaborator that failed.
type UpstreamError struct {
	Target string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrUpstream.Error(), e.Target, e.Err)
}

// Is reports ErrUpstream so callers can match on the sentinel.
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

func (e *UpstreamError) Unwrap() error { return e.Err }

// NewUpstreamError wraps err as a failure of target.
func NewUpstreamError(target string, err error) error {
	return &UpstreamError{Target: target, Err: err}
}
