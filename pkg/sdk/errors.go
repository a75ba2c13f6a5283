package fedsearch

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors matched by APIError via errors.Is.
var (
	ErrNotFound         = errors.New("fedsearch: not found")
	ErrInvalidRequest   = errors.New("fedsearch: invalid request")
	ErrUploadInProgress = errors.New("fedsearch: upload in progress")
	ErrFileTooLarge     = errors.New("fedsearch: file too large")
	ErrUnauthorized     = errors.New("fedsearch: unauthorized")
	ErrUpstream         = errors.New("fedsearch: upstream unavailable")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("fedsearch: http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("fedsearch: %s (http %d): %s", e.Code, e.StatusCode, e.Message)
}

// Is maps the response code and status onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrInvalidRequest:
		return e.StatusCode == http.StatusBadRequest
	case ErrUploadInProgress:
		return e.Code == "upload_in_progress"
	case ErrFileTooLarge:
		// the server answers 400 file_too_large; a proxy in front may send 413
		return e.Code == "file_too_large" || e.StatusCode == http.StatusRequestEntityTooLarge
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrUpstream:
		return e.StatusCode == http.StatusBadGateway
	}
	return false
}
