package chi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/fedsearch/internal/domain"
	"github.com/kailas-cloud/fedsearch/internal/logger"
)

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest            ErrorCode = "bad_request"
	CodeValidationFailed      ErrorCode = "validation_failed"
	CodeUnauthorized          ErrorCode = "unauthorized"
	CodeNotFound              ErrorCode = "not_found"
	CodeAlreadyExists         ErrorCode = "already_exists"
	CodeUpstreamError         ErrorCode = "upstream_error"
	CodeInternalError         ErrorCode = "internal_error"
	CodeInvalidCollectionName ErrorCode = "invalid_collection_name"
	CodeFileRequired          ErrorCode = "file_required"
	CodeUnsupportedFileType   ErrorCode = "unsupported_file_type"
	CodeFileTooLarge          ErrorCode = "file_too_large"
	CodeInvalidOptions        ErrorCode = "invalid_options"
	CodeCollectionNotFound    ErrorCode = "collection_not_found"
	CodeUploadInProgress      ErrorCode = "upload_in_progress"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

// upstreamHandler hides driver details behind the failing target name.
func upstreamHandler(w http.ResponseWriter, err error) bool {
	var ue *domain.UpstreamError
	if !errors.As(err, &ue) {
		return false
	}
	writeError(w, http.StatusBadGateway, CodeUpstreamError, ue.Target+" unavailable")
	return true
}

// defaultErrorHandlers serve the admin routes.
func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists),
		sentinelHandler(domain.ErrInvalidSchema, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeValidationFailed),
		upstreamHandler,
	}
}

// uploadErrorHandlers give upload rejections their distinguishable codes.
func uploadErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeCollectionNotFound),
		sentinelHandler(domain.ErrJobInProgress, http.StatusConflict, CodeUploadInProgress),
		sentinelHandler(domain.ErrFileTooLarge, http.StatusBadRequest, CodeFileTooLarge),
		sentinelHandler(domain.ErrUnsupportedFile, http.StatusBadRequest, CodeUnsupportedFileType),
		sentinelHandler(domain.ErrFileRequired, http.StatusBadRequest, CodeFileRequired),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeInvalidOptions),
		upstreamHandler,
	}
}

func handleError(w http.ResponseWriter, r *http.Request, handlers []errorHandler, err error) {
	for _, h := range handlers {
		if h(w, err) {
			return
		}
	}
	logger.FromContext(r.Context()).Error("Unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
