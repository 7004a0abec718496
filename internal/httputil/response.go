package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DonyChristie/crux/internal/gate"
	"github.com/DonyChristie/crux/internal/model"
)

// Error codes carried in the response body alongside the HTTP status
const (
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeCooldownActive = "COOLDOWN_ACTIVE"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// ErrorResponse is the standard error envelope
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and message
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers already sent; nothing left to salvage
			return
		}
	}
}

// WriteError writes an error response:
// {"error": {"code": "ERROR_CODE", "message": "Human readable message"}}
func WriteError(w http.ResponseWriter, status int, code string, message string) {
	WriteJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request error
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// WriteUnauthorized writes a 401 Unauthorized error
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// WriteForbidden writes a 403 Forbidden error
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// WriteNotFound writes a 404 Not Found error
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// WriteInternalError writes a 500 Internal Server Error
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// WriteEngineError maps an engine error onto the right status and code.
// Validation failures are 400, missing identity 401, ownership 403,
// missing content 404, the posting cooldown 429.
func WriteEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrContentRequired),
		errors.Is(err, model.ErrContentTooLong),
		errors.Is(err, model.ErrTitleTooLong),
		errors.Is(err, model.ErrRatingOutOfRange),
		errors.Is(err, model.ErrNothingToSave):
		WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrSignInRequired),
		errors.Is(err, model.ErrInvalidCredentials):
		WriteUnauthorized(w, err.Error())
	case errors.Is(err, model.ErrNotOwner):
		WriteForbidden(w, err.Error())
	case errors.Is(err, model.ErrPostNotFound),
		errors.Is(err, model.ErrCommentNotFound),
		errors.Is(err, model.ErrDraftNotFound):
		WriteNotFound(w, err.Error())
	case errors.Is(err, gate.ErrCooldownActive):
		WriteError(w, http.StatusTooManyRequests, ErrCodeCooldownActive, err.Error())
	default:
		WriteInternalError(w, err.Error())
	}
}
