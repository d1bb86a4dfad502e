package apperrors

import (
	"encoding/json"
	"errors"
	"net/http"
)

// AppError pairs an ErrorCode with a human-readable message so it can travel
// through normal Go error handling and still render the right HTTP envelope
// at the edge.
type AppError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	cause   error
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, cause: cause}
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.cause }

func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

// As extracts an *AppError from err, falling back to a generic internal
// error when err carries no ErrorCode of its own.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return &AppError{Code: ErrCodeInternalError, Message: "internal error", cause: err}
}

// Envelope is the §6 response envelope every handler renders.
type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      *ErrorDetail `json:"error,omitempty"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type ErrorDetail struct {
	Code      ErrorCode              `json:"code"`
	Retryable bool                   `json:"retryable"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// WriteJSON renders a successful envelope.
func WriteJSON(w http.ResponseWriter, status int, message string, data interface{}, pagination *Pagination) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		Success:    true,
		Message:    message,
		Data:       data,
		Pagination: pagination,
	})
}

// WriteError renders the failure envelope for err, deriving HTTP status from
// its ErrorCode.
func WriteError(w http.ResponseWriter, err error) {
	ae := As(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ae.Code.HTTPStatus())
	_ = json.NewEncoder(w).Encode(Envelope{
		Success: false,
		Message: ae.Message,
		Error: &ErrorDetail{
			Code:      ae.Code,
			Retryable: ae.Code.IsRetryable(),
			Details:   ae.Details,
		},
	})
}
