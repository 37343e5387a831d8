package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels classify failures across the repository, service and handler
// layers. Every AppError built here wraps exactly one of them.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

// Codes sent to clients in the error envelope.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidInput = "INVALID_INPUT"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

type kind struct {
	sentinel error
	code     string
	status   int
}

var kinds = [...]kind{
	{ErrNotFound, CodeNotFound, http.StatusNotFound},
	{ErrInvalidInput, CodeInvalidInput, http.StatusBadRequest},
	{ErrConflict, CodeConflict, http.StatusConflict},
}

// AppError is a client-facing error: Message is safe to return verbatim.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func newAppError(k kind, message string) *AppError {
	return &AppError{Code: k.code, Message: message, Status: k.status, Err: k.sentinel}
}

// NotFound reports a missing resource, e.g. NotFound("product", 42).
func NotFound(resource string, id any) *AppError {
	return newAppError(kinds[0], fmt.Sprintf("%s with id %v not found", resource, id))
}

func InvalidInput(message string) *AppError {
	return newAppError(kinds[1], message)
}

func Conflict(message string) *AppError {
	return newAppError(kinds[2], message)
}

// Classify returns the client code and HTTP status for err. An AppError
// anywhere in the chain wins over a bare sentinel; anything unrecognised is
// an internal error.
func Classify(err error) (code string, status int) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, appErr.Status
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.code, k.status
		}
	}
	return CodeInternal, http.StatusInternalServerError
}

// HTTPStatus returns the HTTP status code for err.
func HTTPStatus(err error) int {
	_, status := Classify(err)
	return status
}
