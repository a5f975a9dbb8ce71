// Package apierror provides standardized error response structures for the API
// and the domain error taxonomy used across services. All errors returned to
// clients go through this package to ensure consistency and to prevent leaking
// internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"net/http"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

// ─── Domain error taxonomy ───────────────────────────────────────────────────

// Kind classifies a domain error so handlers can map it to an HTTP status
// without inspecting message strings.
type Kind int

const (
	// KindValidacion — malformed or missing required input. Never retried.
	KindValidacion Kind = iota + 1
	// KindConflicto — business-rule violation (e.g. a second open session).
	KindConflicto
	// KindNoEncontrado — the target record does not exist or is not open.
	KindNoEncontrado
	// KindAutorizacion — the caller does not own the target record.
	// Surfaced as a generic denial; no detail about the other record leaks.
	KindAutorizacion
	// KindPersistencia — storage failure. Full detail is logged server-side;
	// the client only sees an opaque internal error.
	KindPersistencia
)

// Error is a domain error carrying its taxonomy kind.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

func Validacion(detail string) *Error {
	return &Error{Kind: KindValidacion, Detail: detail}
}

func Conflicto(detail string) *Error {
	return &Error{Kind: KindConflicto, Detail: detail}
}

func NoEncontrado(detail string) *Error {
	return &Error{Kind: KindNoEncontrado, Detail: detail}
}

func Autorizacion() *Error {
	return &Error{Kind: KindAutorizacion, Detail: "Operación no permitida"}
}

func Persistencia(err error) *Error {
	return &Error{Kind: KindPersistencia, Detail: "Error interno del servidor", Err: err}
}

// IsKind reports whether err (or anything it wraps) is a domain error of kind k.
func IsKind(err error, k Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == k
}

// Status maps a domain error to its HTTP status code.
// Unclassified errors map to 500 so nothing internal leaks by accident.
func Status(err error) int {
	var de *Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError
	}
	switch de.Kind {
	case KindValidacion:
		return http.StatusBadRequest
	case KindConflicto:
		return http.StatusConflict
	case KindNoEncontrado:
		return http.StatusNotFound
	case KindAutorizacion:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
