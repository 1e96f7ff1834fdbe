// Package apperr holds the error model shared by services, the AI gateway and
// the HTTP layer. Every failure a caller can observe resolves to one Kind.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindAuthentication
	KindUpstream
	KindUpstreamUnavailable
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindAuthentication:
		return "authentication_error"
	case KindUpstream:
		return "upstream_error"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindConfiguration:
		return "configuration_error"
	default:
		return "unknown_error"
	}
}

// Error is a classified failure. Message is safe to show to end users;
// Err keeps the underlying cause for logs only.
type Error struct {
	Kind    Kind
	Status  int // upstream HTTP status, set for KindUpstream
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Authentication(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

func Configuration(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

// Upstream records a non-success response from the AI service.
func Upstream(status int, message string) *Error {
	return &Error{Kind: KindUpstream, Status: status, Message: message}
}

func UpstreamUnavailable(message string, err error) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Message: message, Err: err}
}

func Unknown(message string, err error) *Error {
	return &Error{Kind: KindUnknown, Message: message, Err: err}
}

// KindOf returns the Kind of err, or KindUnknown for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps err onto the status code returned to API callers.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case KindUpstream:
		if e.Status >= 400 && e.Status <= 599 {
			return e.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns a message that never carries internal details.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal server error"
	}
	switch e.Kind {
	case KindUnknown, KindConfiguration:
		return "internal server error"
	}
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}
