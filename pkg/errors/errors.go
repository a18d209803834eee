// Package errors defines the typed error taxonomy shared by the signal and
// relationship engines. Callers branch on these kinds, so collaborator
// failures must never be collapsed into them.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

type Kind string

const (
	// KindNotAuthorized means the caller has no approved relationship to the
	// subject. Raised before any data is computed, never partially.
	KindNotAuthorized Kind = "not_authorized"
	// KindDuplicateLink means a link or pending request already exists
	// between the two parties.
	KindDuplicateLink Kind = "duplicate_link"
	// KindInvalidWindow means the requested date range is malformed or inverted.
	KindInvalidWindow Kind = "invalid_window"
	// KindNotFound means the referenced record does not exist or is not
	// visible to the caller.
	KindNotFound Kind = "not_found"
	// KindUpstreamUnavailable wraps any unexpected collaborator failure.
	// It must surface as an error rather than default to empty data.
	KindUpstreamUnavailable Kind = "upstream_unavailable"
)

type DomainError struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches two DomainErrors by kind so callers can use errors.Is with the
// exported sentinels below.
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	if errors.As(target, &de) {
		return e.Kind == de.Kind
	}
	return false
}

var (
	ErrNotAuthorized       = &DomainError{Kind: KindNotAuthorized, Message: "caller is not linked to the subject"}
	ErrDuplicateLink       = &DomainError{Kind: KindDuplicateLink, Message: "a link or pending request already exists"}
	ErrInvalidWindow       = &DomainError{Kind: KindInvalidWindow, Message: "invalid date window"}
	ErrNotFound            = &DomainError{Kind: KindNotFound, Message: "record not found"}
	ErrUpstreamUnavailable = &DomainError{Kind: KindUpstreamUnavailable, Message: "upstream store unavailable"}
)

func NotAuthorized(format string, args ...any) *DomainError {
	return &DomainError{Kind: KindNotAuthorized, Message: fmt.Sprintf(format, args...)}
}

func DuplicateLink(format string, args ...any) *DomainError {
	return &DomainError{Kind: KindDuplicateLink, Message: fmt.Sprintf(format, args...)}
}

func InvalidWindow(format string, args ...any) *DomainError {
	return &DomainError{Kind: KindInvalidWindow, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *DomainError {
	return &DomainError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Upstream wraps an unexpected collaborator failure.
func Upstream(err error, format string, args ...any) *DomainError {
	return &DomainError{Kind: KindUpstreamUnavailable, Message: fmt.Sprintf(format, args...), cause: err}
}

// ToHTTPError maps a domain error to the HTTP boundary.
func ToHTTPError(err error) *httperror.HTTPError {
	var de *DomainError
	if !errors.As(err, &de) {
		return httperror.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
	}

	status := http.StatusInternalServerError
	switch de.Kind {
	case KindNotAuthorized:
		status = http.StatusForbidden
	case KindDuplicateLink:
		status = http.StatusConflict
	case KindInvalidWindow:
		status = http.StatusBadRequest
	case KindNotFound:
		status = http.StatusNotFound
	case KindUpstreamUnavailable:
		status = http.StatusServiceUnavailable
	}

	return httperror.NewHTTPError(status, de.Message).AddMetaValue("kind", string(de.Kind))
}
