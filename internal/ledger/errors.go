package ledger

import (
	"errors"
	"net/http"
)

// Domain errors for ledger operations.
var (
	ErrUnknownSource   = errors.New("unknown label source")
	ErrUnknownSentence = errors.New("unknown sentence")
	ErrInvalidValue    = errors.New("invalid label value")
	ErrReservedName    = errors.New("source name is reserved")
	ErrEmptyName       = errors.New("source name is required")
	ErrInvalidKind     = errors.New("invalid source kind")
	ErrInvalidMatch    = errors.New("invalid source match mode")
	ErrInvalidSheet    = errors.New("invalid ledger sheet")
)

// MapHTTPStatus maps ledger domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnknownSource), errors.Is(err, ErrUnknownSentence):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidValue),
		errors.Is(err, ErrReservedName),
		errors.Is(err, ErrEmptyName),
		errors.Is(err, ErrInvalidKind),
		errors.Is(err, ErrInvalidSheet):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// domainError reports whether err is a caller error that retrying cannot fix.
func domainError(err error) bool {
	return errors.Is(err, ErrUnknownSource) ||
		errors.Is(err, ErrUnknownSentence) ||
		errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrReservedName) ||
		errors.Is(err, ErrEmptyName) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrInvalidSheet)
}
