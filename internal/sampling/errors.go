package sampling

import (
	"errors"
	"net/http"
)

var (
	ErrOutOfRange    = errors.New("requested subset sizes exceed corpus")
	ErrDuplicateName = errors.New("duplicate subset name")
	ErrEmptyName     = errors.New("subset name is required")
	ErrUnknownSubset = errors.New("unknown subset")
)

// MapHTTPStatus maps sampling errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnknownSubset):
		return http.StatusNotFound
	case errors.Is(err, ErrOutOfRange),
		errors.Is(err, ErrDuplicateName),
		errors.Is(err, ErrEmptyName):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
