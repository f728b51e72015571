package corpus

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidID     = errors.New("record id must be positive")
	ErrDuplicateID   = errors.New("duplicate record id")
	ErrInvalidCSV    = errors.New("invalid sample csv")
	ErrInvalidPolicy = errors.New("unknown duplicate policy")
	ErrEmpty         = errors.New("corpus is empty")
)

// MapHTTPStatus maps corpus errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrDuplicateID),
		errors.Is(err, ErrInvalidCSV),
		errors.Is(err, ErrInvalidPolicy),
		errors.Is(err, ErrEmpty):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
