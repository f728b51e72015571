package agreement

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/concord/internal/ledger"
)

var (
	ErrInsufficientData  = errors.New("no sentences labeled by both sources")
	ErrInvalidCount      = errors.New("successes must be between 0 and trials")
	ErrInvalidConfidence = errors.New("confidence must be strictly between 0 and 1")
	ErrTooFewSources     = errors.New("at least two sources are required")
)

// MapHTTPStatus maps agreement errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidCount),
		errors.Is(err, ErrInvalidConfidence),
		errors.Is(err, ErrTooFewSources):
		return http.StatusBadRequest
	}
	return ledger.MapHTTPStatus(err)
}
