package session

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/concord/internal/ledger"
)

var (
	ErrNotFound   = errors.New("session not found")
	ErrComplete   = errors.New("no sentences left in session")
	ErrNoPrevious = errors.New("already at the first sentence")
	ErrNotHuman   = errors.New("source is not a human annotator")
)

// MapHTTPStatus maps session errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrComplete), errors.Is(err, ErrNoPrevious):
		return http.StatusConflict
	case errors.Is(err, ErrNotHuman):
		return http.StatusBadRequest
	}
	return ledger.MapHTTPStatus(err)
}
