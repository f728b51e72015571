package classifications

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/concord/internal/classifier"
	"github.com/JaimeStill/concord/internal/ledger"
	"github.com/JaimeStill/concord/internal/workflow"
)

// Domain errors for classification runs.
var (
	ErrNotFound = errors.New("run not found")
	ErrBusy     = errors.New("a classification run is already in progress")
)

// MapHTTPStatus maps run and workflow errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBusy):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrNoModels),
		errors.Is(err, workflow.ErrInvalidMode),
		errors.Is(err, workflow.ErrUnknownID),
		errors.Is(err, classifier.ErrEmptyModel):
		return http.StatusBadRequest
	}
	return ledger.MapHTTPStatus(err)
}
