package discrepancy

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/concord/internal/ledger"
	"github.com/JaimeStill/concord/pkg/handlers"
	"github.com/JaimeStill/concord/pkg/routes"
)

// Snapshotter provides consistent ledger reads.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*ledger.Snapshot, error)
}

// Handler serves discrepancy reports.
type Handler struct {
	ledger Snapshotter
	logger *slog.Logger
}

func NewHandler(l Snapshotter, logger *slog.Logger) *Handler {
	return &Handler{ledger: l, logger: logger.With("handler", "discrepancies")}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/discrepancies",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.Report},
		},
	}
}

// Report writes the plain-text report for ?sources=a,b&ids=1,2.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ids, err := handlers.QueryInts(q, "ids")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	snap, err := h.ledger.Snapshot(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, ledger.MapHTTPStatus(err), err)
		return
	}

	sources, err := Resolve(snap, handlers.QueryList(q, "sources"))
	if err != nil {
		handlers.RespondError(w, h.logger, ledger.MapHTTPStatus(err), err)
		return
	}
	if len(sources) < 2 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrTooFewSources)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	n, err := Write(w, Find(snap, sources, ids))
	if err != nil {
		h.logger.Error("discrepancy report failed", "error", err)
		return
	}
	h.logger.Debug("discrepancy report written", "sources", sources, "count", n)
}
