package agreement

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/JaimeStill/concord/internal/ledger"
	"github.com/JaimeStill/concord/internal/taxonomy"
	"github.com/JaimeStill/concord/pkg/handlers"
	"github.com/JaimeStill/concord/pkg/routes"
)

// Snapshotter provides consistent ledger reads.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*ledger.Snapshot, error)
}

// Handler provides HTTP endpoints for agreement reports.
type Handler struct {
	ledger Snapshotter
	tax    *taxonomy.Taxonomy
	logger *slog.Logger
}

// NewHandler creates a Handler reading snapshots from l. When tax is set,
// per-class results always list every class of the taxonomy.
func NewHandler(l Snapshotter, tax *taxonomy.Taxonomy, logger *slog.Logger) *Handler {
	return &Handler{
		ledger: l,
		tax:    tax,
		logger: logger.With("handler", "agreement"),
	}
}

// Routes returns the route group definition for agreement endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/agreement",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.Compare},
			{Method: "GET", Pattern: "/confusion", Handler: h.Confusion},
			{Method: "GET", Pattern: "/pairwise", Handler: h.Pairwise},
			{Method: "GET", Pattern: "/multiway", Handler: h.MultiWay},
		},
	}
}

// OptionsFromQuery reads ids, confidence, one_sided, and count_failures.
func OptionsFromQuery(values url.Values, tax *taxonomy.Taxonomy) (Options, error) {
	var opts Options

	ids, err := handlers.QueryInts(values, "ids")
	if err != nil {
		return opts, fmt.Errorf("invalid ids: %w", err)
	}
	opts.Restrict = ids

	confidence := DefaultConfidence
	if c := values.Get("confidence"); c != "" {
		confidence, err = strconv.ParseFloat(c, 64)
		if err != nil {
			return opts, fmt.Errorf("%w: %q", ErrInvalidConfidence, c)
		}
	}
	oneSided, _ := strconv.ParseBool(values.Get("one_sided"))
	if opts.Z, err = ZScore(confidence, oneSided); err != nil {
		return opts, err
	}

	opts.CountFailures, _ = strconv.ParseBool(values.Get("count_failures"))

	if tax != nil {
		for _, c := range tax.Codes() {
			opts.Classes = append(opts.Classes, ledger.Value(c))
		}
	}
	return opts, nil
}

func (h *Handler) prepare(w http.ResponseWriter, r *http.Request) (*ledger.Snapshot, Options, bool) {
	opts, err := OptionsFromQuery(r.URL.Query(), h.tax)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return nil, opts, false
	}

	snap, err := h.ledger.Snapshot(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return nil, opts, false
	}
	return snap, opts, true
}

// Compare reports agreement of pred against ref.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	snap, opts, ok := h.prepare(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	res, err := CompareSources(snap, q.Get("ref"), q.Get("pred"), opts)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, res)
}

// Confusion reports the confusion matrix of pred against ref.
func (h *Handler) Confusion(w http.ResponseWriter, r *http.Request) {
	snap, opts, ok := h.prepare(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	m, err := ConfusionSources(snap, q.Get("ref"), q.Get("pred"), opts)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, m)
}

// Pairwise reports agreement for every ordered pair of the listed sources.
func (h *Handler) Pairwise(w http.ResponseWriter, r *http.Request) {
	snap, opts, ok := h.prepare(w, r)
	if !ok {
		return
	}

	pairs, err := Pairwise(snap, handlers.QueryList(r.URL.Query(), "sources"), opts)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, pairs)
}

// MultiWay reports consensus across the listed sources.
func (h *Handler) MultiWay(w http.ResponseWriter, r *http.Request) {
	snap, opts, ok := h.prepare(w, r)
	if !ok {
		return
	}

	res, err := MultiWay(snap, handlers.QueryList(r.URL.Query(), "sources"), opts)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, res)
}
