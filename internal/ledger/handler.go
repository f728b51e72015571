package ledger

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/concord/pkg/handlers"
	"github.com/JaimeStill/concord/pkg/pagination"
	"github.com/JaimeStill/concord/pkg/routes"
)

// XLSXContentType is the media type of ledger exports.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler provides HTTP endpoints for ledger operations.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// RegisterCommand is the body of a source registration.
type RegisterCommand struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind,omitempty"`
}

// WriteCommand is the body of a label write.
type WriteCommand struct {
	SentenceID int    `json:"sentence_id"`
	Source     string `json:"source"`
	Value      Value  `json:"value"`
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "ledger"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for ledger endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/ledger",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/sources", Handler: h.Sources},
			{Method: "POST", Pattern: "/sources", Handler: h.Register},
			{Method: "GET", Pattern: "/sources/{source}/labels", Handler: h.Labels},
			{Method: "GET", Pattern: "/sources/{source}/unlabeled", Handler: h.Unlabeled},
			{Method: "GET", Pattern: "/sources/{source}/failed", Handler: h.Failed},
			{Method: "PUT", Pattern: "/labels", Handler: h.Write},
			{Method: "GET", Pattern: "/export", Handler: h.Export},
		},
	}
}

// Sources lists registered sources in registration order.
func (h *Handler) Sources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.sys.Sources(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, sources)
}

// Register returns the source matching the requested name, creating it when needed.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var cmd RegisterCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	kind, err := ParseKind(string(cmd.Kind))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	src, err := h.sys.RegisterSource(r.Context(), cmd.Name, kind)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, src)
}

// Labels returns the current values of a source keyed by sentence id.
func (h *Handler) Labels(w http.ResponseWriter, r *http.Request) {
	labels, err := h.sys.Read(r.Context(), r.PathValue("source"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, labels)
}

// Unlabeled returns a page of sentence ids the source has never attempted.
func (h *Handler) Unlabeled(w http.ResponseWriter, r *http.Request) {
	ids, err := h.sys.Unlabeled(r.Context(), r.PathValue("source"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	handlers.RespondJSON(w, http.StatusOK, pagination.Slice(ids, page))
}

// Failed returns the sentence ids whose current value for the source is a failure.
func (h *Handler) Failed(w http.ResponseWriter, r *http.Request) {
	ids, err := h.sys.Failed(r.Context(), r.PathValue("source"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	if ids == nil {
		ids = []int{}
	}
	handlers.RespondJSON(w, http.StatusOK, ids)
}

// Write records a label, overwriting any previous value for the same cell.
func (h *Handler) Write(w http.ResponseWriter, r *http.Request) {
	var cmd WriteCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if err := h.sys.Write(r.Context(), cmd.SentenceID, cmd.Source, cmd.Value); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Export downloads the current snapshot as an xlsx workbook.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sys.Snapshot(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", XLSXContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="ledger.xlsx"`)
	if err := WriteWorkbook(w, snap); err != nil {
		h.logger.Error("ledger export failed", "error", err)
	}
}
