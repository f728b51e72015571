package session

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/concord/internal/ledger"
	"github.com/JaimeStill/concord/pkg/handlers"
	"github.com/JaimeStill/concord/pkg/routes"
)

// Handler provides HTTP endpoints for labeling sessions.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// StartCommand opens a session for an annotator.
type StartCommand struct {
	Annotator string `json:"annotator"`
}

// SubmitCommand labels the current sentence.
type SubmitCommand struct {
	Value ledger.Value `json:"value"`
}

func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "session"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/sessions",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "POST", Pattern: "", Handler: h.Start},
			{Method: "GET", Pattern: "/{id}", Handler: h.Current},
			{Method: "POST", Pattern: "/{id}/submit", Handler: h.Submit},
			{Method: "POST", Pattern: "/{id}/back", Handler: h.Back},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.End},
		},
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.sys.List(r.Context()))
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var cmd StartCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	v, err := h.sys.Start(r.Context(), cmd.Annotator)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, v)
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(id uuid.UUID) (*View, error) {
		return h.sys.Current(r.Context(), id)
	})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var cmd SubmitCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	h.respond(w, r, func(id uuid.UUID) (*View, error) {
		return h.sys.Submit(r.Context(), id, cmd.Value)
	})
}

func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(id uuid.UUID) (*View, error) {
		return h.sys.Back(r.Context(), id)
	})
}

func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(id uuid.UUID) (*View, error) {
		return h.sys.End(r.Context(), id)
	})
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, op func(uuid.UUID) (*View, error)) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	v, err := op(id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, v)
}
