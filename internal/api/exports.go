package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"

	"github.com/JaimeStill/concord/pkg/handlers"
	"github.com/JaimeStill/concord/pkg/routes"
	"github.com/JaimeStill/concord/pkg/storage"
)

type exportsHandler struct {
	store  storage.System
	logger *slog.Logger
}

func newExportsHandler(store storage.System, logger *slog.Logger) *exportsHandler {
	return &exportsHandler{
		store:  store,
		logger: logger.With("handler", "exports"),
	}
}

func (h *exportsHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/exports",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{key...}", Handler: h.download},
			{Method: "DELETE", Pattern: "/{key...}", Handler: h.remove},
		},
	}
}

func (h *exportsHandler) download(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		handlers.RespondError(w, h.logger, http.StatusServiceUnavailable, storage.ErrDisabled)
		return
	}

	key := r.PathValue("key")

	body, err := h.store.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			storage.MapHTTPStatus(err), err,
		)
		return
	}
	defer body.Close()

	contentType := "application/octet-stream"
	if path.Ext(key) == ".csv" {
		contentType = "text/csv"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body)
}

func (h *exportsHandler) remove(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		handlers.RespondError(w, h.logger, http.StatusServiceUnavailable, storage.ErrDisabled)
		return
	}

	if err := h.store.Delete(r.Context(), r.PathValue("key")); err != nil {
		handlers.RespondError(
			w, h.logger,
			storage.MapHTTPStatus(err), err,
		)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
