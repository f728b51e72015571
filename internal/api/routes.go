package api

import (
	"net/http"

	"github.com/JaimeStill/concord/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain) {
	routes.Register(
		mux,
		domain.Corpus.routes(),
		domain.Ledger.Handler().Routes(),
		domain.Sessions.Handler().Routes(),
		domain.Classifications.Handler().Routes(),
		domain.Agreement.Routes(),
		domain.Discrepancies.Routes(),
		domain.Exports.routes(),
	)
}
