package web

import (
	"net/http"

	"profitscope/internal/app"

	"github.com/go-chi/chi/v5"
)

// Handler holds the ReportService and the chi router.
type Handler struct {
	svc        app.ReportService
	defaultOrg string
	router     chi.Router
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ReportService, allowedOrigins, defaultOrg string) http.Handler {
	h := &Handler{
		svc:        svc,
		defaultOrg: defaultOrg,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	r.Route("/api/reports", func(r chi.Router) {
		r.Get("/overview", h.overview)
		r.Get("/orders", h.orders)
		r.Get("/pnl", h.pnl)
		r.Get("/platforms", h.platforms)
		r.Get("/channels", h.channels)
	})

	h.router = r
	return r
}

// health returns service status and the default organization scope.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status       string `json:"status"`
		Organization string `json:"organization"`
	}

	writeJSON(w, response{Status: "ok", Organization: h.defaultOrg})
}
