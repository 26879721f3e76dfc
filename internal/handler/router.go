package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nsxzhou/haggle/backend/internal/handler/insight"
	"github.com/nsxzhou/haggle/backend/internal/handler/live"
	negotiationHandler "github.com/nsxzhou/haggle/backend/internal/handler/negotiation"
	personaHandler "github.com/nsxzhou/haggle/backend/internal/handler/persona"
	reportHandler "github.com/nsxzhou/haggle/backend/internal/handler/report"
	middlewarePkg "github.com/nsxzhou/haggle/backend/internal/middleware"
	personaModel "github.com/nsxzhou/haggle/backend/internal/model/persona"
	insightService "github.com/nsxzhou/haggle/backend/internal/service/insight"
	turns "github.com/nsxzhou/haggle/backend/internal/service/negotiation"
	reportService "github.com/nsxzhou/haggle/backend/internal/service/report"
	"github.com/nsxzhou/haggle/backend/internal/store"
	"github.com/nsxzhou/haggle/backend/pkg/utils"
)

// Deps collects everything the router wires together.
type Deps struct {
	Personas     personaModel.Store
	Turns        *turns.Service
	Insights     *insightService.Engine
	Reports      *reportService.Composer
	Negotiations store.NegotiationStore
	History      store.MessageHistory
	LiveHub      *live.Hub
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		personaHandler.New(deps.Personas).RegisterRoutes(api)
		negotiationHandler.New(deps.Turns, deps.Personas).RegisterRoutes(api)
		insight.New(deps.Insights, deps.Negotiations, deps.History).RegisterRoutes(api)
		reportHandler.New(deps.Reports, deps.Negotiations, deps.History).RegisterRoutes(api)

		if deps.LiveHub != nil {
			live.NewHandler(deps.LiveHub, deps.Negotiations).RegisterRoutes(api)
		}
	})

	return r
}
