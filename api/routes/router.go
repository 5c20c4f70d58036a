package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/workboard-backend/api/controllers"
	workboardcontrollers "github.com/angelmondragon/workboard-backend/api/controllers/workboard"
	"github.com/angelmondragon/workboard-backend/api/middleware"
	"github.com/angelmondragon/workboard-backend/internal/workboard"
	"github.com/angelmondragon/workboard-backend/pkg/config"
	"github.com/angelmondragon/workboard-backend/pkg/logger"
)

// NewRouter wires the health probes, the metrics endpoint, the work board
// RPC routes and the realtime gateway. limiter, realtime and metricsHandler
// may be nil.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	workboardService workboard.Service,
	realtime http.Handler,
	limiter middleware.RateLimiter,
	metricsHandler http.Handler,
	ready ...controllers.Dependency,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready...))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1/workboard", func(r chi.Router) {
		// The gateway authenticates the upgrade itself so browsers can pass
		// the token as a query parameter.
		if realtime != nil {
			r.Handle("/realtime", realtime)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.MutationRateLimit(limiter, cfg.HTTP.MutationRateLimit, cfg.HTTP.MutationRateWindow, logg))

			r.Get("/assignments", workboardcontrollers.ListAssignments(workboardService, logg))
			r.Post("/assignments", workboardcontrollers.CreateAssignment(workboardService, logg))
			r.Post("/assignments/{assignmentId}/move", workboardcontrollers.MoveAssignment(workboardService, logg))
			r.Delete("/assignments/{assignmentId}", workboardcontrollers.RemoveAssignment(workboardService, logg))

			r.Get("/unassigned", workboardcontrollers.ListUnassignedJobs(workboardService, logg))

			r.Get("/technicians", workboardcontrollers.ListTechnicians(workboardService, logg))
			r.Post("/technicians", workboardcontrollers.CreateTechnician(workboardService, logg))
			r.Patch("/technicians/{technicianId}", workboardcontrollers.UpdateTechnician(workboardService, logg))
			r.Delete("/technicians/{technicianId}", workboardcontrollers.DeleteTechnician(workboardService, logg))
		})
	})

	return r
}
