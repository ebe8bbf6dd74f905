package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/events-aggregator/api/controllers"
	"github.com/angelmondragon/events-aggregator/api/middleware"
	"github.com/angelmondragon/events-aggregator/internal/events"
	"github.com/angelmondragon/events-aggregator/internal/tickets"
	"github.com/angelmondragon/events-aggregator/pkg/config"
	"github.com/angelmondragon/events-aggregator/pkg/logger"
)

type syncTrigger interface {
	Trigger() error
}

// Services bundles the handlers' collaborators.
type Services struct {
	Events  *events.Service
	Tickets *tickets.Service
	Sync    syncTrigger
	// Ready lists dependencies pinged by the readiness check.
	Ready map[string]controllers.Pinger
	// Gatherer serves /metrics; nil falls back to the default registry.
	Gatherer prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, svcs Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	gatherer := svcs.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", controllers.Health())
		r.Get("/health/ready", controllers.HealthReady(logg, svcs.Ready))

		r.Post("/sync/trigger", controllers.SyncTrigger(svcs.Sync, logg))

		r.Route("/events", func(r chi.Router) {
			r.Get("/", controllers.EventsList(svcs.Events, logg))
			r.Get("/{eventId}", controllers.EventDetail(svcs.Events, logg))
			r.Get("/{eventId}/seats", controllers.EventSeats(svcs.Events, logg))
		})

		r.Route("/tickets", func(r chi.Router) {
			r.With(middleware.IdempotencyKey(logg)).Post("/", controllers.TicketRegister(svcs.Tickets, logg))
			r.Delete("/{ticketId}", controllers.TicketUnregister(svcs.Tickets, logg))
		})
	})

	return r
}
