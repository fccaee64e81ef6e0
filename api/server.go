/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. Logging:    One structured zerolog line per request
  4. CORS:       Cross-origin requests from the host application

ROUTE GROUPS:
  /api/hooks/*          Lifecycle hooks
  /api/rooms/*          Room records and ledger
  /api/bookings/*       Booking records and events
  /api/room-types/*     Rates and availability search
  /api/audit/*          Ledger/event consistency audit
  /api/scenarios/*      Demo scenarios
  /healthz, /readyz     Probes
  /metrics              Prometheus (when enabled)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/hooks", func(r chi.Router) {
			r.Post("/bookings/{id}/saved", h.BookingSaved)
			r.Post("/bookings/{id}/deleting", h.BookingDeleting)
			r.Post("/room-types/{id}/deleted", h.RoomTypeDeleted)
		})

		r.Route("/rooms", func(r chi.Router) {
			r.Put("/{id}", h.SaveRoom)
			r.Get("/{id}", h.GetRoom)
			r.Get("/{id}/availability", h.GetAvailability)
			r.Get("/{id}/events", h.GetEvents)
			r.Post("/{id}/state", h.SetRoomState)
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Put("/{id}", h.SaveBooking)
			r.Get("/{id}", h.GetBooking)
			r.Post("/{id}/events", h.SetBookingEvent)
		})

		r.Post("/rates", h.CreateRate)
		r.Route("/room-types", func(r chi.Router) {
			r.Get("/{id}/rates", h.ListRates)
			r.Get("/{id}/available", h.FindAvailableRooms)
		})

		r.Route("/audit", func(r chi.Router) {
			r.Get("/", h.RunAudit)
			r.Get("/runs", h.ListAuditRuns)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			ev := logger.Info()
			if status >= http.StatusInternalServerError {
				ev = logger.Error()
			}
			ev.Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}
