package http

import (
	"net/http"

	"github.com/checkin-api/internal/application/attempt"
	"github.com/checkin-api/internal/application/checkin"
	"github.com/checkin-api/internal/application/enrollment"
	"github.com/checkin-api/internal/application/event"
	"github.com/checkin-api/internal/application/registration"
	"github.com/checkin-api/internal/application/station"
	"github.com/checkin-api/internal/config"
	"github.com/checkin-api/internal/domain"
	"github.com/checkin-api/internal/pkg/keylock"
	"github.com/checkin-api/internal/transport/http/handler"
	appmiddleware "github.com/checkin-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10. Applied to the public login endpoint.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)
	// Looser limit for check-in endpoints; a station scans at human speed.
	checkinRL := appmiddleware.NewRateLimiter(rate.Limit(20), 40)

	eventSvc := event.NewService(event.ServiceDeps{EventRepo: deps.EventRepo})
	registrationSvc := registration.NewService(registration.ServiceDeps{
		RegistrationRepo: deps.RegistrationRepo,
		EventRepo:        deps.EventRepo,
	})
	enrollmentSvc := enrollment.NewService(enrollment.ServiceDeps{
		Matcher:          deps.Matcher,
		RegistrationRepo: deps.RegistrationRepo,
		EventRepo:        deps.EventRepo,
		PhotoStore:       deps.PhotoStore,
	})
	checkinSvc := checkin.NewService(checkin.ServiceDeps{
		Matcher:          deps.Matcher,
		RegistrationRepo: deps.RegistrationRepo,
		EventRepo:        deps.EventRepo,
		AttemptRepo:      deps.AttemptRepo,
		SMSSender:        deps.SMSSender,
		Locks:            keylock.New(),
		Threshold:        cfg.MatchThreshold,
		NameFallback:     cfg.NameFallback,
	})
	attemptSvc := attempt.NewService(attempt.ServiceDeps{
		AttemptRepo: deps.AttemptRepo,
		EventRepo:   deps.EventRepo,
	})
	stationSvc := station.NewService(station.ServiceDeps{
		StationRepo: deps.StationRepo,
		JWTProvider: deps.JWTProvider,
	})

	healthH := handler.NewHealthHandler()
	eventH := handler.NewEventHandler(eventSvc)
	registrationH := handler.NewRegistrationHandler(registrationSvc)
	enrollmentH := handler.NewEnrollmentHandler(enrollmentSvc)
	checkinH := handler.NewCheckinHandler(checkinSvc)
	attemptH := handler.NewAttemptHandler(attemptSvc)
	stationH := handler.NewStationHandler(stationSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/stations/login", stationH.Login)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			// Any authenticated station
			r.Get("/events", eventH.List)
			r.Get("/events/{id}", eventH.Get)
			r.With(checkinRL.Limit).Post("/events/{id}/checkin/face", checkinH.ByFace)
			r.With(checkinRL.Limit).Post("/events/{id}/checkin/code", checkinH.ByCode)
			r.Get("/events/{id}/registrations", registrationH.ListByEvent)
			r.Get("/registrations/{id}", registrationH.Get)
			r.Post("/registrations/{id}/enrollment", enrollmentH.Enroll)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Post("/events", eventH.Create)
				r.Delete("/events/{id}", eventH.Disable)
				r.Get("/events/{id}/attempts", attemptH.List)
				r.Post("/events/{id}/registrations", registrationH.Create)
				r.Put("/registrations/{id}/payment", registrationH.MarkPaid)
				r.Delete("/registrations/{id}/enrollment", enrollmentH.Revoke)
				r.Post("/stations", stationH.Create)
				r.Delete("/stations/{id}", stationH.Disable)
			})
		})
	})

	return r
}
