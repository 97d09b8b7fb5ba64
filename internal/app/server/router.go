package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"timesheet/internal/domain/auth"
	"timesheet/internal/platform/config"
	"timesheet/internal/platform/metrics"
	"timesheet/internal/platform/storage"
	"timesheet/internal/transport/http/api"
	attachmentshandler "timesheet/internal/transport/http/handlers/attachments"
	audithandler "timesheet/internal/transport/http/handlers/audit"
	corehandler "timesheet/internal/transport/http/handlers/core"
	holidayshandler "timesheet/internal/transport/http/handlers/holidays"
	leavehandler "timesheet/internal/transport/http/handlers/leave"
	notificationshandler "timesheet/internal/transport/http/handlers/notifications"
	overtimehandler "timesheet/internal/transport/http/handlers/overtime"
	reportshandler "timesheet/internal/transport/http/handlers/reports"
	ticketshandler "timesheet/internal/transport/http/handlers/tickets"
	timesheethandler "timesheet/internal/transport/http/handlers/timesheet"
	variancehandler "timesheet/internal/transport/http/handlers/variance"
	"timesheet/internal/transport/http/middleware"
)

type routerDeps struct {
	cfg         config.Config
	svc         services
	files       *storage.Store
	metrics     *metrics.Collector
	idempotency middleware.IdempotencyStore
	ready       func(context.Context) error
}

func newRouter(d routerDeps) http.Handler {
	perms := auth.CapabilityTable{}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(d.cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(d.cfg.MaxBodyBytes))
	router.Use(middleware.Metrics(d.metrics))
	router.Use(middleware.Auth(d.cfg.JWTSecret))
	router.Use(middleware.RateLimit(d.cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.TransitionRateLimit(d.cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.ready(r.Context()); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if d.cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, d.metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotent(d.idempotency))

		corehandler.NewHandler(d.svc.core, perms, d.svc.audit).RegisterRoutes(r)
		holidayshandler.NewHandler(d.svc.calendar, perms, d.svc.audit).RegisterRoutes(r)
		timesheethandler.NewHandler(d.svc.timesheet, perms, d.svc.audit, d.metrics).RegisterRoutes(r)
		leavehandler.NewHandler(d.svc.leave, perms, d.svc.audit, d.files, d.metrics).RegisterRoutes(r)
		overtimehandler.NewHandler(d.svc.overtime, perms, d.svc.audit, d.files, d.metrics).RegisterRoutes(r)
		ticketshandler.NewHandler(d.svc.tickets, perms, d.svc.audit, d.files, d.metrics).RegisterRoutes(r)
		variancehandler.NewHandler(d.svc.variance, perms).RegisterRoutes(r)
		reportshandler.NewHandler(d.svc.reports, perms, d.svc.audit).RegisterRoutes(r)
		attachmentshandler.NewHandler(d.files, d.svc.audit).RegisterRoutes(r)
		notificationshandler.NewHandler(d.svc.notifications).RegisterRoutes(r)
		audithandler.NewHandler(d.svc.audit).RegisterRoutes(r)
	})

	return otelhttp.NewHandler(router, "timesheet-api")
}
