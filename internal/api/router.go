package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clinicdesk/clinic-scheduling/internal/scheduling"
)

type RouterConfig struct {
	Service *scheduling.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  *zap.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", bookAppointmentHandler(cfg.Service))
		r.Post("/walkin", walkInHandler(cfg.Service))
		r.Delete("/{id}", cancelAppointmentHandler(cfg.Service))
		r.Put("/{id}/reschedule", rescheduleAppointmentHandler(cfg.Service))
		r.Post("/{id}/queue-number", queueNumberHandler(cfg.Service))
		r.Post("/{id}/checkin", checkInHandler(cfg.Service))
		r.Put("/{id}/status", setStatusHandler(cfg.Service))
	})

	r.Get("/patients/{patientId}/appointments", patientAppointmentsHandler(cfg.Service))

	r.Route("/doctors", func(r chi.Router) {
		r.Get("/", listDoctorsHandler(cfg.Service))
		r.Get("/{id}/slots", doctorSlotsHandler(cfg.Service))
		r.Put("/{id}/availability", upsertAvailabilityHandler(cfg.Service))
	})

	r.Get("/queue/today", todaysQueueHandler(cfg.Service))
	r.Post("/notifications", sendNotificationHandler(cfg.Service))

	return r
}
