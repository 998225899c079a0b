package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/careflow/clinic-scheduler/internal/scheduling"
)

type RouterConfig struct {
	Service *scheduling.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  zerolog.Logger
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
		r.Get("/{id}", getAppointmentHandler(cfg.Service))
		r.Post("/{id}/status", updateStatusHandler(cfg.Service))
	})

	r.Route("/doctors", func(r chi.Router) {
		r.Get("/", listDoctorsHandler(cfg.Service))
		r.Get("/{doctorID}", getDoctorHandler(cfg.Service))
		r.Post("/{doctorID}/active", setDoctorActiveHandler(cfg.Service))

		r.Get("/{doctorID}/slots", listSlotsHandler(cfg.Service))
		r.Post("/{doctorID}/slots", addSlotHandler(cfg.Service))

		r.Get("/{doctorID}/leaves", listLeavesHandler(cfg.Service))
		r.Post("/{doctorID}/leaves", addLeaveHandler(cfg.Service))

		r.Get("/{doctorID}/appointments", listAppointmentsHandler(cfg.Service))
	})

	// Slots and leaves are deleted by their own id; edits are delete + re-add.
	r.Delete("/slots/{id}", deleteSlotHandler(cfg.Service))
	r.Delete("/leaves/{id}", deleteLeaveHandler(cfg.Service))

	return r
}
