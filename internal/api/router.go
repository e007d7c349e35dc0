package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/slot"
)

// Scheduler is the part of *appointment.Service the handlers depend on.
type Scheduler interface {
	Book(ctx context.Context, req appointment.BookRequest) (*appointment.Appointment, error)
	Availability(ctx context.Context, practitionerID uuid.UUID, date string, t slot.AppointmentType) ([]slot.Key, error)
	DaySchedule(ctx context.Context, practitionerID uuid.UUID, date string) ([]appointment.Appointment, error)
	UpcomingSchedule(ctx context.Context, practitionerID uuid.UUID) ([]appointment.Appointment, error)
}

type RouterConfig struct {
	Service  Scheduler
	Location *time.Location
	Logger   zerolog.Logger
	Postgres Pinger
	Redis    Pinger
	Gatherer prometheus.Gatherer
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoveryMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Practitioner endpoints
	r.Route("/practitioners/{id}", func(r chi.Router) {
		r.Get("/availability", availabilityHandler(cfg.Service))
		r.Post("/appointments", createAppointmentHandler(cfg.Service, loc))
		r.Get("/schedule", dayScheduleHandler(cfg.Service, loc))
		r.Get("/schedule/upcoming", upcomingScheduleHandler(cfg.Service, loc))
	})

	return r
}
