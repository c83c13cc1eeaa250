package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(reportsService *ReportsService) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(MetricsMiddleware)

	r.Get("/health", reportsService.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/runs", func(r chi.Router) {
		r.Get("/", reportsService.ListRuns)
		r.Get("/{runID}", reportsService.GetRun)
		r.Get("/{runID}/accumulation", reportsService.GetRunAccumulation)
		r.Get("/{runID}/exceptions", reportsService.GetRunExceptions)
		r.Get("/{runID}/projects/{projectID}", reportsService.GetProject)
	})

	return r
}
