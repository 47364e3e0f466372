package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"canvas/internal/api"
	"canvas/internal/metrics"
)

func New(h *api.Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	r.Use(metrics.Middleware("canvas"))

	r.Get("/api/v1/healthz", h.Health)
	r.Get("/api/v1/stats", h.Stats)
	r.Get("/api/v1/canvas/{roomId}", h.GetCanvas)

	r.Get("/ws/canvas/{roomId}", h.CanvasWS)

	r.Handle("/metrics", metrics.Handler())

	return r
}
