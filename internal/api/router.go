package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/deposit-relay/internal/api/handlers"
	"github.com/baharkarakas/deposit-relay/internal/config"
	"github.com/baharkarakas/deposit-relay/internal/metrics"
	"github.com/baharkarakas/deposit-relay/internal/middleware"
)

func NewRouter(cfg config.Config, wh *handlers.Webhook) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	r.Post("/webhook", wh.Receive)
	r.Get("/set-webhook", wh.SetWebhook)
	r.Get("/", wh.Health)
	r.Get("/api/stats", wh.Stats)
	r.Post("/api/check-pending", wh.CheckPending)

	return r
}
