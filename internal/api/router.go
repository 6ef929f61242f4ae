// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/insightd/insightd/internal/config"
	"github.com/insightd/insightd/internal/logging"
	"github.com/insightd/insightd/internal/metrics"
)

// Router builds the HTTP routing tree over a Handler.
type Router struct {
	cfg     *config.Config
	handler *Handler
}

// NewRouter creates a router for the given configuration and handler.
func NewRouter(cfg *config.Config, handler *Handler) *Router {
	return &Router{cfg: cfg, handler: handler}
}

// Setup assembles the middleware stack and routes.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(chimiddleware.Throttle(rt.cfg.Server.MaxConcurrentRequests))
	r.Use(chimiddleware.Timeout(rt.cfg.Server.RequestTimeout))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(600, time.Minute))

		r.Get("/health", instrument("health", rt.handler.Health))
		r.Get("/health/live", rt.handler.Live)
		r.Get("/health/ready", rt.handler.Ready)

		r.Post("/analyze/patterns", instrument("analyze_patterns", rt.handler.AnalyzePatterns))

		r.Route("/query", func(r chi.Router) {
			r.Post("/generate", instrument("generate_query", rt.handler.GenerateQuery))
			r.Get("/suggest", instrument("suggest_queries", rt.handler.SuggestQueries))
			r.Post("/explain", instrument("explain_query", rt.handler.ExplainQuery))
		})

		r.Post("/charts/recommend", instrument("recommend_charts", rt.handler.RecommendCharts))
		r.Post("/layout/optimize", instrument("optimize_layout", rt.handler.OptimizeLayout))
	})

	return r
}

// requestIDMiddleware assigns every request an ID, stores it in the
// context for log correlation, and echoes it in the response header.
// An inbound X-Request-ID is honored.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logging.GenerateRequestID()
		}
		ctx := logging.ContextWithRequestID(r.Context(), id)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// instrument wraps a handler with request counting and latency
// observation for one named operation.
func instrument(operation string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.APIRequestsTotal.WithLabelValues(operation, strconv.Itoa(status)).Inc()
		metrics.APIRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
