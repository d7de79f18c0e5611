// Package api serves recommendations and graph statistics over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"movie-recommender/internal/movie"
	"movie-recommender/internal/recommend"
)

// StatsProvider reports graph counts.
type StatsProvider interface {
	Stats(ctx context.Context) (movie.GraphStats, error)
}

// Handler holds the dependencies of the HTTP endpoints.
type Handler struct {
	engine       *recommend.Engine
	stats        StatsProvider
	queryTimeout time.Duration
}

// NewRouter builds the chi router with all routes mounted.
func NewRouter(engine *recommend.Engine, stats StatsProvider) http.Handler {
	h := &Handler{engine: engine, stats: stats, queryTimeout: 30 * time.Second}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/users/{userID}/recommendations", h.Recommendations)
		r.Get("/stats", h.Stats)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP request")
	})
}
