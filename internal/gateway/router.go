// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gqlgate/gqlgate/internal/logging"
	"github.com/gqlgate/gqlgate/internal/middleware"
)

// Router builds the gateway's HTTP surface. The GraphQL endpoint and the
// health/metrics endpoints are routed explicitly; everything else falls
// through to the transparent proxy.
func (g *Gateway) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   g.cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if !g.cfg.Security.RateLimitDisabled {
		r.Use(httprate.Limit(
			g.cfg.Security.RateLimitReqs,
			g.cfg.Security.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		))
	}

	r.Post(g.cfg.Server.GraphQLPath, g.ServeGraphQL)
	r.Get(g.cfg.Server.HealthcheckPath, g.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Everything else is the upstream's business.
	r.NotFound(g.ProxyAll)
	r.MethodNotAllowed(g.ProxyAll)

	return r
}

// recoverer converts a handler panic into the gateway's standard 500
// envelope instead of chi's plain-text response.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logging.Ctx(r.Context()).Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Msg("Recovered from handler panic")
				writeError(w, http.StatusInternalServerError, "Internal error", ErrorExtensions{Code: CodeInternal})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
