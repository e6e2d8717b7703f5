// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

// Package main is the entry point for the GQLGate server.
//
// GQLGate is a field-level authorization gateway for GraphQL. It sits
// between an authenticating reverse proxy and a GraphQL server, inspects
// every query and mutation against per-group allow/deny policy trees, and
// forwards permitted requests unmodified. Non-GraphQL traffic is proxied
// transparently.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, YAML file, environment (Koanf v2)
//  2. Logging: zerolog, JSON or console format
//  3. Registries: static users and groups loaded from YAML
//  4. Identity provider: optional token validation (github, azure, custom)
//  5. Upstream client: circuit-breaker protected HTTP client
//  6. HTTP server: chi router with CORS, rate limiting, and Prometheus metrics
//
// # Configuration
//
// Key environment variables:
//   - UPSTREAM_URL: base URL of the GraphQL server being protected (required)
//   - USERS_CONFIG_FILE / GROUPS_CONFIG_FILE: registry documents
//   - VALIDATE_TOKEN / IDP_PROVIDER: enable identity-provider checks
//   - HTTP_PORT / GRAPHQL_PATH / HEALTHCHECK_PATH: HTTP surface
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the listener stops
// accepting connections and in-flight requests get 10 seconds to finish.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gqlgate/gqlgate/internal/config"
	"github.com/gqlgate/gqlgate/internal/gateway"
	"github.com/gqlgate/gqlgate/internal/idp"
	"github.com/gqlgate/gqlgate/internal/logging"
	"github.com/gqlgate/gqlgate/internal/registry"
	"github.com/gqlgate/gqlgate/internal/upstream"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("upstream", cfg.Upstream.URL).
		Str("graphql_path", cfg.Server.GraphQLPath).
		Bool("validate_token", cfg.Auth.ValidateToken).
		Msg("Starting GQLGate")

	users, err := registry.LoadUsers(cfg.Registry.UsersFile)
	if err != nil {
		logging.Fatal().Err(err).Str("file", cfg.Registry.UsersFile).Msg("Failed to load user registry")
	}
	groups, err := registry.LoadGroups(cfg.Registry.GroupsFile)
	if err != nil {
		logging.Fatal().Err(err).Str("file", cfg.Registry.GroupsFile).Msg("Failed to load group registry")
	}
	logging.Info().Int("users", users.Count()).Int("groups", groups.Count()).Msg("Registries loaded")

	provider := idp.New(cfg.Auth)
	if cfg.Auth.ValidateToken {
		logging.Info().Str("provider", provider.Name()).Msg("Token validation enabled")
	}

	gw := gateway.New(cfg, users, groups, provider, upstream.New(cfg.Upstream))

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           gw.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server failed")
		}
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown failed")
	}
	logging.Info().Msg("GQLGate stopped")
}
