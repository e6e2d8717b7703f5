// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

// Package metrics provides Prometheus instrumentation for the gateway:
// request latency and throughput, authorization decisions, upstream proxy
// results, and circuit breaker state. Collectors are registered with the
// default registry and exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP surface metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gqlgate_requests_total",
			Help: "Total number of HTTP requests handled by the gateway",
		},
		[]string{"method", "path", "status_code"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gqlgate_request_duration_seconds",
			Help:    "Gateway request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gqlgate_active_requests",
			Help: "Number of requests currently being processed",
		},
	)

	// Authorization metrics
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gqlgate_authz_decisions_total",
			Help: "Authorization decisions by operation kind and outcome",
		},
		[]string{"operation", "outcome"}, // operation: query|mutation, outcome: allowed|denied
	)

	IdentityValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gqlgate_identity_validations_total",
			Help: "Identity provider token validation attempts by provider and result",
		},
		[]string{"provider", "result"}, // result: valid|invalid|error
	)

	// Upstream metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gqlgate_upstream_requests_total",
			Help: "Requests forwarded to the upstream server by target and result",
		},
		[]string{"target", "result"}, // target: graphql|proxy, result: success|failure|rejected
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gqlgate_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gqlgate_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RecordRequest records one handled HTTP request.
func RecordRequest(method, path string, statusCode int, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(active bool) {
	if active {
		ActiveRequests.Inc()
	} else {
		ActiveRequests.Dec()
	}
}

// RecordAuthzDecision records one policy evaluation outcome.
func RecordAuthzDecision(operation string, allowed bool) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	AuthzDecisions.WithLabelValues(operation, outcome).Inc()
}

// RecordIdentityValidation records one identity provider validation attempt.
func RecordIdentityValidation(provider, result string) {
	IdentityValidations.WithLabelValues(provider, result).Inc()
}

// RecordUpstreamRequest records one forwarded request outcome.
func RecordUpstreamRequest(target, result string) {
	UpstreamRequests.WithLabelValues(target, result).Inc()
}
