// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

package gateway

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/gqlgate/gqlgate/internal/logging"
)

// Error codes surfaced in the extensions of a GraphQL error response.
const (
	CodeForbidden    = "FORBIDDEN"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInternal     = "INTERNAL_ERROR"
	CodeProxyError   = "PROXY_ERROR"
)

// ErrorExtensions is the machine-readable part of a rejection. Fields
// locates the denied field in the request tree, root-first.
type ErrorExtensions struct {
	Code      string   `json:"code"`
	User      string   `json:"user,omitempty"`
	UserEmail string   `json:"user_email,omitempty"`
	Query     string   `json:"query,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	Fields    []string `json:"fields,omitempty"`
}

type graphqlError struct {
	Message    string          `json:"message"`
	Extensions ErrorExtensions `json:"extensions"`
}

type errorEnvelope struct {
	Errors []graphqlError `json:"errors"`
}

// writeError emits a GraphQL-shaped error envelope so clients see a
// response in the format they already parse, even on rejection.
func writeError(w http.ResponseWriter, status int, message string, ext ErrorExtensions) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	env := errorEnvelope{Errors: []graphqlError{{Message: message, Extensions: ext}}}
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logging.Error().Err(err).Msg("Failed to encode error response")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
