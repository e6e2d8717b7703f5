// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

package gateway

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/gqlgate/gqlgate/internal/authz"
	"github.com/gqlgate/gqlgate/internal/config"
	"github.com/gqlgate/gqlgate/internal/graphql"
	"github.com/gqlgate/gqlgate/internal/idp"
	"github.com/gqlgate/gqlgate/internal/logging"
	"github.com/gqlgate/gqlgate/internal/metrics"
	"github.com/gqlgate/gqlgate/internal/registry"
	"github.com/gqlgate/gqlgate/internal/upstream"
)

// Gateway holds the immutable collaborators of the request pipeline.
type Gateway struct {
	cfg      *config.Config
	users    *registry.Users
	groups   *registry.Groups
	provider idp.Provider
	upstream *upstream.Client
}

// New assembles a gateway from its loaded collaborators.
func New(cfg *config.Config, users *registry.Users, groups *registry.Groups, provider idp.Provider, up *upstream.Client) *Gateway {
	return &Gateway{cfg: cfg, users: users, groups: groups, provider: provider, upstream: up}
}

// graphqlRequest is the standard GraphQL-over-HTTP request body.
type graphqlRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

// ServeGraphQL authorizes one GraphQL request and forwards it upstream
// when permitted. The pipeline terminates at the first failing step:
// identity, user lookup, token validation, parsing, policy evaluation.
func (g *Gateway) ServeGraphQL(w http.ResponseWriter, r *http.Request) {
	log := logging.Ctx(r.Context())

	identity := IdentityFromHeaders(r)
	if identity.Anonymous() {
		log.Warn().Msg("Request without identity headers")
		writeError(w, http.StatusForbidden, "Access denied: no user identity provided",
			ErrorExtensions{Code: CodeForbidden})
		return
	}

	user, ok := g.users.Lookup(identity.Username, identity.Email)
	if !ok {
		log.Warn().Str("user", identity.Username).Str("email", identity.Email).Msg("Unknown user")
		writeError(w, http.StatusForbidden, "Access denied: user not configured",
			ErrorExtensions{Code: CodeForbidden, User: identity.Username, UserEmail: identity.Email})
		return
	}

	groupNames := user.Groups
	if g.cfg.Auth.ValidateToken {
		idpGroups, failed := g.validateToken(w, r, identity)
		if failed {
			return
		}
		groupNames = append(append([]string(nil), groupNames...), g.groups.MapIdPGroups(idpGroups)...)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read request body")
		writeError(w, http.StatusInternalServerError, "Internal error", ErrorExtensions{Code: CodeInternal})
		return
	}

	gqlReq, ok := parseGraphQLRequest(r, body)
	if !ok || gqlReq.Query == "" {
		log.Error().Str("content_type", r.Header.Get("Content-Type")).Msg("Unparseable GraphQL request body")
		writeError(w, http.StatusInternalServerError, "Internal error", ErrorExtensions{Code: CodeInternal})
		return
	}

	doc, err := graphql.Parse(gqlReq.Query)
	if err != nil {
		log.Error().Err(err).Msg("GraphQL parse failure")
		writeError(w, http.StatusInternalServerError, "Internal error", ErrorExtensions{Code: CodeInternal})
		return
	}

	op, err := graphql.SelectOperation(doc, gqlReq.OperationName)
	if err != nil {
		log.Error().Err(err).Msg("No authorizable operation in document")
		writeError(w, http.StatusInternalServerError, "Internal error", ErrorExtensions{Code: CodeInternal})
		return
	}

	var kind authz.OpKind
	switch op.Operation {
	case ast.Query:
		kind = authz.OpQuery
	case ast.Mutation:
		kind = authz.OpMutation
	default:
		log.Error().Str("operation", string(op.Operation)).Msg("Unsupported operation kind")
		writeError(w, http.StatusInternalServerError, "Internal error", ErrorExtensions{Code: CodeInternal})
		return
	}

	tree, err := graphql.Render(op.SelectionSet, graphql.Fragments(doc), gqlReq.Variables)
	if err != nil {
		log.Error().Err(err).Msg("Failed to render field tree")
		writeError(w, http.StatusInternalServerError, "Internal error", ErrorExtensions{Code: CodeInternal})
		return
	}

	ruleSet := authz.Resolve(g.groups.PermissionsFor(groupNames))
	result, err := ruleSet.Evaluate(kind, tree)
	if err != nil {
		log.Error().Err(err).Str("user", user.Username).Strs("groups", groupNames).Msg("Policy evaluation failed")
		writeError(w, http.StatusInternalServerError, "Internal error", ErrorExtensions{Code: CodeInternal})
		return
	}

	metrics.RecordAuthzDecision(string(kind), result.Allowed)
	if !result.Allowed {
		log.Warn().
			Str("user", user.Username).
			Str("operation", op.Name).
			Str("reason", result.Reason).
			Strs("fields", result.Path).
			Msg("Operation denied")
		writeError(w, http.StatusForbidden, "Access denied: "+result.Reason, ErrorExtensions{
			Code:      CodeForbidden,
			User:      user.Username,
			UserEmail: user.Email,
			Query:     op.Name,
			Reason:    result.Reason,
			Fields:    result.Path,
		})
		return
	}

	log.Info().Str("user", user.Username).Str("operation", op.Name).Str("kind", string(kind)).Msg("Operation allowed")
	g.forward(w, r, "graphql", g.cfg.Server.GraphQLPath, body)
}

// validateToken runs the identity-provider check. It writes the response
// and returns failed=true when the request must not proceed.
func (g *Gateway) validateToken(w http.ResponseWriter, r *http.Request, identity Identity) (idpGroups []string, failed bool) {
	log := logging.Ctx(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), g.cfg.Auth.Timeout)
	defer cancel()

	res, err := g.provider.Validate(ctx, identity.Token, identity.Username, identity.Email)
	if err != nil {
		metrics.RecordIdentityValidation(g.provider.Name(), "error")
		log.Error().Err(err).Str("provider", g.provider.Name()).Msg("Identity provider unreachable")
		writeError(w, http.StatusUnauthorized, "Authentication failed", ErrorExtensions{
			Code: CodeUnauthorized,
			User: identity.Username,
		})
		return nil, true
	}
	if !res.Valid {
		metrics.RecordIdentityValidation(g.provider.Name(), "invalid")
		log.Warn().Str("provider", g.provider.Name()).Str("reason", res.Reason).Msg("Token validation failed")
		writeError(w, http.StatusUnauthorized, "Authentication failed: "+res.Reason, ErrorExtensions{
			Code:   CodeUnauthorized,
			User:   identity.Username,
			Reason: res.Reason,
		})
		return nil, true
	}
	metrics.RecordIdentityValidation(g.provider.Name(), "valid")
	return res.Groups, false
}

// parseGraphQLRequest decodes a JSON body, falling back to the
// form-encoded query parameter older clients send.
func parseGraphQLRequest(r *http.Request, body []byte) (graphqlRequest, bool) {
	var req graphqlRequest
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		values, err := parseForm(body)
		if err != nil {
			return req, false
		}
		req.Query = values.Get("query")
		req.OperationName = values.Get("operationName")
		return req, true
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, false
	}
	return req, true
}

func parseForm(body []byte) (url.Values, error) {
	return url.ParseQuery(string(body))
}

// forward relays the original request body to the upstream target path.
func (g *Gateway) forward(w http.ResponseWriter, r *http.Request, target, path string, body []byte) {
	log := logging.Ctx(r.Context())

	resp, err := g.upstream.Forward(r.Context(), r.Method, path, r.URL.RawQuery, r.Header, body)
	if err != nil {
		metrics.RecordUpstreamRequest(target, "failure")
		log.Error().Err(err).Str("path", path).Msg("Upstream request failed")
		writeError(w, http.StatusBadGateway, "Upstream unavailable", ErrorExtensions{Code: CodeProxyError})
		return
	}
	metrics.RecordUpstreamRequest(target, "success")
	upstream.Relay(w, resp)
}

// ProxyAll transparently forwards non-GraphQL traffic to the upstream.
func (g *Gateway) ProxyAll(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal error", ErrorExtensions{Code: CodeInternal})
		return
	}
	g.forward(w, r, "proxy", r.URL.Path, body)
}
