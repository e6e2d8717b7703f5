// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/gqlgate/gqlgate/internal/config"
	"github.com/gqlgate/gqlgate/internal/idp"
	"github.com/gqlgate/gqlgate/internal/registry"
	"github.com/gqlgate/gqlgate/internal/upstream"
)

const testUsersYAML = `
users:
  - username: ann
    email: ann@example.com
    groups: [analysts]
  - username: ops
    email: ops@example.com
    groups: [deny-mutations, release-managers]
  - username: lonely
    email: lonely@example.com
    groups: [query-only]
`

const testGroupsYAML = `
groups:
  - name: analysts
    permissions:
      queries:
        effect: allow
        fields:
          - field_name: getUser
      mutations:
        effect: deny
  - name: deny-mutations
    permissions:
      queries:
        effect: allow
        fields:
          - field_name: "*"
      mutations:
        effect: deny
  - name: release-managers
    permissions:
      queries:
        effect: allow
        fields:
          - field_name: "*"
      mutations:
        effect: allow
        fields:
          - field_name: "*"
  - name: query-only
    permissions:
      queries:
        effect: allow
        fields:
          - field_name: getUser
idp_group_mapping:
  platform-team: [release-managers]
`

type stubProvider struct {
	res idp.Result
	err error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Validate(context.Context, string, string, string) (idp.Result, error) {
	return s.res, s.err
}

type envelope struct {
	Errors []struct {
		Message    string          `json:"message"`
		Extensions ErrorExtensions `json:"extensions"`
	} `json:"errors"`
}

func decodeEnvelope(t *testing.T, body io.Reader) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		t.Fatalf("Failed to decode error envelope: %v", err)
	}
	if len(env.Errors) == 0 {
		t.Fatal("Envelope carries no errors")
	}
	return env
}

// newTestGateway wires a gateway against a stub upstream that records
// whether it was reached.
func newTestGateway(t *testing.T, mutate func(*config.Config)) (*Gateway, *bool) {
	t.Helper()

	reached := false
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"ok":true}}`))
	}))
	t.Cleanup(up.Close)

	cfg := defaultTestConfig(up.URL)
	if mutate != nil {
		mutate(cfg)
	}

	users, err := registry.ParseUsers([]byte(testUsersYAML))
	if err != nil {
		t.Fatalf("ParseUsers() error = %v", err)
	}
	groups, err := registry.ParseGroups([]byte(testGroupsYAML))
	if err != nil {
		t.Fatalf("ParseGroups() error = %v", err)
	}

	return New(cfg, users, groups, &stubProvider{res: idp.Result{Valid: true}}, upstream.New(cfg.Upstream)), &reached
}

func defaultTestConfig(upstreamURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            8000,
			Timeout:         5 * time.Second,
			GraphQLPath:     "/graphql",
			HealthcheckPath: "/gqlproxy/health",
		},
		Upstream: config.UpstreamConfig{URL: upstreamURL, Timeout: 2 * time.Second},
		Auth:     config.AuthConfig{Provider: "custom", Timeout: time.Second},
		Security: config.SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitDisabled: true,
		},
		Logging: config.LoggingConfig{Level: "error", Format: "console"},
	}
}

func postGraphQL(g *Gateway, user, email, query string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]any{"query": query})
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(HeaderUser, user)
	}
	if email != "" {
		req.Header.Set(HeaderEmail, email)
	}
	rec := httptest.NewRecorder()
	g.ServeGraphQL(rec, req)
	return rec
}

func TestServeGraphQL_AllowedQueryForwarded(t *testing.T) {
	g, reached := newTestGateway(t, nil)

	rec := postGraphQL(g, "ann", "ann@example.com", `{ getUser(name:"Ann"){ id } }`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Code = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !*reached {
		t.Error("Upstream was not reached for an allowed query")
	}
	if !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Errorf("Upstream body not relayed: %s", rec.Body.String())
	}
}

func TestServeGraphQL_DeniedMutation(t *testing.T) {
	g, reached := newTestGateway(t, nil)

	rec := postGraphQL(g, "ann", "ann@example.com", `mutation { deletePipelineRun { id } }`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("Code = %d, want 403", rec.Code)
	}
	if *reached {
		t.Error("Denied mutation must not reach the upstream")
	}

	env := decodeEnvelope(t, rec.Body)
	ext := env.Errors[0].Extensions
	if ext.Code != CodeForbidden {
		t.Errorf("Code = %s", ext.Code)
	}
	if ext.User != "ann" || ext.UserEmail != "ann@example.com" {
		t.Errorf("User identity not echoed: %+v", ext)
	}
}

func TestServeGraphQL_DeniedFieldNotInAllowList(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	rec := postGraphQL(g, "ann", "ann@example.com", `{ secrets { value } }`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("Code = %d, want 403", rec.Code)
	}
}

func TestServeGraphQL_UnknownUser(t *testing.T) {
	g, reached := newTestGateway(t, nil)

	rec := postGraphQL(g, "mallory", "mallory@example.com", `{ getUser { id } }`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("Code = %d, want 403", rec.Code)
	}
	if *reached {
		t.Error("Unknown user must not reach the upstream")
	}
	ext := decodeEnvelope(t, rec.Body).Errors[0].Extensions
	if ext.User != "mallory" || ext.UserEmail != "mallory@example.com" {
		t.Errorf("Extensions should echo the claimed identity: %+v", ext)
	}
}

func TestServeGraphQL_MissingIdentityHeaders(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	rec := postGraphQL(g, "", "", `{ getUser { id } }`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("Code = %d, want 403", rec.Code)
	}
	if got := decodeEnvelope(t, rec.Body).Errors[0].Extensions.Code; got != CodeForbidden {
		t.Errorf("Extensions.Code = %s", got)
	}
}

func TestServeGraphQL_EmailFallbackLookup(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	rec := postGraphQL(g, "", "ann@example.com", `{ getUser { id } }`)
	if rec.Code != http.StatusOK {
		t.Errorf("Code = %d, lookup by email should succeed", rec.Code)
	}
}

func TestServeGraphQL_AllowOverridesDeny(t *testing.T) {
	// ops is in deny-mutations and release-managers; the allow policy wins.
	g, reached := newTestGateway(t, nil)

	rec := postGraphQL(g, "ops", "ops@example.com", `mutation { launchRun { id } }`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Code = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !*reached {
		t.Error("Allowed mutation should reach the upstream")
	}
}

func TestServeGraphQL_MissingMutationPolicyDenied(t *testing.T) {
	// query-only declares no mutation policy; normalization turns that
	// into wildcard deny.
	g, _ := newTestGateway(t, nil)

	rec := postGraphQL(g, "lonely", "lonely@example.com", `mutation { addUser { id } }`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("Code = %d, want 403", rec.Code)
	}
}

func TestServeGraphQL_NoResolvableGroups(t *testing.T) {
	g, _ := newTestGateway(t, nil)
	// All of the user's groups unknown: empty rule set, fail closed as 500.
	users, err := registry.ParseUsers([]byte("users:\n  - username: ghost\n    email: ghost@example.com\n    groups: [nonexistent]\n"))
	if err != nil {
		t.Fatalf("ParseUsers() error = %v", err)
	}
	g.users = users

	rec := postGraphQL(g, "ghost", "ghost@example.com", `{ getUser { id } }`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Code = %d, want 500", rec.Code)
	}
	if got := decodeEnvelope(t, rec.Body).Errors[0].Extensions.Code; got != CodeInternal {
		t.Errorf("Extensions.Code = %s", got)
	}
}

func TestServeGraphQL_ParseFailure(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	rec := postGraphQL(g, "ann", "ann@example.com", `{ getUser {`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Code = %d, want 500", rec.Code)
	}
	if got := decodeEnvelope(t, rec.Body).Errors[0].Extensions.Code; got != CodeInternal {
		t.Errorf("Extensions.Code = %s", got)
	}
}

func TestServeGraphQL_FormEncodedQuery(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	form := "query=" + strings.ReplaceAll(`{ getUser { id } }`, " ", "+")
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(HeaderUser, "ann")
	rec := httptest.NewRecorder()
	g.ServeGraphQL(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Code = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestServeGraphQL_UpstreamDown(t *testing.T) {
	g, _ := newTestGateway(t, func(cfg *config.Config) {
		cfg.Upstream.URL = "http://127.0.0.1:1"
	})
	g.upstream = upstream.New(g.cfg.Upstream)

	rec := postGraphQL(g, "ann", "ann@example.com", `{ getUser { id } }`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Code = %d, want 502", rec.Code)
	}
	if got := decodeEnvelope(t, rec.Body).Errors[0].Extensions.Code; got != CodeProxyError {
		t.Errorf("Extensions.Code = %s", got)
	}
}

func TestServeGraphQL_TokenValidationRejects(t *testing.T) {
	g, reached := newTestGateway(t, func(cfg *config.Config) {
		cfg.Auth.ValidateToken = true
	})
	g.provider = &stubProvider{res: idp.Result{Valid: false, Reason: "username mismatch"}}

	rec := postGraphQL(g, "ann", "ann@example.com", `{ getUser { id } }`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Code = %d, want 401", rec.Code)
	}
	if *reached {
		t.Error("Rejected token must not reach the upstream")
	}
	if got := decodeEnvelope(t, rec.Body).Errors[0].Extensions.Code; got != CodeUnauthorized {
		t.Errorf("Extensions.Code = %s", got)
	}
}

func TestServeGraphQL_TokenProviderError(t *testing.T) {
	g, _ := newTestGateway(t, func(cfg *config.Config) {
		cfg.Auth.ValidateToken = true
	})
	g.provider = &stubProvider{err: errors.New("idp unreachable")}

	rec := postGraphQL(g, "ann", "ann@example.com", `{ getUser { id } }`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Code = %d, want 401", rec.Code)
	}
}

func TestServeGraphQL_IdPGroupsWidenMembership(t *testing.T) {
	// lonely has no mutation rights locally; the IdP reports a team that
	// maps to release-managers, which allows mutations.
	g, reached := newTestGateway(t, func(cfg *config.Config) {
		cfg.Auth.ValidateToken = true
	})
	g.provider = &stubProvider{res: idp.Result{Valid: true, Groups: []string{"platform-team"}}}

	rec := postGraphQL(g, "lonely", "lonely@example.com", `mutation { launchRun { id } }`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Code = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !*reached {
		t.Error("IdP-granted group should permit the mutation")
	}
}

func TestServeGraphQL_ArgumentConstraintEndToEnd(t *testing.T) {
	g, _ := newTestGateway(t, nil)
	groups, err := registry.ParseGroups([]byte(`
groups:
  - name: analysts
    permissions:
      queries:
        effect: allow
        fields:
          - field_name: getUser
            arguments:
              - argument_name: name
                values: ["Ann"]
`))
	if err != nil {
		t.Fatalf("ParseGroups() error = %v", err)
	}
	g.groups = groups

	if rec := postGraphQL(g, "ann", "", `{ getUser(name:"Ann"){ id } }`); rec.Code != http.StatusOK {
		t.Errorf("Permitted argument value rejected: %d", rec.Code)
	}
	if rec := postGraphQL(g, "ann", "", `{ getUser(name:"Eve"){ id } }`); rec.Code != http.StatusForbidden {
		t.Errorf("Forbidden argument value passed: %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/gqlproxy/health", nil)
	rec := httptest.NewRecorder()
	g.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Code = %d", rec.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if resp.Status != "ok" || resp.UsersConfigured != 3 || resp.GroupsConfigured != 4 {
		t.Errorf("Health = %+v", resp)
	}
}
