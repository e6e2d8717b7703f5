// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

package idp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/gqlgate/gqlgate/internal/logging"
)

const defaultGithubAPIURL = "https://api.github.com"

// GitHub validates tokens against the GitHub REST API. The token's login
// must match the claimed username and, when GitHub exposes one, the
// account email must match the claimed email. Organization memberships are
// reported as groups.
type GitHub struct {
	baseURL string
	client  *http.Client
}

// NewGitHub builds a GitHub provider. baseURL defaults to the public API.
func NewGitHub(baseURL string, timeout time.Duration) *GitHub {
	if baseURL == "" {
		baseURL = defaultGithubAPIURL
	}
	return &GitHub{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *GitHub) Name() string { return "github" }

type githubUser struct {
	Login string `json:"login"`
	Email string `json:"email"`
}

type githubOrg struct {
	Login string `json:"login"`
}

// Validate resolves the token's account and organizations. An unusable
// token is invalid rather than an error; only building the requests can
// fail.
func (g *GitHub) Validate(ctx context.Context, token, claimedUsername, claimedEmail string) (Result, error) {
	var user githubUser
	ok, err := g.get(ctx, token, "/user", &user)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Reason: "GitHub token invalid"}, nil
	}

	if claimedUsername != "" && claimedUsername != user.Login {
		return Result{Reason: fmt.Sprintf("username mismatch: header=%s github=%s", claimedUsername, user.Login)}, nil
	}
	if claimedEmail != "" && user.Email != "" && claimedEmail != user.Email {
		return Result{Reason: fmt.Sprintf("email mismatch: header=%s github=%s", claimedEmail, user.Email)}, nil
	}

	// Org lookup failures degrade to a valid result without groups.
	var orgs []githubOrg
	ok, err = g.get(ctx, token, "/user/orgs", &orgs)
	if err != nil || !ok {
		logging.Warn().Err(err).Str("user", user.Login).Msg("GitHub org lookup failed")
		return Result{Valid: true}, nil
	}
	groups := make([]string, 0, len(orgs))
	for _, o := range orgs {
		groups = append(groups, o.Login)
	}
	return Result{Valid: true, Groups: groups}, nil
}

// get performs an authenticated API call. A non-200 response returns
// ok=false; transport failures return an error.
func (g *GitHub) get(ctx context.Context, token, path string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build GitHub request: %w", err)
	}
	req.Header.Set("Authorization", "token "+token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "gqlgate")

	resp, err := g.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("GitHub request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode GitHub response: %w", err)
	}
	return true, nil
}
