// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

// Package idp validates forwarded access tokens against an identity
// provider and cross-checks the identity claimed in the request headers.
// Providers are selected by configuration string at startup.
package idp

import (
	"context"
	"time"

	"github.com/gqlgate/gqlgate/internal/config"
)

// Result is the outcome of a token validation. Groups carries any group
// or organization names the provider reports for the token's owner; it is
// empty for providers without a group concept.
type Result struct {
	Valid  bool
	Reason string
	Groups []string
}

// Provider validates an access token and checks it against the identity
// the caller claims in the forwarded headers.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Validate checks the token. A mismatch between the token's identity
	// and the claimed username or email is reported as invalid with a
	// reason, not as an error; errors are reserved for transport failures.
	Validate(ctx context.Context, token, claimedUsername, claimedEmail string) (Result, error)
}

// New builds the configured provider. Unknown names fall back to the
// custom provider, which accepts every token.
func New(cfg config.AuthConfig) Provider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	switch cfg.Provider {
	case "github":
		return NewGitHub(cfg.GithubAPIURL, timeout)
	case "azure":
		return NewAzure()
	default:
		return NewCustom()
	}
}
