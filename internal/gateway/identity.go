// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

// Package gateway wires the request pipeline together: identity headers to
// user lookup, optional token validation, GraphQL parsing and field
// extraction, policy evaluation, and finally forwarding to the upstream or
// rejecting with a GraphQL-shaped error.
package gateway

import (
	"net/http"
	"strings"
)

// Identity header names. These are set by the authenticating proxy in
// front of the gateway; a production deployment must never accept them
// from the client directly.
const (
	HeaderEmail             = "X-Forwarded-Email"
	HeaderUser              = "X-Forwarded-User"
	HeaderPreferredUsername = "X-Forwarded-Preferred-Username"
	HeaderAccessToken       = "X-Forwarded-Access-Token"
)

// Identity is what the trusted proxy claims about the caller.
type Identity struct {
	Username string
	Email    string
	Token    string
}

// IdentityFromHeaders extracts the caller's claimed identity. The username
// falls back to the preferred-username variant some proxies send instead.
func IdentityFromHeaders(r *http.Request) Identity {
	username := strings.TrimSpace(r.Header.Get(HeaderUser))
	if username == "" {
		username = strings.TrimSpace(r.Header.Get(HeaderPreferredUsername))
	}
	return Identity{
		Username: username,
		Email:    strings.TrimSpace(r.Header.Get(HeaderEmail)),
		Token:    strings.TrimSpace(r.Header.Get(HeaderAccessToken)),
	}
}

// Anonymous reports whether no identity was forwarded at all.
func (id Identity) Anonymous() bool {
	return id.Username == "" && id.Email == ""
}
