// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

package config

import (
	"fmt"

	"github.com/gqlgate/gqlgate/internal/validation"
)

// Validate checks the loaded configuration for mistakes that would only
// surface later as confusing runtime failures.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive, got %s", c.Upstream.Timeout)
	}
	if c.Auth.ValidateToken {
		if c.Auth.Provider == "" {
			return fmt.Errorf("auth.provider is required when auth.validate_token is enabled")
		}
		if c.Auth.Timeout <= 0 {
			return fmt.Errorf("auth.timeout must be positive, got %s", c.Auth.Timeout)
		}
	}
	if c.Server.GraphQLPath == c.Server.HealthcheckPath {
		return fmt.Errorf("server.graphql_path and server.healthcheck_path must differ")
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs <= 0 {
			return fmt.Errorf("security.rate_limit_reqs must be positive when rate limiting is enabled")
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("security.rate_limit_window must be positive when rate limiting is enabled")
		}
	}
	return nil
}
