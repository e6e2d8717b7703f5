// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

// Package config loads gateway configuration from layered sources with
// clear precedence: environment variables override the optional YAML config
// file, which overrides built-in defaults.
package config

import "time"

// Config is the root configuration for the gateway process.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Registry RegistryConfig `koanf:"registry"`
	Auth     AuthConfig     `koanf:"auth"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds the listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout"`
	GraphQLPath     string        `koanf:"graphql_path" validate:"required,startswith=/"`
	HealthcheckPath string        `koanf:"healthcheck_path" validate:"required,startswith=/"`
}

// UpstreamConfig points at the GraphQL server being protected. GraphQL
// requests are authorized and forwarded to URL + the server's graphql_path;
// everything else is proxied to URL verbatim.
type UpstreamConfig struct {
	URL            string        `koanf:"url" validate:"required,url"`
	Timeout        time.Duration `koanf:"timeout"`
	BreakerEnabled bool          `koanf:"breaker_enabled"`
}

// RegistryConfig locates the static user and group policy files.
type RegistryConfig struct {
	UsersFile  string `koanf:"users_file" validate:"required"`
	GroupsFile string `koanf:"groups_file" validate:"required"`
}

// AuthConfig controls optional identity-provider token validation.
type AuthConfig struct {
	ValidateToken bool          `koanf:"validate_token"`
	Provider      string        `koanf:"provider" validate:"omitempty,oneof=github azure custom"`
	Timeout       time.Duration `koanf:"timeout"`
	GithubAPIURL  string        `koanf:"github_api_url" validate:"omitempty,url"`
}

// SecurityConfig holds the HTTP hardening knobs.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig configures the process-wide logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns the built-in defaults, applied before the config
// file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			Timeout:         60 * time.Second,
			GraphQLPath:     "/graphql",
			HealthcheckPath: "/gqlproxy/health",
		},
		Upstream: UpstreamConfig{
			URL:            "",
			Timeout:        30 * time.Second,
			BreakerEnabled: true,
		},
		Registry: RegistryConfig{
			UsersFile:  "users.yaml",
			GroupsFile: "groups.yaml",
		},
		Auth: AuthConfig{
			ValidateToken: false,
			Provider:      "custom",
			Timeout:       10 * time.Second,
			GithubAPIURL:  "https://api.github.com",
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
