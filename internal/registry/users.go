// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

// Package registry loads the static user and group policy documents and
// serves lookups against them. Registries are built once at startup and
// never mutated afterwards, so concurrent readers need no locking; lookups
// hit precomputed maps rather than scanning.
package registry

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/gqlgate/gqlgate/internal/validation"
)

// User is one configured identity and its group memberships.
type User struct {
	Username string   `koanf:"username" json:"username" validate:"required"`
	Email    string   `koanf:"email" json:"email" validate:"required,email"`
	Groups   []string `koanf:"groups" json:"groups"`
}

// Users is the immutable user registry.
type Users struct {
	users      []User
	byUsername map[string]*User
	byEmail    map[string]*User
}

type usersDoc struct {
	Users []User `koanf:"users" validate:"required,dive"`
}

// LoadUsers reads the user registry from a YAML file.
func LoadUsers(path string) (*Users, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to read users file %s: %w", path, err)
	}
	return buildUsers(k, path)
}

// ParseUsers reads the user registry from raw YAML bytes.
func ParseUsers(data []byte) (*Users, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse users document: %w", err)
	}
	return buildUsers(k, "inline")
}

func buildUsers(k *koanf.Koanf, source string) (*Users, error) {
	var doc usersDoc
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal users from %s: %w", source, err)
	}
	if err := validation.ValidateStruct(&doc); err != nil {
		return nil, fmt.Errorf("invalid users document %s: %w", source, err)
	}

	reg := &Users{
		users:      doc.Users,
		byUsername: make(map[string]*User, len(doc.Users)),
		byEmail:    make(map[string]*User, len(doc.Users)),
	}
	for i := range reg.users {
		u := &reg.users[i]
		if _, dup := reg.byUsername[u.Username]; dup {
			return nil, fmt.Errorf("duplicate username %q in %s", u.Username, source)
		}
		reg.byUsername[u.Username] = u
		reg.byEmail[u.Email] = u
	}
	return reg, nil
}

// ByUsername looks a user up by exact username, ignoring surrounding
// whitespace from forwarded headers.
func (r *Users) ByUsername(username string) (*User, bool) {
	u, ok := r.byUsername[strings.TrimSpace(username)]
	return u, ok
}

// ByEmail looks a user up by exact email.
func (r *Users) ByEmail(email string) (*User, bool) {
	u, ok := r.byEmail[strings.TrimSpace(email)]
	return u, ok
}

// Lookup finds a user by username first, then by email.
func (r *Users) Lookup(username, email string) (*User, bool) {
	if username != "" {
		if u, ok := r.ByUsername(username); ok {
			return u, true
		}
	}
	if email != "" {
		if u, ok := r.ByEmail(email); ok {
			return u, true
		}
	}
	return nil, false
}

// Count returns the number of configured users.
func (r *Users) Count() int {
	return len(r.users)
}
