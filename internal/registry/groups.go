// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

package registry

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/gqlgate/gqlgate/internal/authz"
	"github.com/gqlgate/gqlgate/internal/logging"
)

// Group names a set of permissions users can be members of.
type Group struct {
	Name        string            `koanf:"name" json:"name" validate:"required"`
	Description string            `koanf:"description" json:"description,omitempty"`
	Permissions authz.Permissions `koanf:"permissions" json:"permissions"`
}

// Groups is the immutable group registry. IdP group mapping translates
// group names reported by an identity provider (GitHub org slugs, Azure
// group IDs) into local group names.
type Groups struct {
	groups     []Group
	byName     map[string]*Group
	idpMapping map[string][]string
}

type groupsDoc struct {
	Groups          []Group             `koanf:"groups" validate:"required,dive"`
	IdPGroupMapping map[string][]string `koanf:"idp_group_mapping"`
}

// LoadGroups reads the group registry from a YAML file. Policies are
// normalized at load: a missing or rule-less deny policy becomes an
// explicit wildcard deny.
func LoadGroups(path string) (*Groups, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to read groups file %s: %w", path, err)
	}
	return buildGroups(k, path)
}

// ParseGroups reads the group registry from raw YAML bytes.
func ParseGroups(data []byte) (*Groups, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse groups document: %w", err)
	}
	return buildGroups(k, "inline")
}

func buildGroups(k *koanf.Koanf, source string) (*Groups, error) {
	var doc groupsDoc
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal groups from %s: %w", source, err)
	}

	reg := &Groups{
		groups:     doc.Groups,
		byName:     make(map[string]*Group, len(doc.Groups)),
		idpMapping: doc.IdPGroupMapping,
	}
	for i := range reg.groups {
		g := &reg.groups[i]
		if g.Name == "" {
			return nil, fmt.Errorf("group %d in %s has no name", i, source)
		}
		if _, dup := reg.byName[g.Name]; dup {
			return nil, fmt.Errorf("duplicate group %q in %s", g.Name, source)
		}
		if err := g.Permissions.Validate(); err != nil {
			return nil, fmt.Errorf("group %q in %s: %w", g.Name, source, err)
		}
		g.Permissions.Normalize()
		reg.byName[g.Name] = g
	}
	return reg, nil
}

// Get looks a group up by exact name.
func (r *Groups) Get(name string) (*Group, bool) {
	g, ok := r.byName[strings.TrimSpace(name)]
	return g, ok
}

// PermissionsFor collects the permissions of the named groups, in order.
// Unknown group names are dropped rather than failing the request.
func (r *Groups) PermissionsFor(names []string) []authz.Permissions {
	perms := make([]authz.Permissions, 0, len(names))
	for _, name := range names {
		g, ok := r.Get(name)
		if !ok {
			logging.Debug().Str("group", name).Msg("Skipping unknown group")
			continue
		}
		perms = append(perms, g.Permissions)
	}
	return perms
}

// MapIdPGroups translates identity-provider group names into local group
// names. Unmapped IdP groups are ignored.
func (r *Groups) MapIdPGroups(idpGroups []string) []string {
	if len(r.idpMapping) == 0 {
		return nil
	}
	var local []string
	seen := make(map[string]bool)
	for _, g := range idpGroups {
		for _, mapped := range r.idpMapping[g] {
			if !seen[mapped] {
				seen[mapped] = true
				local = append(local, mapped)
			}
		}
	}
	return local
}

// Count returns the number of configured groups.
func (r *Groups) Count() int {
	return len(r.groups)
}
