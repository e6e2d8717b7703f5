// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

// Package authz implements field-level authorization for GraphQL
// operations. Policies are trees of field rules mirroring the shape of a
// selection set; a request is evaluated by walking its field tree against
// the deny rules first, then the allow rules. Absence of an applicable
// allow rule means denial.
package authz

import "fmt"

// Effect is the disposition a policy applies to matching requests.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Wildcard matches any field name at its level and, by extension, any
// selection nested beneath it.
const Wildcard = "*"

// ArgumentRule constrains the values a field argument may take. A request
// argument satisfies the rule when it equals any listed value; object
// values match structurally, see valueMatches.
type ArgumentRule struct {
	ArgumentName string `koanf:"argument_name" json:"argument_name" validate:"required"`
	Values       []any  `koanf:"values" json:"values"`
}

// FieldRule covers one field of a selection set. Nested FieldRules cover
// the field's own selection set; Arguments constrain the field's argument
// values.
type FieldRule struct {
	FieldName  string         `koanf:"field_name" json:"field_name" validate:"required"`
	Arguments  []ArgumentRule `koanf:"arguments" json:"arguments,omitempty"`
	FieldRules []FieldRule    `koanf:"field_rules" json:"field_rules,omitempty"`
}

// Policy is an effect plus the field rule tree it governs.
type Policy struct {
	Effect     Effect      `koanf:"effect" json:"effect" validate:"omitempty,oneof=allow deny"`
	FieldRules []FieldRule `koanf:"fields" json:"fields,omitempty"`
}

// Permissions are one group's policies, split by operation kind.
type Permissions struct {
	Queries   *Policy `koanf:"queries" json:"queries,omitempty"`
	Mutations *Policy `koanf:"mutations" json:"mutations,omitempty"`
}

// Normalize fills policy defaults in place. A missing policy for an
// operation kind denies everything; a deny policy with no field rules
// means deny everything.
func (p *Permissions) Normalize() {
	p.Queries = normalizePolicy(p.Queries)
	p.Mutations = normalizePolicy(p.Mutations)
}

func normalizePolicy(p *Policy) *Policy {
	if p == nil {
		return &Policy{Effect: EffectDeny, FieldRules: []FieldRule{{FieldName: Wildcard}}}
	}
	if p.Effect == "" {
		p.Effect = EffectDeny
	}
	if p.Effect == EffectDeny && len(p.FieldRules) == 0 {
		p.FieldRules = []FieldRule{{FieldName: Wildcard}}
	}
	return p
}

// Validate rejects policies with an unknown effect or empty field names.
func (p *Permissions) Validate() error {
	for kind, pol := range map[string]*Policy{"queries": p.Queries, "mutations": p.Mutations} {
		if pol == nil {
			continue
		}
		if pol.Effect != "" && pol.Effect != EffectAllow && pol.Effect != EffectDeny {
			return fmt.Errorf("%s: unknown effect %q", kind, pol.Effect)
		}
		if err := validateRules(pol.FieldRules); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
	}
	return nil
}

func validateRules(rules []FieldRule) error {
	for _, r := range rules {
		if r.FieldName == "" {
			return fmt.Errorf("field rule with empty field_name")
		}
		for _, a := range r.Arguments {
			if a.ArgumentName == "" {
				return fmt.Errorf("field %q: argument rule with empty argument_name", r.FieldName)
			}
		}
		if err := validateRules(r.FieldRules); err != nil {
			return err
		}
	}
	return nil
}
