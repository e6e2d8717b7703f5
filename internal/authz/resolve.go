// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

package authz

import (
	"errors"
	"fmt"

	"github.com/gqlgate/gqlgate/internal/graphql"
)

// OpKind is the GraphQL operation kind being authorized. Subscriptions are
// not proxied and never reach the matcher.
type OpKind string

const (
	OpQuery    OpKind = "query"
	OpMutation OpKind = "mutation"
)

// ErrNoRules is returned when a user's effective rule set is empty for the
// requested operation kind. This is a configuration gap and fails closed.
var ErrNoRules = errors.New("no authorization rules configured for operation kind")

// RuleSet is a caller's effective rules, pooled across group memberships
// and split by operation kind and effect.
type RuleSet struct {
	QueryAllow    []FieldRule
	QueryDeny     []FieldRule
	MutationAllow []FieldRule
	MutationDeny  []FieldRule
}

// Resolve pools permissions from each of the caller's groups, in group
// order, into a single RuleSet. Permissions are expected to be normalized
// at registry load time.
func Resolve(perms []Permissions) RuleSet {
	var rs RuleSet
	for _, p := range perms {
		if q := p.Queries; q != nil {
			switch q.Effect {
			case EffectAllow:
				rs.QueryAllow = append(rs.QueryAllow, q.FieldRules...)
			case EffectDeny:
				rs.QueryDeny = append(rs.QueryDeny, q.FieldRules...)
			}
		}
		if m := p.Mutations; m != nil {
			switch m.Effect {
			case EffectAllow:
				rs.MutationAllow = append(rs.MutationAllow, m.FieldRules...)
			case EffectDeny:
				rs.MutationDeny = append(rs.MutationDeny, m.FieldRules...)
			}
		}
	}
	return rs
}

// Evaluate runs the matcher for one operation. Allow rules take precedence:
// when any group contributed allow rules for the operation kind, only the
// allow-list is consulted, so one group granting access overrides another
// group's deny policy. Deny rules apply only when no allow rules exist.
// An empty rule set for the requested kind is an error, not a verdict.
func (rs *RuleSet) Evaluate(kind OpKind, tree graphql.FieldTree) (Result, error) {
	var allow, deny []FieldRule
	switch kind {
	case OpQuery:
		allow, deny = rs.QueryAllow, rs.QueryDeny
	case OpMutation:
		allow, deny = rs.MutationAllow, rs.MutationDeny
	default:
		return Result{}, fmt.Errorf("unsupported operation kind %q", kind)
	}

	if len(allow) > 0 {
		return MatchAllowRules(tree, allow, nil), nil
	}
	if len(deny) > 0 {
		return MatchDenyRules(tree, deny, nil), nil
	}
	return Result{}, fmt.Errorf("%w: %s", ErrNoRules, kind)
}
