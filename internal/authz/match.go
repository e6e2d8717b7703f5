// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

package authz

import (
	"fmt"

	"github.com/gqlgate/gqlgate/internal/graphql"
)

// Result is a matcher verdict. Path locates the field at which a denial
// occurred, root-first.
type Result struct {
	Allowed bool
	Reason  string
	Path    []string
}

func allowed(reason string, path []string) Result {
	return Result{Allowed: true, Reason: reason, Path: path}
}

func denied(reason string, path []string) Result {
	return Result{Allowed: false, Reason: reason, Path: path}
}

// MatchDenyRules checks a field tree against a deny-list. The default
// verdict is permit: only a rule that matches a forbidden shape denies the
// request.
//
// A wildcard rule denies unconditionally. A rule naming a requested field
// denies when any occurrence of the field carries an argument value listed
// by the rule, or when the field has a sub-selection the rule provides no
// nested rules for. Nested rules are applied to each sub-field in turn.
func MatchDenyRules(tree graphql.FieldTree, rules []FieldRule, path []string) Result {
	if len(rules) == 0 {
		return allowed("no deny rules configured", path)
	}

	for _, rule := range rules {
		if rule.FieldName == Wildcard {
			return denied("wildcard rule denies all fields", path)
		}

		field, requested := tree[rule.FieldName]
		if !requested {
			continue
		}

		for _, argRule := range rule.Arguments {
			for _, args := range field.ArgSets {
				if argumentSatisfied(argRule, args) {
					return denied(
						fmt.Sprintf("argument %q value %v is forbidden for field %q",
							argRule.ArgumentName, args[argRule.ArgumentName], rule.FieldName),
						appendPath(path, rule.FieldName))
				}
			}
		}

		if len(field.SelectionSet) == 0 {
			continue
		}
		if len(rule.FieldRules) == 0 {
			return denied(
				fmt.Sprintf("field %q has a sub-selection but no nested rules permit descending", rule.FieldName),
				appendPath(path, rule.FieldName))
		}
		subPath := appendPath(path, rule.FieldName)
		for name, sub := range field.SelectionSet {
			res := MatchDenyRules(graphql.FieldTree{name: sub}, rule.FieldRules, subPath)
			if !res.Allowed {
				return res
			}
		}
	}

	return allowed("no deny rule matched", path)
}

// MatchAllowRules checks a field tree against an allow-list. The default
// verdict is deny: a request is permitted only when a rule matches it.
// Rules are alternatives; the first rule naming a requested field decides.
//
// Argument constraints are fatal on mismatch rather than falling through
// to the next rule, so a policy cannot be widened by listing a looser rule
// after a stricter one.
func MatchAllowRules(tree graphql.FieldTree, rules []FieldRule, path []string) Result {
	if len(rules) == 0 {
		return denied("no allow rules configured, all fields are denied", path)
	}

	for _, rule := range rules {
		if rule.FieldName == Wildcard {
			return allowed("wildcard rule allows all fields", path)
		}

		field, requested := tree[rule.FieldName]
		if !requested {
			continue
		}

		for _, argRule := range rule.Arguments {
			for _, args := range field.ArgSets {
				if argumentViolated(argRule, args) {
					return denied(
						fmt.Sprintf("argument %q value %v is not allowed for field %q",
							argRule.ArgumentName, args[argRule.ArgumentName], rule.FieldName),
						appendPath(path, rule.FieldName))
				}
			}
		}

		if len(field.SelectionSet) > 0 && len(rule.FieldRules) > 0 {
			subPath := appendPath(path, rule.FieldName)
			for name, sub := range field.SelectionSet {
				res := MatchAllowRules(graphql.FieldTree{name: sub}, rule.FieldRules, subPath)
				if !res.Allowed {
					return res
				}
			}
			return allowed(fmt.Sprintf("field %q and its sub-selection are allowed", rule.FieldName), subPath)
		}

		return allowed(fmt.Sprintf("field %q is allowed", rule.FieldName), appendPath(path, rule.FieldName))
	}

	return denied("no allow rule matched the requested fields", path)
}

// argumentViolated reports whether an argument set breaks an allow-side
// constraint: the argument is supplied but equals none of the permitted
// values. An absent argument violates nothing, and a rule without values
// imposes no constraint.
func argumentViolated(rule ArgumentRule, args map[string]any) bool {
	if len(rule.Values) == 0 {
		return false
	}
	actual, ok := args[rule.ArgumentName]
	if !ok {
		return false
	}
	for _, want := range rule.Values {
		if valueMatches(want, actual) {
			return false
		}
	}
	return true
}

// appendPath copies before appending so sibling branches never share a
// backing array.
func appendPath(path []string, name string) []string {
	out := make([]string, 0, len(path)+1)
	out = append(out, path...)
	return append(out, name)
}
