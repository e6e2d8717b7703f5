// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

package authz

import "reflect"

// argumentSatisfied reports whether an argument set satisfies one
// ArgumentRule: the argument must be present and its value must match at
// least one of the rule's values.
func argumentSatisfied(rule ArgumentRule, args map[string]any) bool {
	actual, ok := args[rule.ArgumentName]
	if !ok {
		return false
	}
	for _, want := range rule.Values {
		if valueMatches(want, actual) {
			return true
		}
	}
	return false
}

// valueMatches compares a rule value against a request value. Scalars
// compare by equality with numeric types normalized, so a rule value 5
// matches a query literal parsed as int64(5) or a JSON variable decoded as
// float64(5). Map rule values match structurally: every leaf of the rule
// value must be present and equal in the request value, extra request keys
// are ignored.
func valueMatches(want, actual any) bool {
	if wm, ok := want.(map[string]any); ok {
		am, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for _, leaf := range leafPaths(wm, nil) {
			got, found := valueAtPath(am, leaf.path)
			if !found || !scalarEqual(leaf.value, got) {
				return false
			}
		}
		return true
	}
	return scalarEqual(want, actual)
}

type leaf struct {
	path  []string
	value any
}

// leafPaths flattens a nested map into dot-path leaves.
func leafPaths(m map[string]any, prefix []string) []leaf {
	var leaves []leaf
	for k, v := range m {
		path := append(append([]string(nil), prefix...), k)
		if sub, ok := v.(map[string]any); ok {
			leaves = append(leaves, leafPaths(sub, path)...)
			continue
		}
		leaves = append(leaves, leaf{path: path, value: v})
	}
	return leaves
}

func valueAtPath(m map[string]any, path []string) (any, bool) {
	var cur any = m
	for _, seg := range path {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = node[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func scalarEqual(want, actual any) bool {
	if wf, ok := toFloat(want); ok {
		af, ok := toFloat(actual)
		return ok && wf == af
	}
	if ws, ok := want.(string); ok {
		as, ok := actual.(string)
		return ok && ws == as
	}
	return reflect.DeepEqual(want, actual)
}

// toFloat normalizes the numeric types produced by the YAML policy loader,
// the GraphQL literal parser, and the JSON variables decoder.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
