// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

// Package graphql converts parsed GraphQL operations into normalized field
// trees for policy matching. Documents are parsed with vektah/gqlparser;
// this package resolves fragment spreads and inline fragments, substitutes
// variable values into arguments, and flattens the selection set into a
// tree keyed by field alias (or name).
//
// The matcher never sees fragment nodes: by the time a tree leaves this
// package, only plain fields remain.
package graphql

// FieldTree is a normalized selection set: requested field name (or alias)
// to the field's resolved arguments and nested selection.
type FieldTree map[string]*Field

// Field is one requested field. ArgSets holds one argument map per
// occurrence of the field, so repeated requests of the same field with
// different arguments are all visible to the matcher.
type Field struct {
	ArgSets      []map[string]any
	SelectionSet FieldTree
}

// Arguments returns the first argument set, or nil when the field carries
// no arguments. Most fields are requested exactly once.
func (f *Field) Arguments() map[string]any {
	if len(f.ArgSets) == 0 {
		return nil
	}
	return f.ArgSets[0]
}

// ArgumentValues returns every value supplied for the named argument across
// all occurrences of the field. Occurrences without the argument are
// skipped.
func (f *Field) ArgumentValues(name string) []any {
	var values []any
	for _, args := range f.ArgSets {
		if v, ok := args[name]; ok {
			values = append(values, v)
		}
	}
	return values
}
