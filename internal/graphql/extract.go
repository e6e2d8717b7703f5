// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

package graphql

import (
	"fmt"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/gqlgate/gqlgate/internal/logging"
)

// Parse parses a raw GraphQL document without schema validation. The
// gateway authorizes the shape of the request; whether the upstream schema
// actually defines the requested fields is the upstream's problem.
func Parse(query string) (*ast.QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	return doc, nil
}

// SelectOperation picks the operation to authorize: the named operation
// when operationName is set, otherwise the first query or mutation in the
// document. Subscriptions are never selected implicitly since the gateway
// does not proxy them.
func SelectOperation(doc *ast.QueryDocument, operationName string) (*ast.OperationDefinition, error) {
	if operationName != "" {
		for _, op := range doc.Operations {
			if op.Name == operationName {
				return op, nil
			}
		}
		return nil, fmt.Errorf("operation %q not found in document", operationName)
	}
	for _, op := range doc.Operations {
		if op.Operation == ast.Query || op.Operation == ast.Mutation {
			return op, nil
		}
	}
	return nil, fmt.Errorf("document contains no query or mutation operation")
}

// Fragments indexes a document's fragment definitions by name.
func Fragments(doc *ast.QueryDocument) map[string]*ast.FragmentDefinition {
	frags := make(map[string]*ast.FragmentDefinition, len(doc.Fragments))
	for _, frag := range doc.Fragments {
		frags[frag.Name] = frag
	}
	return frags
}

// Render flattens a selection set into a FieldTree. Fragment spreads and
// inline fragments are replaced by their selections, arguments are resolved
// against variables, and fields are keyed by alias when one is present.
func Render(sel ast.SelectionSet, fragments map[string]*ast.FragmentDefinition, variables map[string]any) (FieldTree, error) {
	r := &renderer{fragments: fragments, variables: variables, active: make(map[string]bool)}
	return r.render(sel)
}

type renderer struct {
	fragments map[string]*ast.FragmentDefinition
	variables map[string]any

	// active tracks fragments on the current expansion path so that a
	// cyclic spread cannot recurse forever.
	active map[string]bool
}

func (r *renderer) render(sel ast.SelectionSet) (FieldTree, error) {
	tree := make(FieldTree)
	for _, node := range sel {
		switch n := node.(type) {
		case *ast.Field:
			if err := r.addField(tree, n); err != nil {
				return nil, err
			}
		case *ast.FragmentSpread:
			if err := r.spread(tree, n.Name); err != nil {
				return nil, err
			}
		case *ast.InlineFragment:
			sub, err := r.render(n.SelectionSet)
			if err != nil {
				return nil, err
			}
			mergeTrees(tree, sub)
		default:
			return nil, fmt.Errorf("unsupported selection node %T", node)
		}
	}
	return tree, nil
}

func (r *renderer) addField(tree FieldTree, f *ast.Field) error {
	key := f.Name
	if f.Alias != "" {
		key = f.Alias
	}

	args := make(map[string]any, len(f.Arguments))
	for _, arg := range f.Arguments {
		v, err := r.resolveValue(arg.Value)
		if err != nil {
			return fmt.Errorf("argument %q: %w", arg.Name, err)
		}
		args[arg.Name] = v
	}

	sub, err := r.render(f.SelectionSet)
	if err != nil {
		return err
	}

	field, ok := tree[key]
	if !ok {
		field = &Field{SelectionSet: make(FieldTree)}
		tree[key] = field
	}
	field.ArgSets = append(field.ArgSets, args)
	mergeTrees(field.SelectionSet, sub)
	return nil
}

func (r *renderer) spread(tree FieldTree, name string) error {
	frag, ok := r.fragments[name]
	if !ok {
		// Referencing an undefined fragment grants nothing, so skipping
		// it cannot widen access.
		logging.Debug().Str("fragment", name).Msg("Skipping undefined fragment spread")
		return nil
	}
	if r.active[name] {
		return fmt.Errorf("fragment cycle through %q", name)
	}
	r.active[name] = true
	defer delete(r.active, name)

	sub, err := r.render(frag.SelectionSet)
	if err != nil {
		return err
	}
	mergeTrees(tree, sub)
	return nil
}

// mergeTrees folds src into dst, concatenating argument sets and merging
// nested selections when the same key appears in both.
func mergeTrees(dst, src FieldTree) {
	for key, sf := range src {
		df, ok := dst[key]
		if !ok {
			dst[key] = sf
			continue
		}
		df.ArgSets = append(df.ArgSets, sf.ArgSets...)
		mergeTrees(df.SelectionSet, sf.SelectionSet)
	}
}

// resolveValue converts an AST value into a plain Go value, substituting
// variables. Undefined variables resolve to nil rather than erroring; the
// matcher then treats the argument as present with a null value.
func (r *renderer) resolveValue(v *ast.Value) (any, error) {
	switch v.Kind {
	case ast.Variable:
		return r.variables[v.Raw], nil
	case ast.IntValue:
		n, err := strconv.ParseInt(v.Raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid int literal %q: %w", v.Raw, err)
		}
		return n, nil
	case ast.FloatValue:
		f, err := strconv.ParseFloat(v.Raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float literal %q: %w", v.Raw, err)
		}
		return f, nil
	case ast.StringValue, ast.BlockValue, ast.EnumValue:
		return v.Raw, nil
	case ast.BooleanValue:
		return v.Raw == "true", nil
	case ast.NullValue:
		return nil, nil
	case ast.ListValue:
		list := make([]any, 0, len(v.Children))
		for _, child := range v.Children {
			cv, err := r.resolveValue(child.Value)
			if err != nil {
				return nil, err
			}
			list = append(list, cv)
		}
		return list, nil
	case ast.ObjectValue:
		obj := make(map[string]any, len(v.Children))
		for _, child := range v.Children {
			cv, err := r.resolveValue(child.Value)
			if err != nil {
				return nil, err
			}
			obj[child.Name] = cv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported value kind %d", v.Kind)
	}
}
