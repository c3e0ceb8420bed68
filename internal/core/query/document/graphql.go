package document

import (
	"fmt"
	"math"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/satishbabariya/prisma-engine/internal/core/query/domain"
)

// ParseGraphQL parses a request written in GraphQL syntax. Every top-level
// field of every operation becomes one Operation, in source order.
// Variables are substituted while converting argument values.
func ParseGraphQL(src string, variables map[string]any) (*Document, error) {
	qd, err := parser.ParseQuery(&ast.Source{Name: "request", Input: src})
	if err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	if len(qd.Fragments) > 0 {
		return nil, fmt.Errorf("parse request: fragments are not supported")
	}

	doc := &Document{}
	for _, op := range qd.Operations {
		vars, err := bindVariables(op, variables)
		if err != nil {
			return nil, err
		}
		for _, sel := range op.SelectionSet {
			field, ok := sel.(*ast.Field)
			if !ok {
				return nil, fmt.Errorf("parse request: fragments are not supported")
			}
			action, model, ok := domain.SplitAction(field.Name)
			if !ok {
				return nil, fmt.Errorf("parse request: %q does not start with a known action", field.Name)
			}
			args, err := convertArguments(field.Arguments, vars)
			if err != nil {
				return nil, fmt.Errorf("parse request: %s: %w", field.Name, err)
			}
			selection, err := convertSelection(field.SelectionSet, vars)
			if err != nil {
				return nil, fmt.Errorf("parse request: %s: %w", field.Name, err)
			}
			doc.Operations = append(doc.Operations, Operation{
				Key:       responseKey(field),
				Action:    action,
				Model:     model,
				Arguments: args,
				Selection: selection,
			})
		}
	}
	return doc, nil
}

func responseKey(f *ast.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

func bindVariables(op *ast.OperationDefinition, given map[string]any) (map[string]any, error) {
	vars := make(map[string]any, len(op.VariableDefinitions))
	for _, def := range op.VariableDefinitions {
		v, ok := given[def.Variable]
		switch {
		case ok:
			vars[def.Variable] = v
		case def.DefaultValue != nil:
			dv, err := convertValue(def.DefaultValue, nil)
			if err != nil {
				return nil, fmt.Errorf("parse request: variable $%s: %w", def.Variable, err)
			}
			vars[def.Variable] = dv
		case def.Type != nil && def.Type.NonNull:
			return nil, fmt.Errorf("parse request: variable $%s of required type %s was not provided", def.Variable, def.Type.String())
		}
	}
	return vars, nil
}

func convertArguments(args ast.ArgumentList, vars map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, a := range args {
		v, err := convertValue(a.Value, vars)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", a.Name, err)
		}
		out[a.Name] = v
	}
	return out, nil
}

func convertSelection(set ast.SelectionSet, vars map[string]any) ([]Selection, error) {
	out := make([]Selection, 0, len(set))
	for _, sel := range set {
		field, ok := sel.(*ast.Field)
		if !ok {
			return nil, fmt.Errorf("fragments are not supported")
		}
		args, err := convertArguments(field.Arguments, vars)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field.Name, err)
		}
		s := Selection{Key: responseKey(field), Name: field.Name, Arguments: args}
		if len(field.SelectionSet) > 0 {
			if s.Nested, err = convertSelection(field.SelectionSet, vars); err != nil {
				return nil, fmt.Errorf("%s: %w", field.Name, err)
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// convertValue turns a literal into nil, bool, int64, float64, string,
// []any or map[string]any. Variables are looked up in vars; a missing
// optional variable reads as null.
func convertValue(v *ast.Value, vars map[string]any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch v.Kind {
	case ast.Variable:
		return vars[v.Raw], nil
	case ast.IntValue:
		i, err := strconv.ParseInt(v.Raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("integer %s out of range", v.Raw)
		}
		return i, nil
	case ast.FloatValue:
		f, err := strconv.ParseFloat(v.Raw, 64)
		if err != nil || math.IsInf(f, 0) {
			return nil, fmt.Errorf("invalid float %s", v.Raw)
		}
		return f, nil
	case ast.StringValue, ast.BlockValue, ast.EnumValue:
		return v.Raw, nil
	case ast.BooleanValue:
		return v.Raw == "true", nil
	case ast.NullValue:
		return nil, nil
	case ast.ListValue:
		out := make([]any, 0, len(v.Children))
		for _, c := range v.Children {
			cv, err := convertValue(c.Value, vars)
			if err != nil {
				return nil, err
			}
			out = append(out, cv)
		}
		return out, nil
	case ast.ObjectValue:
		out := make(map[string]any, len(v.Children))
		for _, c := range v.Children {
			cv, err := convertValue(c.Value, vars)
			if err != nil {
				return nil, err
			}
			out[c.Name] = cv
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value %s", v.String())
}
