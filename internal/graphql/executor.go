package graphql

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tournevent/parcelbridge/pkg/courier"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"
)

//go:embed schema.graphql
var schemaSDL string

// Schema is the parsed API schema.
var Schema = gqlparser.MustLoadSchema(&ast.Source{Name: "schema.graphql", Input: schemaSDL})

// Request is a GraphQL request as posted over HTTP.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Response is a GraphQL response. Data is nil when the request could not be
// parsed or validated.
type Response struct {
	Data   any           `json:"data,omitempty"`
	Errors gqlerror.List `json:"errors,omitempty"`
}

type fieldFunc func(ctx context.Context, args map[string]any) (any, error)

// Executor validates requests against Schema and resolves their top-level
// fields with a Resolver. Mutation fields run in document order.
type Executor struct {
	schema    *ast.Schema
	queries   map[string]fieldFunc
	mutations map[string]fieldFunc
}

// NewExecutor binds the schema fields to r.
func NewExecutor(r *Resolver) *Executor {
	query, mutation := r.Query(), r.Mutation()

	type lookupArgs struct {
		PostCode    string `json:"postCode"`
		CountryCode string `json:"countryCode"`
	}

	return &Executor{
		schema: Schema,
		queries: map[string]fieldFunc{
			"health": func(ctx context.Context, _ map[string]any) (any, error) {
				return query.Health(ctx)
			},
			"checkPostCode": func(ctx context.Context, args map[string]any) (any, error) {
				var in lookupArgs
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				return query.CheckPostCode(ctx, in.PostCode, in.CountryCode)
			},
			"checkCourierAvailability": func(ctx context.Context, args map[string]any) (any, error) {
				var in lookupArgs
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				return query.CheckCourierAvailability(ctx, in.PostCode, in.CountryCode)
			},
		},
		mutations: map[string]fieldFunc{
			"sendPackages": func(ctx context.Context, args map[string]any) (any, error) {
				var in struct {
					Input SendPackagesInput `json:"input"`
				}
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				return mutation.SendPackages(ctx, in.Input)
			},
			"addParcels": func(ctx context.Context, args map[string]any) (any, error) {
				var in struct {
					PackageID ID               `json:"packageId"`
					Parcels   []courier.Parcel `json:"parcels"`
				}
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				return mutation.AddParcels(ctx, string(in.PackageID), in.Parcels)
			},
			"generateSpeedLabels": func(ctx context.Context, args map[string]any) (any, error) {
				var in struct {
					Input DocumentInput `json:"input"`
				}
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				return mutation.GenerateSpeedLabels(ctx, in.Input)
			},
			"generateProtocol": func(ctx context.Context, args map[string]any) (any, error) {
				var in struct {
					Input DocumentInput `json:"input"`
				}
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				return mutation.GenerateProtocol(ctx, in.Input)
			},
			"pickupRequest": func(ctx context.Context, args map[string]any) (any, error) {
				var in struct {
					Input PickupInput `json:"input"`
				}
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				return mutation.PickupRequest(ctx, in.Input)
			},
		},
	}
}

// Execute runs one request. A failing field resolves to null and adds an
// error at its path; the other fields are still resolved.
func (e *Executor) Execute(ctx context.Context, req Request) *Response {
	doc, errs := gqlparser.LoadQuery(e.schema, req.Query)
	if len(errs) > 0 {
		return &Response{Errors: errs}
	}

	op := doc.Operations.ForName(req.OperationName)
	if op == nil {
		return &Response{Errors: gqlerror.List{gqlerror.Errorf("operation %q not found", req.OperationName)}}
	}

	vars, err := validator.VariableValues(e.schema, op, req.Variables)
	if err != nil {
		var gqlErr *gqlerror.Error
		if !errors.As(err, &gqlErr) {
			gqlErr = gqlerror.Errorf("%s", err.Error())
		}
		return &Response{Errors: gqlerror.List{gqlErr}}
	}

	var resolvers map[string]fieldFunc
	switch op.Operation {
	case ast.Query:
		resolvers = e.queries
	case ast.Mutation:
		resolvers = e.mutations
	default:
		return &Response{Errors: gqlerror.List{gqlerror.Errorf("%s operations are not supported", op.Operation)}}
	}

	var (
		data      object
		fieldErrs gqlerror.List
	)
	for _, field := range collectFields(op.SelectionSet, vars) {
		key := responseKey(field)
		if field.Name == "__typename" {
			data = append(data, member{key, field.ObjectDefinition.Name})
			continue
		}

		path := ast.Path{ast.PathName(key)}
		resolve, ok := resolvers[field.Name]
		if !ok {
			data = append(data, member{key, nil})
			fieldErrs = append(fieldErrs, &gqlerror.Error{
				Message: fmt.Sprintf("field %q is not resolvable", field.Name),
				Path:    path,
			})
			continue
		}

		value, err := resolve(ctx, field.ArgumentMap(vars))
		if err == nil {
			value, err = project(value, field.SelectionSet, vars)
		}
		if err != nil {
			data = append(data, member{key, nil})
			fieldErrs = append(fieldErrs, toGraphQLError(err, path))
			continue
		}
		data = append(data, member{key, value})
	}

	return &Response{Data: data, Errors: fieldErrs}
}

// project keeps only the selected fields of a resolved value.
func project(value any, set ast.SelectionSet, vars map[string]any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	return selectFields(tree, set, vars), nil
}

func selectFields(node any, set ast.SelectionSet, vars map[string]any) any {
	if len(set) == 0 {
		return node
	}
	switch v := node.(type) {
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = selectFields(item, set, vars)
		}
		return out
	case map[string]any:
		fields := collectFields(set, vars)
		obj := make(object, 0, len(fields))
		for _, f := range fields {
			key := responseKey(f)
			if f.Name == "__typename" {
				obj = append(obj, member{key, f.ObjectDefinition.Name})
				continue
			}
			obj = append(obj, member{key, selectFields(v[f.Name], f.SelectionSet, vars)})
		}
		return obj
	default:
		return node
	}
}

// collectFields flattens fragments and applies @skip and @include. Repeated
// response keys keep their first occurrence.
func collectFields(set ast.SelectionSet, vars map[string]any) []*ast.Field {
	var fields []*ast.Field
	seen := make(map[string]bool)
	var walk func(ast.SelectionSet)
	walk = func(set ast.SelectionSet) {
		for _, sel := range set {
			switch s := sel.(type) {
			case *ast.Field:
				key := responseKey(s)
				if !included(s.Directives, vars) || seen[key] {
					continue
				}
				seen[key] = true
				fields = append(fields, s)
			case *ast.InlineFragment:
				if included(s.Directives, vars) {
					walk(s.SelectionSet)
				}
			case *ast.FragmentSpread:
				if s.Definition != nil && included(s.Directives, vars) {
					walk(s.Definition.SelectionSet)
				}
			}
		}
	}
	walk(set)
	return fields
}

func included(directives ast.DirectiveList, vars map[string]any) bool {
	if d := directives.ForName("skip"); d != nil {
		if skip, _ := d.ArgumentMap(vars)["if"].(bool); skip {
			return false
		}
	}
	if d := directives.ForName("include"); d != nil {
		if include, _ := d.ArgumentMap(vars)["if"].(bool); !include {
			return false
		}
	}
	return true
}

func responseKey(f *ast.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// object is a JSON object that keeps the order of the selection set.
type object []member

type member struct {
	key   string
	value any
}

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(m.value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
