package graphql

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tournevent/parcelbridge/pkg/courier"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

func servicesInputToModel(inputs []ServiceInput) []courier.Service {
	if len(inputs) == 0 {
		return nil
	}
	services := make([]courier.Service, len(inputs))
	for i, input := range inputs {
		svc := courier.Service{Name: input.Name}
		if len(input.Params) > 0 {
			svc.Params = make(map[string]string, len(input.Params))
			for _, p := range input.Params {
				svc.Params[p.Key] = p.Value
			}
		}
		services[i] = svc
	}
	return services
}

func documentInputToModel(input DocumentInput) (courier.SessionRef, courier.DocumentOptions) {
	ref := courier.SessionRef{
		SessionID:  strings.TrimSpace(input.SessionID),
		PackageIDs: idsToStrings(input.PackageIDs),
		Type:       courier.ShippingType(strings.ToUpper(input.SessionType)),
	}
	if ref.Type == "" {
		ref.Type = courier.ShippingDomestic
	}
	opts := courier.DocumentOptions{
		FileFormat: courier.FileFormat(strings.ToUpper(input.FileFormat)),
		PageFormat: courier.PageFormat(strings.ToUpper(input.PageFormat)),
		LabelType:  courier.LabelType(strings.ToUpper(input.LabelType)),
	}
	return ref, opts
}

// decodeArgs converts coerced field arguments into out. Arguments that do
// not fit out are reported as validation errors.
func decodeArgs(args map[string]any, out any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encoding arguments: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return courier.NewValidationError(courier.CodeMissingData, "invalid arguments").WithCause(err)
	}
	return nil
}

func errorKind(err error) string {
	var e *courier.Error
	if errors.As(err, &e) {
		return string(e.Kind)
	}
	return "internal"
}

// toGraphQLError reports err at path. Workflow errors carry their kind and
// numeric code in the extensions.
func toGraphQLError(err error, path ast.Path) *gqlerror.Error {
	ext := map[string]any{"kind": errorKind(err)}
	if code := courier.Code(err); code != 0 {
		ext["code"] = code
	}
	return &gqlerror.Error{
		Message:    err.Error(),
		Path:       path,
		Extensions: ext,
	}
}
