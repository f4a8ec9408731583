package definition

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formwizard/pkg/model"
)

const extensionPrefix = "x-formwizard-"

// Violation is a misuse of a form extension found by LintOpenAPI.
type Violation struct {
	Location string
	Message  string
}

func (v Violation) String() string {
	return v.Location + " -> " + v.Message
}

// LintOpenAPI reports unknown form extensions and extension values of the
// wrong shape across every operation of an OpenAPI document.
func LintOpenAPI(ctx context.Context, data []byte) ([]Violation, error) {
	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}

	return lintDocument(doc), nil
}

func lintDocument(doc *openapi3.T) []Violation {
	var out []Violation
	if doc.Paths != nil {
		for path, item := range doc.Paths.Map() {
			if item == nil {
				continue
			}
			for method, op := range item.Operations() {
				if op == nil {
					continue
				}
				base := strings.ToLower(method) + " " + path
				if op.OperationID != "" {
					base = op.OperationID
				}
				out = append(out, lintExtensions(base, op.Extensions, true)...)
				if schema := requestSchema(op.RequestBody); schema != nil {
					out = append(out, lintSchema(base+".requestBody", schema)...)
				}
			}
		}
	}

	slices.SortFunc(out, func(a, b Violation) int {
		return cmp.Or(cmp.Compare(a.Location, b.Location), cmp.Compare(a.Message, b.Message))
	})
	return out
}

func lintSchema(location string, schema *openapi3.Schema) []Violation {
	var out []Violation
	for _, name := range slices.Sorted(maps.Keys(schema.Properties)) {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		out = append(out, lintExtensions(location+".properties."+name, ref.Value.Extensions, false)...)
	}
	return out
}

func lintExtensions(location string, extensions map[string]any, operation bool) []Violation {
	var out []Violation
	add := func(format string, args ...any) {
		out = append(out, Violation{Location: location, Message: fmt.Sprintf(format, args...)})
	}
	for _, key := range slices.Sorted(maps.Keys(extensions)) {
		if !strings.HasPrefix(key, extensionPrefix) {
			continue
		}
		value := extensions[key]
		switch key {
		case ExtSteps:
			if !operation {
				add("%s is only allowed on operations", key)
				continue
			}
			raw, ok := value.([]any)
			if !ok || len(declaredSteps(extensions)) != len(raw) {
				add("%s must list step ids or {id, title} objects", key)
			}
		case ExtStep, ExtLabel, ExtMessage:
			if s, ok := value.(string); !ok || strings.TrimSpace(s) == "" {
				add("%s must be a non-empty string", key)
			}
		case ExtKind:
			s, isString := value.(string)
			if _, ok := model.ParseKind(s); !isString || !ok {
				add("%s: unknown kind %v", key, value)
			}
		case ExtOrder:
			if math.IsNaN(numberExt(extensions, key, math.NaN())) {
				add("%s must be a number, found %T", key, value)
			}
		case ExtUnique:
			if _, ok := value.(bool); !ok {
				add("%s must be a boolean, found %T", key, value)
			}
		default:
			add("unsupported extension %s", key)
			continue
		}
		if operation && key != ExtSteps {
			add("%s is only allowed on request body properties", key)
		}
	}
	return out
}
