package definition

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"slices"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formwizard/pkg/model"
)

// Vendor extensions read from request body properties and operations.
const (
	ExtStep    = "x-formwizard-step"
	ExtKind    = "x-formwizard-kind"
	ExtOrder   = "x-formwizard-order"
	ExtLabel   = "x-formwizard-label"
	ExtUnique  = "x-formwizard-unique"
	ExtMessage = "x-formwizard-pattern-message"
	// ExtSteps on the operation lists steps in order: [{id, title}].
	ExtSteps = "x-formwizard-steps"
)

// DefaultStep collects properties without a step extension.
const DefaultStep = "details"

var (
	ErrNoOperation        = errors.New("openapi: no operation with a request body")
	ErrAmbiguousOperation = errors.New("openapi: several operations have request bodies; select one")
	ErrOperationNotFound  = errors.New("openapi: operation not found")
)

type operationRef struct {
	id     string
	method string
	path   string
	op     *openapi3.Operation
}

// ParseOpenAPI turns the request body of one operation into a form. The
// form endpoint is the first server URL joined with the operation path.
func ParseOpenAPI(ctx context.Context, data []byte, operationID string) (model.Form, error) {
	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return model.Form{}, fmt.Errorf("openapi: load document: %w", err)
	}

	ref, err := selectOperation(doc, operationID)
	if err != nil {
		return model.Form{}, err
	}

	schema := requestSchema(ref.op.RequestBody)
	if schema == nil || len(schema.Properties) == 0 {
		return model.Form{}, fmt.Errorf("openapi: operation %q: request body has no properties", ref.id)
	}

	form := model.Form{
		ID:       ref.id,
		Title:    firstNonEmpty(ref.op.Summary, schema.Title, model.DefaultLabeler(ref.id)),
		Endpoint: joinEndpoint(doc.Servers, ref.path),
		Method:   ref.method,
	}

	type placed struct {
		step  string
		order float64
		field model.Field
	}
	required := make(map[string]struct{}, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = struct{}{}
	}

	var fields []placed
	for name, propRef := range schema.Properties {
		if propRef == nil || propRef.Value == nil {
			continue
		}
		prop := propRef.Value
		if prop.ReadOnly {
			continue
		}
		field, err := convertProperty(name, prop)
		if err != nil {
			return model.Form{}, fmt.Errorf("openapi: property %q: %w", name, err)
		}
		_, field.Constraints.Required = required[name]
		fields = append(fields, placed{
			step:  firstNonEmpty(stringExt(prop.Extensions, ExtStep), DefaultStep),
			order: numberExt(prop.Extensions, ExtOrder, math.MaxFloat64),
			field: field,
		})
	}
	slices.SortStableFunc(fields, func(a, b placed) int {
		if c := cmp.Compare(a.order, b.order); c != 0 {
			return c
		}
		return strings.Compare(a.field.ID, b.field.ID)
	})

	// Declared steps fix order and titles and may stay empty (a review step);
	// undeclared ones follow in order of their first field.
	index := make(map[string]int)
	for _, declared := range declaredSteps(ref.op.Extensions) {
		if _, dup := index[declared.ID]; dup {
			continue
		}
		index[declared.ID] = len(form.Steps)
		form.Steps = append(form.Steps, declared)
	}
	for _, p := range fields {
		i, ok := index[p.step]
		if !ok {
			i = len(form.Steps)
			index[p.step] = i
			form.Steps = append(form.Steps, model.Step{ID: p.step})
		}
		form.Steps[i].Fields = append(form.Steps[i].Fields, p.field)
	}

	return normalize(form)
}

func selectOperation(doc *openapi3.T, operationID string) (operationRef, error) {
	var candidates []operationRef
	if doc.Paths != nil {
		for path, item := range doc.Paths.Map() {
			if item == nil {
				continue
			}
			for method, op := range item.Operations() {
				if op == nil || op.RequestBody == nil {
					continue
				}
				id := op.OperationID
				if id == "" {
					id = strings.ToLower(method) + ":" + path
				}
				candidates = append(candidates, operationRef{id: id, method: method, path: path, op: op})
			}
		}
	}

	if operationID != "" {
		for _, c := range candidates {
			if c.id == operationID {
				return c, nil
			}
		}
		return operationRef{}, fmt.Errorf("%w: %q", ErrOperationNotFound, operationID)
	}
	switch len(candidates) {
	case 0:
		return operationRef{}, ErrNoOperation
	case 1:
		return candidates[0], nil
	default:
		return operationRef{}, ErrAmbiguousOperation
	}
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.Schema {
	if body == nil || body.Value == nil {
		return nil
	}
	content := body.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	for _, mt := range content {
		if mt != nil && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

func convertProperty(name string, prop *openapi3.Schema) (model.Field, error) {
	kind, err := propertyKind(prop)
	if err != nil {
		return model.Field{}, err
	}

	field := model.Field{
		ID:     name,
		Label:  firstNonEmpty(stringExt(prop.Extensions, ExtLabel), prop.Title),
		Kind:   kind,
		Unique: boolExt(prop.Extensions, ExtUnique),
	}
	if prop.Default != nil {
		field.Value = fmt.Sprint(prop.Default)
	}

	c := &field.Constraints
	if prop.MinLength != 0 {
		c.MinLength = model.IntPtr(int(prop.MinLength))
	}
	if prop.MaxLength != nil {
		c.MaxLength = model.IntPtr(int(*prop.MaxLength))
	}
	if prop.Min != nil {
		c.Min = model.FloatPtr(*prop.Min)
	}
	if prop.Max != nil {
		c.Max = model.FloatPtr(*prop.Max)
	}
	c.Pattern = prop.Pattern
	c.PatternMessage = stringExt(prop.Extensions, ExtMessage)
	return field, nil
}

func propertyKind(prop *openapi3.Schema) (model.Kind, error) {
	if raw := stringExt(prop.Extensions, ExtKind); raw != "" {
		kind, ok := model.ParseKind(raw)
		if !ok {
			return "", fmt.Errorf("unknown %s %q", ExtKind, raw)
		}
		return kind, nil
	}

	switch strings.ToLower(prop.Format) {
	case "email", "idn-email":
		return model.KindEmail, nil
	case "uri", "url", "iri":
		return model.KindURL, nil
	case "password":
		return model.KindPassword, nil
	case "date":
		return model.KindDate, nil
	case "phone", "tel":
		return model.KindTel, nil
	case "credit-card", "card":
		return model.KindCard, nil
	}

	if prop.Type != nil {
		switch {
		case prop.Type.Is(openapi3.TypeInteger), prop.Type.Is(openapi3.TypeNumber):
			return model.KindNumber, nil
		case prop.Type.Is(openapi3.TypeString), len(prop.Type.Slice()) == 0:
			return model.KindText, nil
		default:
			return "", fmt.Errorf("unsupported type %q", strings.Join(prop.Type.Slice(), ","))
		}
	}
	return model.KindText, nil
}

func declaredSteps(ext map[string]any) []model.Step {
	raw, ok := ext[ExtSteps].([]any)
	if !ok {
		return nil
	}
	steps := make([]model.Step, 0, len(raw))
	for _, entry := range raw {
		switch v := entry.(type) {
		case string:
			if v != "" {
				steps = append(steps, model.Step{ID: v})
			}
		case map[string]any:
			id, _ := v["id"].(string)
			title, _ := v["title"].(string)
			if id != "" {
				steps = append(steps, model.Step{ID: id, Title: title})
			}
		}
	}
	return steps
}

func joinEndpoint(servers openapi3.Servers, path string) string {
	for _, server := range servers {
		if server == nil || server.URL == "" {
			continue
		}
		joined, err := url.JoinPath(server.URL, path)
		if err != nil {
			return path
		}
		return joined
	}
	return path
}

func stringExt(ext map[string]any, key string) string {
	if v, ok := ext[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func boolExt(ext map[string]any, key string) bool {
	v, _ := ext[key].(bool)
	return v
}

func numberExt(ext map[string]any, key string, fallback float64) float64 {
	switch v := ext[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
