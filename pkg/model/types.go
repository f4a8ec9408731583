package model

import "strings"

// Kind enumerates the supported field kinds.
type Kind string

const (
	KindText     Kind = "text"
	KindEmail    Kind = "email"
	KindURL      Kind = "url"
	KindTel      Kind = "tel"
	KindNumber   Kind = "number"
	KindPassword Kind = "password"
	KindCard     Kind = "card"
	KindDate     Kind = "date"
)

// Kinds lists every supported kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindText, KindEmail, KindURL, KindTel, KindNumber, KindPassword, KindCard, KindDate}
}

// ParseKind resolves a kind name, accepting the HTML input type aliases used
// by form definitions ("string", "uri", "phone", "integer", "creditcard").
func ParseKind(raw string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "text", "string", "textarea":
		return KindText, true
	case "email":
		return KindEmail, true
	case "url", "uri":
		return KindURL, true
	case "tel", "phone":
		return KindTel, true
	case "number", "integer", "float":
		return KindNumber, true
	case "password":
		return KindPassword, true
	case "card", "creditcard", "credit-card":
		return KindCard, true
	case "date":
		return KindDate, true
	default:
		return "", false
	}
}

// Sensitive reports whether values of this kind must be masked when echoed.
func (k Kind) Sensitive() bool {
	return k == KindPassword || k == KindCard
}

// Constraints captures the declarative rules attached to a field. Zero values
// mean "no constraint"; pointers distinguish an explicit zero bound.
type Constraints struct {
	Required       bool     `json:"required,omitempty" yaml:"required,omitempty"`
	MinLength      *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength      *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Min            *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max            *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Pattern        string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	PatternMessage string   `json:"patternMessage,omitempty" yaml:"patternMessage,omitempty"`
}

// Field is a single input inside a step.
type Field struct {
	ID          string      `json:"id" yaml:"id"`
	Label       string      `json:"label,omitempty" yaml:"label,omitempty"`
	Kind        Kind        `json:"kind" yaml:"kind"`
	Value       string      `json:"value,omitempty" yaml:"value,omitempty"`
	Constraints Constraints `json:"constraints" yaml:",inline"`
	// Unique marks fields whose value is checked against a remote registry
	// (username, email) after input settles.
	Unique bool `json:"unique,omitempty" yaml:"unique,omitempty"`
	// Valid is the last verdict applied to the field. Fields start valid so a
	// pristine form shows no errors.
	Valid bool `json:"valid" yaml:"-"`
}

// DisplayLabel falls back to the identifier when no label is set.
func (f Field) DisplayLabel() string {
	if strings.TrimSpace(f.Label) != "" {
		return f.Label
	}
	return f.ID
}

// Step groups the fields shown together.
type Step struct {
	ID        string  `json:"id" yaml:"id"`
	Title     string  `json:"title,omitempty" yaml:"title,omitempty"`
	HeadingID string  `json:"headingId,omitempty" yaml:"headingId,omitempty"`
	Fields    []Field `json:"fields" yaml:"fields"`
}

// Heading returns the element receiving focus when the step is shown.
func (s Step) Heading() string {
	if s.HeadingID != "" {
		return s.HeadingID
	}
	return s.ID + "-heading"
}

// Form is the top-level definition.
type Form struct {
	ID       string            `json:"id" yaml:"id"`
	Title    string            `json:"title,omitempty" yaml:"title,omitempty"`
	Endpoint string            `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Method   string            `json:"method,omitempty" yaml:"method,omitempty"`
	Steps    []Step            `json:"steps" yaml:"steps"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Fields returns every field across all steps in order.
func (f Form) Fields() []Field {
	var out []Field
	for _, step := range f.Steps {
		out = append(out, step.Fields...)
	}
	return out
}

// Lookup finds a field by id and reports the step index holding it.
func (f Form) Lookup(id string) (Field, int, bool) {
	for i, step := range f.Steps {
		for _, field := range step.Fields {
			if field.ID == id {
				return field, i, true
			}
		}
	}
	return Field{}, -1, false
}

// Clone returns a deep copy so controllers can mutate values freely.
func (f Form) Clone() Form {
	out := f
	if len(f.Metadata) > 0 {
		out.Metadata = make(map[string]string, len(f.Metadata))
		for k, v := range f.Metadata {
			out.Metadata[k] = v
		}
	}
	out.Steps = make([]Step, len(f.Steps))
	for i, step := range f.Steps {
		cloned := step
		cloned.Fields = append([]Field(nil), step.Fields...)
		out.Steps[i] = cloned
	}
	return out
}

// IntPtr and FloatPtr help build constraint literals.
func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }
