package model

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	errFormIDMissing = errors.New("model: form id is required")
	errNoSteps       = errors.New("model: form requires at least one step")
)

// Validate checks structural invariants of a definition: unique step and field
// identifiers, known kinds, compilable patterns and coherent bounds.
func (f Form) Validate() error {
	if f.ID == "" {
		return errFormIDMissing
	}
	if len(f.Steps) == 0 {
		return errNoSteps
	}

	steps := make(map[string]struct{}, len(f.Steps))
	fields := make(map[string]string)
	for i, step := range f.Steps {
		if step.ID == "" {
			return fmt.Errorf("model: step %d: id is required", i+1)
		}
		if _, dup := steps[step.ID]; dup {
			return fmt.Errorf("model: duplicate step %q", step.ID)
		}
		steps[step.ID] = struct{}{}

		for _, field := range step.Fields {
			if field.ID == "" {
				return fmt.Errorf("model: step %q: field id is required", step.ID)
			}
			if owner, dup := fields[field.ID]; dup {
				return fmt.Errorf("model: field %q declared in steps %q and %q", field.ID, owner, step.ID)
			}
			fields[field.ID] = step.ID
			if err := validateField(field); err != nil {
				return fmt.Errorf("model: field %q: %w", field.ID, err)
			}
		}
	}
	return nil
}

func validateField(field Field) error {
	if _, ok := ParseKind(string(field.Kind)); !ok {
		return fmt.Errorf("unknown kind %q", field.Kind)
	}
	c := field.Constraints
	if c.MinLength != nil && *c.MinLength < 0 {
		return errors.New("minLength must not be negative")
	}
	if c.MinLength != nil && c.MaxLength != nil && *c.MinLength > *c.MaxLength {
		return errors.New("minLength exceeds maxLength")
	}
	if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
		return errors.New("min exceeds max")
	}
	if c.Pattern != "" {
		if _, err := regexp.Compile(anchor(c.Pattern)); err != nil {
			return fmt.Errorf("pattern: %w", err)
		}
	}
	return nil
}

// AnchoredPattern returns the pattern wrapped so it must match the whole
// value, the way the HTML pattern attribute behaves.
func AnchoredPattern(pattern string) string {
	return anchor(pattern)
}

func anchor(pattern string) string {
	return "^(?:" + pattern + ")$"
}
