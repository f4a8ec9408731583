package submit

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// ErrorMapping splits endpoint field errors into messages per field ID and
// messages that belong to the form as a whole.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MapFieldErrors resolves raw error paths (`email`, `/body/email`,
// `data.email`, `#/contacts/0/email`) onto the given field IDs. Paths that
// match no field become form-level so the message is not lost.
func MapFieldErrors(fieldIDs []string, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}
	if len(payload) == 0 {
		mapping.Fields = nil
		return mapping
	}

	known := make(map[string]string, len(fieldIDs))
	for _, id := range fieldIDs {
		if id = strings.TrimSpace(id); id != "" {
			known[strings.ToLower(id)] = id
		}
	}

	for _, rawPath := range slices.Sorted(maps.Keys(payload)) {
		messages := normalizeMessages(payload[rawPath])
		if len(messages) == 0 {
			continue
		}
		id, ok := resolvePath(rawPath, known)
		if !ok {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		mapping.Fields[id] = normalizeMessages(append(mapping.Fields[id], messages...))
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// Merge combines the endpoint's top-level message with form-level errors.
func (m ErrorMapping) Merge(message string) []string {
	combined := make([]string, 0, len(m.Form)+1)
	combined = append(combined, message)
	combined = append(combined, m.Form...)
	return normalizeMessages(combined)
}

func resolvePath(raw string, known map[string]string) (string, bool) {
	if isFormLevelKey(raw) {
		return "", false
	}
	segments := dropWrapperSegments(splitPath(raw))
	// deepest named segment wins: `address/0/email` addresses the email field
	for i := len(segments) - 1; i >= 0; i-- {
		segment := segments[i]
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		if id, ok := known[strings.ToLower(segment)]; ok {
			return id, true
		}
	}
	return "", false
}

func splitPath(path string) []string {
	clean := strings.TrimSpace(path)
	clean = strings.TrimLeft(clean, "#$/.")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := parts[:0]
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		out = append(out, part)
	}
	return out
}

var wrapperSegments = map[string]struct{}{
	"body":       {},
	"request":    {},
	"payload":    {},
	"data":       {},
	"attributes": {},
	"fields":     {},
}

func dropWrapperSegments(segments []string) []string {
	for len(segments) > 0 {
		if _, ok := wrapperSegments[strings.ToLower(segments[0])]; !ok {
			break
		}
		segments = segments[1:]
	}
	return segments
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}

func normalizeMessages(messages []string) []string {
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
