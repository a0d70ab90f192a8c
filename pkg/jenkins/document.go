package jenkins

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// APISuffix is the machine-readable path segment appended to entity URLs.
const APISuffix = "api/json"

// APIURL returns the machine-readable endpoint for an entity URL. It is
// idempotent: URLs already ending in the suffix (with or without a trailing
// slash) are returned without the suffix being repeated.
func APIURL(baseURL string) string {
	trimmed := strings.TrimSuffix(baseURL, "/")
	if strings.HasSuffix(trimmed, "/"+APISuffix) || trimmed == APISuffix {
		return baseURL
	}

	if strings.HasSuffix(baseURL, "/") {
		return baseURL + APISuffix
	}

	return baseURL + "/" + APISuffix
}

// Document is a decoded JSON snapshot. Values are restricted to the kinds
// produced by encoding/json: string, json.Number, bool, nil, []any and
// map[string]any.
type Document map[string]any

// ParseDocument decodes a JSON object, keeping numbers exact.
func ParseDocument(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc Document

	err := dec.Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	if doc == nil {
		return nil, fmt.Errorf("%w: document is not an object", ErrMalformedPayload)
	}

	return doc, nil
}

// Has reports whether the path resolves to a non-null value.
func (d Document) Has(path ...string) bool {
	_, err := d.Value(path...)

	return err == nil
}

// Value resolves a nested key path. Absent or null values yield a
// *MissingFieldError.
func (d Document) Value(path ...string) (any, error) {
	var current any = map[string]any(d)

	for i, key := range path {
		m, ok := asMap(current)
		if !ok {
			return nil, &MissingFieldError{Path: joinPath(path[:i+1]), Reason: "parent is not an object"}
		}

		value, ok := m[key]
		if !ok || value == nil {
			return nil, &MissingFieldError{Path: joinPath(path[:i+1])}
		}

		current = value
	}

	return current, nil
}

// String returns the string at path.
func (d Document) String(path ...string) (string, error) {
	v, err := d.Value(path...)
	if err != nil {
		return "", err
	}

	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		return s.String(), nil
	default:
		return "", typeMismatch(path, "string", v)
	}
}

// StringOr returns the string at path or def when it is missing.
func (d Document) StringOr(def string, path ...string) string {
	s, err := d.String(path...)
	if err != nil {
		return def
	}

	return s
}

// Int returns the integer at path.
func (d Document) Int(path ...string) (int, error) {
	v, err := d.Value(path...)
	if err != nil {
		return 0, err
	}

	n, ok := toInt(v)
	if !ok {
		return 0, typeMismatch(path, "integer", v)
	}

	return n, nil
}

// Float returns the number at path.
func (d Document) Float(path ...string) (float64, error) {
	v, err := d.Value(path...)
	if err != nil {
		return 0, err
	}

	switch n := v.(type) {
	case json.Number:
		f, perr := n.Float64()
		if perr != nil {
			return 0, typeMismatch(path, "number", v)
		}

		return f, nil
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, typeMismatch(path, "number", v)
	}
}

// Bool returns the boolean at path.
func (d Document) Bool(path ...string) (bool, error) {
	v, err := d.Value(path...)
	if err != nil {
		return false, err
	}

	b, ok := v.(bool)
	if !ok {
		return false, typeMismatch(path, "boolean", v)
	}

	return b, nil
}

// BoolOr returns the boolean at path or def when it is missing.
func (d Document) BoolOr(def bool, path ...string) bool {
	b, err := d.Bool(path...)
	if err != nil {
		return def
	}

	return b
}

// Map returns the object at path.
func (d Document) Map(path ...string) (Document, error) {
	v, err := d.Value(path...)
	if err != nil {
		return nil, err
	}

	m, ok := asMap(v)
	if !ok {
		return nil, typeMismatch(path, "object", v)
	}

	return m, nil
}

// List returns the objects at path. Non-object members are skipped.
func (d Document) List(path ...string) ([]Document, error) {
	v, err := d.Value(path...)
	if err != nil {
		return nil, err
	}

	items, ok := v.([]any)
	if !ok {
		return nil, typeMismatch(path, "array", v)
	}

	out := make([]Document, 0, len(items))

	for _, item := range items {
		if m, ok := asMap(item); ok {
			out = append(out, m)
		}
	}

	return out, nil
}

// ListOrEmpty returns the objects at path, or nil when absent or malformed.
func (d Document) ListOrEmpty(path ...string) []Document {
	items, err := d.List(path...)
	if err != nil {
		return nil
	}

	return items
}

// Strings returns the string members of the array at path.
func (d Document) Strings(path ...string) ([]string, error) {
	v, err := d.Value(path...)
	if err != nil {
		return nil, err
	}

	items, ok := v.([]any)
	if !ok {
		return nil, typeMismatch(path, "array", v)
	}

	out := make([]string, 0, len(items))

	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}

	return out, nil
}

// MergeActions flattens a heterogeneous action list into one lookup table.
// Later actions overwrite keys of earlier ones, except lists which are
// concatenated so that repeated "causes" entries are all kept.
func MergeActions(actions []Document) Document {
	merged := Document{}

	for _, action := range actions {
		for key, value := range action {
			existing, seen := merged[key]
			if !seen {
				merged[key] = value

				continue
			}

			left, lok := existing.([]any)
			right, rok := value.([]any)

			if lok && rok {
				combined := make([]any, 0, len(left)+len(right))
				combined = append(combined, left...)
				merged[key] = append(combined, right...)

				continue
			}

			merged[key] = value
		}
	}

	return merged
}

func asMap(v any) (Document, bool) {
	switch m := v.(type) {
	case Document:
		return m, true
	case map[string]any:
		return m, true
	default:
		return nil, false
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0, false
			}

			return int(f), true
		}

		return int(i), true
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}

		return i, true
	default:
		return 0, false
	}
}

func typeMismatch(path []string, want string, got any) error {
	return &MissingFieldError{Path: joinPath(path), Reason: fmt.Sprintf("expected %s, got %T", want, got)}
}

func joinPath(path []string) string {
	if len(path) == 0 {
		return "."
	}

	return strings.Join(path, ".")
}
