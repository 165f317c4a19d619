package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Ref is either an unresolved reference (a URL relative to the profile prefix)
// or a resolved in-memory value. The zero Ref is unresolved with an empty URL.
type Ref[T any] struct {
	url      string
	value    T
	resolved bool
}

// Unresolved returns a Ref pointing at url.
func Unresolved[T any](url string) Ref[T] {
	return Ref[T]{url: url}
}

// Resolved returns a Ref holding v.
func Resolved[T any](v T) Ref[T] {
	return Ref[T]{value: v, resolved: true}
}

// IsResolved reports whether the ref holds a value.
func (r Ref[T]) IsResolved() bool {
	return r.resolved
}

// URL returns the reference URL. ok is false once resolved or when no URL was set.
func (r Ref[T]) URL() (url string, ok bool) {
	if r.resolved || r.url == "" {
		return "", false
	}
	return r.url, true
}

// Value returns the resolved value. ok is false while unresolved.
func (r Ref[T]) Value() (v T, ok bool) {
	if !r.resolved {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Resolve replaces r with a resolved ref holding v.
func (r *Ref[T]) Resolve(v T) {
	r.value = v
	r.url = ""
	r.resolved = true
}

// UnmarshalJSON decodes a JSON string as an unresolved reference and anything else
// as a resolved value.
func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*r = Ref[T]{}
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var url string
		if err := json.Unmarshal(trimmed, &url); err != nil {
			return fmt.Errorf("decoding ref url: %w", err)
		}
		*r = Unresolved[T](url)
		return nil
	}
	var v T
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return fmt.Errorf("decoding ref value: %w", err)
	}
	*r = Resolved(v)
	return nil
}

// MarshalJSON encodes an unresolved ref as its URL string and a resolved one as its value.
func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if !r.resolved {
		if r.url == "" {
			return []byte("null"), nil
		}
		return json.Marshal(r.url)
	}
	return json.Marshal(r.value)
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML profiles.
func (r *Ref[T]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!str" {
		*r = Unresolved[T](node.Value)
		return nil
	}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*r = Ref[T]{}
		return nil
	}
	// Resolved values go through JSON so json.RawMessage colormaps decode too.
	var generic any
	if err := node.Decode(&generic); err != nil {
		return fmt.Errorf("decoding ref value: %w", err)
	}
	raw, err := json.Marshal(jsonCompatible(generic))
	if err != nil {
		return fmt.Errorf("re-encoding ref value: %w", err)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decoding ref value: %w", err)
	}
	*r = Resolved(v)
	return nil
}

// jsonCompatible rewrites YAML maps with non-string keys (zoom levels are
// usually written as bare integers) into string-keyed maps.
func jsonCompatible(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = jsonCompatible(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = jsonCompatible(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = jsonCompatible(e)
		}
		return t
	default:
		return v
	}
}
