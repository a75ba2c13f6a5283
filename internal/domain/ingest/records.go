package ingest

import (
	"fmt"
	"strings"
)

// Flatten turns a parsed JSON value into records: array elements become one
// record each, an object is a single record, and scalars wrap into {value: x}.
func Flatten(v any) []map[string]any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, el := range t {
			if m, ok := el.(map[string]any); ok {
				out = append(out, m)
				continue
			}
			out = append(out, map[string]any{"value": el})
		}
		return out
	case map[string]any:
		return []map[string]any{t}
	default:
		return []map[string]any{{"value": t}}
	}
}

// MappingError reports the path that failed during remapping.
type MappingError struct {
	Path string
	Err  error
}

func (e *MappingError) Error() string { return e.Err.Error() }
func (e *MappingError) Unwrap() error { return e.Err }

type compiledMapping struct {
	source Path
	target Path
}

func compileMapping(m PathMapping) (compiledMapping, error) {
	if strings.TrimSpace(m.Source) == "" || strings.TrimSpace(m.Target) == "" {
		return compiledMapping{}, fmt.Errorf("path mapping needs both source and target, got %q -> %q", m.Source, m.Target)
	}
	src, err := ParsePath(m.Source)
	if err != nil {
		return compiledMapping{}, fmt.Errorf("mapping source: %w", err)
	}
	dst, err := ParsePath(m.Target)
	if err != nil {
		return compiledMapping{}, fmt.Errorf("mapping target: %w", err)
	}
	return compiledMapping{source: src, target: dst}, nil
}

// Remapper copies values between paths of each record.
type Remapper struct {
	mappings []compiledMapping
}

// NewRemapper compiles the mappings.
func NewRemapper(mappings []PathMapping) (*Remapper, error) {
	r := &Remapper{mappings: make([]compiledMapping, 0, len(mappings))}
	for _, m := range mappings {
		cm, err := compileMapping(m)
		if err != nil {
			return nil, err
		}
		r.mappings = append(r.mappings, cm)
	}
	return r, nil
}

// Apply writes every mapped value into rec, leaving other fields unchanged.
// The first unresolvable path is returned as a *MappingError.
func (r *Remapper) Apply(rec map[string]any) error {
	for _, m := range r.mappings {
		v, err := m.source.Get(rec)
		if err != nil {
			return &MappingError{Path: m.source.String(), Err: err}
		}
		if err := m.target.Set(rec, v); err != nil {
			return &MappingError{Path: m.target.String(), Err: err}
		}
	}
	return nil
}

// Empty reports whether there is nothing to remap.
func (r *Remapper) Empty() bool { return r == nil || len(r.mappings) == 0 }
