// Package template models edismax tuning profiles applied to federated searches.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Params holds the edismax parameters sent to the search engine. Empty values are omitted.
type Params struct {
	QF          string
	FL          string
	PF          string
	PF2         string
	PF3         string
	PS          string
	PS2         string
	PS3         string
	MM          string
	FacetFields []string
}

// Template is a named set of Params. At most one template is the default.
type Template struct {
	name      string
	params    Params
	isDefault bool
}

// New validates and creates a Template.
func New(name string, p Params) (Template, error) {
	if name == "" {
		return Template{}, fmt.Errorf("template name is required")
	}
	if len(name) > 64 {
		return Template{}, fmt.Errorf("template name too long (max 64)")
	}
	if !nameRegex.MatchString(name) {
		return Template{}, fmt.Errorf("template name must be alphanumeric with underscores and hyphens")
	}
	for _, ps := range []struct{ key, val string }{{"ps", p.PS}, {"ps2", p.PS2}, {"ps3", p.PS3}} {
		if ps.val == "" {
			continue
		}
		if strings.TrimLeft(ps.val, "0123456789") != "" {
			return Template{}, fmt.Errorf("%s must be a non-negative integer, got %q", ps.key, ps.val)
		}
	}
	p.FacetFields = compact(p.FacetFields)
	return Template{name: name, params: p}, nil
}

// Reconstruct creates a Template without validation (storage hydration).
func Reconstruct(name string, p Params, isDefault bool) Template {
	return Template{name: name, params: p, isDefault: isDefault}
}

// Name returns the template name.
func (t Template) Name() string { return t.name }

// Params returns the tuning parameters.
func (t Template) Params() Params { return t.params }

// IsDefault reports whether this template is applied to searches.
func (t Template) IsDefault() bool { return t.isDefault }

func compact(fields []string) []string {
	out := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
