// Package template stores query templates as Redis hashes. The default
// template is a single pointer key, so at most one template is ever default.
package template

import (
	"context"
	"errors"
	"fmt"
	"sort"

	jsoniter "github.com/json-iterator/go"

	"github.com/kailas-cloud/fedsearch/internal/db"
	"github.com/kailas-cloud/fedsearch/internal/domain"
	domtpl "github.com/kailas-cloud/fedsearch/internal/domain/template"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// store is the consumer interface for templates (ISP).
type store interface {
	HPut(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo implements usecase/template.Repository.
type Repo struct {
	store store
}

// New creates a template repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Save creates or replaces a template. The default pointer is untouched.
func (r *Repo) Save(ctx context.Context, t domtpl.Template) error {
	hashData, err := toHash(t)
	if err != nil {
		return err
	}
	// HPut replaces the whole hash so cleared params do not linger.
	if err := r.store.HPut(ctx, templateKey(t.Name()), hashData); err != nil {
		return fmt.Errorf("put template %s: %w", t.Name(), err)
	}
	return nil
}

// Get retrieves a template by name.
func (r *Repo) Get(ctx context.Context, name string) (domtpl.Template, error) {
	m, err := r.store.HGetAll(ctx, templateKey(name))
	if err != nil {
		return domtpl.Template{}, fmt.Errorf("hgetall template %s: %w", name, err)
	}
	if len(m) == 0 {
		return domtpl.Template{}, domain.ErrNotFound
	}
	def, err := r.defaultName(ctx)
	if err != nil {
		return domtpl.Template{}, err
	}
	return fromHash(m, def)
}

// List returns all templates sorted by name.
func (r *Repo) List(ctx context.Context) ([]domtpl.Template, error) {
	keys, err := r.store.Scan(ctx, templateKey("*"))
	if err != nil {
		return nil, fmt.Errorf("scan templates: %w", err)
	}
	if len(keys) == 0 {
		return []domtpl.Template{}, nil
	}

	results, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi templates: %w", err)
	}
	def, err := r.defaultName(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domtpl.Template, 0, len(results))
	for i, m := range results {
		if len(m) == 0 {
			continue
		}
		t, err := fromHash(m, def)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", keys[i], err)
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// Delete removes a template. Deleting the default leaves no default.
func (r *Repo) Delete(ctx context.Context, name string) error {
	key := templateKey(name)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	def, err := r.defaultName(ctx)
	if err != nil {
		return err
	}
	keys := []string{key}
	if def == name {
		keys = append(keys, defaultKey())
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("del template %s: %w", name, err)
	}
	return nil
}

// SetDefault makes name the default template in one write.
func (r *Repo) SetDefault(ctx context.Context, name string) error {
	exists, err := r.store.Exists(ctx, templateKey(name))
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	if err := r.store.Set(ctx, defaultKey(), []byte(name)); err != nil {
		return fmt.Errorf("set default template: %w", err)
	}
	return nil
}

// Default returns the default template. ok is false when none is set.
func (r *Repo) Default(ctx context.Context) (t domtpl.Template, ok bool, err error) {
	name, err := r.defaultName(ctx)
	if err != nil || name == "" {
		return domtpl.Template{}, false, err
	}
	m, err := r.store.HGetAll(ctx, templateKey(name))
	if err != nil {
		return domtpl.Template{}, false, fmt.Errorf("hgetall template %s: %w", name, err)
	}
	if len(m) == 0 {
		// dangling pointer
		return domtpl.Template{}, false, nil
	}
	t, err = fromHash(m, name)
	if err != nil {
		return domtpl.Template{}, false, err
	}
	return t, true, nil
}

func (r *Repo) defaultName(ctx context.Context) (string, error) {
	b, err := r.store.Get(ctx, defaultKey())
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("get default template: %w", err)
	}
	return string(b), nil
}

func toHash(t domtpl.Template) (map[string]string, error) {
	p := t.Params()
	facets, err := json.MarshalToString(p.FacetFields)
	if err != nil {
		return nil, fmt.Errorf("marshal facet fields: %w", err)
	}
	m := map[string]string{
		"name":         t.Name(),
		"facet_fields": facets,
	}
	for k, v := range map[string]string{
		"qf": p.QF, "fl": p.FL, "pf": p.PF, "pf2": p.PF2, "pf3": p.PF3,
		"ps": p.PS, "ps2": p.PS2, "ps3": p.PS3, "mm": p.MM,
	} {
		if v != "" {
			m[k] = v
		}
	}
	return m, nil
}

func fromHash(m map[string]string, defaultName string) (domtpl.Template, error) {
	var facets []string
	if s := m["facet_fields"]; s != "" {
		if err := json.UnmarshalFromString(s, &facets); err != nil {
			return domtpl.Template{}, fmt.Errorf("unmarshal facet fields: %w", err)
		}
	}
	p := domtpl.Params{
		QF: m["qf"], FL: m["fl"], PF: m["pf"], PF2: m["pf2"], PF3: m["pf3"],
		PS: m["ps"], PS2: m["ps2"], PS3: m["ps3"], MM: m["mm"],
		FacetFields: facets,
	}
	name := m["name"]
	return domtpl.Reconstruct(name, p, name == defaultName), nil
}

// key patterns: fedsearch:template:{name}, fedsearch:template-default
func templateKey(name string) string {
	return fmt.Sprintf("%stemplate:%s", domain.KeyPrefix, name)
}

func defaultKey() string {
	return domain.KeyPrefix + "template-default"
}
