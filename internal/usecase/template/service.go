package template

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/fedsearch/internal/domain"
	domtpl "github.com/kailas-cloud/fedsearch/internal/domain/template"
)

// Service manages query templates and the default selection.
type Service struct {
	repo Repository
}

// New creates a template service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Save validates and creates or replaces a template.
// Replacing the default template keeps it default.
func (s *Service) Save(ctx context.Context, name string, p domtpl.Params) (domtpl.Template, error) {
	t, err := domtpl.New(name, p)
	if err != nil {
		return domtpl.Template{}, fmt.Errorf("validate template: %w: %w", domain.ErrInvalidRequest, err)
	}
	if err := s.repo.Save(ctx, t); err != nil {
		return domtpl.Template{}, fmt.Errorf("save template: %w", err)
	}

	saved, err := s.repo.Get(ctx, name)
	if err != nil {
		return domtpl.Template{}, fmt.Errorf("get template: %w", err)
	}
	return saved, nil
}

// Get retrieves a template by name.
func (s *Service) Get(ctx context.Context, name string) (domtpl.Template, error) {
	t, err := s.repo.Get(ctx, name)
	if err != nil {
		return domtpl.Template{}, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

// List returns all templates.
func (s *Service) List(ctx context.Context) ([]domtpl.Template, error) {
	ts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return ts, nil
}

// Delete removes a template. Deleting the default leaves searches untuned.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.repo.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

// SetDefault makes name the only default template.
func (s *Service) SetDefault(ctx context.Context, name string) (domtpl.Template, error) {
	if err := s.repo.SetDefault(ctx, name); err != nil {
		return domtpl.Template{}, fmt.Errorf("set default template: %w", err)
	}
	return s.Get(ctx, name)
}

// Default returns the default template's params, or zero Params when none is set.
func (s *Service) Default(ctx context.Context) (domtpl.Params, error) {
	t, ok, err := s.repo.Default(ctx)
	if err != nil {
		return domtpl.Params{}, fmt.Errorf("get default template: %w", err)
	}
	if !ok {
		return domtpl.Params{}, nil
	}
	return t.Params(), nil
}
