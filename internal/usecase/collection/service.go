package collection

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/fedsearch/internal/domain"
	domcol "github.com/kailas-cloud/fedsearch/internal/domain/collection"
	"github.com/kailas-cloud/fedsearch/internal/domain/collection/field"
)

// Service handles collection metadata operations.
type Service struct {
	repo Repository
}

// New creates a collection service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new collection.
func (s *Service) Create(ctx context.Context, name, displayName string, fields []field.Field) (domcol.Collection, error) {
	col, err := domcol.New(name, displayName, fields)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("validate collection: %w: %w", domain.ErrInvalidSchema, err)
	}

	if err := s.repo.Create(ctx, col); err != nil {
		return domcol.Collection{}, fmt.Errorf("create collection: %w", err)
	}

	return col, nil
}

// Get retrieves a collection by name.
func (s *Service) Get(ctx context.Context, name string) (domcol.Collection, error) {
	col, err := s.repo.Get(ctx, name)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("get collection: %w", err)
	}
	return col, nil
}

// List returns all collections.
func (s *Service) List(ctx context.Context) ([]domcol.Collection, error) {
	cols, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return cols, nil
}

// Delete removes a collection definition.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.repo.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return nil
}

// AddField appends a field and bumps the collection version.
func (s *Service) AddField(ctx context.Context, name string, f field.Field) (domcol.Collection, error) {
	col, err := s.repo.Get(ctx, name)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("get collection: %w", err)
	}

	next, err := col.WithField(f)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("add field: %w: %w", domain.ErrInvalidSchema, err)
	}

	if err := s.repo.Update(ctx, next); err != nil {
		return domcol.Collection{}, fmt.Errorf("update collection: %w", err)
	}
	return next, nil
}
