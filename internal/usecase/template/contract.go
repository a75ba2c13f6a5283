package template

import (
	"context"

	domtpl "github.com/kailas-cloud/fedsearch/internal/domain/template"
)

// Repository defines the storage contract for query templates.
type Repository interface {
	Save(ctx context.Context, t domtpl.Template) error
	Get(ctx context.Context, name string) (domtpl.Template, error)
	List(ctx context.Context) ([]domtpl.Template, error)
	Delete(ctx context.Context, name string) error
	SetDefault(ctx context.Context, name string) error
	Default(ctx context.Context) (domtpl.Template, bool, error)
}
