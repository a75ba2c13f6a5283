package search

import (
	"context"

	"github.com/kailas-cloud/fedsearch/internal/domain/search/request"
	"github.com/kailas-cloud/fedsearch/internal/domain/search/result"
	"github.com/kailas-cloud/fedsearch/internal/domain/template"
)

// Engine runs one page query against one collection. The cached engine
// decorator satisfies it as well as the bare client.
type Engine interface {
	Search(ctx context.Context, q request.PageQuery) (result.Page, error)
}

// TemplateReader resolves the tuning parameters shared by all collections.
type TemplateReader interface {
	Default(ctx context.Context) (template.Params, error)
}
