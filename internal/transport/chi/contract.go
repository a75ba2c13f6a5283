package chi

import (
	"context"

	domcol "github.com/kailas-cloud/fedsearch/internal/domain/collection"
	"github.com/kailas-cloud/fedsearch/internal/domain/collection/field"
	doming "github.com/kailas-cloud/fedsearch/internal/domain/ingest"
	"github.com/kailas-cloud/fedsearch/internal/domain/search/request"
	"github.com/kailas-cloud/fedsearch/internal/domain/search/result"
	domtpl "github.com/kailas-cloud/fedsearch/internal/domain/template"
	healthuc "github.com/kailas-cloud/fedsearch/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/fedsearch/internal/usecase/ingest"
)

// SearchService runs federated searches.
type SearchService interface {
	Search(ctx context.Context, req request.Request) *result.Response
}

// IngestService accepts uploads and streams their progress.
type IngestService interface {
	Accept(ctx context.Context, up ingestuc.Upload) (ingestuc.Job, error)
	Subscribe(ctx context.Context, collection string) (<-chan doming.Snapshot, error)
}

// CollectionService manages collection metadata.
type CollectionService interface {
	Create(ctx context.Context, name, displayName string, fields []field.Field) (domcol.Collection, error)
	Get(ctx context.Context, name string) (domcol.Collection, error)
	List(ctx context.Context) ([]domcol.Collection, error)
	Delete(ctx context.Context, name string) error
	AddField(ctx context.Context, name string, f field.Field) (domcol.Collection, error)
}

// TemplateService manages query templates.
type TemplateService interface {
	Save(ctx context.Context, name string, p domtpl.Params) (domtpl.Template, error)
	Get(ctx context.Context, name string) (domtpl.Template, error)
	List(ctx context.Context) ([]domtpl.Template, error)
	Delete(ctx context.Context, name string) error
	SetDefault(ctx context.Context, name string) (domtpl.Template, error)
}

// HealthService reports dependency health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}
