package ingest

import (
	"context"

	"github.com/kailas-cloud/fedsearch/internal/domain/batch"
	domcol "github.com/kailas-cloud/fedsearch/internal/domain/collection"
)

// CollectionReader loads the metadata an upload is coerced against.
type CollectionReader interface {
	Get(ctx context.Context, name string) (domcol.Collection, error)
}

// DocumentWriter writes one unordered batch. indices[i] is the upload
// position of docs[i].
type DocumentWriter interface {
	InsertBatch(ctx context.Context, collection string, indices []int, docs []map[string]any) batch.Result
}
