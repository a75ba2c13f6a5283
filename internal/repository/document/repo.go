// Package document writes coerced ingestion batches into the document store.
package document

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kailas-cloud/fedsearch/internal/db"
	"github.com/kailas-cloud/fedsearch/internal/domain/batch"
	"github.com/kailas-cloud/fedsearch/internal/domain/collection/field"
)

// store is the consumer interface for documents (ISP).
type store interface {
	InsertMany(ctx context.Context, collection string, docs []map[string]any) (db.InsertResult, error)
}

// Repo implements usecase/ingest.DocumentRepository.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// InsertBatch writes docs unordered. indices[i] is the upload position of
// docs[i]; failures in the result carry upload positions.
func (r *Repo) InsertBatch(ctx context.Context, collection string, indices []int, docs []map[string]any) batch.Result {
	offset := 0
	if len(indices) > 0 {
		offset = indices[0]
	}
	if len(docs) == 0 {
		return batch.NewWritten(offset, 0, 0, nil)
	}

	payload := make([]map[string]any, len(docs))
	for i, d := range docs {
		payload[i] = toBSON(d)
	}

	res, err := r.store.InsertMany(ctx, collection, payload)
	if err != nil {
		return batch.NewError(offset, len(docs), fmt.Errorf("insert batch into %s: %w", collection, err))
	}

	failures := make([]batch.Failure, 0, len(res.WriteErrors))
	for _, we := range res.WriteErrors {
		idx := offset + we.Index
		if we.Index >= 0 && we.Index < len(indices) {
			idx = indices[we.Index]
		}
		failures = append(failures, batch.Failure{
			Index:   idx,
			Message: fmt.Sprintf("write error %d: %s", we.Code, we.Message),
		})
	}
	return batch.NewWritten(offset, len(docs), res.Inserted, failures)
}

// toBSON swaps coerced value types for their driver representations.
func toBSON(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = bsonValue(v)
	}
	return out
}

func bsonValue(v any) any {
	switch t := v.(type) {
	case field.DecimalValue:
		if d, err := primitive.ParseDecimal128(string(t)); err == nil {
			return d
		}
		return string(t)
	case field.ObjectIDValue:
		if id, err := primitive.ObjectIDFromHex(string(t)); err == nil {
			return id
		}
		return string(t)
	case time.Time:
		return primitive.NewDateTimeFromTime(t)
	case []byte:
		return primitive.Binary{Data: t}
	case map[string]any:
		return toBSON(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = bsonValue(e)
		}
		return out
	default:
		return v
	}
}
