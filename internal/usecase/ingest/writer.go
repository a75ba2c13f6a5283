package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/fedsearch/internal/domain/batch"
	doming "github.com/kailas-cloud/fedsearch/internal/domain/ingest"
	"github.com/kailas-cloud/fedsearch/internal/metrics"
)

// batchWriter submits batches with at most limit writes in flight.
// submit blocks while the limit is reached, which keeps memory bounded
// on large files.
type batchWriter struct {
	g          errgroup.Group
	ctx        context.Context
	docs       DocumentWriter
	collection string
	format     doming.Format
	timeout    time.Duration
	job        *job
	log        *zap.Logger
}

func newBatchWriter(
	ctx context.Context, docs DocumentWriter, j *job, collection string,
	format doming.Format, limit int, timeout time.Duration, log *zap.Logger,
) *batchWriter {
	w := &batchWriter{
		ctx:        ctx,
		docs:       docs,
		collection: collection,
		format:     format,
		timeout:    timeout,
		job:        j,
		log:        log,
	}
	w.g.SetLimit(limit)
	return w
}

func (w *batchWriter) submit(indices []int, docs []map[string]any) {
	w.g.Go(func() error {
		metrics.IngestBatchesInFlight.Inc()
		defer metrics.IngestBatchesInFlight.Dec()

		res := w.insert(indices, docs)
		w.job.record(res)

		metrics.IngestRecordsTotal.WithLabelValues(string(w.format), "inserted").Add(float64(res.Inserted()))
		metrics.IngestRecordsTotal.WithLabelValues(string(w.format), "failed").Add(float64(res.Failed()))
		metrics.IngestBatchesTotal.WithLabelValues(string(w.format), string(res.Status())).Inc()

		switch res.Status() {
		case batch.StatusError:
			w.log.Warn("Batch write failed",
				zap.Int("offset", res.Offset()),
				zap.Int("size", res.Size()),
				zap.Error(res.Err()),
			)
		case batch.StatusPartial:
			w.log.Warn("Batch partially written",
				zap.Int("offset", res.Offset()),
				zap.Int("failed", res.Failed()),
			)
		case batch.StatusOK:
		}
		return nil
	})
}

// insert runs on an errgroup goroutine, out of reach of the job's own
// recover, so a panicking write is turned into a failed batch here.
func (w *batchWriter) insert(indices []int, docs []map[string]any) (res batch.Result) {
	offset := 0
	if len(indices) > 0 {
		offset = indices[0]
	}
	defer func() {
		if r := recover(); r != nil {
			res = batch.NewError(offset, len(docs), fmt.Errorf("batch write panicked: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
	defer cancel()
	return w.docs.InsertBatch(ctx, w.collection, indices, docs)
}

func (w *batchWriter) wait() {
	_ = w.g.Wait()
}
