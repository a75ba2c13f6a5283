package ingest

import (
	"github.com/kailas-cloud/fedsearch/internal/domain/batch"
	domcol "github.com/kailas-cloud/fedsearch/internal/domain/collection"
	doming "github.com/kailas-cloud/fedsearch/internal/domain/ingest"
	"github.com/kailas-cloud/fedsearch/internal/metrics"
)

// feeder turns records into coerced batches and reports read progress.
type feeder struct {
	job       *job
	col       domcol.Collection
	writer    *batchWriter
	format    doming.Format
	size      int
	processed int
	indices   []int
	docs      []map[string]any
}

func newFeeder(j *job, col domcol.Collection, w *batchWriter, format doming.Format, size int) *feeder {
	return &feeder{
		job:     j,
		col:     col,
		writer:  w,
		format:  format,
		size:    size,
		indices: make([]int, 0, size),
		docs:    make([]map[string]any, 0, size),
	}
}

// add coerces one record and queues it; a record failing coercion is
// counted as failed without touching the batch.
func (f *feeder) add(idx int, rec map[string]any) {
	doc, err := f.col.Coerce(rec)
	if err != nil {
		f.reject(batch.Failure{Index: idx, Message: err.Error()})
		return
	}
	f.indices = append(f.indices, idx)
	f.docs = append(f.docs, doc)
	if len(f.docs) >= f.size {
		f.flush()
	}
	f.tick()
}

func (f *feeder) reject(failure batch.Failure) {
	f.job.reject(failure)
	metrics.IngestRecordsTotal.WithLabelValues(string(f.format), "failed").Inc()
	f.tick()
}

// tick updates progress on the first record and every ProgressEvery records.
func (f *feeder) tick() {
	f.processed++
	if f.processed == 1 || f.processed%doming.ProgressEvery == 0 {
		f.job.advance(f.processed)
	}
}

func (f *feeder) flush() {
	if len(f.docs) == 0 {
		return
	}
	f.writer.submit(f.indices, f.docs)
	f.indices = make([]int, 0, f.size)
	f.docs = make([]map[string]any, 0, f.size)
}

// close submits the tail batch, waits for every write and records the final count.
func (f *feeder) close() {
	f.flush()
	f.writer.wait()
	f.job.advance(f.processed)
}
