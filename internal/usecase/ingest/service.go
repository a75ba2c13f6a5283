// Package ingest runs bulk uploads in the background and publishes their progress.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/kailas-cloud/fedsearch/internal/domain"
	domcol "github.com/kailas-cloud/fedsearch/internal/domain/collection"
	doming "github.com/kailas-cloud/fedsearch/internal/domain/ingest"
	"github.com/kailas-cloud/fedsearch/internal/metrics"
)

// Config tunes the pipeline.
type Config struct {
	MaxInFlight      int
	WriteTimeout     time.Duration
	ProgressInterval time.Duration
	Grace            time.Duration
	MaxJSONBytes     int64
}

func (c Config) withDefaults() Config {
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 3
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 2 * time.Minute
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = time.Second
	}
	if c.Grace <= 0 {
		c.Grace = 10 * time.Second
	}
	if c.MaxJSONBytes <= 0 {
		c.MaxJSONBytes = 1 << 30
	}
	return c
}

// Upload is an accepted file waiting to be ingested. Path is a temporary
// file that the service owns (and deletes) from the moment Accept is called.
type Upload struct {
	Collection string
	Format     doming.Format
	Path       string
	Options    doming.Options
}

// Job identifies an accepted upload.
type Job struct {
	ID         string
	Collection string
	Format     doming.Format
}

// Service accepts uploads and runs them in the background.
type Service struct {
	colls  CollectionReader
	docs   DocumentWriter
	cfg    Config
	jobs   *registry
	wg     sync.WaitGroup
	logger *zap.Logger
	now    func() time.Time
}

// New creates an ingestion service.
func New(colls CollectionReader, docs DocumentWriter, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := time.Now
	return &Service{
		colls:  colls,
		docs:   docs,
		cfg:    cfg.withDefaults(),
		jobs:   newRegistry(now),
		logger: logger.Named("ingest"),
		now:    now,
	}
}

// Accept validates an upload and starts ingesting it. It returns as soon as
// the job is registered; the work continues after ctx is done.
// On rejection the temporary file is removed.
func (s *Service) Accept(ctx context.Context, up Upload) (Job, error) {
	job, err := s.accept(ctx, up)
	if err != nil {
		s.removeFile(up.Path)
		return Job{}, err
	}
	return job, nil
}

func (s *Service) accept(ctx context.Context, up Upload) (Job, error) {
	if err := doming.ValidateCollectionName(up.Collection); err != nil {
		return Job{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	opts, err := up.Options.Normalize(up.Format)
	if err != nil {
		return Job{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	if _, err := lookupEncoding(opts.Encoding); err != nil {
		return Job{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	up.Options = opts

	if up.Format == doming.JSON {
		info, err := os.Stat(up.Path)
		if err != nil {
			return Job{}, fmt.Errorf("stat upload: %w", err)
		}
		if info.Size() > s.cfg.MaxJSONBytes {
			return Job{}, fmt.Errorf("%w: json upload is %d bytes (max %d)", domain.ErrFileTooLarge, info.Size(), s.cfg.MaxJSONBytes)
		}
	}

	col, err := s.colls.Get(ctx, up.Collection)
	if err != nil {
		return Job{}, fmt.Errorf("get collection: %w", err)
	}

	j, err := s.jobs.begin(up.Collection, up.Format)
	if err != nil {
		return Job{}, fmt.Errorf("collection %s: %w", up.Collection, err)
	}

	s.wg.Add(1)
	go s.run(context.WithoutCancel(ctx), j, col, up)

	return Job{ID: j.id(), Collection: up.Collection, Format: up.Format}, nil
}

func (s *Service) run(ctx context.Context, j *job, col domcol.Collection, up Upload) {
	defer s.wg.Done()
	defer s.removeFile(up.Path)

	log := s.logger.With(
		zap.String("collection", up.Collection),
		zap.String("job_id", j.id()),
		zap.String("format", string(up.Format)),
	)
	log.Info("Ingestion started")

	err := s.ingest(ctx, j, col, up, log)
	snap := j.finish(err)

	metrics.IngestJobsTotal.WithLabelValues(string(up.Format), string(snap.State)).Inc()
	fields := []zap.Field{
		zap.String("state", string(snap.State)),
		zap.Int("processed", snap.ProcessedUnits),
		zap.Int("inserted", snap.TotalInserted),
		zap.Int("failed", snap.TotalFailed),
		zap.Int64("elapsed_ms", snap.ElapsedMs),
	}
	if err != nil {
		log.Error("Ingestion failed", append(fields, zap.Error(err))...)
	} else {
		log.Info("Ingestion finished", fields...)
	}

	time.AfterFunc(s.cfg.Grace, func() { s.jobs.evict(up.Collection, j) })
}

// ingest converts a panic into a job failure so subscribers always see done.
func (s *Service) ingest(ctx context.Context, j *job, col domcol.Collection, up Upload, log *zap.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ingestion panicked: %v", r)
		}
	}()

	switch up.Format {
	case doming.CSV:
		return s.ingestCSV(ctx, j, col, up, log)
	case doming.JSON:
		return s.ingestJSON(ctx, j, col, up, log)
	default:
		return fmt.Errorf("unsupported format %q", up.Format)
	}
}

func (s *Service) newWriter(ctx context.Context, j *job, up Upload, log *zap.Logger) *batchWriter {
	return newBatchWriter(ctx, s.docs, j, up.Collection, up.Format, s.cfg.MaxInFlight, s.cfg.WriteTimeout, log)
}

// Snapshot returns the current progress of the collection's job.
func (s *Service) Snapshot(collection string) (doming.Snapshot, error) {
	j, ok := s.jobs.get(collection)
	if !ok {
		return doming.Snapshot{}, fmt.Errorf("progress for %s: %w", collection, domain.ErrNotFound)
	}
	return j.snapshot(), nil
}

// Subscribe streams snapshots of the collection's job every progress
// interval. The channel receives a final snapshot with Done set and is then
// closed; it is also closed when ctx ends.
func (s *Service) Subscribe(ctx context.Context, collection string) (<-chan doming.Snapshot, error) {
	j, ok := s.jobs.get(collection)
	if !ok {
		return nil, fmt.Errorf("progress for %s: %w", collection, domain.ErrNotFound)
	}

	out := make(chan doming.Snapshot, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.cfg.ProgressInterval)
		defer ticker.Stop()

		for {
			snap := j.snapshot()
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
			if snap.Done {
				return
			}
			select {
			case <-ticker.C:
			case <-j.done:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Wait blocks until every running job has finished or ctx ends.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for ingestion jobs: %w", ctx.Err())
	}
}

func (s *Service) removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("Failed to remove upload", zap.String("path", path), zap.Error(err))
	}
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}
