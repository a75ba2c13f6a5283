package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/text/transform"

	"github.com/kailas-cloud/fedsearch/internal/domain/batch"
	domcol "github.com/kailas-cloud/fedsearch/internal/domain/collection"
	doming "github.com/kailas-cloud/fedsearch/internal/domain/ingest"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (s *Service) ingestJSON(ctx context.Context, j *job, col domcol.Collection, up Upload, log *zap.Logger) error {
	f, err := os.Open(up.Path)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc, err := lookupEncoding(up.Options.Encoding)
	if err != nil {
		return err
	}
	var doc any
	if err := json.NewDecoder(transform.NewReader(f, enc.NewDecoder())).Decode(&doc); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}

	root, err := doming.ParsePath(up.Options.RootPath)
	if err != nil {
		return fmt.Errorf("root path: %w", err)
	}
	remap, err := doming.NewRemapper(up.Options.Mappings)
	if err != nil {
		return fmt.Errorf("path mappings: %w", err)
	}

	target, err := root.Get(doc)
	if err != nil {
		j.start(0)
		j.reject(batch.Failure{Index: 0, Path: root.String(), Message: err.Error()})
		log.Warn("Root path did not resolve", zap.String("path", root.String()), zap.Error(err))
		return nil
	}

	records := doming.Flatten(target)
	j.start(len(records))

	fd := newFeeder(j, col, s.newWriter(ctx, j, up, log), up.Format, up.Options.BatchSize)
	for i, rec := range records {
		if !remap.Empty() {
			if err := remap.Apply(rec); err != nil {
				failure := batch.Failure{Index: i, Message: err.Error()}
				var me *doming.MappingError
				if errors.As(err, &me) {
					failure.Path = me.Path
				}
				fd.reject(failure)
				continue
			}
		}
		fd.add(i, rec)
	}
	fd.close()
	return nil
}
