package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/transform"

	"github.com/kailas-cloud/fedsearch/internal/domain/batch"
	domcol "github.com/kailas-cloud/fedsearch/internal/domain/collection"
	doming "github.com/kailas-cloud/fedsearch/internal/domain/ingest"
)

const bom = "\ufeff"

func (s *Service) ingestCSV(ctx context.Context, j *job, col domcol.Collection, up Upload, log *zap.Logger) error {
	total, err := countRows(up.Path)
	if err != nil {
		return fmt.Errorf("count rows: %w", err)
	}
	j.start(total)

	f, err := os.Open(up.Path)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc, err := lookupEncoding(up.Options.Encoding)
	if err != nil {
		return err
	}
	r := csv.NewReader(transform.NewReader(f, enc.NewDecoder()))
	r.Comma = up.Options.Delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	keys := headerKeys(header)

	fd := newFeeder(j, col, s.newWriter(ctx, j, up, log), up.Format, doming.CSVBatchSize(total))
	for idx := 0; ; idx++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			fd.reject(batch.Failure{Index: idx, Message: parseErr.Error()})
			continue
		}
		if err != nil {
			fd.close()
			return fmt.Errorf("read row %d: %w", idx, err)
		}
		fd.add(idx, rowRecord(keys, row))
	}
	fd.close()
	return nil
}

func headerKeys(header []string) []string {
	keys := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, bom)
		}
		keys[i] = strings.TrimSpace(h)
	}
	return keys
}

// rowRecord pairs values with header keys. Extra values and blank headers are dropped.
func rowRecord(keys, row []string) map[string]any {
	rec := make(map[string]any, len(keys))
	for i, k := range keys {
		if k == "" || i >= len(row) {
			continue
		}
		rec[k] = row[i]
	}
	return rec
}

// countRows counts data lines (all lines but the header). Quoted values
// spanning lines make this an estimate; the final total is the count read.
func countRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 64<<10)
	lines, last := 0, byte('\n')
	for {
		n, err := f.Read(buf)
		if n > 0 {
			lines += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if last != '\n' {
		lines++
	}
	return max(lines-1, 0), nil
}
