// Package ingest holds the rules of bulk uploads: options, batch sizing,
// JSON record extraction and the job progress state machine.
package ingest

import (
	"fmt"
	"regexp"
	"strings"
)

// Format is the upload file format.
type Format string

// Supported formats.
const (
	CSV  Format = "csv"
	JSON Format = "json"
)

// IsValid reports whether f is a supported format.
func (f Format) IsValid() bool { return f == CSV || f == JSON }

// Ingestion tuning.
const (
	DefaultEncoding      = "utf-8"
	DefaultJSONBatchSize = 1000
	MaxJSONBatchSize     = 10000
	MaxFailureSamples    = 10
	// ProgressEvery is how many records pass between progress updates.
	ProgressEvery = 100

	smallCSVBatch     = 1000
	largeCSVBatch     = 5000
	csvBatchThreshold = 10000
)

var collectionNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidateCollectionName checks an upload target before any file is touched.
func ValidateCollectionName(name string) error {
	if !collectionNameRegex.MatchString(name) {
		return fmt.Errorf("collection name %q must contain only letters, digits and underscores", name)
	}
	return nil
}

var delimiters = map[string]rune{
	"":          ',',
	"comma":     ',',
	"semicolon": ';',
	"tab":       '\t',
	"space":     ' ',
}

// ParseDelimiter maps a delimiter name to its character.
func ParseDelimiter(name string) (rune, error) {
	r, ok := delimiters[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unsupported delimiter %q (want comma, semicolon, tab or space)", name)
	}
	return r, nil
}

// CSVBatchSize picks the batch size from the counted row total.
func CSVBatchSize(total int) int {
	if total < csvBatchThreshold {
		return smallCSVBatch
	}
	return largeCSVBatch
}

// PathMapping copies the value at Source to Target within each JSON record.
type PathMapping struct {
	Source string
	Target string
}

// Options are the per-upload parameters.
type Options struct {
	Delimiter rune
	Encoding  string
	RootPath  string
	BatchSize int
	Mappings  []PathMapping
}

// Normalize fills defaults and validates the options for a format.
func (o Options) Normalize(f Format) (Options, error) {
	if !f.IsValid() {
		return Options{}, fmt.Errorf("unsupported format %q", f)
	}
	if strings.TrimSpace(o.Encoding) == "" {
		o.Encoding = DefaultEncoding
	}

	switch f {
	case CSV:
		if o.Delimiter == 0 {
			o.Delimiter = ','
		}
	case JSON:
		switch {
		case o.BatchSize < 0:
			return Options{}, fmt.Errorf("batch size must not be negative")
		case o.BatchSize == 0:
			o.BatchSize = DefaultJSONBatchSize
		case o.BatchSize > MaxJSONBatchSize:
			return Options{}, fmt.Errorf("batch size %d exceeds maximum %d", o.BatchSize, MaxJSONBatchSize)
		}
		if _, err := ParsePath(o.RootPath); err != nil {
			return Options{}, fmt.Errorf("root path: %w", err)
		}
		for _, m := range o.Mappings {
			if _, err := compileMapping(m); err != nil {
				return Options{}, err
			}
		}
	}
	return o, nil
}
