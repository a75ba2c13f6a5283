package chi

import (
	"github.com/kailas-cloud/fedsearch/internal/domain/batch"
	domcol "github.com/kailas-cloud/fedsearch/internal/domain/collection"
	"github.com/kailas-cloud/fedsearch/internal/domain/collection/field"
	doming "github.com/kailas-cloud/fedsearch/internal/domain/ingest"
	"github.com/kailas-cloud/fedsearch/internal/domain/search/result"
	domtpl "github.com/kailas-cloud/fedsearch/internal/domain/template"
)

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query           string            `json:"query" validate:"max=4096"`
	Limit           int               `json:"limit" validate:"gte=0"`
	SolrCollections []string          `json:"solrCollections" validate:"required,min=1,dive,required"`
	CursorMarks     map[string]string `json:"cursorMarks"`
	FQ              []string          `json:"fq"`
}

// FacetBucket is one value of a facet field.
type FacetBucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SearchError is a collection that failed inside a federated search.
type SearchError struct {
	Collection string `json:"collection"`
	Message    string `json:"message"`
}

// SearchResponse is the merged federated result.
type SearchResponse struct {
	Results         map[string][]map[string]any         `json:"results"`
	NextCursorMarks map[string]string                   `json:"nextCursorMarks"`
	Facets          map[string]map[string][]FacetBucket `json:"facets"`
	NumFound        map[string]int                      `json:"numFound"`
	Errors          []SearchError                       `json:"errors"`
	Success         bool                                `json:"success"`
}

func searchResponseFromDomain(r *result.Response) SearchResponse {
	facets := make(map[string]map[string][]FacetBucket, len(r.Facets))
	for col, ff := range r.Facets {
		byField := make(map[string][]FacetBucket, len(ff))
		for name, values := range ff {
			buckets := make([]FacetBucket, len(values))
			for i, v := range values {
				buckets[i] = FacetBucket{Value: v.Value, Count: v.Count}
			}
			byField[name] = buckets
		}
		facets[col] = byField
	}

	errs := make([]SearchError, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = SearchError{Collection: e.Collection, Message: e.Message}
	}

	return SearchResponse{
		Results:         r.Results,
		NextCursorMarks: r.NextCursorMarks,
		Facets:          facets,
		NumFound:        r.NumFound,
		Errors:          errs,
		Success:         r.Success(),
	}
}

// UploadAccepted is the 202 body of an upload.
type UploadAccepted struct {
	Message        string `json:"message"`
	JobID          string `json:"jobId"`
	StatusEndpoint string `json:"statusEndpoint"`
}

// csvUploadForm holds the non-file parts of a CSV upload.
type csvUploadForm struct {
	Delimiter string `form:"delimiter" validate:"omitempty,oneof=comma semicolon tab space"`
	Encoding  string `form:"encoding" validate:"omitempty,max=64"`
}

// jsonUploadForm holds the non-file parts of a JSON upload.
type jsonUploadForm struct {
	Encoding     string `form:"encoding" validate:"omitempty,max=64"`
	RootPath     string `form:"rootPath" validate:"omitempty,max=1024"`
	BatchSize    string `form:"batchSize" validate:"omitempty,number"`
	PathMappings string `form:"pathMappings" validate:"omitempty,json"`
}

// PathMapping is one entry of the pathMappings upload field.
type PathMapping struct {
	SourcePath string `json:"sourcePath" validate:"required"`
	TargetPath string `json:"targetPath" validate:"required"`
}

// FailedSample describes one failed record.
type FailedSample struct {
	Index   int    `json:"index"`
	Path    string `json:"path,omitempty"`
	Message string `json:"error"`
}

// ProgressSnapshot is one message of a progress stream.
type ProgressSnapshot struct {
	JobID           string         `json:"jobId"`
	State           string         `json:"state"`
	TotalUnits      int            `json:"totalUnits"`
	ProcessedUnits  int            `json:"processedUnits"`
	ProgressPercent int            `json:"progressPercent"`
	Done            bool           `json:"done"`
	ElapsedMs       int64          `json:"elapsedMs"`
	TotalInserted   *int           `json:"totalInserted,omitempty"`
	TotalFailed     *int           `json:"totalFailed,omitempty"`
	Error           string         `json:"error,omitempty"`
	FailedSamples   []FailedSample `json:"failedSamples,omitempty"`
}

// progressFromDomain reports counts once writing has produced any.
func progressFromDomain(s doming.Snapshot) ProgressSnapshot {
	out := ProgressSnapshot{
		JobID:           s.JobID,
		State:           string(s.State),
		TotalUnits:      s.TotalUnits,
		ProcessedUnits:  s.ProcessedUnits,
		ProgressPercent: s.ProgressPercent,
		Done:            s.Done,
		ElapsedMs:       s.ElapsedMs,
		Error:           s.Error,
	}
	if s.Done || s.TotalInserted > 0 || s.TotalFailed > 0 {
		inserted, failed := s.TotalInserted, s.TotalFailed
		out.TotalInserted = &inserted
		out.TotalFailed = &failed
	}
	if len(s.FailedSamples) > 0 {
		out.FailedSamples = samplesFromDomain(s.FailedSamples)
	}
	return out
}

func samplesFromDomain(in []batch.Failure) []FailedSample {
	out := make([]FailedSample, len(in))
	for i, f := range in {
		out[i] = FailedSample{Index: f.Index, Path: f.Path, Message: f.Message}
	}
	return out
}

// FieldDefinition describes one collection field.
type FieldDefinition struct {
	Name       string   `json:"name" validate:"required,max=64"`
	Type       string   `json:"type" validate:"required"`
	Required   bool     `json:"required,omitempty"`
	Default    any      `json:"default,omitempty"`
	EnumValues []string `json:"enumValues,omitempty"`
	Min        *float64 `json:"min,omitempty"`
	Max        *float64 `json:"max,omitempty"`
}

// CreateCollectionRequest is the body of POST /collections.
type CreateCollectionRequest struct {
	Name        string            `json:"name" validate:"required,max=64"`
	DisplayName string            `json:"displayName" validate:"max=256"`
	Fields      []FieldDefinition `json:"fields" validate:"dive"`
}

// Collection is the API view of collection metadata.
type Collection struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"displayName,omitempty"`
	Fields      []FieldDefinition `json:"fields"`
	Version     int               `json:"version"`
	CreatedAt   int64             `json:"createdAt"`
}

// CollectionList wraps GET /collections.
type CollectionList struct {
	Items []Collection `json:"items"`
}

func fieldFromDTO(d FieldDefinition) (field.Field, error) {
	ft, err := field.ParseType(d.Type)
	if err != nil {
		return field.Field{}, err //nolint:wrapcheck // surfaced as a validation message
	}
	var opts []field.Option
	if d.Required {
		opts = append(opts, field.Required())
	}
	if d.Default != nil {
		opts = append(opts, field.WithDefault(d.Default))
	}
	if len(d.EnumValues) > 0 {
		opts = append(opts, field.WithEnum(d.EnumValues...))
	}
	if d.Min != nil {
		opts = append(opts, field.WithMin(*d.Min))
	}
	if d.Max != nil {
		opts = append(opts, field.WithMax(*d.Max))
	}
	return field.New(d.Name, ft, opts...) //nolint:wrapcheck // surfaced as a validation message
}

func fieldToDTO(f field.Field) FieldDefinition {
	d := FieldDefinition{
		Name:       f.Name(),
		Type:       string(f.FieldType()),
		Required:   f.Required(),
		Default:    f.Default(),
		EnumValues: f.EnumValues(),
	}
	if v, ok := f.Min(); ok {
		d.Min = &v
	}
	if v, ok := f.Max(); ok {
		d.Max = &v
	}
	return d
}

func collectionToDTO(c domcol.Collection) Collection {
	fields := make([]FieldDefinition, len(c.Fields()))
	for i, f := range c.Fields() {
		fields[i] = fieldToDTO(f)
	}
	return Collection{
		Name:        c.Name(),
		DisplayName: c.DisplayName(),
		Fields:      fields,
		Version:     c.Version(),
		CreatedAt:   c.CreatedAt(),
	}
}

// Template is the API view of a query template.
type Template struct {
	Name        string   `json:"name"`
	QF          string   `json:"qf,omitempty"`
	FL          string   `json:"fl,omitempty"`
	PF          string   `json:"pf,omitempty"`
	PF2         string   `json:"pf2,omitempty"`
	PF3         string   `json:"pf3,omitempty"`
	PS          string   `json:"ps,omitempty"`
	PS2         string   `json:"ps2,omitempty"`
	PS3         string   `json:"ps3,omitempty"`
	MM          string   `json:"mm,omitempty"`
	FacetFields []string `json:"facetFields,omitempty"`
	Default     bool     `json:"default"`
}

// SaveTemplateRequest is the body of PUT /query-templates/{name}.
type SaveTemplateRequest struct {
	QF          string   `json:"qf" validate:"max=2048"`
	FL          string   `json:"fl" validate:"max=2048"`
	PF          string   `json:"pf" validate:"max=2048"`
	PF2         string   `json:"pf2" validate:"max=2048"`
	PF3         string   `json:"pf3" validate:"max=2048"`
	PS          string   `json:"ps" validate:"omitempty,numeric"`
	PS2         string   `json:"ps2" validate:"omitempty,numeric"`
	PS3         string   `json:"ps3" validate:"omitempty,numeric"`
	MM          string   `json:"mm" validate:"max=64"`
	FacetFields []string `json:"facetFields" validate:"max=64"`
}

func (r SaveTemplateRequest) params() domtpl.Params {
	return domtpl.Params{
		QF: r.QF, FL: r.FL, PF: r.PF, PF2: r.PF2, PF3: r.PF3,
		PS: r.PS, PS2: r.PS2, PS3: r.PS3, MM: r.MM,
		FacetFields: r.FacetFields,
	}
}

func templateToDTO(t domtpl.Template) Template {
	p := t.Params()
	return Template{
		Name: t.Name(),
		QF:   p.QF, FL: p.FL, PF: p.PF, PF2: p.PF2, PF3: p.PF3,
		PS: p.PS, PS2: p.PS2, PS3: p.PS3, MM: p.MM,
		FacetFields: p.FacetFields,
		Default:     t.IsDefault(),
	}
}

// TemplateList wraps GET /query-templates.
type TemplateList struct {
	Items []Template `json:"items"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
