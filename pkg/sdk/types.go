package fedsearch

// Format is an upload file format.
type Format string

// Upload formats.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Delimiter selects the CSV field separator.
type Delimiter string

// CSV delimiters accepted by the API.
const (
	DelimiterComma     Delimiter = "comma"
	DelimiterSemicolon Delimiter = "semicolon"
	DelimiterTab       Delimiter = "tab"
	DelimiterSpace     Delimiter = "space"
)

// SearchRequest queries several collections at once. CursorMarks carries the
// NextCursorMarks of a previous response to fetch the following page.
type SearchRequest struct {
	Query           string            `json:"query"`
	Limit           int               `json:"limit,omitempty"`
	SolrCollections []string          `json:"solrCollections"`
	CursorMarks     map[string]string `json:"cursorMarks,omitempty"`
	FQ              []string          `json:"fq,omitempty"`
}

// FacetBucket is one value of a facet field.
type FacetBucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SearchError is a collection that failed; the others still return results.
type SearchError struct {
	Collection string `json:"collection"`
	Message    string `json:"message"`
}

// SearchResponse holds per-collection results keyed by collection name.
type SearchResponse struct {
	Results         map[string][]map[string]any         `json:"results"`
	NextCursorMarks map[string]string                   `json:"nextCursorMarks"`
	Facets          map[string]map[string][]FacetBucket `json:"facets"`
	NumFound        map[string]int                      `json:"numFound"`
	Errors          []SearchError                       `json:"errors"`
	Success         bool                                `json:"success"`
}

// CSVOptions tune a CSV upload. Zero values use the server defaults.
type CSVOptions struct {
	Delimiter Delimiter
	Encoding  string
}

// PathMapping renames a source path to a target path in each JSON record.
type PathMapping struct {
	SourcePath string `json:"sourcePath"`
	TargetPath string `json:"targetPath"`
}

// JSONOptions tune a JSON upload. Zero values use the server defaults.
type JSONOptions struct {
	Encoding     string
	RootPath     string
	BatchSize    int
	PathMappings []PathMapping
}

// UploadJob is the accepted upload.
type UploadJob struct {
	Message        string `json:"message"`
	JobID          string `json:"jobId"`
	StatusEndpoint string `json:"statusEndpoint"`
}

// FailedSample describes one record that was not written.
type FailedSample struct {
	Index   int    `json:"index"`
	Path    string `json:"path,omitempty"`
	Message string `json:"error"`
}

// Progress is one snapshot of an ingestion job.
// TotalInserted and TotalFailed are nil until the first batch lands.
type Progress struct {
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

// HealthStatus is the aggregated server health.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
