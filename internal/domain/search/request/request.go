package request

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/fedsearch/internal/domain/template"
)

// Search parameter limits.
const (
	// StartCursor is the cursor mark that starts a result sequence.
	StartCursor    = "*"
	MaxQueryLength = 4096
	MaxFilters     = 32
	MaxCollections = 64
)

var collectionRegex = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]*$`)

// ValidateCollection checks a search engine collection name.
// It runs per collection so one bad name does not fail the whole search.
func ValidateCollection(name string) error {
	if len(name) > 128 {
		return fmt.Errorf("collection name too long (max 128)")
	}
	if !collectionRegex.MatchString(name) {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return nil
}

// Limits bounds the page size.
type Limits struct {
	Default int
	Max     int
}

// Request is a validated federated search query.
type Request struct {
	query       string
	limit       int
	collections []string
	cursorMarks map[string]string
	filters     []string
}

// New validates and normalizes search parameters.
// Collections are deduplicated in request order; a zero limit becomes lim.Default.
func New(
	query string,
	limit int,
	collections []string,
	cursorMarks map[string]string,
	filters []string,
	lim Limits,
) (Request, error) {
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}

	cols := dedupe(collections)
	if len(cols) == 0 {
		return Request{}, fmt.Errorf("at least one collection is required")
	}
	if len(cols) > MaxCollections {
		return Request{}, fmt.Errorf("too many collections (max %d)", MaxCollections)
	}

	switch {
	case limit < 0:
		return Request{}, fmt.Errorf("limit must not be negative")
	case limit == 0:
		limit = lim.Default
	case lim.Max > 0 && limit > lim.Max:
		return Request{}, fmt.Errorf("limit %d exceeds maximum %d", limit, lim.Max)
	}

	fq := make([]string, 0, len(filters))
	for _, f := range filters {
		if f = strings.TrimSpace(f); f != "" {
			fq = append(fq, f)
		}
	}
	if len(fq) > MaxFilters {
		return Request{}, fmt.Errorf("too many filters (max %d)", MaxFilters)
	}

	marks := make(map[string]string, len(cursorMarks))
	for c, m := range cursorMarks {
		if m != "" {
			marks[c] = m
		}
	}

	return Request{
		query:       query,
		limit:       limit,
		collections: cols,
		cursorMarks: marks,
		filters:     fq,
	}, nil
}

// Query returns the raw query text used for cache keys.
func (r Request) Query() string { return r.query }

// EngineQuery returns the query sent upstream; blank queries match everything.
func (r Request) EngineQuery() string {
	if strings.TrimSpace(r.query) == "" {
		return "*:*"
	}
	return r.query
}

// Limit returns the page size.
func (r Request) Limit() int { return r.limit }

// Collections returns the target collections in request order.
func (r Request) Collections() []string { return r.collections }

// CursorMark returns the cursor for a collection, StartCursor when absent.
func (r Request) CursorMark(collection string) string {
	if m, ok := r.cursorMarks[collection]; ok {
		return m
	}
	return StartCursor
}

// Filters returns the filter queries shared by all collections.
func (r Request) Filters() []string { return r.filters }

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// PageQuery is one collection's share of a federated search.
type PageQuery struct {
	Collection string
	Q          string
	Rows       int
	CursorMark string
	Filters    []string
	Params     template.Params
}

// PageQuery builds the upstream query for one collection.
func (r Request) PageQuery(collection string, p template.Params) PageQuery {
	return PageQuery{
		Collection: collection,
		Q:          r.EngineQuery(),
		Rows:       r.limit,
		CursorMark: r.CursorMark(collection),
		Filters:    r.filters,
		Params:     p,
	}
}
