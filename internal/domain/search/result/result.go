package result

// FacetValue is one bucket of a facet field.
type FacetValue struct {
	Value string
	Count int
}

// Facets maps a facet field to its buckets in engine order.
type Facets map[string][]FacetValue

// Page is one collection's slice of a cursor-paginated result sequence.
type Page struct {
	Docs           []map[string]any
	NextCursorMark string
	Facets         Facets
	NumFound       int
}

// EmptyPage is what a failed collection contributes: no docs and an unchanged cursor.
func EmptyPage(cursorMark string) Page {
	return Page{
		Docs:           []map[string]any{},
		NextCursorMark: cursorMark,
		Facets:         Facets{},
	}
}

// CollectionError records a per-collection failure.
type CollectionError struct {
	Collection string
	Message    string
}

// Response merges the pages of a federated search.
type Response struct {
	Results         map[string][]map[string]any
	NextCursorMarks map[string]string
	Facets          map[string]Facets
	NumFound        map[string]int
	Errors          []CollectionError
}

// NewResponse allocates a Response for n collections.
func NewResponse(n int) *Response {
	return &Response{
		Results:         make(map[string][]map[string]any, n),
		NextCursorMarks: make(map[string]string, n),
		Facets:          make(map[string]Facets, n),
		NumFound:        make(map[string]int, n),
		Errors:          []CollectionError{},
	}
}

// Add records a collection's page.
func (r *Response) Add(collection string, p Page) {
	docs := p.Docs
	if docs == nil {
		docs = []map[string]any{}
	}
	facets := p.Facets
	if facets == nil {
		facets = Facets{}
	}
	r.Results[collection] = docs
	r.NextCursorMarks[collection] = p.NextCursorMark
	r.Facets[collection] = facets
	r.NumFound[collection] = p.NumFound
}

// Fail records an empty page and an error entry for a collection.
func (r *Response) Fail(collection, cursorMark string, err error) {
	r.Add(collection, EmptyPage(cursorMark))
	r.Errors = append(r.Errors, CollectionError{Collection: collection, Message: err.Error()})
}

// Success reports whether every collection succeeded.
func (r *Response) Success() bool { return len(r.Errors) == 0 }
