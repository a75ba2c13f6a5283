package searchcache

import "github.com/kailas-cloud/fedsearch/internal/domain/search/result"

// entry is the cached form of a page.
type entry struct {
	Docs           []map[string]any        `json:"docs"`
	NextCursorMark string                  `json:"nextCursorMark"`
	Facets         map[string][]facetEntry `json:"facets"`
	NumFound       int                     `json:"numFound"`
}

type facetEntry struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

func newEntry(p result.Page) entry {
	facets := make(map[string][]facetEntry, len(p.Facets))
	for field, buckets := range p.Facets {
		out := make([]facetEntry, len(buckets))
		for i, b := range buckets {
			out[i] = facetEntry{Value: b.Value, Count: b.Count}
		}
		facets[field] = out
	}
	docs := p.Docs
	if docs == nil {
		docs = []map[string]any{}
	}
	return entry{Docs: docs, NextCursorMark: p.NextCursorMark, Facets: facets, NumFound: p.NumFound}
}

func (e entry) page() result.Page {
	facets := make(result.Facets, len(e.Facets))
	for field, buckets := range e.Facets {
		out := make([]result.FacetValue, len(buckets))
		for i, b := range buckets {
			out[i] = result.FacetValue{Value: b.Value, Count: b.Count}
		}
		facets[field] = out
	}
	docs := e.Docs
	if docs == nil {
		docs = []map[string]any{}
	}
	return result.Page{Docs: docs, NextCursorMark: e.NextCursorMark, Facets: facets, NumFound: e.NumFound}
}
