package solr

import (
	"strconv"

	"github.com/kailas-cloud/fedsearch/internal/domain/search/result"
)

type selectResponse struct {
	Response struct {
		NumFound int              `json:"numFound"`
		Docs     []map[string]any `json:"docs"`
	} `json:"response"`
	NextCursorMark string `json:"nextCursorMark"`
	FacetCounts    struct {
		FacetFields map[string][]any `json:"facet_fields"`
	} `json:"facet_counts"`
}

func (r selectResponse) page() result.Page {
	docs := r.Response.Docs
	if docs == nil {
		docs = []map[string]any{}
	}
	return result.Page{
		Docs:           docs,
		NextCursorMark: r.NextCursorMark,
		Facets:         parseFacets(r.FacetCounts.FacetFields),
		NumFound:       r.Response.NumFound,
	}
}

// parseFacets reads Solr's flat [value, count, value, count, ...] lists.
func parseFacets(raw map[string][]any) result.Facets {
	out := make(result.Facets, len(raw))
	for field, flat := range raw {
		buckets := make([]result.FacetValue, 0, len(flat)/2)
		for i := 0; i+1 < len(flat); i += 2 {
			buckets = append(buckets, result.FacetValue{
				Value: facetValue(flat[i]),
				Count: facetCount(flat[i+1]),
			})
		}
		out[field] = buckets
	}
	return out
}

func facetValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return ""
	}
}

func facetCount(v any) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}
