package chi

import (
	"net/http"

	"github.com/kailas-cloud/fedsearch/internal/domain/search/request"
)

// Search handles POST /search. Per-collection failures are reported in the
// body; the status is 200 whenever the request itself is valid.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	if !s.decodeJSON(w, r, &body) {
		return
	}

	req, err := request.New(body.Query, body.Limit, body.SolrCollections, body.CursorMarks, body.FQ, s.opts.Limits)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	resp := s.svc.Search.Search(r.Context(), req)
	writeJSON(w, http.StatusOK, searchResponseFromDomain(resp))
}
