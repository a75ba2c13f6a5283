package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/fedsearch/internal/domain/collection/field"
)

// CreateCollection handles POST /collections.
func (s *Server) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req CreateCollectionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	fields := make([]field.Field, 0, len(req.Fields))
	for _, d := range req.Fields {
		f, err := fieldFromDTO(d)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, fmt.Sprintf("field %q: %v", d.Name, err))
			return
		}
		fields = append(fields, f)
	}

	col, err := s.svc.Collections.Create(r.Context(), req.Name, req.DisplayName, fields)
	if err != nil {
		handleError(w, r, s.errorHandlers, err)
		return
	}
	writeJSON(w, http.StatusCreated, collectionToDTO(col))
}

// ListCollections handles GET /collections.
func (s *Server) ListCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := s.svc.Collections.List(r.Context())
	if err != nil {
		handleError(w, r, s.errorHandlers, err)
		return
	}

	items := make([]Collection, len(cols))
	for i, c := range cols {
		items[i] = collectionToDTO(c)
	}
	writeJSON(w, http.StatusOK, CollectionList{Items: items})
}

// GetCollection handles GET /collections/{name}.
func (s *Server) GetCollection(w http.ResponseWriter, r *http.Request) {
	col, err := s.svc.Collections.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		handleError(w, r, s.errorHandlers, err)
		return
	}
	writeJSON(w, http.StatusOK, collectionToDTO(col))
}

// DeleteCollection handles DELETE /collections/{name}.
func (s *Server) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Collections.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		handleError(w, r, s.errorHandlers, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddField handles POST /collections/{name}/fields.
func (s *Server) AddField(w http.ResponseWriter, r *http.Request) {
	var req FieldDefinition
	if !s.decodeJSON(w, r, &req) {
		return
	}
	f, err := fieldFromDTO(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	col, err := s.svc.Collections.AddField(r.Context(), chi.URLParam(r, "name"), f)
	if err != nil {
		handleError(w, r, s.errorHandlers, err)
		return
	}
	writeJSON(w, http.StatusOK, collectionToDTO(col))
}
