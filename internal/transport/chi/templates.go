package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListTemplates handles GET /query-templates.
func (s *Server) ListTemplates(w http.ResponseWriter, r *http.Request) {
	tpls, err := s.svc.Templates.List(r.Context())
	if err != nil {
		handleError(w, r, s.errorHandlers, err)
		return
	}
	items := make([]Template, len(tpls))
	for i, t := range tpls {
		items[i] = templateToDTO(t)
	}
	writeJSON(w, http.StatusOK, TemplateList{Items: items})
}

// GetTemplate handles GET /query-templates/{name}.
func (s *Server) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.svc.Templates.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		handleError(w, r, s.errorHandlers, err)
		return
	}
	writeJSON(w, http.StatusOK, templateToDTO(tpl))
}

// SaveTemplate handles PUT /query-templates/{name}. The stored template is replaced.
func (s *Server) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	var req SaveTemplateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	tpl, err := s.svc.Templates.Save(r.Context(), chi.URLParam(r, "name"), req.params())
	if err != nil {
		handleError(w, r, s.errorHandlers, err)
		return
	}
	writeJSON(w, http.StatusOK, templateToDTO(tpl))
}

// DeleteTemplate handles DELETE /query-templates/{name}.
func (s *Server) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Templates.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		handleError(w, r, s.errorHandlers, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetDefaultTemplate handles POST /query-templates/{name}/default.
func (s *Server) SetDefaultTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.svc.Templates.SetDefault(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		handleError(w, r, s.errorHandlers, err)
		return
	}
	writeJSON(w, http.StatusOK, templateToDTO(tpl))
}
