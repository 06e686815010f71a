package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/goph-gallery/internal/convert"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.Debug("write json", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// handleAPIMedia lists the catalog, filtered by repeated tag parameters.
func (s *Server) handleAPIMedia(w http.ResponseWriter, r *http.Request) {
	items, err := s.Catalog.Filter(r.Context(), selection(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, convert.ToMedias(items))
}

func (s *Server) handleAPIItem(w http.ResponseWriter, r *http.Request) {
	it, err := s.item(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, convert.ToMedia(it))
}

func (s *Server) handleAPITags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.Catalog.Tags(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tags)
}
