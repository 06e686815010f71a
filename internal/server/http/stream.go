package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"

	"github.com/and161185/goph-gallery/internal/errs"
	"github.com/and161185/goph-gallery/internal/model"
)

// patchView sends the #gallery and #tags fragments for the request's selection.
func (s *Server) patchView(sse *datastar.ServerSentEventGenerator, r *http.Request) error {
	v := s.view(r)
	grid, err := s.Surface.GridFragment(v)
	if err != nil {
		return err
	}
	tags, err := s.Surface.TagsFragment(v)
	if err != nil {
		return err
	}
	if err := sse.PatchElements(grid, datastar.WithSelector("#gallery"), datastar.WithMode(datastar.ElementPatchModeOuter)); err != nil {
		return err
	}
	return sse.PatchElements(tags, datastar.WithSelector("#tags"), datastar.WithMode(datastar.ElementPatchModeOuter))
}

// handleStream keeps one page session in sync with the shared view model.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	changes, err := s.View.Watch(r.Context())
	if err != nil {
		http.Error(w, "gallery closed", http.StatusServiceUnavailable)
		return
	}
	sse := datastar.NewSSE(w, r)
	if err := s.patchView(sse, r); err != nil {
		s.Log.Error("render stream", zap.Error(err))
		return
	}

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case _, ok := <-changes:
			if !ok {
				return
			}
			// Coalesce a burst of changes into one repaint.
			for drained := false; !drained; {
				select {
				case _, ok = <-changes:
					if !ok {
						return
					}
				default:
					drained = true
				}
			}
			if err := s.patchView(sse, r); err != nil {
				_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
			}
		}
	}
}

// item looks id up in the view model first, then the record store.
func (s *Server) item(r *http.Request) (model.MediaItem, error) {
	id, err := uuid.FromString(r.PathValue("id"))
	if err != nil {
		return model.MediaItem{}, fmt.Errorf("%w: bad media id", errs.ErrValidation)
	}
	if it, ok := s.View.Find(id); ok {
		return it, nil
	}
	return s.Catalog.Get(r.Context(), id)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	it, err := s.item(r)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	frag, err := s.Surface.ModalFragment(it)
	if err != nil {
		s.Log.Error("render detail", zap.Error(err))
		http.Error(w, "internal", http.StatusInternalServerError)
		return
	}
	sse := datastar.NewSSE(w, r)
	_ = sse.PatchElements(frag, datastar.WithSelector("#modal"), datastar.WithMode(datastar.ElementPatchModeOuter))
}

// statusFor maps the error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errs.ErrStorage), errors.Is(err, errs.ErrPersistence), errors.Is(err, errs.ErrFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
