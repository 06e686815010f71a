package httpserver

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"

	"github.com/and161185/goph-gallery/internal/errs"
	"github.com/and161185/goph-gallery/internal/model"
	"github.com/and161185/goph-gallery/internal/render/html"
	"github.com/and161185/goph-gallery/internal/sanitize"
)

const multipartMemory = 8 << 20

// readUpload decodes the multipart form. A missing file yields an Upload with
// an empty body so validation reports it.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (model.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return model.Upload{}, fmt.Errorf("%w: file exceeds %d bytes", errs.ErrValidation, tooBig.Limit)
		}
		return model.Upload{}, fmt.Errorf("%w: malformed form: %v", errs.ErrValidation, err)
	}
	in := model.Upload{
		Head:  r.FormValue("head"),
		Title: r.FormValue("title"),
		Tags:  r.FormValue("tags"),
	}
	f, hdr, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil
	}
	if err != nil {
		return model.Upload{}, fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	defer f.Close()
	body, err := io.ReadAll(f)
	if err != nil {
		return model.Upload{}, fmt.Errorf("%w: read file: %v", errs.ErrValidation, err)
	}
	in.FileName = hdr.Filename
	in.ContentType = hdr.Header.Get("Content-Type")
	in.Body = body
	return in, nil
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.Limiter != nil {
		ok, retryAfter, err := s.Limiter.Allow(r.Context(), clientIP(r))
		switch {
		case err != nil:
			// Fail open; the limiter store is not the upload path.
			s.Log.Warn("upload limiter", zap.Error(err))
		case !ok:
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			s.respondUpload(w, r, "", model.MediaItem{}, fmt.Errorf("%w: retry in %s", errs.ErrRateLimited, retryAfter.Round(time.Second)))
			return
		}
	}

	in, err := s.readUpload(w, r)
	if err != nil {
		s.respondUpload(w, r, "", model.MediaItem{}, err)
		return
	}
	item, err := s.Uploads.Submit(r.Context(), in)
	s.respondUpload(w, r, in.FileName, item, err)
}

// respondUpload reports the outcome as a #notice patch for datastar requests,
// and as a plain status or redirect otherwise.
func (s *Server) respondUpload(w http.ResponseWriter, r *http.Request, fileName string, item model.MediaItem, err error) {
	kind, msg := "ok", "Uploaded "+sanitize.FileLabel(fileName)+"."
	switch {
	case errors.Is(err, errs.ErrPartialTags):
		kind, msg = "warn", "Uploaded, but some tags were not saved."
	case err != nil:
		kind, msg = "error", err.Error()
	}
	if err != nil {
		s.Log.Info("upload rejected", zap.String("peer", clientIP(r)), zap.Error(err))
	}

	if r.Header.Get("Datastar-Request") != "true" {
		if err != nil && !errors.Is(err, errs.ErrPartialTags) {
			http.Error(w, msg, statusFor(err))
			return
		}
		http.Redirect(w, r, "/"+html.Query(selection(r)), http.StatusSeeOther)
		return
	}

	notice, rerr := s.Surface.Notice(kind, msg)
	if rerr != nil {
		s.Log.Error("render notice", zap.Error(rerr))
		http.Error(w, "internal", http.StatusInternalServerError)
		return
	}
	sse := datastar.NewSSE(w, r)
	_ = sse.PatchElements(notice, datastar.WithSelector("#notice"), datastar.WithMode(datastar.ElementPatchModeOuter))
	if item.ID.IsNil() {
		return
	}
	if frag, ferr := s.Surface.ModalFragment(item); ferr == nil {
		_ = sse.PatchElements(frag, datastar.WithSelector("#modal"), datastar.WithMode(datastar.ElementPatchModeOuter))
	}
}
