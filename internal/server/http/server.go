// Package httpserver serves the gallery page, its live datastar stream, uploads,
// the websocket change feed and the operational endpoints.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/goph-gallery/internal/gallery"
	"github.com/and161185/goph-gallery/internal/limiter"
	"github.com/and161185/goph-gallery/internal/model"
	"github.com/and161185/goph-gallery/internal/render"
	"github.com/and161185/goph-gallery/internal/render/html"
	"github.com/and161185/goph-gallery/internal/service"
)

// Uploader runs one upload end to end.
type Uploader interface {
	Submit(ctx context.Context, in model.Upload) (model.MediaItem, error)
}

// Pinger reports record store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of Server. Blobs and Metrics are optional.
type Deps struct {
	View           *gallery.ViewModel
	Catalog        service.CatalogService
	Uploads        Uploader
	Limiter        limiter.Limiter
	Health         Pinger
	Blobs          http.Handler
	Metrics        http.Handler
	Surface        *html.Surface
	Title          string
	MaxUploadBytes int64
	Log            *zap.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	Deps
	keepAlive time.Duration
}

// New validates deps and fills defaults.
func New(d Deps) (*Server, error) {
	if d.View == nil || d.Catalog == nil || d.Uploads == nil {
		return nil, errors.New("httpserver: view, catalog and uploads are required")
	}
	if d.Surface == nil {
		s, err := html.New()
		if err != nil {
			return nil, err
		}
		d.Surface = s
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Title == "" {
		d.Title = "Gallery"
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 64 << 20
	}
	return &Server{Deps: d, keepAlive: 25 * time.Second}, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /stream", s.handleStream)
	mux.HandleFunc("GET /detail/{id}", s.handleDetail)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /api/media", s.handleAPIMedia)
	mux.HandleFunc("GET /api/media/{id}", s.handleAPIItem)
	mux.HandleFunc("GET /api/tags", s.handleAPITags)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.Blobs != nil {
		mux.Handle("GET /blobs/", s.Blobs)
	}
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics)
	}
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.Log.Debug("http",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", r.RemoteAddr),
		)
	})
}

func selection(r *http.Request) []string {
	return r.URL.Query()["tag"]
}

func (s *Server) view(r *http.Request) render.View {
	return render.Snapshot(s.View, selection(r))
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.Surface.Page(w, s.Title, s.view(r)); err != nil {
		s.Log.Error("render page", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.Health.Ping(ctx); err != nil {
			s.Log.Warn("health check failed", zap.Error(err))
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	_, _ = w.Write([]byte("ok"))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
