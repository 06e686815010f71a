// Package blob contains BlobStore implementations: a local directory served
// over HTTP and an S3 bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/goph-gallery/internal/repository"
)

// PathPrefix is where FS blobs are served.
const PathPrefix = "/blobs/"

var _ repository.BlobStore = (*FS)(nil)

// FS stores blobs as files in a single directory.
type FS struct {
	root    string
	baseURL string
	signer  *Signer
	log     *zap.Logger
}

// NewFS creates root if missing. baseURL is the externally visible server
// origin, e.g. "https://gallery.example". A non-nil signer appends ?sig= to
// public URLs and makes the handler require it.
func NewFS(root, baseURL string, signer *Signer, log *zap.Logger) (*FS, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("blob root: %w", err)
	}
	return &FS{root: root, baseURL: strings.TrimRight(baseURL, "/"), signer: signer, log: log}, nil
}

func validKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("blob: invalid key %q", key)
	}
	return nil
}

// Put writes body to a temporary file and renames it into place.
func (s *FS) Put(ctx context.Context, key string, body io.Reader, _ int64, _ string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.root, key))
}

// PublicURL returns the served URL of key.
func (s *FS) PublicURL(_ context.Context, key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	u := s.baseURL + PathPrefix + url.PathEscape(key)
	if s.signer == nil {
		return u, nil
	}
	sig, err := s.signer.Sign(key)
	if err != nil {
		return "", err
	}
	return u + "?sig=" + url.QueryEscape(sig), nil
}

// Delete removes key. A missing file is not an error.
func (s *FS) Delete(_ context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.root, key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ServeHTTP serves GET/HEAD PathPrefix{key}. Blobs never change, so the key
// doubles as the ETag.
func (s *FS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, PathPrefix)
	if err := validKey(key); err != nil {
		http.NotFound(w, r)
		return
	}
	if s.signer != nil {
		if err := s.signer.Verify(r.URL.Query().Get("sig"), key); err != nil {
			s.log.Debug("blob signature rejected", zap.String("key", key), zap.Error(err))
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	f, err := os.Open(filepath.Join(s.root, key))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil || st.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("ETag", `"`+key+`"`)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, key, st.ModTime(), f)
}
