// Package storage writes signed documents to a directory and serves them
// over HTTP.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidName is returned for names that would escape the storage
// directory or refer to temporary files.
var ErrInvalidName = errors.New("invalid document name")

// tempPrefix marks files that are still being written.
const tempPrefix = ".pending-"

// Object describes a stored document.
type Object struct {
	Name string
	Path string
	URL  string
	Size int64
}

// Local stores documents in Dir. Documents become visible under their final
// name only after they were written completely.
type Local struct {
	Dir string
	// BaseURL is the public URL of the server, e.g. http://localhost:5000.
	BaseURL string
	// Prefix is the URL path documents are served under.
	Prefix string
}

// NewLocal creates dir if needed and returns a store serving it under
// prefix.
func NewLocal(dir, baseURL, prefix string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Local{
		Dir:     dir,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Prefix:  prefix,
	}, nil
}

// FileName returns signed_<documentID>_<unix millis>_<short id>.pdf. Characters
// of documentID outside [A-Za-z0-9_-] are replaced by '_'.
func FileName(documentID string, now time.Time) string {
	return fmt.Sprintf("signed_%s_%d_%s.pdf", sanitize(documentID), now.UnixMilli(), uuid.NewString()[:8])
}

func sanitize(s string) string {
	if s == "" {
		return "document"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}

func validName(name string) bool {
	return name != "" &&
		name == filepath.Base(name) &&
		!strings.HasPrefix(name, ".") &&
		!strings.ContainsAny(name, `/\`)
}

// Save writes data under name. The file is written to a temporary file in
// the same directory and renamed into place, so readers never observe a
// partial document.
func (l *Local) Save(ctx context.Context, name string, data []byte) (Object, error) {
	if !validName(name) {
		return Object{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	f, err := os.CreateTemp(l.Dir, tempPrefix+"*.pdf")
	if err != nil {
		return Object{}, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmp := f.Name()
	cleanup := func() { _ = os.Remove(tmp) }

	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return Object{}, fmt.Errorf("failed to write document: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		cleanup()
		return Object{}, fmt.Errorf("failed to sync document: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return Object{}, fmt.Errorf("failed to close document: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		cleanup()
		return Object{}, err
	}

	final := filepath.Join(l.Dir, name)
	if err := os.Rename(tmp, final); err != nil {
		cleanup()
		return Object{}, fmt.Errorf("failed to publish document: %w", err)
	}

	return Object{
		Name: name,
		Path: final,
		URL:  l.URL(name),
		Size: int64(len(data)),
	}, nil
}

// Delete removes a stored document. Removing a missing document is not an
// error.
func (l *Local) Delete(name string) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := os.Remove(filepath.Join(l.Dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Open returns a reader for a stored document.
func (l *Local) Open(name string) (io.ReadCloser, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return os.Open(filepath.Join(l.Dir, name))
}

// URL returns the public URL of name.
func (l *Local) URL(name string) string {
	return l.BaseURL + path.Join(l.Prefix, url.PathEscape(name))
}

// Handler serves stored documents. Mount it at Prefix.
func (l *Local) Handler() http.Handler {
	files := http.StripPrefix(l.Prefix, http.FileServer(http.Dir(l.Dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, l.Prefix)
		if !validName(name) {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		files.ServeHTTP(w, r)
	})
}
