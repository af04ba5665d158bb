// Package site serves the dashboard for every non-API GET request.
package site

import (
	"bytes"
	"embed"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

// Error constants.
var (
	ErrServe = errors.New("dashboard serve failed")
)

const indexFile = "index.html"

//go:embed static/*
var staticFS embed.FS

// FS returns the embedded dashboard rooted at static/.
func FS() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return staticFS
	}
	return sub
}

// Handler serves static assets and falls back to index.html so client-side
// routes resolve.
type Handler struct {
	files fs.FS
}

// New returns a handler over dir, or over the embedded dashboard when dir is
// empty.
func New(dir string) (*Handler, error) {
	if dir == "" {
		return &Handler{files: FS()}, nil
	}
	files := os.DirFS(dir)
	if _, err := fs.Stat(files, indexFile); err != nil {
		return nil, errors.Join(ErrServe, err)
	}
	return &Handler{files: files}, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = indexFile
	}
	if info, err := fs.Stat(h.files, name); err != nil || info.IsDir() {
		name = indexFile
	}
	if err := h.serve(w, r, name); err != nil {
		http.Error(w, ErrServe.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, name string) error {
	f, err := h.files.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	rs, ok := f.(io.ReadSeeker)
	if !ok {
		raw, err := io.ReadAll(f)
		if err != nil {
			return err
		}
		rs = bytes.NewReader(raw)
	}
	http.ServeContent(w, r, name, info.ModTime(), rs)
	return nil
}
