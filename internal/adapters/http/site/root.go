// Package site serves the small embedded landing page at /.
package site

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ErrServe is returned when the landing page cannot be read from the
// embedded filesystem.
var ErrServe = errors.New("landing page serve failed")

// Register attaches the landing page routes to r.
func Register(r chi.Router) {
	if r == nil {
		panic("router is nil")
	}
	h := NewRootHandler()
	r.Get("/", h.HandleRoot)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(FS())))
}

// RootHandler serves the landing page.
type RootHandler struct {
	page []byte
	err  error
}

// NewRootHandler reads the page once.
func NewRootHandler() *RootHandler {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		err = errors.Join(ErrServe, err)
	}
	return &RootHandler{page: page, err: err}
}

// HandleRoot handles GET /.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	if h.err != nil {
		http.Error(w, h.err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(h.page)
}
