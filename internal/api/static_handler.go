package api

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// NoBuildMessage is served at "/" when no front-end build is present.
const NoBuildMessage = "No build/index.html found. Build the front end before deploying."

// NewStaticHandler serves the single-page front end from dir. Unknown paths
// receive index.html so client-side routes work. When dir has no
// index.html, only "/" answers, with a plain-text notice.
func NewStaticHandler(dir string) http.Handler {
	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		return noBuildHandler{}
	}
	root := http.Dir(dir)
	return &spaHandler{
		root:  root,
		files: http.FileServer(root),
		index: index,
	}
}

type noBuildHandler struct{}

func (noBuildHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		RouteNotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(NoBuildMessage))
}

type spaHandler struct {
	root  http.FileSystem
	files http.Handler
	index string
}

func (h *spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		RouteNotFound(w, r)
		return
	}
	if h.exists(path.Clean("/" + r.URL.Path)) {
		h.files.ServeHTTP(w, r)
		return
	}
	h.serveIndex(w, r)
}

// exists reports whether name is a file, or a directory with an index.html.
func (h *spaHandler) exists(name string) bool {
	f, err := h.root.Open(name)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		return false
	}
	if !info.IsDir() {
		return true
	}
	idx, err := h.root.Open(path.Join(name, "index.html"))
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}

func (h *spaHandler) serveIndex(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(h.index)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			RouteNotFound(w, r)
			return
		}
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, "index.html", info.ModTime(), f)
}
