// Package web serves the browser pages and their assets.
package web

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

//go:embed public/*
var content embed.FS

// IndexPage is served for "/" and "/home".
const IndexPage = "index.html"

var contentTypes = map[string]string{
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".html": "text/html; charset=utf-8",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// Option configures the handler returned by Handler.
type Option func(*fileServer)

// WithGate runs mw in front of the file called name. The match is made on the
// cleaned, unescaped file name, so every spelling of the path is covered.
func WithGate(name string, mw func(http.Handler) http.Handler) Option {
	return func(s *fileServer) {
		s.gates[name] = mw(http.HandlerFunc(s.serve))
	}
}

// Handler returns an http.Handler serving files from dir, or from the
// embedded pages when dir is empty.
func Handler(dir string, opts ...Option) (http.Handler, error) {
	fsys, err := files(dir)
	if err != nil {
		return nil, err
	}
	s := &fileServer{fsys: fsys, gates: make(map[string]http.Handler)}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func files(dir string) (fs.FS, error) {
	if dir == "" {
		fsys, err := fs.Sub(content, "public")
		if err != nil {
			return nil, fmt.Errorf("loading embedded web assets: %w", err)
		}
		return fsys, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening public dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("public dir %s is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

type fileServer struct {
	fsys  fs.FS
	gates map[string]http.Handler
}

func (s *fileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if gate, ok := s.gates[resolve(r.URL.Path)]; ok {
		gate.ServeHTTP(w, r)
		return
	}
	s.serve(w, r)
}

func (s *fileServer) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	name := resolve(r.URL.Path)
	data, err := readFile(s.fsys, name)
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", ContentType(name, data))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	w.Write(data)
}

// resolve maps a request path to a file name inside the served tree.
func resolve(p string) string {
	if p == "/" || p == "/home" {
		return IndexPage
	}
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func readFile(fsys fs.FS, name string) ([]byte, error) {
	if !fs.ValidPath(name) || name == "." {
		return nil, fs.ErrNotExist
	}
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errors.New("is a directory")
	}
	return fs.ReadFile(fsys, name)
}

// ContentType picks the Content-Type for name, falling back to sniffing data
// for extensions outside the known set.
func ContentType(name string, data []byte) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return mimetype.Detect(data).String()
}
