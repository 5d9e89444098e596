package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestEmbeddedPages(t *testing.T) {
	h, err := Handler("")
	require.NoError(t, err)

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{"/", "text/html; charset=utf-8", "<title>Gatehouse</title>"},
		{"/home", "text/html; charset=utf-8", "<title>Gatehouse</title>"},
		{"/index.html", "text/html; charset=utf-8", "registerForm"},
		{"/profile.html", "text/html; charset=utf-8", "changePasswordForm"},
		{"/style.css", "text/css; charset=utf-8", ".modal"},
		{"/functions.js", "application/javascript; charset=utf-8", "/api/login"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := serve(t, h, http.MethodGet, tt.path)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestNotFound(t *testing.T) {
	h, err := Handler("")
	require.NoError(t, err)

	for _, p := range []string{"/missing.html", "/../go.mod", "/nested/", "/%2e%2e/web.go"} {
		rec := serve(t, h, http.MethodGet, p)
		assert.Equal(t, http.StatusNotFound, rec.Code, p)
		assert.Contains(t, rec.Body.String(), "Not Found", p)
	}
}

func TestMethods(t *testing.T) {
	h, err := Handler("")
	require.NoError(t, err)

	rec := serve(t, h, http.MethodHead, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = serve(t, h, http.MethodPost, "/index.html")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
}

func TestDirOnDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>disk</html>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.png"), []byte("\x89PNG\r\n\x1a\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes"), []byte("%PDF-1.4\n"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o700))

	h, err := Handler(dir)
	require.NoError(t, err)

	rec := serve(t, h, http.MethodGet, "/home")
	assert.Equal(t, "<html>disk</html>", rec.Body.String())

	rec = serve(t, h, http.MethodGet, "/logo.png")
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = serve(t, h, http.MethodGet, "/notes")
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	rec = serve(t, h, http.MethodGet, "/sub")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerBadDir(t *testing.T) {
	_, err := Handler(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)

	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, nil, 0o600))
	_, err = Handler(f)
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentType("a.JPEG", nil))
	assert.Equal(t, "text/plain; charset=utf-8", ContentType("README", []byte("hello")))
}

func TestWithGate(t *testing.T) {
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
	}
	h, err := Handler("", WithGate("profile.html", deny))
	require.NoError(t, err)

	for _, p := range []string{"/profile.html", "//profile.html", "/profile.html/", "/a/../profile.html", "/%70rofile.html"} {
		rec := serve(t, h, http.MethodGet, p)
		assert.Equal(t, http.StatusTeapot, rec.Code, p)
	}
	// Gates run before the method check.
	rec := serve(t, h, http.MethodPost, "/profile.html")
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = serve(t, h, http.MethodGet, "/index.html")
	assert.Equal(t, http.StatusOK, rec.Code)
}
