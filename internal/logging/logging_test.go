package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("gatehouse", "1.2.3", "json", slog.LevelInfo, &buf)

	logger.Debug("hidden")
	logger.With("component", "test").Info("hello", "k", "v")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "hello", lines[0]["msg"])
	assert.Equal(t, "gatehouse", lines[0]["service"])
	assert.Equal(t, "1.2.3", lines[0]["version"])
	assert.Equal(t, "test", lines[0]["component"])
	assert.NotContains(t, lines[0], "request_id")
}

func TestSetupText(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("gatehouse", "dev", "text", slog.LevelDebug, &buf)

	logger.WithGroup("g").Debug("hello", "k", "v")

	out := buf.String()
	assert.Contains(t, out, "msg=hello")
	assert.Contains(t, out, "g.k=v")
	assert.Contains(t, out, "service=gatehouse")
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("gatehouse", "dev", "json", slog.LevelInfo, &buf)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("hi"))
	})
	r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	for _, path := range []string{"/ok", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "/ok", lines[0]["path"])
	assert.EqualValues(t, 200, lines[0]["status"])
	assert.EqualValues(t, 2, lines[0]["bytes"])
	assert.NotEmpty(t, lines[0]["request_id"])

	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.EqualValues(t, 500, lines[1]["status"])
}
