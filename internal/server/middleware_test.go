package server

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alnah/go-inkmail/internal/logging"
)

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("captures non-200 status code", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(logging.NewConsoleHandler(&buf, logging.Options{}))
		handler := requestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

		req := httptest.NewRequest(http.MethodGet, "/missing.html", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("status: got %d, want 404", rr.Code)
		}
		out := buf.String()
		for _, want := range []string{"http request", "status=404", "path=/missing.html"} {
			if !strings.Contains(out, want) {
				t.Errorf("log %q should contain %q", out, want)
			}
		}
	})

	t.Run("successful requests log at debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(logging.NewConsoleHandler(&buf, logging.Options{Level: slog.LevelInfo}))
		handler := requestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("hello"))
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("status: got %d, want 200", rr.Code)
		}
		if buf.Len() != 0 {
			t.Errorf("info logger should not print successful requests, got %q", buf.String())
		}
	})
}

func TestRecoverer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(logging.NewConsoleHandler(&buf, logging.Options{}))
	handler := recoverer(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/welcome.html", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rr.Code)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Errorf("log %q should mention the recovered panic", buf.String())
	}
}

func TestResponseWriter_HijackUnsupported(t *testing.T) {
	t.Parallel()

	rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}
	if _, _, err := rw.Hijack(); err == nil {
		t.Error("Hijack on a recorder should fail")
	}
}
