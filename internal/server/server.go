// Package server is the development server: it serves the build output,
// injects the live-reload client into HTML pages and pushes reload signals
// over a websocket when the watcher rebuilds.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alnah/go-inkmail/internal/hints"
	"github.com/alnah/go-inkmail/internal/pipeline"
)

// Sentinel errors for server operations.
var (
	ErrPortInUse    = errors.New("port already in use")
	ErrListen       = errors.New("failed to start server")
	ErrNotStarted   = errors.New("server not started")
	ErrAlreadyStart = errors.New("server already started")
)

// Options configures the development server.
type Options struct {
	Host   string
	Port   int // 0 picks a free port
	Root   string
	Logger *slog.Logger
}

// Server serves Root over HTTP with live reload.
type Server struct {
	opts     Options
	hub      *Hub
	router   chi.Router
	srv      *http.Server
	listener net.Listener
}

// New creates a server. Call Start to bind the port.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Host == "" {
		opts.Host = "localhost"
	}

	s := &Server{opts: opts, hub: NewHub(opts.Logger)}

	r := chi.NewRouter()
	r.Use(recoverer(opts.Logger))
	r.Use(requestLogger(opts.Logger))
	r.Handle(pipeline.LiveReloadPath, s.hub)
	r.Get("/*", s.serveFile)
	r.Head("/*", s.serveFile)
	s.router = r

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	if s.listener != nil {
		return ErrAlreadyStart
	}

	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("%w: %s%s", ErrPortInUse, addr, hints.ForPortInUse())
		}
		return fmt.Errorf("%w: %v", ErrListen, err)
	}

	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.opts.Logger.Error("server stopped", "error", err)
		}
	}()

	s.opts.Logger.Info("Serving files", "url", s.URL(), "dir", s.opts.Root)
	return nil
}

// URL returns the base URL of the running server.
func (s *Server) URL() string {
	if s.listener == nil {
		return ""
	}
	addr := s.listener.Addr().(*net.TCPAddr)
	return "http://" + net.JoinHostPort(s.opts.Host, strconv.Itoa(addr.Port))
}

// Reload tells every open page to reload.
func (s *Server) Reload() {
	s.hub.Reload()
}

// Clients returns the number of pages listening for reloads.
func (s *Server) Clients() int {
	return s.hub.Clients()
}

// Shutdown disconnects live-reload clients and drains HTTP connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return ErrNotStarted
	}
	s.hub.Close()
	return s.srv.Shutdown(ctx)
}

// serveFile serves Root, injecting the live-reload client into HTML pages.
// Directories without index.html get a listing so every page is reachable.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	clean := path.Clean("/" + r.URL.Path)
	name := filepath.Join(s.opts.Root, filepath.FromSlash(clean))

	info, err := os.Stat(name)
	if err == nil && info.IsDir() {
		index := filepath.Join(name, "index.html")
		if indexInfo, indexErr := os.Stat(index); indexErr == nil && !indexInfo.IsDir() {
			name, info = index, indexInfo
		}
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		// http.FileServer drops Cache-Control on error responses.
		http.Error(w, "404 page not found", http.StatusNotFound)
		return
	case errors.Is(err, fs.ErrPermission):
		http.Error(w, "403 Forbidden", http.StatusForbidden)
		return
	}

	if err != nil || info.IsDir() || !isHTML(name) {
		http.FileServer(http.Dir(s.opts.Root)).ServeHTTP(w, r)
		return
	}

	data, err := os.ReadFile(name) // #nosec G304 -- name is cleaned and rooted at Root
	if err != nil {
		http.Error(w, "failed to read page", http.StatusInternalServerError)
		return
	}

	body := pipeline.InjectBeforeBodyEnd(string(data), pipeline.LiveReloadScript())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write([]byte(body))
}

func isHTML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".html" || ext == ".htm"
}
