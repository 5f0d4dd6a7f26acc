// Package clipserver serves the clip directory over HTTP: a JSON listing at
// /api/clips and the media files themselves under /api/clips/<filename>.
package clipserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/icco/videoseq/internal/resource"
)

type Server struct {
	dir    string
	lister resource.DirLister
	logger *slog.Logger

	mu     sync.Mutex
	cached []string
	valid  bool
}

func New(dir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		dir:    dir,
		lister: resource.DirLister{Dir: dir},
		logger: logger.With("component", "clipserver"),
	}
}

// Clips returns the media files in the directory, from cache when the
// directory has not changed since the last listing.
func (s *Server) Clips(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.valid {
		return s.cached, nil
	}
	files, err := s.lister.ListClips(ctx)
	if err != nil {
		return nil, err
	}
	s.cached = files
	s.valid = true
	return files, nil
}

// ListClips lets the server stand in for a resource lister in-process.
func (s *Server) ListClips(ctx context.Context) ([]string, error) {
	files, err := s.Clips(ctx)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), files...), nil
}

func (s *Server) invalidate() {
	s.mu.Lock()
	s.valid = false
	s.mu.Unlock()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+resource.ClipsPath, s.handleList)
	mux.HandleFunc("GET "+resource.ClipsPath+"/{name}", s.handleClip)
	return mux
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	files, err := s.Clips(r.Context())
	if err != nil {
		s.logger.Error("failed to list clips", "error", err)
		http.Error(w, "failed to list clips", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(files); err != nil {
		s.logger.Warn("failed to write clip list", "error", err)
	}
}

func (s *Server) handleClip(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") || !resource.IsMedia(name) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.dir, name))
}

// Watch invalidates the listing cache whenever the directory changes. It
// returns when ctx is done.
func (s *Server) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				s.logger.Debug("clip directory changed", "file", event.Name, "op", event.Op.String())
				s.invalidate()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watch error", "error", err)
		}
	}
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.Watch(ctx); err != nil {
			s.logger.Warn("clip directory watch stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("serving clips", "addr", addr, "dir", s.dir)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("clip server: %w", err)
	}
	return nil
}
