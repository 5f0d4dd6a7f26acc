// Package resource provides the collaborators the sequencer and the project
// importer depend on: a locator registry for media handles, clip listings
// over HTTP or from a directory, and a file downloader for exports.
package resource

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/icco/videoseq/internal/sequencer"
)

const locatorPrefix = "blob:videoseq/"

var ErrUnknownLocator = errors.New("unknown locator")

// FileHandle is a media handle backed by a file on disk.
type FileHandle struct {
	Path string
}

func (f FileHandle) Name() string {
	return filepath.Base(f.Path)
}

// Registry mints session-scoped locators for media handles, in the manner
// of browser object URLs. Release is idempotent and ignores foreign urls.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]sequencer.MediaHandle
	logger  *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handles: map[string]sequencer.MediaHandle{},
		logger:  logger,
	}
}

func (r *Registry) Create(h sequencer.MediaHandle) (string, error) {
	if h == nil {
		return "", errors.New("nil media handle")
	}
	if fh, ok := h.(FileHandle); ok {
		if _, err := os.Stat(fh.Path); err != nil {
			return "", fmt.Errorf("media %s: %w", fh.Path, err)
		}
	}

	url := locatorPrefix + uuid.NewString()
	r.mu.Lock()
	r.handles[url] = h
	r.mu.Unlock()
	r.logger.Debug("locator created", "url", url, "media", h.Name())
	return url, nil
}

func (r *Registry) Release(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handles[url]; !ok {
		r.logger.Debug("release of unknown locator ignored", "url", url)
		return
	}
	delete(r.handles, url)
	r.logger.Debug("locator released", "url", url)
}

// Resolve returns the handle behind a live locator.
func (r *Registry) Resolve(url string) (sequencer.MediaHandle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[url]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLocator, url)
	}
	return h, nil
}

// Outstanding is the number of locators created and not yet released.
func (r *Registry) Outstanding() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
