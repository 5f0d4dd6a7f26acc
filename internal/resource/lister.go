package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
)

// ClipsPath is where the clip server lists and serves media files.
const ClipsPath = "/api/clips"

// MediaExtensions are the file types offered as clips.
var MediaExtensions = []string{".mp4", ".webm", ".mov", ".mkv", ".ogv", ".m4v"}

// IsMedia reports whether name has one of the MediaExtensions.
func IsMedia(name string) bool {
	return slices.Contains(MediaExtensions, strings.ToLower(filepath.Ext(name)))
}

// ClipURL is the locator under which the clip server serves a filename.
func ClipURL(filename string) string {
	return ClipsPath + "/" + filename
}

// BaseName strips the extension: "boom.mp4" becomes "boom".
func BaseName(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// HTTPLister lists clips from a running clip server.
type HTTPLister struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPLister(baseURL string) *HTTPLister {
	return &HTTPLister{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (l *HTTPLister) ListClips(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.BaseURL+ClipsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build clip list request: %w", err)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list clips: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list clips: %s", resp.Status)
	}
	var files []string
	if err := json.NewDecoder(resp.Body).Decode(&files); err != nil {
		return nil, fmt.Errorf("failed to decode clip list: %w", err)
	}
	return files, nil
}

// DirLister lists media files found directly in a local directory.
type DirLister struct {
	Dir string
}

func (l DirLister) ListClips(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read clip directory: %w", err)
	}
	files := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		name := e.Name()
		return name, !e.IsDir() && !strings.HasPrefix(name, ".") && IsMedia(name)
	})
	slices.Sort(files)
	return files, nil
}
