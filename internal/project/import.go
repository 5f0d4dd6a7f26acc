package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/icco/videoseq/internal/resource"
	"github.com/icco/videoseq/internal/sequencer"
)

// ClipLister reports the media files available to the session.
type ClipLister interface {
	ListClips(ctx context.Context) ([]string, error)
}

// Target is the sequencer an import replaces.
type Target interface {
	Replace(next sequencer.ProjectState) error
}

type Importer struct {
	Lister ClipLister
	Logger *slog.Logger
}

func (im Importer) logger() *slog.Logger {
	if im.Logger == nil {
		return slog.Default()
	}
	return im.Logger
}

// Import decodes data and installs it into target. The version and the
// document contents are checked and the clip listing is fetched before the
// current project is touched, so a failed import leaves it as it was.
func (im Importer) Import(ctx context.Context, target Target, data []byte) error {
	doc, err := Decode(data)
	if err != nil {
		im.logger().Warn("import failed", "error", err)
		return err
	}
	return im.ImportDocument(ctx, target, doc)
}

func (im Importer) ImportDocument(ctx context.Context, target Target, doc Document) error {
	log := im.logger()
	if doc.Version != Version {
		err := fmt.Errorf("%w: %q", ErrUnsupportedVersion, doc.Version)
		log.Warn("import failed", "error", err)
		return err
	}

	// validate against a locator-free state first; urls do not affect validity
	if err := doc.State(nil).Validate(); err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		log.Warn("import failed", "error", err)
		return err
	}

	urls, err := im.lookup(ctx)
	if err != nil {
		log.Warn("import failed", "error", err)
		return err
	}

	if err := target.Replace(doc.State(urls)); err != nil {
		if errors.Is(err, sequencer.ErrInvalidState) {
			err = fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
		log.Warn("import failed", "error", err)
		return err
	}
	log.Info("project imported",
		"instruments", len(doc.Instruments), "clips", len(doc.Clips),
		"matched", countMatched(doc, urls))
	return nil
}

// lookup maps clip base names to the locators the clip server serves them under.
func (im Importer) lookup(ctx context.Context) (map[string]string, error) {
	if im.Lister == nil {
		return nil, fmt.Errorf("%w: no clip lister configured", ErrResourceLookup)
	}
	files, err := im.Lister.ListClips(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResourceLookup, err)
	}
	urls := make(map[string]string, len(files))
	for _, f := range files {
		urls[resource.BaseName(f)] = resource.ClipURL(f)
	}
	return urls, nil
}

func countMatched(doc Document, urls map[string]string) int {
	n := 0
	for _, inst := range doc.Instruments {
		if urls[inst.Name] != "" {
			n++
		}
	}
	return n
}
