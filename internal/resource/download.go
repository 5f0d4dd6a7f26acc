package resource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileDownloader saves exported projects into Dir.
type FileDownloader struct {
	Dir string
	// LastPath is the file written by the most recent Download.
	LastPath string
}

func (d *FileDownloader) Download(ctx context.Context, data []byte, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.Dir, 0750); err != nil {
		return fmt.Errorf("error creating export directory: %w", err)
	}
	path := filepath.Join(d.Dir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	d.LastPath = path
	return nil
}
