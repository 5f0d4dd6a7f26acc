package project

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/icco/videoseq/internal/sequencer"
)

// Downloader hands exported bytes to the user, e.g. by saving a file.
type Downloader interface {
	Download(ctx context.Context, data []byte, filename string) error
}

// Snapshotter is anything that can report the current project.
type Snapshotter interface {
	Project() sequencer.ProjectState
}

// Export builds the portable document for a project.
func Export(p sequencer.ProjectState) Document {
	return Document{
		Version:    Version,
		BPM:        p.BPM,
		TotalBeats: p.TotalBeats,
		GridSize:   GridSize{Rows: p.GridSize.Rows, Cols: p.GridSize.Cols},
		Instruments: lo.Map(p.Instruments, func(inst sequencer.Instrument, _ int) Instrument {
			return Instrument{
				ID:           inst.ID,
				Name:         inst.Name,
				Color:        inst.Color,
				GridPosition: inst.GridPosition,
			}
		}),
		Clips: lo.Map(p.Clips, func(c sequencer.Clip, _ int) Clip {
			return Clip(c)
		}),
	}
}

// SuggestedFilename names an export taken at the given time.
func SuggestedFilename(now time.Time) string {
	return fmt.Sprintf("videoSeq-%d.json", now.UnixMilli())
}

// Save exports the current project and passes it to the downloader.
// It returns the filename it suggested.
func Save(ctx context.Context, src Snapshotter, d Downloader, now time.Time) (string, error) {
	data, err := Marshal(Export(src.Project()))
	if err != nil {
		return "", fmt.Errorf("error encoding project: %w", err)
	}
	name := SuggestedFilename(now)
	if err := d.Download(ctx, data, name); err != nil {
		return "", fmt.Errorf("error saving project: %w", err)
	}
	return name, nil
}
