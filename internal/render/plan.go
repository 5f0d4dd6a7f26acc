// Package render lays a project out for offline video rendering: every clip
// becomes a timed placement of its instrument's media in a grid cell.
package render

import (
	"cmp"
	"math"
	"slices"

	"github.com/icco/videoseq/internal/sequencer"
	"github.com/icco/videoseq/internal/tempo"
)

const (
	DefaultWidth  = 1920
	DefaultHeight = 1080
)

type Rect struct {
	X, Y, W, H int
}

// Placement is one clip on the output canvas, timed in seconds.
type Placement struct {
	ClipID     string
	Instrument string
	Source     string
	Start      float64
	Duration   float64
	Cell       Rect
	Track      int
}

type Plan struct {
	Width, Height int
	Duration      float64 // seconds
	Placements    []Placement
	// Skipped counts clips with no media or no live instrument.
	Skipped int
}

// CellRect returns the pixel rectangle of a grid cell, filling row by row.
func CellRect(cell int, grid sequencer.GridSize, width, height int) Rect {
	w := width / grid.Cols
	h := height / grid.Rows
	return Rect{
		X: (cell % grid.Cols) * w,
		Y: (cell / grid.Cols) * h,
		W: w,
		H: h,
	}
}

// NewPlan converts the project timeline into placements on a width x height
// canvas. Clips are cut at the end of the timeline.
func NewPlan(p sequencer.ProjectState, width, height int) Plan {
	plan := Plan{
		Width:    width,
		Height:   height,
		Duration: tempo.BeatsToSeconds(p.TotalBeats, p.BPM),
	}

	for _, c := range p.Clips {
		inst, ok := p.Instrument(c.InstrumentID)
		if !ok || inst.VideoURL == "" || c.Duration <= 0 || c.StartTime >= p.TotalBeats {
			plan.Skipped++
			continue
		}
		end := math.Min(c.End(), p.TotalBeats)
		plan.Placements = append(plan.Placements, Placement{
			ClipID:     c.ID,
			Instrument: inst.Name,
			Source:     inst.VideoURL,
			Start:      tempo.BeatsToSeconds(c.StartTime, p.BPM),
			Duration:   tempo.BeatsToSeconds(end-c.StartTime, p.BPM),
			Cell:       CellRect(inst.GridPosition, p.GridSize, width, height),
			Track:      c.TrackIndex,
		})
	}

	slices.SortStableFunc(plan.Placements, func(a, b Placement) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.Track, b.Track)
	})
	return plan
}
