package render

import (
	"testing"

	"github.com/icco/videoseq/internal/sequencer"
)

func TestCellRect(t *testing.T) {
	grid := sequencer.GridSize{Rows: 2, Cols: 2}
	tests := []struct {
		cell int
		want Rect
	}{
		{0, Rect{0, 0, 960, 540}},
		{1, Rect{960, 0, 960, 540}},
		{2, Rect{0, 540, 960, 540}},
		{3, Rect{960, 540, 960, 540}},
	}
	for _, tt := range tests {
		if got := CellRect(tt.cell, grid, DefaultWidth, DefaultHeight); got != tt.want {
			t.Errorf("CellRect(%d) = %+v, want %+v", tt.cell, got, tt.want)
		}
	}
}

func TestNewPlan(t *testing.T) {
	p := sequencer.DefaultProjectState()
	p.TotalBeats = 12
	p.Instruments = []sequencer.Instrument{
		{ID: "baeuh", Name: "baeuh", VideoURL: "/api/clips/baeuh.mp4", GridPosition: 0},
		{ID: "boom", Name: "boom", VideoURL: "/api/clips/boom.mp4", GridPosition: 2},
		{ID: "silent", Name: "silent", GridPosition: 1},
	}
	p.Clips = []sequencer.Clip{
		{ID: "late", InstrumentID: "boom", StartTime: 4, Duration: 4, TrackIndex: 1},
		{ID: "first", InstrumentID: "baeuh", StartTime: 0, Duration: 4},
		{ID: "cut", InstrumentID: "baeuh", StartTime: 10, Duration: 8},
		{ID: "nomedia", InstrumentID: "silent", StartTime: 0, Duration: 1},
		{ID: "orphan", InstrumentID: "gone", StartTime: 0, Duration: 1},
	}

	plan := NewPlan(p, DefaultWidth, DefaultHeight)
	if plan.Duration != 6 {
		t.Errorf("Expected 6s at 120 bpm, got %v", plan.Duration)
	}
	if plan.Skipped != 2 {
		t.Errorf("Expected 2 skipped clips, got %d", plan.Skipped)
	}
	if len(plan.Placements) != 3 {
		t.Fatalf("Expected 3 placements, got %+v", plan.Placements)
	}

	first, late, cut := plan.Placements[0], plan.Placements[1], plan.Placements[2]
	if first.ClipID != "first" || first.Start != 0 || first.Duration != 2 || first.Cell != (Rect{0, 0, 960, 540}) {
		t.Errorf("Unexpected first placement %+v", first)
	}
	if late.ClipID != "late" || late.Start != 2 || late.Cell != (Rect{0, 540, 960, 540}) || late.Source != "/api/clips/boom.mp4" {
		t.Errorf("Unexpected second placement %+v", late)
	}
	if cut.ClipID != "cut" || cut.Start != 5 || cut.Duration != 1 {
		t.Errorf("Expected clip cut at the timeline end, got %+v", cut)
	}
}
