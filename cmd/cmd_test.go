package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/icco/videoseq/internal/project"
	"github.com/icco/videoseq/internal/render"
	"github.com/icco/videoseq/internal/sequencer"
)

func testDocument() project.Document {
	return project.Document{
		Version:    project.Version,
		BPM:        120,
		TotalBeats: 8,
		GridSize:   project.GridSize{Rows: 1, Cols: 2},
		Instruments: []project.Instrument{
			{ID: "i1", Name: "kick", Color: "#FF6B6B", GridPosition: 0},
			{ID: "i2", Name: "snare", Color: "#4ECDC4", GridPosition: 1},
		},
		Clips: []project.Clip{
			{ID: "c1", InstrumentID: "i1", StartTime: 0, Duration: 2},
			{ID: "c2", InstrumentID: "i2", StartTime: 4, Duration: 2, TrackIndex: 1},
		},
	}
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()
	data, err := project.MarshalYAML(testDocument())
	if err != nil {
		t.Fatalf("MarshalYAML failed: %v", err)
	}
	path := filepath.Join(dir, "show.yaml")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("Error writing project: %v", err)
	}

	doc, err := readDocument(path)
	if err != nil {
		t.Fatalf("readDocument failed: %v", err)
	}
	if len(doc.Instruments) != 2 || doc.Clips[1].TrackIndex != 1 {
		t.Errorf("Unexpected document %+v", doc)
	}

	if _, err := readDocument(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestWriteInspect(t *testing.T) {
	var buf bytes.Buffer
	writeInspect(&buf, testDocument())
	out := buf.String()
	for _, want := range []string{"kick", "snare", "1x2", "8 beats (4.00s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestWritePlan(t *testing.T) {
	p := sequencer.DefaultProjectState()
	p.Instruments = []sequencer.Instrument{{ID: "i1", Name: "kick", VideoURL: "/api/clips/kick.mp4"}}
	p.Clips = []sequencer.Clip{{ID: "c1", InstrumentID: "i1", StartTime: 2, Duration: 2}}

	var buf bytes.Buffer
	writePlan(&buf, render.NewPlan(p, 640, 360))
	out := buf.String()
	for _, want := range []string{"1.000", "320x180+0+0", "/api/clips/kick.mp4"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}
