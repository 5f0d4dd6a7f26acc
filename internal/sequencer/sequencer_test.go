package sequencer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"reflect"
	"testing"
)

type fakeHandle string

func (h fakeHandle) Name() string { return string(h) }

type fakeResources struct {
	created  []string
	released []string
	fail     error
}

func (f *fakeResources) Create(h MediaHandle) (string, error) {
	if f.fail != nil {
		return "", f.fail
	}
	url := fmt.Sprintf("blob:test/%d-%s", len(f.created), h.Name())
	f.created = append(f.created, url)
	return url, nil
}

func (f *fakeResources) Release(url string) {
	f.released = append(f.released, url)
}

func newTestSequencer(res ResourceLifecycle) *Sequencer {
	return New(Options{
		Resources: res,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestDefaults(t *testing.T) {
	s := newTestSequencer(nil)
	p := s.Project()

	if p.BPM != 120 || p.TotalBeats != 64 {
		t.Errorf("Expected bpm 120 and 64 beats, got %v and %v", p.BPM, p.TotalBeats)
	}
	if p.GridSize != (GridSize{Rows: 2, Cols: 2}) {
		t.Errorf("Expected 2x2 grid, got %+v", p.GridSize)
	}
	if len(p.Instruments) != 0 || len(p.Clips) != 0 || p.IsPlaying || p.LoopMode || p.CurrentTime != 0 {
		t.Errorf("Expected empty stopped project, got %+v", p)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Default project should be valid: %v", err)
	}
}

func TestAddInstrumentScenario(t *testing.T) {
	s := newTestSequencer(nil)

	kick, err := s.AddInstrument("Kick", nil, "")
	if err != nil {
		t.Fatalf("AddInstrument(Kick) failed: %v", err)
	}
	snare, err := s.AddInstrument("Snare", nil, "")
	if err != nil {
		t.Fatalf("AddInstrument(Snare) failed: %v", err)
	}

	if kick.GridPosition != 0 || kick.Color != "#FF6B6B" {
		t.Errorf("Kick: expected cell 0 and #FF6B6B, got %d and %s", kick.GridPosition, kick.Color)
	}
	if snare.GridPosition != 1 || snare.Color != "#4ECDC4" {
		t.Errorf("Snare: expected cell 1 and #4ECDC4, got %d and %s", snare.GridPosition, snare.Color)
	}

	p := s.Project()
	if len(p.Instruments) != 2 || p.Instruments[0].Name != "Kick" || p.Instruments[1].Name != "Snare" {
		t.Errorf("Expected [Kick Snare] in insertion order, got %+v", p.Instruments)
	}
}

func TestAddInstrumentFillsLowestFreeCell(t *testing.T) {
	s := newTestSequencer(nil)
	a, _ := s.AddInstrument("a", nil, "")
	_, _ = s.AddInstrument("b", nil, "")
	_, _ = s.AddInstrument("c", nil, "")
	s.RemoveInstrument(a.ID)

	d, err := s.AddInstrument("d", nil, "")
	if err != nil {
		t.Fatalf("AddInstrument failed: %v", err)
	}
	if d.GridPosition != 0 {
		t.Errorf("Expected freed cell 0 to be reused, got %d", d.GridPosition)
	}
	// color follows the live instrument count, not the cell
	if d.Color != Palette[2] {
		t.Errorf("Expected color %s, got %s", Palette[2], d.Color)
	}
}

func TestAddInstrumentGridFull(t *testing.T) {
	res := &fakeResources{}
	s := newTestSequencer(res)
	for i := 0; i < 4; i++ {
		if _, err := s.AddInstrument(fmt.Sprintf("i%d", i), nil, ""); err != nil {
			t.Fatalf("AddInstrument %d failed: %v", i, err)
		}
	}

	_, err := s.AddInstrument("extra", fakeHandle("extra.mp4"), "")
	if !errors.Is(err, ErrGridFull) {
		t.Fatalf("Expected ErrGridFull, got %v", err)
	}
	if len(res.created) != 0 {
		t.Errorf("No locator should be minted for a rejected instrument, got %v", res.created)
	}
	if n := len(s.Project().Instruments); n != 4 {
		t.Errorf("Expected 4 instruments, got %d", n)
	}
}

func TestUniqueIDsAndPositions(t *testing.T) {
	// a generator that repeats itself must not produce duplicate ids
	calls := 0
	s := New(Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		NewID: func() string {
			calls++
			return fmt.Sprintf("%d", calls/3)
		},
	})
	if err := s.SetGridSize(3, 3); err != nil {
		t.Fatalf("SetGridSize failed: %v", err)
	}

	seen := map[string]bool{}
	for i := 0; i < 9; i++ {
		inst, err := s.AddInstrument(fmt.Sprintf("i%d", i), nil, "")
		if err != nil {
			t.Fatalf("AddInstrument %d failed: %v", i, err)
		}
		if seen[inst.ID] {
			t.Errorf("Duplicate instrument id %s", inst.ID)
		}
		seen[inst.ID] = true
		c := s.AddClip(inst.ID, 0, 1, 0)
		if seen[c.ID] {
			t.Errorf("Duplicate clip id %s", c.ID)
		}
		seen[c.ID] = true
	}

	p := s.Project()
	cells := map[int]bool{}
	for _, inst := range p.Instruments {
		if inst.GridPosition >= p.GridSize.Cells() {
			t.Errorf("Instrument %s outside grid at %d", inst.ID, inst.GridPosition)
		}
		if cells[inst.GridPosition] {
			t.Errorf("Cell %d used twice", inst.GridPosition)
		}
		cells[inst.GridPosition] = true
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Project should be valid: %v", err)
	}
}

func TestRemoveInstrumentCascades(t *testing.T) {
	s := newTestSequencer(nil)
	kick, _ := s.AddInstrument("Kick", nil, "")
	snare, _ := s.AddInstrument("Snare", nil, "")
	s.AddClip(kick.ID, 0, 4, 0)
	s.AddClip(kick.ID, 8, 4, 1)
	keep := s.AddClip(snare.ID, 4, 2, 0)

	s.RemoveInstrument(kick.ID)

	p := s.Project()
	for _, c := range p.Clips {
		if c.InstrumentID == kick.ID {
			t.Errorf("Clip %s still references removed instrument", c.ID)
		}
	}
	if len(p.Clips) != 1 || p.Clips[0].ID != keep.ID {
		t.Errorf("Expected only the snare clip to survive, got %+v", p.Clips)
	}

	// scenario D
	s.RemoveInstrument(snare.ID)
	if n := len(s.Project().Clips); n != 0 {
		t.Errorf("Expected no clips left, got %d", n)
	}
}

func TestRemoveInstrumentReleasesMintedURL(t *testing.T) {
	res := &fakeResources{}
	s := newTestSequencer(res)

	owned, err := s.AddInstrument("owned", fakeHandle("boom.mp4"), "ignored")
	if err != nil {
		t.Fatalf("AddInstrument failed: %v", err)
	}
	if owned.VideoURL != res.created[0] {
		t.Errorf("Expected minted url %s, got %s", res.created[0], owned.VideoURL)
	}
	borrowed, _ := s.AddInstrument("borrowed", nil, "/api/clips/baeuh.mp4")

	s.RemoveInstrument(owned.ID)
	s.RemoveInstrument(owned.ID)
	s.RemoveInstrument(borrowed.ID)

	if !reflect.DeepEqual(res.released, []string{owned.VideoURL}) {
		t.Errorf("Expected exactly one release of %s, got %v", owned.VideoURL, res.released)
	}
}

func TestAddInstrumentCreateFailure(t *testing.T) {
	res := &fakeResources{fail: errors.New("boom")}
	s := newTestSequencer(res)

	if _, err := s.AddInstrument("x", fakeHandle("x.mp4"), ""); err == nil {
		t.Fatal("Expected error when the locator cannot be created")
	}
	if n := len(s.Project().Instruments); n != 0 {
		t.Errorf("Expected no instruments, got %d", n)
	}
}

func TestClipEditing(t *testing.T) {
	s := newTestSequencer(nil)
	c := s.AddClip("missing", 2, 0, 3)
	if c.Duration != 0 || c.InstrumentID != "missing" {
		t.Errorf("AddClip should store its arguments verbatim, got %+v", c)
	}

	start := 6.5
	track := 2
	s.UpdateClip(c.ID, ClipPatch{StartTime: &start, TrackIndex: &track})
	s.UpdateClip("nope", ClipPatch{StartTime: &start})

	got := s.Project().Clips[0]
	want := Clip{ID: c.ID, InstrumentID: "missing", StartTime: 6.5, Duration: 0, TrackIndex: 2}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	s.RemoveClip("nope")
	s.RemoveClip(c.ID)
	if n := len(s.Project().Clips); n != 0 {
		t.Errorf("Expected no clips, got %d", n)
	}
}

func TestSetBPMClamps(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{500, 300},
		{10, 40},
		{90, 90},
	}

	s := newTestSequencer(nil)
	for _, tt := range tests {
		s.SetBPM(tt.in)
		got := s.Project().BPM
		if got != tt.want {
			t.Errorf("SetBPM(%v): expected %v, got %v", tt.in, tt.want, got)
		}
		s.SetBPM(got)
		if again := s.Project().BPM; again != got {
			t.Errorf("SetBPM not idempotent: %v then %v", got, again)
		}
	}
}

func TestTransport(t *testing.T) {
	s := newTestSequencer(nil)

	s.SetCurrentTime(100)
	if got := s.Project().CurrentTime; got != 64 {
		t.Errorf("Expected cursor clamped to 64, got %v", got)
	}
	s.SetCurrentTime(-1)
	if got := s.Project().CurrentTime; got != 0 {
		t.Errorf("Expected cursor clamped to 0, got %v", got)
	}

	s.SetCurrentTime(12)
	s.Play()
	if p := s.Project(); !p.IsPlaying || p.CurrentTime != 12 {
		t.Errorf("Play should only set the flag, got %+v", p)
	}
	s.Pause()
	if p := s.Project(); p.IsPlaying || p.CurrentTime != 12 {
		t.Errorf("Pause should only clear the flag, got %+v", p)
	}

	s.Play()
	s.SetPlayback(12, []string{"clip-a", "clip-b"})
	if pb := s.Playback(); pb.CurrentBeat != 12 || !pb.IsActive("clip-a") || len(pb.ActiveClips) != 2 {
		t.Errorf("Unexpected playback state %+v", pb)
	}

	s.Stop()
	if p := s.Project(); p.IsPlaying || p.CurrentTime != 0 {
		t.Errorf("Stop should rewind and halt, got %+v", p)
	}
	if pb := s.Playback(); pb.CurrentBeat != 0 || len(pb.ActiveClips) != 0 {
		t.Errorf("Stop should reset playback, got %+v", pb)
	}

	s.ToggleLoopMode()
	if !s.Project().LoopMode {
		t.Error("Expected loop mode on")
	}
	s.ToggleLoopMode()
	if s.Project().LoopMode {
		t.Error("Expected loop mode off")
	}
}

func TestSetGridSize(t *testing.T) {
	s := newTestSequencer(nil)
	_, _ = s.AddInstrument("Kick", nil, "")
	_, _ = s.AddInstrument("Snare", nil, "")
	before := s.Project()

	// scenario B
	if err := s.SetGridSize(1, 1); !errors.Is(err, ErrGridOrphan) {
		t.Fatalf("Expected ErrGridOrphan, got %v", err)
	}
	if err := s.SetGridSize(0, 4); !errors.Is(err, ErrInvalidGrid) {
		t.Fatalf("Expected ErrInvalidGrid, got %v", err)
	}
	if after := s.Project(); !reflect.DeepEqual(before, after) {
		t.Errorf("Rejected resize changed state:\n%+v\n%+v", before, after)
	}

	if err := s.SetGridSize(1, 2); err != nil {
		t.Fatalf("SetGridSize(1, 2) failed: %v", err)
	}
	if g := s.Project().GridSize; g != (GridSize{Rows: 1, Cols: 2}) {
		t.Errorf("Expected 1x2 grid, got %+v", g)
	}
}

func TestReplace(t *testing.T) {
	res := &fakeResources{}
	s := newTestSequencer(res)
	old, _ := s.AddInstrument("old", fakeHandle("old.mp4"), "")
	s.Play()

	next := DefaultProjectState()
	next.BPM = 90
	next.IsPlaying = true
	next.CurrentTime = 10
	next.Instruments = []Instrument{{ID: "instrument-1", Name: "boom", Color: Palette[0], VideoURL: "/api/clips/boom.mp4"}}
	next.Clips = []Clip{{ID: "clip-1", InstrumentID: "instrument-1", Duration: 2}}

	if err := s.Replace(next); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if !reflect.DeepEqual(res.released, []string{old.VideoURL}) {
		t.Errorf("Expected the old locator released, got %v", res.released)
	}
	p := s.Project()
	if p.IsPlaying || p.CurrentTime != 0 || p.BPM != 90 || len(p.Clips) != 1 {
		t.Errorf("Unexpected project after replace: %+v", p)
	}

	// releasing the imported url must never reach the lifecycle
	s.RemoveInstrument("instrument-1")
	if len(res.released) != 1 {
		t.Errorf("Imported urls must not be released, got %v", res.released)
	}

	bad := DefaultProjectState()
	bad.Clips = []Clip{{ID: "clip-x", InstrumentID: "ghost", Duration: 1}}
	if err := s.Replace(bad); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState, got %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	s := newTestSequencer(nil)
	ch, cancel := s.Subscribe()

	s.SetBPM(100)
	select {
	case c := <-ch:
		if c.Kind != ProjectChanged {
			t.Errorf("Expected project change, got %v", c.Kind)
		}
	default:
		t.Fatal("Expected a change notification")
	}

	s.SetPlayback(1, nil)
	if c := <-ch; c.Kind != PlaybackChanged {
		t.Errorf("Expected playback change, got %v", c.Kind)
	}

	// a slow subscriber must not block mutations
	for i := 0; i < subscriberBuffer*2; i++ {
		s.SetBPM(float64(60 + i))
	}

	cancel()
	cancel()
	for range ch {
	}
}

func TestSetPosition(t *testing.T) {
	s := newTestSequencer(nil)
	ch, cancel := s.Subscribe()
	defer cancel()

	s.SetPosition(12.5, []string{"clip-a"})
	kinds := map[ChangeKind]int{}
	for len(ch) > 0 {
		c := <-ch
		kinds[c.Kind]++
		if p, pb := s.Project(), s.Playback(); p.CurrentTime != pb.CurrentBeat {
			t.Errorf("Cursor %v and playback beat %v disagree after %v change", p.CurrentTime, pb.CurrentBeat, c.Kind)
		}
	}
	if kinds[ProjectChanged] != 1 || kinds[PlaybackChanged] != 1 {
		t.Errorf("Expected one change of each kind, got %v", kinds)
	}
	if pb := s.Playback(); pb.CurrentBeat != 12.5 || !pb.IsActive("clip-a") || len(pb.ActiveClips) != 1 {
		t.Errorf("Unexpected playback state %+v", pb)
	}

	tests := []struct {
		name string
		beat float64
		want float64
	}{
		{"past the end", 100, 64},
		{"negative", -1, 0},
		{"nan", math.NaN(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.SetPosition(tt.beat, nil)
			if p, pb := s.Project(), s.Playback(); p.CurrentTime != tt.want || pb.CurrentBeat != tt.want {
				t.Errorf("Expected both at %v, got cursor %v and beat %v", tt.want, p.CurrentTime, pb.CurrentBeat)
			}
		})
	}
}

func TestActiveClipsAt(t *testing.T) {
	p := DefaultProjectState()
	p.Clips = []Clip{
		{ID: "a", StartTime: 0, Duration: 4},
		{ID: "b", StartTime: 2, Duration: 2},
		{ID: "c", StartTime: 4, Duration: 1},
	}

	tests := []struct {
		beat float64
		want []string
	}{
		{0, []string{"a"}},
		{3.5, []string{"a", "b"}},
		{4, []string{"c"}},
		{5, nil},
	}
	for _, tt := range tests {
		got := p.ActiveClipsAt(tt.beat)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ActiveClipsAt(%v) = %v, want %v", tt.beat, got, tt.want)
		}
	}
}
