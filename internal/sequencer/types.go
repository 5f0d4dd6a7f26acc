package sequencer

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/icco/videoseq/internal/tempo"
)

const (
	DefaultTotalBeats = 64.0 // 16 bars of 4 beats
	DefaultGridRows   = 2
	DefaultGridCols   = 2
)

// Palette holds the instrument colors, handed out in creation order.
var Palette = [...]string{
	"#FF6B6B",
	"#4ECDC4",
	"#45B7D1",
	"#FFA07A",
	"#98D8C8",
	"#F7DC6F",
	"#BB8FCE",
	"#85C1E2",
	"#F8B739",
}

// MediaHandle is a raw media input, such as a file picked by the user.
// The sequencer never reads it; it only hands it to a ResourceLifecycle.
type MediaHandle interface {
	Name() string
}

// ResourceLifecycle mints and frees session-scoped locators for media.
type ResourceLifecycle interface {
	Create(h MediaHandle) (string, error)
	Release(url string)
}

// Instrument is a named track source bound to one media input and one grid cell.
type Instrument struct {
	ID           string
	Name         string
	VideoSource  MediaHandle // nil when none
	VideoURL     string      // empty when none
	Color        string
	GridPosition int
}

// Clip is a placement of an instrument's media on the timeline, in beats.
type Clip struct {
	ID           string
	InstrumentID string
	StartTime    float64
	Duration     float64
	TrackIndex   int
}

// End returns the beat at which the clip stops.
func (c Clip) End() float64 {
	return c.StartTime + c.Duration
}

// ActiveAt reports whether the clip covers the given beat.
func (c Clip) ActiveAt(beat float64) bool {
	return beat >= c.StartTime && beat < c.End()
}

// ClipPatch carries the fields UpdateClip should overwrite. Nil fields are left alone.
type ClipPatch struct {
	InstrumentID *string
	StartTime    *float64
	Duration     *float64
	TrackIndex   *int
}

// GridSize is the rows and columns of the instrument grid.
type GridSize struct {
	Rows int
	Cols int
}

// Cells is the number of addressable grid cells.
func (g GridSize) Cells() int {
	return g.Rows * g.Cols
}

// ProjectState is the authoritative sequencer model.
type ProjectState struct {
	Instruments []Instrument
	Clips       []Clip
	IsPlaying   bool
	CurrentTime float64
	BPM         float64
	TotalBeats  float64
	GridSize    GridSize
	LoopMode    bool
}

// DefaultProjectState returns the state a new session starts with.
func DefaultProjectState() ProjectState {
	return ProjectState{
		Instruments: []Instrument{},
		Clips:       []Clip{},
		BPM:         tempo.DefaultBPM,
		TotalBeats:  DefaultTotalBeats,
		GridSize:    GridSize{Rows: DefaultGridRows, Cols: DefaultGridCols},
	}
}

// Clone returns a copy that shares no slices with p.
func (p ProjectState) Clone() ProjectState {
	out := p
	out.Instruments = slices.Clone(p.Instruments)
	out.Clips = slices.Clone(p.Clips)
	if out.Instruments == nil {
		out.Instruments = []Instrument{}
	}
	if out.Clips == nil {
		out.Clips = []Clip{}
	}
	return out
}

// Instrument looks up a live instrument by id.
func (p ProjectState) Instrument(id string) (Instrument, bool) {
	i := slices.IndexFunc(p.Instruments, func(inst Instrument) bool { return inst.ID == id })
	if i < 0 {
		return Instrument{}, false
	}
	return p.Instruments[i], true
}

// ActiveClipsAt returns the ids of clips covering the given beat, in clip order.
func (p ProjectState) ActiveClipsAt(beat float64) []string {
	var ids []string
	for _, c := range p.Clips {
		if c.ActiveAt(beat) {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// ErrInvalidState is returned when a project state fails Validate.
var ErrInvalidState = errors.New("invalid project state")

// Validate checks the model invariants: distinct in-range grid positions,
// clips pointing at live instruments, in-range cursor and tempo, unique ids.
func (p ProjectState) Validate() error {
	if p.GridSize.Rows < 1 || p.GridSize.Cols < 1 {
		return fmt.Errorf("%w: grid %dx%d", ErrInvalidState, p.GridSize.Rows, p.GridSize.Cols)
	}
	if !(p.BPM >= tempo.MinBPM && p.BPM <= tempo.MaxBPM) {
		return fmt.Errorf("%w: bpm %v outside [%v, %v]", ErrInvalidState, p.BPM, tempo.MinBPM, tempo.MaxBPM)
	}
	if !(p.TotalBeats > 0) {
		return fmt.Errorf("%w: total beats %v", ErrInvalidState, p.TotalBeats)
	}
	if !(p.CurrentTime >= 0 && p.CurrentTime <= p.TotalBeats) {
		return fmt.Errorf("%w: current time %v outside [0, %v]", ErrInvalidState, p.CurrentTime, p.TotalBeats)
	}

	cells := p.GridSize.Cells()
	positions := make(map[int]string, len(p.Instruments))
	instruments := make(map[string]bool, len(p.Instruments))
	for _, inst := range p.Instruments {
		if inst.ID == "" || instruments[inst.ID] {
			return fmt.Errorf("%w: duplicate or empty instrument id %q", ErrInvalidState, inst.ID)
		}
		instruments[inst.ID] = true
		if inst.GridPosition < 0 || inst.GridPosition >= cells {
			return fmt.Errorf("%w: instrument %q at cell %d outside %d cells", ErrInvalidState, inst.ID, inst.GridPosition, cells)
		}
		if other, ok := positions[inst.GridPosition]; ok {
			return fmt.Errorf("%w: instruments %q and %q share cell %d", ErrInvalidState, other, inst.ID, inst.GridPosition)
		}
		positions[inst.GridPosition] = inst.ID
	}

	clips := make(map[string]bool, len(p.Clips))
	for _, c := range p.Clips {
		if c.ID == "" || clips[c.ID] {
			return fmt.Errorf("%w: duplicate or empty clip id %q", ErrInvalidState, c.ID)
		}
		clips[c.ID] = true
		if !instruments[c.InstrumentID] {
			return fmt.Errorf("%w: clip %q references unknown instrument %q", ErrInvalidState, c.ID, c.InstrumentID)
		}
	}
	return nil
}

// PlaybackState is the runtime position written by the tick driver.
type PlaybackState struct {
	CurrentBeat float64
	ActiveClips map[string]struct{}
}

func newPlaybackState() PlaybackState {
	return PlaybackState{ActiveClips: map[string]struct{}{}}
}

// Reset rewinds to beat 0 with nothing active.
func (p *PlaybackState) Reset() {
	*p = newPlaybackState()
}

// IsActive reports whether the clip is currently sounding.
func (p PlaybackState) IsActive(clipID string) bool {
	_, ok := p.ActiveClips[clipID]
	return ok
}

func (p PlaybackState) Clone() PlaybackState {
	out := p
	out.ActiveClips = maps.Clone(p.ActiveClips)
	if out.ActiveClips == nil {
		out.ActiveClips = map[string]struct{}{}
	}
	return out
}
