// Package sequencer holds the video sequencer model: instruments bound to
// grid cells, clips placed on a beat timeline, and the playback position.
//
// A Sequencer is the only mutator of its ProjectState and PlaybackState.
// Every method takes the lock, so the UI and the tick driver may call it
// from different goroutines; snapshots returned to callers are copies.
package sequencer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/icco/videoseq/internal/tempo"
)

var (
	// ErrGridOrphan is returned when a resize would leave an instrument outside the grid.
	ErrGridOrphan = errors.New("grid resize would orphan an instrument")
	// ErrInvalidGrid is returned for grids with fewer than one row or column.
	ErrInvalidGrid = errors.New("grid needs at least one row and one column")
	// ErrGridFull is returned by AddInstrument when every cell is taken.
	ErrGridFull = errors.New("no free grid cell")
)

type Options struct {
	Resources ResourceLifecycle
	Logger    *slog.Logger
	// NewID overrides the random part of generated ids. Used by tests.
	NewID func() string
}

type Sequencer struct {
	mu        sync.Mutex
	project   ProjectState
	playback  PlaybackState
	resources ResourceLifecycle
	logger    *slog.Logger
	newID     func() string

	usedIDs map[string]bool // every id issued or imported in this project
	minted  map[string]bool // urls obtained from resources.Create and not yet released

	subs    map[int]chan Change
	nextSub int
}

// New returns a sequencer holding the default project.
func New(opts Options) *Sequencer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Sequencer{
		project:   DefaultProjectState(),
		playback:  newPlaybackState(),
		resources: opts.Resources,
		logger:    logger,
		newID:     newID,
		usedIDs:   map[string]bool{},
		minted:    map[string]bool{},
		subs:      map[int]chan Change{},
	}
}

// Project returns a snapshot of the project state.
func (s *Sequencer) Project() ProjectState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project.Clone()
}

// Playback returns a snapshot of the playback state.
func (s *Sequencer) Playback() PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playback.Clone()
}

func (s *Sequencer) issueIDLocked(prefix string) string {
	for {
		id := prefix + "-" + s.newID()
		if !s.usedIDs[id] {
			s.usedIDs[id] = true
			return id
		}
	}
}

func (s *Sequencer) releaseLocked(url string) {
	if url == "" || !s.minted[url] {
		return
	}
	delete(s.minted, url)
	if s.resources != nil {
		s.resources.Release(url)
	}
}

func freeCell(instruments []Instrument, grid GridSize) (int, bool) {
	used := lo.SliceToMap(instruments, func(inst Instrument) (int, bool) {
		return inst.GridPosition, true
	})
	for cell := 0; cell < grid.Cells(); cell++ {
		if !used[cell] {
			return cell, true
		}
	}
	return 0, false
}

// AddInstrument appends an instrument in the lowest free grid cell. When
// source is non-nil a fresh locator is minted for it and owned by the
// instrument; otherwise url is used as is.
func (s *Sequencer) AddInstrument(name string, source MediaHandle, url string) (Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell, ok := freeCell(s.project.Instruments, s.project.GridSize)
	if !ok {
		s.logger.Warn("instrument rejected, grid is full",
			"name", name, "rows", s.project.GridSize.Rows, "cols", s.project.GridSize.Cols)
		return Instrument{}, ErrGridFull
	}

	if source != nil {
		if s.resources == nil {
			return Instrument{}, fmt.Errorf("add instrument %q: no resource lifecycle configured", name)
		}
		minted, err := s.resources.Create(source)
		if err != nil {
			return Instrument{}, fmt.Errorf("add instrument %q: %w", name, err)
		}
		s.minted[minted] = true
		url = minted
	}

	inst := Instrument{
		ID:           s.issueIDLocked("instrument"),
		Name:         name,
		VideoSource:  source,
		VideoURL:     url,
		Color:        Palette[len(s.project.Instruments)%len(Palette)],
		GridPosition: cell,
	}
	s.project.Instruments = append(s.project.Instruments, inst)
	s.notifyLocked(ProjectChanged)
	return inst, nil
}

// RemoveInstrument frees the instrument's locator, removes it and every clip
// that references it. Unknown ids are ignored.
func (s *Sequencer) RemoveInstrument(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.project.Instrument(id)
	if !ok {
		return
	}
	s.releaseLocked(inst.VideoURL)

	s.project.Instruments = lo.Reject(s.project.Instruments, func(i Instrument, _ int) bool {
		return i.ID == id
	})
	s.project.Clips = lo.Reject(s.project.Clips, func(c Clip, _ int) bool {
		return c.InstrumentID == id
	})
	s.notifyLocked(ProjectChanged)
}

// AddClip appends a clip. The instrument id is not checked here; clips of a
// removed instrument disappear with it.
func (s *Sequencer) AddClip(instrumentID string, startTime, duration float64, trackIndex int) Clip {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip := Clip{
		ID:           s.issueIDLocked("clip"),
		InstrumentID: instrumentID,
		StartTime:    startTime,
		Duration:     duration,
		TrackIndex:   trackIndex,
	}
	s.project.Clips = append(s.project.Clips, clip)
	s.notifyLocked(ProjectChanged)
	return clip
}

func (s *Sequencer) RemoveClip(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.project.Clips)
	s.project.Clips = lo.Reject(s.project.Clips, func(c Clip, _ int) bool {
		return c.ID == id
	})
	if len(s.project.Clips) != before {
		s.notifyLocked(ProjectChanged)
	}
}

// UpdateClip merges the non-nil fields of patch into the clip with the given id.
func (s *Sequencer) UpdateClip(id string, patch ClipPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, i, ok := lo.FindIndexOf(s.project.Clips, func(c Clip) bool { return c.ID == id })
	if !ok {
		return
	}
	c := &s.project.Clips[i]
	if patch.InstrumentID != nil {
		c.InstrumentID = *patch.InstrumentID
	}
	if patch.StartTime != nil {
		c.StartTime = *patch.StartTime
	}
	if patch.Duration != nil {
		c.Duration = *patch.Duration
	}
	if patch.TrackIndex != nil {
		c.TrackIndex = *patch.TrackIndex
	}
	s.notifyLocked(ProjectChanged)
}

// SetBPM stores the tempo clamped to [40, 300].
func (s *Sequencer) SetBPM(bpm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project.BPM = tempo.ClampBPM(bpm)
	s.notifyLocked(ProjectChanged)
}

func (s *Sequencer) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project.IsPlaying = true
	s.notifyLocked(ProjectChanged)
}

func (s *Sequencer) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project.IsPlaying = false
	s.notifyLocked(ProjectChanged)
}

// Stop halts playback, rewinds the cursor and clears the playback state.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project.IsPlaying = false
	s.project.CurrentTime = 0
	s.playback.Reset()
	s.notifyLocked(ProjectChanged)
	s.notifyLocked(PlaybackChanged)
}

// SetCurrentTime moves the cursor, clamped to [0, TotalBeats].
func (s *Sequencer) SetCurrentTime(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if math.IsNaN(t) {
		t = 0
	}
	s.project.CurrentTime = math.Max(0, math.Min(s.project.TotalBeats, t))
	s.notifyLocked(ProjectChanged)
}

func (s *Sequencer) ToggleLoopMode() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project.LoopMode = !s.project.LoopMode
	s.notifyLocked(ProjectChanged)
}

// SetGridSize replaces the grid dimensions unless an instrument would end up
// outside the new grid, in which case nothing changes.
func (s *Sequencer) SetGridSize(rows, cols int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rows < 1 || cols < 1 {
		s.logger.Warn("grid resize rejected", "rows", rows, "cols", cols, "reason", "empty grid")
		return fmt.Errorf("%w: %dx%d", ErrInvalidGrid, rows, cols)
	}
	cells := rows * cols
	if orphan, found := lo.Find(s.project.Instruments, func(inst Instrument) bool {
		return inst.GridPosition >= cells
	}); found {
		s.logger.Warn("grid resize rejected",
			"rows", rows, "cols", cols,
			"instrument", orphan.Name, "position", orphan.GridPosition)
		return fmt.Errorf("%w: %q sits in cell %d of a %dx%d grid", ErrGridOrphan, orphan.Name, orphan.GridPosition, rows, cols)
	}

	s.project.GridSize = GridSize{Rows: rows, Cols: cols}
	s.notifyLocked(ProjectChanged)
	return nil
}

// SetPlayback records the driver's position and the set of sounding clips.
func (s *Sequencer) SetPlayback(beat float64, active []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playback = PlaybackState{
		CurrentBeat: beat,
		ActiveClips: lo.SliceToMap(active, func(id string) (string, struct{}) {
			return id, struct{}{}
		}),
	}
	s.notifyLocked(PlaybackChanged)
}

// SetPosition moves the cursor and records the sounding clips in one step, so
// a subscriber never sees the project time and the playback beat disagree.
// The beat is clamped the same way SetCurrentTime clamps it.
func (s *Sequencer) SetPosition(beat float64, active []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if math.IsNaN(beat) {
		beat = 0
	}
	beat = math.Max(0, math.Min(s.project.TotalBeats, beat))
	s.project.CurrentTime = beat
	s.playback = PlaybackState{
		CurrentBeat: beat,
		ActiveClips: lo.SliceToMap(active, func(id string) (string, struct{}) {
			return id, struct{}{}
		}),
	}
	s.notifyLocked(ProjectChanged)
	s.notifyLocked(PlaybackChanged)
}

// Replace installs next wholesale, as done when a project is opened. Every
// locator minted for the current instruments is released first. The
// playback flags of next are ignored: the new project starts stopped at 0.
func (s *Sequencer) Replace(next ProjectState) error {
	next = next.Clone()
	next.IsPlaying = false
	next.CurrentTime = 0
	if err := next.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inst := range s.project.Instruments {
		s.releaseLocked(inst.VideoURL)
	}

	s.usedIDs = make(map[string]bool, len(next.Instruments)+len(next.Clips))
	for _, inst := range next.Instruments {
		s.usedIDs[inst.ID] = true
	}
	for _, c := range next.Clips {
		s.usedIDs[c.ID] = true
	}

	s.project = next
	s.playback.Reset()
	s.notifyLocked(ProjectChanged)
	s.notifyLocked(PlaybackChanged)
	return nil
}
