// Package transport moves the sequencer cursor forward in real time and
// keeps the playback state in step with it.
package transport

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/icco/videoseq/internal/sequencer"
	"github.com/icco/videoseq/internal/tempo"
)

// Sequencer is the part of *sequencer.Sequencer the driver needs.
type Sequencer interface {
	Project() sequencer.ProjectState
	SetPosition(beat float64, active []string)
	Pause()
}

// Driver advances playback. It is the only writer of the playback state and
// must not be shared between goroutines.
type Driver struct {
	seq    Sequencer
	logger *slog.Logger

	// OnBeat is called for every whole beat the cursor crosses.
	OnBeat func(beat int)
	// OnClipStart and OnClipStop are called when a clip enters or leaves the active set.
	OnClipStart func(c sequencer.Clip)
	OnClipStop  func(c sequencer.Clip)

	active  map[string]sequencer.Clip
	running bool
}

func New(seq Sequencer, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		seq:    seq,
		logger: logger.With("component", "transport"),
		active: map[string]sequencer.Clip{},
	}
}

// Advance moves the cursor by elapsed wall-clock time at the project tempo.
// At the end of the timeline it wraps in loop mode and pauses otherwise.
func (d *Driver) Advance(elapsed time.Duration) {
	p := d.seq.Project()
	if !p.IsPlaying {
		d.running = false
		d.stopAll()
		return
	}

	from := p.CurrentTime
	if !d.running && from == math.Floor(from) {
		d.emitBeat(int(from))
	}
	d.running = true
	to := from + tempo.SecondsToBeats(elapsed.Seconds(), p.BPM)
	ended := false
	if to >= p.TotalBeats {
		if p.LoopMode {
			d.beats(from, p.TotalBeats, p.TotalBeats)
			d.emitBeat(0)
			from = 0
			to = math.Mod(to, p.TotalBeats)
		} else {
			to = p.TotalBeats
			ended = true
		}
	}
	d.beats(from, to, p.TotalBeats)

	d.sync(p, to)
	if ended {
		d.logger.Debug("end of timeline reached", "beats", p.TotalBeats)
		d.seq.Pause()
		d.running = false
		d.stopAll()
	}
}

// beats emits every whole beat in (from, to] that lies before end.
func (d *Driver) beats(from, to, end float64) {
	for b := math.Floor(from) + 1; b <= to && b < end; b++ {
		d.emitBeat(int(b))
	}
}

func (d *Driver) emitBeat(b int) {
	if d.OnBeat != nil {
		d.OnBeat(b)
	}
}

func (d *Driver) sync(p sequencer.ProjectState, beat float64) {
	ids := p.ActiveClipsAt(beat)
	next := make(map[string]sequencer.Clip, len(ids))
	for _, c := range p.Clips {
		if c.ActiveAt(beat) {
			next[c.ID] = c
		}
	}

	for id, c := range d.active {
		if _, ok := next[id]; !ok && d.OnClipStop != nil {
			d.OnClipStop(c)
		}
	}
	for _, id := range ids {
		if _, ok := d.active[id]; !ok && d.OnClipStart != nil {
			d.OnClipStart(next[id])
		}
	}
	d.active = next
	d.seq.SetPosition(beat, ids)
}

func (d *Driver) stopAll() {
	for _, c := range d.active {
		if d.OnClipStop != nil {
			d.OnClipStop(c)
		}
	}
	clear(d.active)
}

// Run calls Advance on every tick of interval until ctx is done.
func (d *Driver) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			d.stopAll()
			return
		case now := <-ticker.C:
			d.Advance(now.Sub(last))
			last = now
		}
	}
}
