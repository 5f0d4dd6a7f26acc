// Package midisync mirrors the clip timeline as MIDI, either as a Standard
// MIDI File or live on an output port, so external gear can follow along.
package midisync

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/icco/videoseq/internal/project"
)

const (
	ticksPerBeat = 960 // Standard MIDI resolution
	baseNote     = 36  // C2, first cell of the grid
	maxMIDINote  = 127
	velocity     = 100
)

// NoteForCell maps a grid cell to the note that represents it.
func NoteForCell(cell int) uint8 {
	n := baseNote + cell
	if n > maxMIDINote {
		n = maxMIDINote
	}
	if n < 0 {
		n = 0
	}
	return uint8(n) //nolint:gosec // bounded above
}

// ChannelForCell spreads instruments over the sixteen MIDI channels.
func ChannelForCell(cell int) uint8 {
	if cell < 0 {
		cell = 0
	}
	return uint8(cell % 16) //nolint:gosec // bounded by modulo
}

func beatToTick(beat float64) uint32 {
	if beat <= 0 {
		return 0
	}
	return uint32(math.Round(beat * ticksPerBeat))
}

type event struct {
	tick uint32
	off  bool
	msg  midi.Message
}

// WriteSMF renders the document as a type 1 MIDI file: a tempo track
// followed by one track per instrument where every clip is a note.
func WriteSMF(doc project.Document, w io.Writer) error {
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(ticksPerBeat)

	var track0 smf.Track
	track0.Add(0, smf.MetaMeter(4, 4))
	track0.Add(0, smf.MetaTempo(doc.BPM))
	track0.Close(0)
	if err := sm.Add(track0); err != nil {
		return fmt.Errorf("error adding tempo track: %w", err)
	}

	end := beatToTick(doc.TotalBeats)
	for _, inst := range doc.Instruments {
		ch := ChannelForCell(inst.GridPosition)
		key := NoteForCell(inst.GridPosition)

		var events []event
		for _, c := range doc.Clips {
			if c.InstrumentID != inst.ID || c.Duration <= 0 {
				continue
			}
			on := beatToTick(c.StartTime)
			off := beatToTick(c.StartTime + c.Duration)
			events = append(events,
				event{tick: on, msg: midi.NoteOn(ch, key, velocity)},
				event{tick: off, off: true, msg: midi.NoteOff(ch, key)},
			)
		}
		// note offs first so back to back clips retrigger
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].tick != events[j].tick {
				return events[i].tick < events[j].tick
			}
			return events[i].off && !events[j].off
		})

		var track smf.Track
		track.Add(0, smf.MetaTrackSequenceName(inst.Name))
		var lastTick uint32
		for _, e := range events {
			track.Add(e.tick-lastTick, e.msg)
			lastTick = e.tick
		}
		if lastTick < end {
			track.Close(end - lastTick)
		} else {
			track.Close(0)
		}
		if err := sm.Add(track); err != nil {
			return fmt.Errorf("error adding track %q: %w", inst.Name, err)
		}
	}

	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("error writing MIDI file: %w", err)
	}
	return nil
}
