// Package audio provides the metronome click heard during playback
package audio

import (
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
)

const (
	sampleRate   = 44100
	channelCount = 2 // stereo
	bitDepth     = 2 // 16-bit
)

const (
	accentFreq  = 1760.0 // first beat of a bar
	regularFreq = 880.0
	clickDecay  = 0.9990 // per-sample envelope factor, ~25ms audible tail
)

// click is one sounding metronome tick
type click struct {
	frequency float64
	phase     float64
	envelope  float64
}

// clickSource mixes pending clicks into PCM. It has no audio device so it
// can be read directly in tests.
type clickSource struct {
	mu           sync.Mutex
	clicks       []*click
	masterVolume float64
}

func (s *clickSource) trigger(accent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	freq := regularFreq
	if accent {
		freq = accentFreq
	}
	s.clicks = append(s.clicks, &click{frequency: freq, envelope: 1})
}

func (s *clickSource) Read(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	numSamples := len(buf) / (channelCount * bitDepth)
	for i := 0; i < numSamples; i++ {
		var sample float64
		for _, c := range s.clicks {
			sample += math.Sin(2*math.Pi*c.phase) * c.envelope

			c.phase += c.frequency / sampleRate
			if c.phase >= 1.0 {
				c.phase -= 1.0
			}
			c.envelope *= clickDecay
		}

		sample *= s.masterVolume
		if sample > 1.0 {
			sample = 1.0
		} else if sample < -1.0 {
			sample = -1.0
		}

		sampleInt := int16(sample * 32767)
		idx := i * channelCount * bitDepth
		buf[idx] = byte(sampleInt)
		buf[idx+1] = byte(sampleInt >> 8)
		buf[idx+2] = byte(sampleInt)
		buf[idx+3] = byte(sampleInt >> 8)
	}

	// drop clicks that have faded out
	live := s.clicks[:0]
	for _, c := range s.clicks {
		if c.envelope >= 0.001 {
			live = append(live, c)
		}
	}
	s.clicks = live

	return len(buf), nil
}

// Metronome plays a short click on every beat through the system audio output.
type Metronome struct {
	source      *clickSource
	player      *oto.Player
	beatsPerBar int
}

// NewMetronome opens the audio device.
func NewMetronome(beatsPerBar int) (*Metronome, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	otoCtx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	if beatsPerBar < 1 {
		beatsPerBar = 4
	}
	m := &Metronome{
		source:      &clickSource{masterVolume: 0.3},
		beatsPerBar: beatsPerBar,
	}
	m.player = otoCtx.NewPlayer(m.source)
	m.player.Play()
	return m, nil
}

// Beat clicks for the given beat, accented on the first beat of each bar.
// It matches transport.Driver's OnBeat signature.
func (m *Metronome) Beat(beat int) {
	m.source.trigger(beat%m.beatsPerBar == 0)
}

// SetVolume sets the master volume (0.0 - 1.0)
func (m *Metronome) SetVolume(vol float64) {
	m.source.mu.Lock()
	defer m.source.mu.Unlock()

	if vol < 0 {
		vol = 0
	} else if vol > 1 {
		vol = 1
	}
	m.source.masterVolume = vol
}

// Close stops the output.
func (m *Metronome) Close() error {
	m.player.Pause()
	return nil
}
