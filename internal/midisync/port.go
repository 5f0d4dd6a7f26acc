package midisync

import (
	"fmt"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/icco/videoseq/internal/sequencer"
)

// Sender delivers one MIDI message, as returned by midi.SendTo.
type Sender func(msg midi.Message) error

type sounding struct {
	channel uint8
	key     uint8
}

// PortSink plays clip starts and stops as notes on a MIDI output.
type PortSink struct {
	mu      sync.Mutex
	send    Sender
	port    drivers.Out
	lookup  func(instrumentID string) (sequencer.Instrument, bool)
	playing map[string]sounding // by clip id
}

// NewPortSink wraps send. lookup resolves a clip's instrument so its grid
// cell can pick the note and channel.
func NewPortSink(send Sender, lookup func(instrumentID string) (sequencer.Instrument, bool)) *PortSink {
	return &PortSink{
		send:    send,
		lookup:  lookup,
		playing: map[string]sounding{},
	}
}

// OutPorts lists the names of the available MIDI outputs.
func OutPorts() []string {
	var names []string
	for _, out := range midi.GetOutPorts() {
		names = append(names, out.String())
	}
	return names
}

// OpenPort connects to the named MIDI output.
func OpenPort(name string, lookup func(instrumentID string) (sequencer.Instrument, bool)) (*PortSink, error) {
	out, err := midi.FindOutPort(name)
	if err != nil {
		return nil, fmt.Errorf("failed to find port %s: %w", name, err)
	}
	return OpenOut(out, lookup)
}

// OpenOut wraps an output port, such as a virtual port created by a driver.
// Closing the sink closes the port.
func OpenOut(out drivers.Out, lookup func(instrumentID string) (sequencer.Instrument, bool)) (*PortSink, error) {
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("failed to open port %s: %w", out.String(), err)
	}
	s := NewPortSink(send, lookup)
	s.port = out
	return s, nil
}

// ClipStart sends a note on for the clip's instrument.
func (s *PortSink) ClipStart(c sequencer.Clip) {
	inst, ok := s.lookup(c.InstrumentID)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := sounding{channel: ChannelForCell(inst.GridPosition), key: NoteForCell(inst.GridPosition)}
	s.playing[c.ID] = n
	_ = s.send(midi.NoteOn(n.channel, n.key, velocity))
}

// ClipStop sends the note off matching an earlier ClipStart.
func (s *PortSink) ClipStop(c sequencer.Clip) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.playing[c.ID]
	if !ok {
		return
	}
	delete(s.playing, c.ID)
	_ = s.send(midi.NoteOff(n.channel, n.key))
}

// AllNotesOff silences every channel.
func (s *PortSink) AllNotesOff() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.playing)
	for ch := uint8(0); ch < 16; ch++ {
		_ = s.send(midi.ControlChange(ch, 123, 0))
	}
}

// Close silences the output and closes the port if this sink opened it.
func (s *PortSink) Close() error {
	s.AllNotesOff()
	if s.port != nil {
		return s.port.Close()
	}
	return nil
}
